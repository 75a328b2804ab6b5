package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"talkregistration/internal/domain"
)

// RegistrationRecorder counts registration attempts by outcome.
type RegistrationRecorder interface {
	IncRegistration(outcome string)
}

type registrationService struct {
	registrationRepo domain.RegistrationRepository
	talkRepo         domain.TalkRepository
	userRepo         domain.UserRepository
	notifier         domain.Notifier
	recorder         RegistrationRecorder
	locks            *TalkLocks
	logger           *slog.Logger
	contextTimeout   time.Duration
}

// NewRegistrationService returns a RegistrationService. notifier and recorder may be nil.
// locks must be the instance given to the talk service.
func NewRegistrationService(registrationRepo domain.RegistrationRepository,
	talkRepo domain.TalkRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	recorder RegistrationRecorder,
	locks *TalkLocks,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RegistrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationService{
		registrationRepo: registrationRepo,
		talkRepo:         talkRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		recorder:         recorder,
		locks:            locks,
		logger:           logger,
		contextTimeout:   timeout,
	}
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, domain.ErrTalkFull):
		return "full"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *registrationService) record(err error) {
	if s.recorder != nil {
		s.recorder.IncRegistration(registrationOutcome(err))
	}
}

// Register books a seat for userID in talkID. The talk stays locked from the
// lookup to the insert, so it cannot be deleted or shrunk in between. The
// confirmation email is queued after the registration is stored and never
// affects the result.
func (s *registrationService) Register(ctx context.Context, userID, talkID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, talk, err := s.book(ctx, userID, talkID)
	s.record(err)
	if err != nil {
		return nil, err
	}
	s.notifyConfirmed(ctx, reg, talk)
	return reg, nil
}

func (s *registrationService) book(ctx context.Context, userID, talkID string) (*domain.Registration, *domain.Talk, error) {
	unlock := s.locks.Lock(talkID)
	defer unlock()

	talk, err := s.talkRepo.GetByID(ctx, talkID)
	if err != nil {
		return nil, nil, err
	}
	reg := domain.NewRegistration(userID, talk.ID)
	if err := s.registrationRepo.Create(ctx, reg, talk.MaxAttendees); err != nil {
		return nil, nil, err
	}
	return reg, talk, nil
}

func (s *registrationService) notifyConfirmed(ctx context.Context, reg *domain.Registration, talk *domain.Talk) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, reg.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping confirmation email", "registration_id", reg.ID, "err", err)
		return
	}
	names := make([]string, 0, len(talk.Speakers))
	for _, sp := range talk.Speakers {
		names = append(names, sp.Name)
	}
	s.notifier.NotifyRegistrationConfirmed(&domain.RegistrationConfirmationEmailData{
		Email:          user.Email,
		DisplayName:    user.DisplayName,
		TalkTitle:      talk.Title,
		TalkLocation:   talk.Location,
		StartTime:      talk.StartTime,
		EndTime:        talk.EndTime,
		Speakers:       names,
		RegistrationID: reg.ID,
	})
}

// Cancel removes the user's registration for the talk.
func (s *registrationService) Cancel(ctx context.Context, userID, talkID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByUserAndTalk(ctx, userID, talkID)
	if err != nil {
		return err
	}
	deleted, err := s.registrationRepo.Delete(ctx, reg.ID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// ListForUser joins the user's registrations with their talks, ordered by talk start time.
// Registrations whose talk no longer exists are left out.
func (s *registrationService) ListForUser(ctx context.Context, userID string) ([]*domain.UserRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]*domain.UserRegistration, 0, len(regs))
	for _, reg := range regs {
		talk, err := s.talkRepo.GetByID(ctx, reg.TalkID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get talk %s: %w", reg.TalkID, err)
		}
		out = append(out, &domain.UserRegistration{Registration: *reg, Talk: talk})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Talk.StartTime, out[j].Talk.StartTime
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListForTalk returns the talk's registrations with minimal attendee details.
func (s *registrationService) ListForTalk(ctx context.Context, talkID string) ([]*domain.TalkRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.talkRepo.GetByID(ctx, talkID); err != nil {
		return nil, err
	}
	regs, err := s.registrationRepo.ListByTalkID(ctx, talkID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]*domain.TalkRegistration, 0, len(regs))
	for _, reg := range regs {
		user, err := s.userRepo.GetByID(ctx, reg.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get user %s: %w", reg.UserID, err)
		}
		out = append(out, &domain.TalkRegistration{
			Registration: *reg,
			User:         &domain.Attendee{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email},
		})
	}
	return out, nil
}

func (s *registrationService) MarkAttended(ctx context.Context, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status == domain.RegistrationCancelled {
		return nil, domain.NewValidationError([]string{"a cancelled registration cannot be marked as attended"})
	}
	status := domain.RegistrationAttended
	attended := true
	return s.registrationRepo.Update(ctx, registrationID, domain.RegistrationPatch{Status: &status, Attended: &attended})
}

// CancelByID flips the registration to cancelled, freeing its seat.
func (s *registrationService) CancelByID(ctx context.Context, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.registrationRepo.Cancel(ctx, registrationID)
}
