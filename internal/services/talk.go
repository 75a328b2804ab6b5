package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"talkregistration/internal/domain"
)

const importedDescription = "Details for this session will be announced soon."

type talkService struct {
	talkRepo         domain.TalkRepository
	registrationRepo domain.RegistrationRepository
	fetcher          domain.SessionFetcher
	locks            *TalkLocks
	venue            *time.Location
	contextTimeout   time.Duration
}

// NewTalkService returns a TalkService. venue is the location Sessionize
// wall-clock times are read in. locks must be the instance given to the
// registration service.
func NewTalkService(talkRepo domain.TalkRepository,
	registrationRepo domain.RegistrationRepository,
	fetcher domain.SessionFetcher,
	locks *TalkLocks,
	venue *time.Location,
	timeout time.Duration,
) domain.TalkService {
	if venue == nil {
		venue = time.UTC
	}
	return &talkService{
		talkRepo:         talkRepo,
		registrationRepo: registrationRepo,
		fetcher:          fetcher,
		locks:            locks,
		venue:            venue,
		contextTimeout:   timeout,
	}
}

func (s *talkService) Create(ctx context.Context, talk *domain.Talk) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if talk == nil {
		return domain.NewValidationError([]string{"talk is required"})
	}
	talk.Tags = domain.NormalizeTags(talk.Tags)
	if err := domain.NewValidationError(talk.Validate()); err != nil {
		return err
	}
	if err := s.talkRepo.Create(ctx, talk); err != nil {
		return fmt.Errorf("create talk: %w", err)
	}
	return nil
}

func (s *talkService) GetByID(ctx context.Context, id string) (*domain.Talk, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.talkRepo.GetByID(ctx, id)
}

// List returns one page of talks ordered by start time and the total number of matches.
func (s *talkService) List(ctx context.Context, filter domain.TalkFilter, page domain.PaginationParams) ([]*domain.Talk, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter.Tag = strings.TrimSpace(filter.Tag)
	filter.Location = strings.TrimSpace(filter.Location)
	talks, err := s.talkRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list talks: %w", err)
	}
	sortByStartTime(talks)

	total := len(talks)
	start, end := page.Bounds(total)
	return talks[start:end], total, nil
}

func sortByStartTime(talks []*domain.Talk) {
	sort.SliceStable(talks, func(i, j int) bool {
		if !talks[i].StartTime.Equal(talks[j].StartTime) {
			return talks[i].StartTime.Before(talks[j].StartTime)
		}
		return talks[i].ID < talks[j].ID
	})
}

// Update validates the merged talk before writing the patch.
func (s *talkService) Update(ctx context.Context, id string, patch domain.TalkPatch) (*domain.Talk, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.talkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := current.Clone()
	patch.Apply(merged)
	if err := domain.NewValidationError(merged.Validate()); err != nil {
		return nil, err
	}
	return s.talkRepo.Update(ctx, id, patch)
}

// Delete refuses while the talk still has active registrations. Cancelled
// registrations are removed together with the talk.
func (s *talkService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.talkRepo.GetByID(ctx, id); err != nil {
		return err
	}
	regs, err := s.registrationRepo.ListByTalkID(ctx, id)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	for _, reg := range regs {
		if reg.Active() {
			return domain.ErrTalkHasRegistrations
		}
	}
	for _, reg := range regs {
		if _, err := s.registrationRepo.Delete(ctx, reg.ID); err != nil {
			return fmt.Errorf("delete cancelled registration: %w", err)
		}
	}
	deleted, err := s.talkRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// ImportSessionize creates a talk for every speaker session of the Sessionize
// event. Sessions already present (same title and start time) are skipped,
// so importing twice is harmless.
func (s *talkService) ImportSessionize(ctx context.Context, sessionizeID string) ([]*domain.Talk, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if s.fetcher == nil {
		return nil, errors.New("sessionize import is not configured")
	}
	sessionizeID = strings.TrimSpace(sessionizeID)
	if sessionizeID == "" {
		return nil, domain.NewValidationError([]string{"sessionize id is required"})
	}
	agenda, err := s.fetcher.Fetch(ctx, sessionizeID)
	if err != nil {
		return nil, fmt.Errorf("fetch sessionize agenda: %w", err)
	}

	existing, err := s.talkRepo.List(ctx, domain.TalkFilter{})
	if err != nil {
		return nil, fmt.Errorf("list talks: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[talkKey(t.Title, t.StartTime)] = struct{}{}
	}

	rooms := make(map[int]string, len(agenda.Rooms))
	for _, r := range agenda.Rooms {
		rooms[r.ID] = r.Name
	}
	speakers := make(map[string]domain.SessionizeSpeaker, len(agenda.Speakers))
	for _, sp := range agenda.Speakers {
		speakers[sp.ID] = sp
	}
	categoryItems := make(map[int]string)
	for _, c := range agenda.Categories {
		for _, item := range c.Items {
			categoryItems[item.ID] = item.Name
		}
	}

	imported := []*domain.Talk{}
	for _, session := range agenda.Sessions {
		if session.IsServiceSession || session.StartsAt.IsZero() || session.EndsAt.IsZero() {
			continue
		}
		talk := s.talkFromSession(session, rooms, speakers, categoryItems)
		key := talkKey(talk.Title, talk.StartTime)
		if _, dup := seen[key]; dup {
			continue
		}
		if len(talk.Validate()) > 0 {
			continue
		}
		if err := s.talkRepo.Create(ctx, talk); err != nil {
			return imported, fmt.Errorf("create talk %q: %w", talk.Title, err)
		}
		seen[key] = struct{}{}
		imported = append(imported, talk)
	}
	sortByStartTime(imported)
	return imported, nil
}

func (s *talkService) talkFromSession(session domain.SessionizeSession,
	rooms map[int]string,
	speakers map[string]domain.SessionizeSpeaker,
	categoryItems map[int]string,
) *domain.Talk {
	description := importedDescription
	if session.Description != nil && len(strings.TrimSpace(*session.Description)) >= 10 {
		description = *session.Description
	}
	location := rooms[session.RoomID]
	if strings.TrimSpace(location) == "" {
		location = "TBD"
	}

	talkSpeakers := make([]domain.Speaker, 0, len(session.Speakers))
	for _, id := range session.Speakers {
		sp, ok := speakers[id]
		if !ok || strings.TrimSpace(sp.FullName) == "" {
			continue
		}
		bio := sp.Bio
		if bio == "" {
			bio = sp.TagLine
		}
		talkSpeakers = append(talkSpeakers, domain.Speaker{Name: sp.FullName, Bio: bio, Photo: sp.ProfilePicture})
	}

	var tags []string
	for _, id := range session.CategoryItems {
		if name, ok := categoryItems[id]; ok {
			tags = append(tags, name)
		}
	}

	return domain.NewTalk(session.Title, description, location, talkSpeakers,
		session.StartsAt.InLocation(s.venue), session.EndsAt.InLocation(s.venue), nil, tags)
}

func talkKey(title string, start time.Time) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + start.UTC().Format(time.RFC3339)
}
