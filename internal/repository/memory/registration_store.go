package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"talkregistration/internal/domain"
)

type pairKey struct {
	userID string
	talkID string
}

// RegistrationStore is an in-memory domain.RegistrationRepository with
// secondary indexes by user, by talk and by (user, talk) pair.
type RegistrationStore struct {
	mu            sync.RWMutex
	registrations map[string]*domain.Registration
	byUser        map[string]map[string]struct{}
	byTalk        map[string]map[string]struct{}
	byPair        map[pairKey]string
	now           func() time.Time
}

// NewRegistrationStore returns an empty RegistrationStore.
func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{
		registrations: make(map[string]*domain.Registration),
		byUser:        make(map[string]map[string]struct{}),
		byTalk:        make(map[string]map[string]struct{}),
		byPair:        make(map[pairKey]string),
		now:           time.Now,
	}
}

var _ domain.RegistrationRepository = (*RegistrationStore)(nil)

// Create checks for a duplicate before checking capacity, all under the write lock.
// A cancelled registration for the same pair is replaced by the new one.
func (s *RegistrationStore) Create(_ context.Context, reg *domain.Registration, maxAttendees *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID: reg.UserID, talkID: reg.TalkID}
	var previous *domain.Registration
	if id, ok := s.byPair[key]; ok {
		previous = s.registrations[id]
		if previous != nil && previous.Active() {
			return domain.ErrAlreadyRegistered
		}
	}
	if maxAttendees != nil && s.countActiveLocked(reg.TalkID) >= *maxAttendees {
		return domain.ErrTalkFull
	}
	if previous != nil {
		s.removeLocked(previous)
	}

	now := s.now()
	reg.ID = uuid.NewString()
	if reg.Status == "" {
		reg.Status = domain.RegistrationConfirmed
	}
	if reg.RegistrationDate.IsZero() {
		reg.RegistrationDate = now
	}
	reg.CreatedAt = now
	reg.UpdatedAt = now

	stored := *reg
	s.registrations[stored.ID] = &stored
	addToIndex(s.byUser, stored.UserID, stored.ID)
	addToIndex(s.byTalk, stored.TalkID, stored.ID)
	s.byPair[key] = stored.ID
	return nil
}

func (s *RegistrationStore) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *RegistrationStore) GetByUserAndTalk(_ context.Context, userID, talkID string) (*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if userID == "" || talkID == "" {
		return nil, domain.ErrNotFound
	}
	id, ok := s.byPair[pairKey{userID: userID, talkID: talkID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s.registrations[id]
	return &c, nil
}

func (s *RegistrationStore) ListByUserID(_ context.Context, userID string) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byUser[userID]), nil
}

func (s *RegistrationStore) ListByTalkID(_ context.Context, talkID string) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byTalk[talkID]), nil
}

func (s *RegistrationStore) CountActiveByTalkID(_ context.Context, talkID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countActiveLocked(talkID), nil
}

func (s *RegistrationStore) Update(_ context.Context, id string, patch domain.RegistrationPatch) (*domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(r)
	r.UpdatedAt = s.now()
	c := *r
	return &c, nil
}

func (s *RegistrationStore) Cancel(ctx context.Context, id string) (*domain.Registration, error) {
	status := domain.RegistrationCancelled
	return s.Update(ctx, id, domain.RegistrationPatch{Status: &status})
}

func (s *RegistrationStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return false, nil
	}
	s.removeLocked(r)
	return true, nil
}

func (s *RegistrationStore) countActiveLocked(talkID string) int {
	n := 0
	for id := range s.byTalk[talkID] {
		if s.registrations[id].Active() {
			n++
		}
	}
	return n
}

func (s *RegistrationStore) removeLocked(r *domain.Registration) {
	delete(s.registrations, r.ID)
	removeFromIndex(s.byUser, r.UserID, r.ID)
	removeFromIndex(s.byTalk, r.TalkID, r.ID)
	key := pairKey{userID: r.UserID, talkID: r.TalkID}
	if s.byPair[key] == r.ID {
		delete(s.byPair, key)
	}
}

func (s *RegistrationStore) collectLocked(ids map[string]struct{}) []*domain.Registration {
	out := make([]*domain.Registration, 0, len(ids))
	for id := range ids {
		c := *s.registrations[id]
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegistrationDate.Equal(out[j].RegistrationDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegistrationDate.Before(out[j].RegistrationDate)
	})
	return out
}

func addToIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}
