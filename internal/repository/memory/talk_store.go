// Package memory holds process-local implementations of the domain
// repositories. Each store guards its own maps and hands out copies.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"talkregistration/internal/domain"
)

// TalkStore is an in-memory domain.TalkRepository.
type TalkStore struct {
	mu    sync.RWMutex
	talks map[string]*domain.Talk
	now   func() time.Time
}

// NewTalkStore returns an empty TalkStore.
func NewTalkStore() *TalkStore {
	return &TalkStore{
		talks: make(map[string]*domain.Talk),
		now:   time.Now,
	}
}

var _ domain.TalkRepository = (*TalkStore)(nil)

func (s *TalkStore) Create(_ context.Context, t *domain.Talk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Tags = domain.NormalizeTags(t.Tags)
	s.talks[t.ID] = t.Clone()
	return nil
}

func (s *TalkStore) GetByID(_ context.Context, id string) (*domain.Talk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.talks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *TalkStore) List(_ context.Context, filter domain.TalkFilter) ([]*domain.Talk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Talk, 0, len(s.talks))
	for _, t := range s.talks {
		if filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (s *TalkStore) Update(_ context.Context, id string, patch domain.TalkPatch) (*domain.Talk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.talks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := t.Clone()
	patch.Apply(updated)
	updated.UpdatedAt = s.now()
	s.talks[id] = updated
	return updated.Clone(), nil
}

func (s *TalkStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.talks[id]; !ok {
		return false, nil
	}
	delete(s.talks, id)
	return true, nil
}

func (s *TalkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.talks), nil
}
