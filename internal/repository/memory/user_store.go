package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"talkregistration/internal/domain"
)

// UserStore is an in-memory domain.UserRepository. Passwords are hashed
// with the injected hasher before they reach the map.
type UserStore struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	emailIndex map[string]string // lower-cased email -> user id
	hasher     domain.PasswordHasher
	now        func() time.Time
}

// NewUserStore returns an empty UserStore.
func NewUserStore(hasher domain.PasswordHasher) *UserStore {
	return &UserStore{
		users:      make(map[string]*domain.User),
		emailIndex: make(map[string]string),
		hasher:     hasher,
		now:        time.Now,
	}
}

var _ domain.UserRepository = (*UserStore)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(_ context.Context, u *domain.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(u.Email)
	if _, exists := s.emailIndex[email]; exists {
		return domain.ErrDuplicateEmail
	}
	now := s.now()
	u.ID = uuid.NewString()
	u.Email = email
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	u.PasswordHash = ""

	stored := *u
	stored.PasswordHash = hash
	s.users[stored.ID] = &stored
	s.emailIndex[email] = stored.ID
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[normalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s.users[id]
	return &c, nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Sanitized(), nil
}

func (s *UserStore) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	var hash string
	if patch.Password != nil {
		h, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Company != nil {
		u.Company = *patch.Company
	}
	if patch.JobTitle != nil {
		u.JobTitle = *patch.JobTitle
	}
	if patch.PhotoURL != nil {
		u.PhotoURL = *patch.PhotoURL
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if hash != "" {
		u.PasswordHash = hash
	}
	u.UpdatedAt = s.now()
	return u.Sanitized(), nil
}

func (s *UserStore) VerifyPassword(u *domain.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return s.hasher.Compare(u.PasswordHash, password) == nil
}
