package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"talkregistration/internal/domain"
)

const (
	minPasswordLen    = 8
	minDisplayNameLen = 2
	maxDisplayNameLen = 100
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type authService struct {
	userRepo       domain.UserRepository
	tokenIssuer    domain.TokenIssuer
	tokenVerifier  domain.TokenVerifier
	tokenExpiry    time.Duration
	notifier       domain.Notifier
	contextTimeout time.Duration
}

// NewAuthService creates an AuthService. notifier may be nil.
func NewAuthService(userRepo domain.UserRepository,
	tokenIssuer domain.TokenIssuer,
	tokenVerifier domain.TokenVerifier,
	tokenExpiry time.Duration,
	notifier domain.Notifier,
	timeout time.Duration,
) domain.AuthService {
	return &authService{
		userRepo:       userRepo,
		tokenIssuer:    tokenIssuer,
		tokenVerifier:  tokenVerifier,
		tokenExpiry:    tokenExpiry,
		notifier:       notifier,
		contextTimeout: timeout,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword returns the policy violations of password.
func validatePassword(password string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < minPasswordLen {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		problems = append(problems, "password must contain at least one uppercase letter, one lowercase letter and one number")
	}
	return problems
}

// cleanDisplayName trims and escapes name, returning a problem when its length is out of range.
func cleanDisplayName(name string) (string, string) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < minDisplayNameLen || n > maxDisplayNameLen {
		return "", fmt.Sprintf("display name must be between %d and %d characters", minDisplayNameLen, maxDisplayNameLen)
	}
	return html.EscapeString(name), ""
}

// SignUp creates a user account and returns a token for it. An empty display
// name defaults to the local part of the email.
func (s *authService) SignUp(ctx context.Context, email, password, displayName string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	var problems []string
	if !emailRegexp.MatchString(email) {
		problems = append(problems, "a valid email is required")
	}
	problems = append(problems, validatePassword(password)...)
	if strings.TrimSpace(displayName) == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	name, problem := cleanDisplayName(displayName)
	if problem != "" {
		problems = append(problems, problem)
	}
	if err := domain.NewValidationError(problems); err != nil {
		return "", nil, err
	}

	user := domain.NewUser(email, name, domain.RoleUser)
	if err := s.userRepo.Create(ctx, user, password); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}
	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyWelcome(&domain.WelcomeEmailData{Email: user.Email, DisplayName: user.DisplayName})
	}
	return token, user.Sanitized(), nil
}

// Login checks the credentials. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.NewValidationError([]string{"email and password are required"})
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if !s.userRepo.VerifyPassword(user, password) {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user.Sanitized(), nil
}

// EnsureAdmin creates the admin account, or promotes an existing account with that email.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if !emailRegexp.MatchString(email) {
		return nil, domain.NewValidationError([]string{"a valid admin email is required"})
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return existing.Sanitized(), nil
		}
		role := domain.RoleAdmin
		return s.userRepo.Update(ctx, existing.ID, domain.UserPatch{Role: &role})
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if err := domain.NewValidationError(validatePassword(password)); err != nil {
		return nil, err
	}
	name, _, _ := strings.Cut(email, "@")
	if utf8.RuneCountInString(name) < minDisplayNameLen {
		name = "Admin"
	}
	admin := domain.NewUser(email, name, domain.RoleAdmin)
	if err := s.userRepo.Create(ctx, admin, password); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin.Sanitized(), nil
}

// VerifyToken checks the signature and expiry of token and loads its user.
// Any failure, including a user that no longer exists, is ErrInvalidToken.
func (s *authService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	identity, err := s.tokenVerifier.Verify(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user.Sanitized(), nil
}

func (s *authService) issue(user *domain.User) (string, error) {
	token, err := s.tokenIssuer.Issue(domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, s.tokenExpiry)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
