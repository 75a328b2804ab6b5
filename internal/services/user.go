package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"talkregistration/internal/domain"
)

const (
	maxProfileFieldLen = 100
	maxPhotoURLLen     = 500
)

type userService struct {
	userRepo       domain.UserRepository
	contextTimeout time.Duration
}

// NewUserService creates a UserService backed by userRepo.
func NewUserService(userRepo domain.UserRepository, timeout time.Duration) domain.UserService {
	return &userService{userRepo: userRepo, contextTimeout: timeout}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile applies the profile fields of patch. Role and password are ignored;
// they change through EnsureAdmin and ChangePassword only.
func (s *userService) UpdateProfile(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	clean, err := sanitizeProfile(patch)
	if err != nil {
		return nil, err
	}
	return s.userRepo.Update(ctx, id, clean)
}

func sanitizeProfile(patch domain.UserPatch) (domain.UserPatch, error) {
	var clean domain.UserPatch
	var problems []string

	if patch.DisplayName != nil {
		name, problem := cleanDisplayName(*patch.DisplayName)
		if problem != "" {
			problems = append(problems, problem)
		} else {
			clean.DisplayName = &name
		}
	}
	clean.Company = cleanProfileField("company", patch.Company, &problems)
	clean.JobTitle = cleanProfileField("job title", patch.JobTitle, &problems)

	if patch.PhotoURL != nil {
		photo := strings.TrimSpace(*patch.PhotoURL)
		if photo != "" && !validPhotoURL(photo) {
			problems = append(problems, fmt.Sprintf("photo url must be a valid http(s) URL of at most %d characters", maxPhotoURLLen))
		} else {
			clean.PhotoURL = &photo
		}
	}

	if err := domain.NewValidationError(problems); err != nil {
		return domain.UserPatch{}, err
	}
	return clean, nil
}

func cleanProfileField(label string, value *string, problems *[]string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if utf8.RuneCountInString(v) > maxProfileFieldLen {
		*problems = append(*problems, fmt.Sprintf("%s must be at most %d characters", label, maxProfileFieldLen))
		return nil
	}
	v = html.EscapeString(v)
	return &v
}

func validPhotoURL(raw string) bool {
	if len(raw) > maxPhotoURLLen {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ChangePassword replaces the password after checking the current one.
func (s *userService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	withHash, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	if !s.userRepo.VerifyPassword(withHash, currentPassword) {
		return domain.ErrInvalidCredentials
	}
	problems := validatePassword(newPassword)
	if newPassword == currentPassword {
		problems = append(problems, "new password must differ from the current one")
	}
	if err := domain.NewValidationError(problems); err != nil {
		return err
	}
	if _, err := s.userRepo.Update(ctx, id, domain.UserPatch{Password: &newPassword}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
