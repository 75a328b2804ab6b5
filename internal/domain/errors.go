package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared by stores and services.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrDuplicateEmail       = errors.New("email already in use")
	ErrAlreadyRegistered    = errors.New("user is already registered for this talk")
	ErrTalkFull             = errors.New("talk has reached maximum capacity")
	ErrTalkHasRegistrations = errors.New("talk has active registrations")
)

// ValidationError carries every problem found while validating an input.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns nil when problems is empty.
func NewValidationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
