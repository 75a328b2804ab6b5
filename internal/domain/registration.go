package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationAttended  RegistrationStatus = "attended"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationConfirmed, RegistrationCancelled, RegistrationAttended:
		return true
	}
	return false
}

// Registration records that a user holds a seat in a talk.
// Only non-cancelled registrations occupy a seat.
// swagger:model Registration
type Registration struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	TalkID           string             `json:"talk_id"`
	RegistrationDate time.Time          `json:"registration_date"`
	Status           RegistrationStatus `json:"status"`
	Attended         bool               `json:"attended"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewRegistration returns a registration for userID in talkID. Defaults are applied by the store.
func NewRegistration(userID, talkID string) *Registration {
	return &Registration{UserID: userID, TalkID: talkID}
}

// Active reports whether the registration occupies a seat.
func (r *Registration) Active() bool {
	return r.Status != RegistrationCancelled
}

// RegistrationPatch is a partial registration update. Nil fields are left untouched.
type RegistrationPatch struct {
	Status   *RegistrationStatus
	Attended *bool
}

// Apply merges the patch into r in place.
func (p RegistrationPatch) Apply(r *Registration) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Attended != nil {
		r.Attended = *p.Attended
	}
}

// RegistrationRepository stores registrations.
type RegistrationRepository interface {
	// Create inserts reg after checking, atomically, that the user has no active
	// registration for the talk (ErrAlreadyRegistered) and that fewer than
	// maxAttendees active registrations exist (ErrTalkFull). A nil maxAttendees
	// means unlimited.
	Create(ctx context.Context, reg *Registration, maxAttendees *int) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByUserAndTalk(ctx context.Context, userID, talkID string) (*Registration, error)
	ListByUserID(ctx context.Context, userID string) ([]*Registration, error)
	ListByTalkID(ctx context.Context, talkID string) ([]*Registration, error)
	CountActiveByTalkID(ctx context.Context, talkID string) (int, error)
	Update(ctx context.Context, id string, patch RegistrationPatch) (*Registration, error)
	// Cancel flips the status to cancelled, freeing the seat.
	Cancel(ctx context.Context, id string) (*Registration, error)
	// Delete reports whether a registration was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// UserRegistration is a registration joined with its talk.
// swagger:model UserRegistration
type UserRegistration struct {
	Registration
	Talk *Talk `json:"talk"`
}

// Attendee is the minimal user view shown to admins for a talk.
// swagger:model Attendee
type Attendee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// TalkRegistration is a registration joined with its attendee.
// swagger:model TalkRegistration
type TalkRegistration struct {
	Registration
	User *Attendee `json:"user"`
}

// RegistrationService defines the business logic for talk registrations.
type RegistrationService interface {
	Register(ctx context.Context, userID, talkID string) (*Registration, error)
	Cancel(ctx context.Context, userID, talkID string) error
	ListForUser(ctx context.Context, userID string) ([]*UserRegistration, error)
	ListForTalk(ctx context.Context, talkID string) ([]*TalkRegistration, error)
	MarkAttended(ctx context.Context, registrationID string) (*Registration, error)
	CancelByID(ctx context.Context, registrationID string) (*Registration, error)
}
