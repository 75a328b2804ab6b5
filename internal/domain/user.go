package domain

import (
	"context"
	"time"
)

// Role values carried by users and tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered attendee or organizer.
// PasswordHash is only populated by UserRepository.GetByEmail.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Company      string    `json:"company,omitempty"`
	JobTitle     string    `json:"job_title,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User. ID, role default and timestamps are set by the repository.
func NewUser(email, displayName, role string) *User {
	return &User{
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Sanitized returns a copy without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// UserPatch is a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	DisplayName *string
	Company     *string
	JobTitle    *string
	PhotoURL    *string
	Role        *string
	Password    *string
}

// Identity is the authenticated principal decoded from a token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues signed tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(identity Identity, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// UserRepository stores users. Emails are unique ignoring case.
type UserRepository interface {
	// Create hashes password, defaults the role and fills in u's id and timestamps.
	Create(ctx context.Context, u *User, password string) error
	// GetByEmail returns the user including PasswordHash.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// Update re-hashes the password when the patch carries one.
	Update(ctx context.Context, id string, patch UserPatch) (*User, error)
	VerifyPassword(u *User, password string) bool
}

// AuthService handles sign-up, login and admin bootstrap.
type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (token string, user *User, err error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	EnsureAdmin(ctx context.Context, email, password string) (*User, error)
	// VerifyToken resolves a token to the account it was issued for.
	VerifyToken(ctx context.Context, token string) (*User, error)
}

// UserService handles the authenticated user's profile.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, patch UserPatch) (*User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
}
