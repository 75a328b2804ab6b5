package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkregistration/internal/domain"
)

func newTestAuthService(s stores) (domain.AuthService, *fakeIssuer, *recordingNotifier) {
	issuer := &fakeIssuer{}
	notifier := &recordingNotifier{}
	return NewAuthService(s.users, issuer, issuer, 24*time.Hour, notifier, testTimeout), issuer, notifier
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		email        string
		password     string
		displayName  string
		wantName     string
		wantProblems []string
	}{
		{
			name:        "success",
			email:       "  Maria@Example.COM ",
			password:    "Secret123",
			displayName: " María <b>Pérez</b> ",
			wantName:    "María &lt;b&gt;Pérez&lt;/b&gt;",
		},
		{
			name:     "display name defaults to the email local part",
			email:    "juan.dev@example.com",
			password: "Secret123",
			wantName: "juan.dev",
		},
		{
			name:         "bad email",
			email:        "not-an-email",
			password:     "Secret123",
			displayName:  "Maria",
			wantProblems: []string{"a valid email is required"},
		},
		{
			name:        "weak password",
			email:       "maria@example.com",
			password:    "secret",
			displayName: "Maria",
			wantProblems: []string{
				"password must be at least 8 characters",
				"password must contain at least one uppercase letter, one lowercase letter and one number",
			},
		},
		{
			name:         "password without digit",
			email:        "maria@example.com",
			password:     "SecretSecret",
			displayName:  "Maria",
			wantProblems: []string{"password must contain at least one uppercase letter, one lowercase letter and one number"},
		},
		{
			name:         "display name too short",
			email:        "maria@example.com",
			password:     "Secret123",
			displayName:  "M",
			wantProblems: []string{"display name must be between 2 and 100 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStores()
			svc, issuer, notifier := newTestAuthService(s)

			token, user, err := svc.SignUp(ctx, tt.email, tt.password, tt.displayName)
			if tt.wantProblems != nil {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantProblems, verr.Problems)
				assert.Empty(t, notifier.welcomes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "token-for-"+user.ID, token)
			assert.Equal(t, tt.wantName, user.DisplayName)
			assert.Equal(t, domain.RoleUser, user.Role)
			assert.Empty(t, user.PasswordHash)
			require.Len(t, issuer.issued, 1)
			assert.Equal(t, domain.Identity{UserID: user.ID, Email: user.Email, Role: domain.RoleUser}, issuer.issued[0])
			assert.Equal(t, 24*time.Hour, issuer.expiry)
			require.Len(t, notifier.welcomes, 1)
			assert.Equal(t, user.Email, notifier.welcomes[0].Email)
		})
	}
}

func TestAuthService_SignUp_duplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newStores()
	svc, _, _ := newTestAuthService(s)

	_, _, err := svc.SignUp(ctx, "maria@example.com", "Secret123", "Maria")
	require.NoError(t, err)
	_, _, err = svc.SignUp(ctx, "MARIA@example.com", "Secret123", "Maria")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestAuthService_SignUp_issuerFailure(t *testing.T) {
	s := newStores()
	issuer := &fakeIssuer{err: errors.New("signing key unavailable")}
	svc := NewAuthService(s.users, issuer, issuer, time.Hour, nil, testTimeout)

	_, _, err := svc.SignUp(context.Background(), "maria@example.com", "Secret123", "Maria")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue token")
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	s := newStores()
	svc, _, _ := newTestAuthService(s)
	_, created, err := svc.SignUp(ctx, "maria@example.com", "Secret123", "Maria")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success, email case ignored", email: " MARIA@example.com", password: "Secret123"},
		{name: "wrong password", email: "maria@example.com", password: "Secret124", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: "Secret123", wantErr: domain.ErrInvalidCredentials},
		{name: "missing fields", email: "", password: "", wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := svc.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "token-for-"+created.ID, token)
			assert.Equal(t, created.ID, user.ID)
			assert.Empty(t, user.PasswordHash)
		})
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the admin", func(t *testing.T) {
		s := newStores()
		svc, _, _ := newTestAuthService(s)

		admin, err := svc.EnsureAdmin(ctx, "organizers@devopsdays.co", "Admin1234")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, admin.Role)

		again, err := svc.EnsureAdmin(ctx, "organizers@devopsdays.co", "Admin1234")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, again.ID)

		_, user, err := svc.Login(ctx, "organizers@devopsdays.co", "Admin1234")
		require.NoError(t, err)
		assert.True(t, user.IsAdmin())
	})

	t.Run("promotes an existing user", func(t *testing.T) {
		s := newStores()
		svc, _, _ := newTestAuthService(s)
		_, user, err := svc.SignUp(ctx, "maria@example.com", "Secret123", "Maria")
		require.NoError(t, err)

		admin, err := svc.EnsureAdmin(ctx, "maria@example.com", "ignored")
		require.NoError(t, err)
		assert.Equal(t, user.ID, admin.ID)
		assert.Equal(t, domain.RoleAdmin, admin.Role)
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _, _ := newTestAuthService(newStores())
		_, err := svc.EnsureAdmin(ctx, "admin@example.com", "admin")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestAuthService_VerifyToken(t *testing.T) {
	ctx := context.Background()
	s := newStores()
	svc, _, _ := newTestAuthService(s)
	token, created, err := svc.SignUp(ctx, "maria@example.com", "Secret123", "Maria")
	require.NoError(t, err)

	user, err := svc.VerifyToken(ctx, " "+token+" ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	for name, bad := range map[string]string{
		"empty":        "",
		"malformed":    "not-a-token",
		"unknown user": "token-for-00000000-0000-0000-0000-000000000000",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(ctx, bad)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}
