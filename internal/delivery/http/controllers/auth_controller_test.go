package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthController_SignUp(t *testing.T) {
	user := &domain.User{ID: "user-1", Email: "ana@example.com", DisplayName: "Ana", Role: domain.RoleUser}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: `{"email":"ana@example.com","password":"Secret123","display_name":"Ana"}`, wantStatus: http.StatusCreated},
		{name: "duplicate email", body: `{"email":"ana@example.com","password":"Secret123"}`, err: domain.ErrDuplicateEmail, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
		{name: "weak password", body: `{"email":"ana@example.com","password":"short"}`,
			err: domain.NewValidationError([]string{"password must be at least 8 characters"}), wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown field", body: `{"email":"ana@example.com","password":"Secret123","role":"admin"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{token: "jwt-token", user: user, err: tt.err}
			ctrl := NewAuthController(testLogger, fake, 24*time.Hour)
			rr := httptest.NewRecorder()

			ctrl.SignUp(rr, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			var data AuthResponse
			apiErr := decodeEnvelope(t, rr, &data)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, "jwt-token", data.Token)
			assert.Equal(t, "Bearer", data.TokenType)
			assert.Equal(t, int64(86400), data.ExpiresIn)
			assert.Equal(t, "user-1", data.User.ID)
			assert.Equal(t, []string{"ana@example.com", "Secret123", "Ana"}, fake.args)
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "ok", wantStatus: http.StatusOK},
		{name: "bad credentials", err: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "issuer failure", err: assert.AnError, wantStatus: http.StatusInternalServerError, wantCode: helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{token: "jwt-token", user: &domain.User{ID: "user-1"}, err: tt.err}
			ctrl := NewAuthController(testLogger, fake, time.Hour)
			body := strings.NewReader(`{"email":"ana@example.com","password":"Secret123"}`)
			rr := httptest.NewRecorder()

			ctrl.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", body))

			require.Equal(t, tt.wantStatus, rr.Code)
			var data AuthResponse
			apiErr := decodeEnvelope(t, rr, &data)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.Equal(t, "jwt-token", data.Token)
			assert.Equal(t, int64(3600), data.ExpiresIn)
		})
	}
}

func TestAuthController_VerifyToken(t *testing.T) {
	user := &domain.User{ID: "user-1", Email: "ana@example.com", DisplayName: "Ana", Role: domain.RoleUser}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "valid", body: `{"token":"jwt-token"}`, wantStatus: http.StatusOK},
		{name: "missing token", body: `{"token":"  "}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "expired", body: `{"token":"old"}`, err: domain.ErrInvalidToken, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{user: user, err: tt.err}
			ctrl := NewAuthController(testLogger, fake, time.Hour)
			rr := httptest.NewRecorder()

			ctrl.VerifyToken(rr, httptest.NewRequest(http.MethodPost, "/auth/verify-token", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			var data VerifyTokenResponse
			apiErr := decodeEnvelope(t, rr, &data)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.True(t, data.Valid)
			assert.Equal(t, "user-1", data.User.ID)
			assert.Equal(t, []string{"jwt-token"}, fake.args)
		})
	}
}
