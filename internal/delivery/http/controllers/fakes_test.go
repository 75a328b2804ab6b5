package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/delivery/http/middleware"
	"talkregistration/internal/domain"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func withIdentity(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(middleware.SetIdentity(r.Context(), domain.Identity{UserID: userID, Email: userID + "@example.com", Role: role}))
}

// decodeEnvelope decodes the response and unmarshals data into dest when dest is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if dest != nil && raw.Error == nil {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return raw.Error
}

// fakeTalkService implements domain.TalkService for handler tests.
type fakeTalkService struct {
	talk       *domain.Talk
	talks      []*domain.Talk
	total      int
	err        error
	lastFilter domain.TalkFilter
	lastPage   domain.PaginationParams
	lastPatch  domain.TalkPatch
	lastID     string
	created    *domain.Talk
}

func (f *fakeTalkService) Create(_ context.Context, talk *domain.Talk) error {
	if f.err != nil {
		return f.err
	}
	talk.ID = "talk-new"
	f.created = talk
	return nil
}

func (f *fakeTalkService) GetByID(_ context.Context, id string) (*domain.Talk, error) {
	f.lastID = id
	return f.talk, f.err
}

func (f *fakeTalkService) List(_ context.Context, filter domain.TalkFilter, page domain.PaginationParams) ([]*domain.Talk, int, error) {
	f.lastFilter = filter
	f.lastPage = page
	return f.talks, f.total, f.err
}

func (f *fakeTalkService) Update(_ context.Context, id string, patch domain.TalkPatch) (*domain.Talk, error) {
	f.lastID = id
	f.lastPatch = patch
	return f.talk, f.err
}

func (f *fakeTalkService) Delete(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeTalkService) ImportSessionize(_ context.Context, sessionizeID string) ([]*domain.Talk, error) {
	f.lastID = sessionizeID
	return f.talks, f.err
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	reg         *domain.Registration
	mine        []*domain.UserRegistration
	forTalk     []*domain.TalkRegistration
	err         error
	lastUserID  string
	lastTalkID  string
	lastRegID   string
	cancelCalls int
}

func (f *fakeRegistrationService) Register(_ context.Context, userID, talkID string) (*domain.Registration, error) {
	f.lastUserID, f.lastTalkID = userID, talkID
	return f.reg, f.err
}

func (f *fakeRegistrationService) Cancel(_ context.Context, userID, talkID string) error {
	f.lastUserID, f.lastTalkID = userID, talkID
	f.cancelCalls++
	return f.err
}

func (f *fakeRegistrationService) ListForUser(_ context.Context, userID string) ([]*domain.UserRegistration, error) {
	f.lastUserID = userID
	return f.mine, f.err
}

func (f *fakeRegistrationService) ListForTalk(_ context.Context, talkID string) ([]*domain.TalkRegistration, error) {
	f.lastTalkID = talkID
	return f.forTalk, f.err
}

func (f *fakeRegistrationService) MarkAttended(_ context.Context, id string) (*domain.Registration, error) {
	f.lastRegID = id
	return f.reg, f.err
}

func (f *fakeRegistrationService) CancelByID(_ context.Context, id string) (*domain.Registration, error) {
	f.lastRegID = id
	return f.reg, f.err
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	token string
	user  *domain.User
	err   error
	args  []string
}

func (f *fakeAuthService) SignUp(_ context.Context, email, password, displayName string) (string, *domain.User, error) {
	f.args = []string{email, password, displayName}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.args = []string{email, password}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) EnsureAdmin(context.Context, string, string) (*domain.User, error) {
	return f.user, f.err
}

func (f *fakeAuthService) VerifyToken(_ context.Context, token string) (*domain.User, error) {
	f.args = []string{token}
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	user      *domain.User
	err       error
	lastID    string
	lastPatch domain.UserPatch
	passwords [2]string
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.lastID = id
	return f.user, f.err
}

func (f *fakeUserService) UpdateProfile(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	f.lastID = id
	f.lastPatch = patch
	return f.user, f.err
}

func (f *fakeUserService) ChangePassword(_ context.Context, id, current, next string) error {
	f.lastID = id
	f.passwords = [2]string{current, next}
	return f.err
}
