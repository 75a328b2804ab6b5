package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"talkregistration/internal/domain"
	"talkregistration/internal/repository/memory"
)

const testTimeout = 5 * time.Second

var venue = time.FixedZone("COT", -5*60*60)

// plainHasher stores passwords with a marker prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type fakeIssuer struct {
	err    error
	issued []domain.Identity
	expiry time.Duration
}

func (f *fakeIssuer) Issue(identity domain.Identity, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, identity)
	f.expiry = expiry
	return "token-for-" + identity.UserID, nil
}

// Verify accepts the tokens Issue hands out.
func (f *fakeIssuer) Verify(token string) (domain.Identity, error) {
	id, ok := strings.CutPrefix(token, "token-for-")
	if !ok || id == "" {
		return domain.Identity{}, errors.New("malformed token")
	}
	return domain.Identity{UserID: id}, nil
}

// recordingNotifier captures queued emails instead of sending them.
type recordingNotifier struct {
	mu            sync.Mutex
	welcomes      []*domain.WelcomeEmailData
	confirmations []*domain.RegistrationConfirmationEmailData
}

func (n *recordingNotifier) NotifyWelcome(data *domain.WelcomeEmailData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, data)
}

func (n *recordingNotifier) NotifyRegistrationConfirmed(data *domain.RegistrationConfirmationEmailData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, data)
}

func (n *recordingNotifier) confirmationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmations)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: make(map[string]int)}
}

func (r *countingRecorder) IncRegistration(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[outcome]++
}

func (r *countingRecorder) IncEmail(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[kind+"/"+outcome]++
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type fakeFetcher struct {
	agenda domain.SessionizeAgenda
	err    error
	calls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, sessionizeID string) (domain.SessionizeAgenda, error) {
	f.calls = append(f.calls, sessionizeID)
	return f.agenda, f.err
}

// failingTalkRepo wraps a TalkRepository and fails List.
type failingTalkRepo struct {
	domain.TalkRepository
	err error
}

func (f failingTalkRepo) List(ctx context.Context, filter domain.TalkFilter) ([]*domain.Talk, error) {
	return nil, f.err
}

// hookedTalkRepo calls onGet once, on the first GetByID, before delegating.
type hookedTalkRepo struct {
	domain.TalkRepository
	once  sync.Once
	onGet func()
}

func (h *hookedTalkRepo) GetByID(ctx context.Context, id string) (*domain.Talk, error) {
	h.once.Do(h.onGet)
	return h.TalkRepository.GetByID(ctx, id)
}

type stores struct {
	talks         *memory.TalkStore
	registrations *memory.RegistrationStore
	users         *memory.UserStore
	locks         *TalkLocks
}

func newStores() stores {
	return stores{
		talks:         memory.NewTalkStore(),
		registrations: memory.NewRegistrationStore(),
		users:         memory.NewUserStore(plainHasher{}),
		locks:         NewTalkLocks(),
	}
}

func intPtr(v int) *int { return &v }

func seedTalk(t *testing.T, s stores, title string, start time.Time, maxAttendees *int) *domain.Talk {
	t.Helper()
	talk := domain.NewTalk(title, "A talk about "+title+" in practice", "Auditorio Principal",
		[]domain.Speaker{{Name: "Ana Gómez"}}, start, start.Add(45*time.Minute), maxAttendees, []string{"DevOps"})
	require.NoError(t, s.talks.Create(context.Background(), talk))
	return talk
}

func seedUser(t *testing.T, s stores, n int) *domain.User {
	t.Helper()
	u := domain.NewUser(fmt.Sprintf("user%d@example.com", n), fmt.Sprintf("User %d", n), "")
	require.NoError(t, s.users.Create(context.Background(), u, "Secret123"))
	return u
}
