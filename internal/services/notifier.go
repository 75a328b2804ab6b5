package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"talkregistration/internal/domain"
)

// Email kinds reported to the EmailRecorder.
const (
	EmailWelcome      = "welcome"
	EmailConfirmation = "registration_confirmation"
)

// EmailRecorder counts email deliveries by kind and outcome (sent, failed, dropped).
type EmailRecorder interface {
	IncEmail(kind, outcome string)
}

type emailJob struct {
	kind string
	send func(ctx context.Context) error
}

// EmailNotifier delivers emails on background workers so request handlers never
// wait on the mail provider. Jobs that do not fit in the queue are dropped.
type EmailNotifier struct {
	emails   domain.EmailService
	recorder EmailRecorder
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan emailJob
	wg     sync.WaitGroup
}

// NewEmailNotifier creates a notifier with the given number of workers and queue size.
// recorder may be nil.
func NewEmailNotifier(emails domain.EmailService, recorder EmailRecorder, logger *slog.Logger, workers, queueSize int, timeout time.Duration) *EmailNotifier {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailNotifier{
		emails:   emails,
		recorder: recorder,
		logger:   logger,
		workers:  workers,
		timeout:  timeout,
		jobs:     make(chan emailJob, queueSize),
	}
}

// Start launches the workers. Values carried by ctx are kept, its cancellation is not:
// queued emails are drained by Stop.
func (n *EmailNotifier) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for job := range n.jobs {
				n.run(base, job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued emails to be delivered.
func (n *EmailNotifier) Stop() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.jobs)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *EmailNotifier) run(base context.Context, job emailJob) {
	ctx, cancel := context.WithTimeout(base, n.timeout)
	defer cancel()
	if err := job.send(ctx); err != nil {
		n.logger.Error("email delivery failed", "kind", job.kind, "err", err)
		n.record(job.kind, "failed")
		return
	}
	n.record(job.kind, "sent")
}

func (n *EmailNotifier) record(kind, outcome string) {
	if n.recorder != nil {
		n.recorder.IncEmail(kind, outcome)
	}
}

func (n *EmailNotifier) enqueue(job emailJob) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.record(job.kind, "dropped")
		return
	}
	select {
	case n.jobs <- job:
	default:
		n.logger.Warn("email queue full, dropping email", "kind", job.kind)
		n.record(job.kind, "dropped")
	}
}

func (n *EmailNotifier) NotifyWelcome(data *domain.WelcomeEmailData) {
	if data == nil {
		return
	}
	n.enqueue(emailJob{kind: EmailWelcome, send: func(ctx context.Context) error {
		return n.emails.SendWelcome(ctx, data)
	}})
}

func (n *EmailNotifier) NotifyRegistrationConfirmed(data *domain.RegistrationConfirmationEmailData) {
	if data == nil {
		return
	}
	n.enqueue(emailJob{kind: EmailConfirmation, send: func(ctx context.Context) error {
		return n.emails.SendRegistrationConfirmation(ctx, data)
	}})
}
