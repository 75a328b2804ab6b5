package domain

import (
	"context"
	"time"
)

// Mailer sends a rendered email (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email sent after sign-up.
type WelcomeEmailData struct {
	Email       string
	DisplayName string
}

// RegistrationConfirmationEmailData holds data for the registration confirmation email.
type RegistrationConfirmationEmailData struct {
	Email          string
	DisplayName    string
	TalkTitle      string
	TalkLocation   string
	StartTime      time.Time
	EndTime        time.Time
	Speakers       []string
	RegistrationID string
}

// EmailService sends domain-level emails.
type EmailService interface {
	SendWelcome(ctx context.Context, data *WelcomeEmailData) error
	SendRegistrationConfirmation(ctx context.Context, data *RegistrationConfirmationEmailData) error
}

// Notifier queues best-effort emails. Enqueue never blocks the caller on delivery.
type Notifier interface {
	NotifyWelcome(data *WelcomeEmailData)
	NotifyRegistrationConfirmed(data *RegistrationConfirmationEmailData)
}
