package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/mail"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talkregistration/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRenderer(t *testing.T) domain.EmailTemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(time.FixedZone("COT", -5*60*60))
	require.NoError(t, err)
	return r
}

func TestTemplateRenderer_RegistrationConfirmation(t *testing.T) {
	r := newTestRenderer(t)
	start := time.Date(2025, 5, 22, 14, 30, 0, 0, time.UTC)
	data := &domain.RegistrationConfirmationEmailData{
		Email:          "ana@example.com",
		DisplayName:    "Ana <script>",
		TalkTitle:      "La Revolución de Agentes",
		TalkLocation:   "Teatro Mayor San José",
		StartTime:      start,
		EndTime:        start.Add(25 * time.Minute),
		Speakers:       []string{"Mabel Gerónimo", "Andres Perez"},
		RegistrationID: "reg-1",
	}

	subject, html, text, err := r.Render("registration_confirmation", data)
	require.NoError(t, err)
	assert.Equal(t, "Registration Confirmed: La Revolución de Agentes", subject)
	assert.Contains(t, text, "Teatro Mayor San José")
	assert.Contains(t, text, "Mabel Gerónimo, Andres Perez")
	assert.Contains(t, text, "09:30 - 09:55", "times are rendered in venue local time")
	assert.Contains(t, text, "reg-1")
	assert.Contains(t, html, "Ana &lt;script&gt;", "html body escapes user input")
	assert.NotContains(t, html, "<script>")
}

func TestTemplateRenderer_Welcome(t *testing.T) {
	subject, html, text, err := newTestRenderer(t).Render("welcome", &domain.WelcomeEmailData{Email: "bo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to DevOpsDays Medellín", subject)
	assert.Contains(t, text, "Hi there")
	assert.Contains(t, html, "bo@example.com")
}

func TestTemplateRenderer_unknown_template(t *testing.T) {
	_, _, _, err := newTestRenderer(t).Render("missing", nil)
	assert.Error(t, err)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	from := mail.Address{Name: "DevOpsDays Medellín", Address: "noreply@devopsdays.co"}
	m := &sesMailer{client: client, source: from.String(), logger: testLogger}

	require.NoError(t, m.Send(context.Background(), "ana@example.com", "Subject", "<p>hi</p>", "hi"))
	require.NotNil(t, client.input)
	assert.Equal(t, "=?utf-8?q?DevOpsDays_Medell=C3=ADn?= <noreply@devopsdays.co>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"ana@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
}

func TestSESMailer_Send_text_only_and_error(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	m := &sesMailer{client: client, source: "noreply@devopsdays.co", logger: testLogger}

	err := m.Send(context.Background(), "ana@example.com", "Subject", "", "hi")
	require.ErrorContains(t, err, "throttled")
	assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
	assert.Nil(t, client.input.Message.Body.Html)
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)
	require.NoError(t, m.Send(context.Background(), "a@b.com", "s", "h", "t"))

	m, err = NewMailer(MailerConfig{Provider: "carrier-pigeon"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	_, err = NewMailer(MailerConfig{Provider: "ses"}, testLogger)
	assert.Error(t, err, "ses requires a from address")

	m, err = NewMailer(MailerConfig{Provider: "ses", FromAddress: "noreply@devopsdays.co", SES: SESConfig{Region: "us-east-1"}}, testLogger)
	require.NoError(t, err)
	require.IsType(t, &sesMailer{}, m)
	assert.Equal(t, "<noreply@devopsdays.co>", m.(*sesMailer).source)
}
