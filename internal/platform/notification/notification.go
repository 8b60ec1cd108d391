// Package notification sends templated email notifications for account and
// appointment events. Delivery is fire-and-forget: a failed send is logged
// and never surfaces to the request that triggered it.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Template IDs registered by default.
const (
	TemplateWelcome            = "welcome-signup"
	TemplateLoginAlert         = "login-alert"
	TemplateAppointmentBooked  = "appointment-booked"
	TemplateAppointmentDecided = "appointment-decided"
	TemplatePasswordReset      = "password-reset"
)

// EmailSender is the interface for delivering email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateWelcome,
			Subject: "Welcome to MediFlow, {{name}}",
			Body:    "Dear {{name}}, your account has been created. You can now sign in and book appointments.",
		},
		{
			ID:      TemplateLoginAlert,
			Subject: "New sign-in to your MediFlow account",
			Body:    "Dear {{name}}, your account was signed in to on {{time}}. If this was not you, please reset your password.",
		},
		{
			ID:      TemplateAppointmentBooked,
			Subject: "Appointment request received",
			Body:    "Dear {{name}}, your appointment request with Dr. {{doctor}} on {{date}} has been received and is pending approval.",
		},
		{
			ID:      TemplateAppointmentDecided,
			Subject: "Appointment {{status}}",
			Body:    "Dear {{name}}, your appointment with Dr. {{doctor}} on {{date}} has been {{status}}.",
		},
		{
			ID:      TemplatePasswordReset,
			Subject: "Password reset request",
			Body:    "You requested a password reset. Use the following link to choose a new password: {{reset_link}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Notifier renders and dispatches notifications.
type Notifier struct {
	sender    EmailSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewNotifier(sender EmailSender, templates *TemplateEngine, logger zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, templates: templates, logger: logger}
}

// Notify renders the template and sends it to the recipient. Errors are
// logged, never returned, so a mail outage cannot fail the calling request.
func (n *Notifier) Notify(ctx context.Context, templateID, recipient string, data map[string]string) {
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		n.logger.Error().Err(err).Str("template", templateID).Msg("notification render failed")
		return
	}
	if err := n.sender.SendEmail(ctx, recipient, subject, body); err != nil {
		n.logger.Error().Err(err).
			Str("template", templateID).
			Str("recipient", recipient).
			Msg("notification send failed")
		return
	}
	n.logger.Info().
		Str("template", templateID).
		Str("recipient", recipient).
		Msg("notification sent")
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.From, to, subject, body)
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}

// LogSender writes mail to the log instead of delivering it. Used in
// development when no SMTP relay is configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Time("at", time.Now()).
		Msg("email (log only)")
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
