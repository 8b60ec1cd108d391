package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRender_ReplacesPlaceholders(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateAppointmentBooked, map[string]string{
		"name":   "Alice",
		"doctor": "Smith",
		"date":   "2026-09-01",
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Appointment request received" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "Dear Alice") {
		t.Errorf("expected name in body, got %q", body)
	}
	if !strings.Contains(body, "Dr. Smith on 2026-09-01") {
		t.Errorf("expected doctor and date in body, got %q", body)
	}
}

func TestRender_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()

	_, body, err := e.Render(TemplateWelcome, map[string]string{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(body, "{{name}}") {
		t.Errorf("expected unreplaced placeholder, got %q", body)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRegisterTemplate_Overrides(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{
		ID:      TemplateWelcome,
		Subject: "Custom welcome",
		Body:    "Hi {{name}}",
	})

	subject, _, err := e.Render(TemplateWelcome, map[string]string{"name": "Bob"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Custom welcome" {
		t.Errorf("expected overridden subject, got %q", subject)
	}
}

func TestNotify_SendsRenderedEmail(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, NewTemplateEngine(), zerolog.Nop())

	n.Notify(context.Background(), TemplateWelcome, "alice@example.com", map[string]string{"name": "Alice"})

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "alice@example.com" {
		t.Errorf("unexpected recipient: %s", calls[0].To)
	}
	if !strings.Contains(calls[0].Subject, "Alice") {
		t.Errorf("expected rendered subject, got %q", calls[0].Subject)
	}
}

func TestNotify_SendFailureDoesNotPanic(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true, FailError: "relay down"}
	n := NewNotifier(sender, NewTemplateEngine(), zerolog.Nop())

	// Must not panic or propagate the error.
	n.Notify(context.Background(), TemplateLoginAlert, "bob@example.com", map[string]string{"name": "Bob"})

	if len(sender.Calls()) != 1 {
		t.Fatal("expected the send to have been attempted")
	}
}

func TestNotify_UnknownTemplateDoesNotSend(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, NewTemplateEngine(), zerolog.Nop())

	n.Notify(context.Background(), "bogus", "x@example.com", nil)

	if len(sender.Calls()) != 0 {
		t.Fatal("expected no send for unknown template")
	}
}
