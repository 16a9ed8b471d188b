package redact

import (
	"strings"
	"testing"
)

func TestTextDisabled(t *testing.T) {
	SetPIIEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestTextEnabled(t *testing.T) {
	SetPIIEnabled(true)
	defer SetPIIEnabled(false)
	got := Text("email a@b.com and phone +62 812 3456 7890")
	if !strings.Contains(got, "[REDACTED_EMAIL]") {
		t.Fatalf("email not masked: %q", got)
	}
	if !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("phone not masked: %q", got)
	}
}

func TestURLMasksSecrets(t *testing.T) {
	got := URL("https://app.example.com/callback/deepgram/j1?secret=hunter2&foo=bar")
	if strings.Contains(got, "hunter2") {
		t.Fatalf("secret leaked: %q", got)
	}
	if !strings.Contains(got, "secret=REDACTED") || !strings.Contains(got, "foo=bar") {
		t.Fatalf("unexpected rewrite: %q", got)
	}
}

func TestURLWithoutSecretsUntouched(t *testing.T) {
	in := "wss://api.deepgram.com/v1/listen?model=nova-3"
	if got := URL(in); got != in {
		t.Fatalf("expected %q unchanged, got %q", in, got)
	}
}
