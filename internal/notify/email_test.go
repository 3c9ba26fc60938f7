package notify

import (
	"testing"

	"github.com/medassist-ai/intake-platform/internal/config"
)

func TestNewSendGridSenderRequiresKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{}, nil); sender != nil {
		t.Fatal("expected nil sender without API key")
	}
	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", FromEmail: "support@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected sender with API key")
	}
	if sender.fromName != "MedAssist Support" {
		t.Fatalf("expected default from name, got %q", sender.fromName)
	}
}

func TestNewSESSenderRequiresClient(t *testing.T) {
	if sender := NewSESSender(nil, SESConfig{}, nil); sender != nil {
		t.Fatal("expected nil sender without SES client")
	}
}

func TestNewSenderFromConfig(t *testing.T) {
	cfg := &config.Config{EmailProvider: "sendgrid", SendGridAPIKey: "sg-key"}
	if sender := NewSenderFromConfig(cfg, nil, nil); sender == nil {
		t.Fatal("expected sendgrid sender")
	}

	cfg = &config.Config{EmailProvider: "ses"}
	if sender := NewSenderFromConfig(cfg, nil, nil); sender != nil {
		t.Fatal("expected nil when SES client missing")
	}

	cfg = &config.Config{EmailProvider: "none"}
	if sender := NewSenderFromConfig(cfg, nil, nil); sender != nil {
		t.Fatal("expected nil when email disabled")
	}
}
