package notify

import (
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/medassist-ai/intake-platform/internal/config"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// NewSenderFromConfig picks the email provider from configuration.
// Returns nil when email is not configured; callers treat a nil sender as
// "notifications off".
func NewSenderFromConfig(cfg *config.Config, sesClient *sesv2.Client, logger *logging.Logger) EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := NewSendGridSender(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "ses":
		sender := NewSESSender(sesClient, SESConfig{FromEmail: cfg.SESFromEmail}, logger)
		if sender == nil {
			return nil
		}
		return sender
	default:
		return nil
	}
}
