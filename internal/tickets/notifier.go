package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/medassist-ai/intake-platform/internal/notify"
)

// EmailEscalationNotifier emails on-call staff when a ticket breaches SLA.
type EmailEscalationNotifier struct {
	mailer notify.EmailSender
	to     string
}

// NewEmailEscalationNotifier creates an escalation notifier. Returns nil
// when no mailer or address is configured.
func NewEmailEscalationNotifier(mailer notify.EmailSender, to string) *EmailEscalationNotifier {
	if mailer == nil || to == "" {
		return nil
	}
	return &EmailEscalationNotifier{mailer: mailer, to: to}
}

// NotifyOverdue sends the breach email.
func (n *EmailEscalationNotifier) NotifyOverdue(ctx context.Context, t Ticket) error {
	msg := notify.EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("[SLA breach] %s ticket %s: %s", t.Priority, t.ID, t.Subject),
		Body: fmt.Sprintf("Ticket %s from %s (%s) blew its %s response deadline at %s.\n\nCategory: %s\n\n%s",
			t.ID, t.ClientName, t.OrgID, t.Priority, t.SLADueAt.Format(time.RFC1123),
			t.Category, t.Description),
	}
	return n.mailer.Send(ctx, msg)
}

var _ EscalationNotifier = (*EmailEscalationNotifier)(nil)
