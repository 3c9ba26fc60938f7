package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist-ai/intake-platform/internal/highlevel"
	"github.com/medassist-ai/intake-platform/internal/notify"
	"github.com/medassist-ai/intake-platform/internal/observability/metrics"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// ContactDirectory is the slice of the CRM client ticket intake needs.
type ContactDirectory interface {
	UpsertContact(ctx context.Context, contact highlevel.Contact) (*highlevel.Contact, error)
	AddContactTag(ctx context.Context, contactID string, tags ...string) error
}

// EventRecorder queues an event for delivery to the automation system.
type EventRecorder interface {
	Record(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// Service orchestrates ticket intake.
type Service struct {
	repo      *Repository
	policy    SLAPolicy
	directory ContactDirectory
	events    EventRecorder
	mailer    notify.EmailSender
	metrics   *metrics.IntakeMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService creates the ticket service. directory, events, and mailer are
// optional; a nil value skips that step of intake.
func NewService(repo *Repository, policy SLAPolicy, directory ContactDirectory, events EventRecorder, mailer notify.EmailSender, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		policy:    policy,
		directory: directory,
		events:    events,
		mailer:    mailer,
		metrics:   m,
		logger:    logger.Component("tickets"),
		now:       time.Now,
	}
}

// Submit validates and persists a new ticket, links it to a CRM contact,
// queues the automation event, and sends the acknowledgment email.
func (s *Service) Submit(ctx context.Context, orgID string, req SubmitRequest) (*Ticket, error) {
	ctx, span := slaTracer.Start(ctx, "tickets.submit")
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveTicket(string(req.Priority), "invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ticket.category", req.Category),
		attribute.String("ticket.priority", string(req.Priority)),
	)

	now := s.now().UTC()
	t := &Ticket{
		ID:          uuid.New(),
		OrgID:       orgID,
		Category:    req.Category,
		ClientName:  req.ClientName,
		Email:       req.Email,
		Phone:       req.Phone,
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      StatusOpen,
		Attachments: req.Attachments,
		SLADueAt:    s.policy.DueAt(req.Priority, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// CRM linkage is best-effort: a CRM outage must not block intake.
	if s.directory != nil {
		contact, err := s.directory.UpsertContact(ctx, highlevel.Contact{
			Name:  req.ClientName,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			s.logger.Warn("CRM contact upsert failed, ticket continues unlinked", "error", err)
		} else {
			t.ContactID = contact.ID
			if err := s.directory.AddContactTag(ctx, contact.ID, "ticket-opened", "ticket-"+req.Category); err != nil {
				s.logger.Warn("CRM tagging failed", "error", err, "contact_id", contact.ID)
			}
		}
	}

	if err := s.repo.Insert(ctx, t); err != nil {
		s.metrics.ObserveTicket(string(t.Priority), "error")
		return nil, err
	}
	s.metrics.ObserveTicket(string(t.Priority), "ok")

	if s.events != nil {
		if _, err := s.events.Record(ctx, orgID, "ticket.created", t); err != nil {
			s.logger.Error("failed to queue ticket event", "error", err, "ticket_id", t.ID)
		}
	}

	if s.mailer != nil && t.Email != "" {
		msg := notify.EmailMessage{
			To:      t.Email,
			ToName:  t.ClientName,
			Subject: fmt.Sprintf("We received your request: %s", t.Subject),
			Body: fmt.Sprintf("Hi %s,\n\nYour support request %q has been received and assigned ticket %s. "+
				"Our team will respond by %s.\n\nThank you.",
				t.ClientName, t.Subject, t.ID, t.SLADueAt.Format(time.RFC1123)),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn("acknowledgment email failed", "error", err, "ticket_id", t.ID)
		}
	}

	s.logger.Info("ticket submitted",
		"ticket_id", t.ID,
		"org_id", orgID,
		"category", t.Category,
		"priority", t.Priority,
		"sla_due_at", t.SLADueAt,
	)
	return t, nil
}

// Get fetches one ticket.
func (s *Service) Get(ctx context.Context, orgID string, id uuid.UUID) (*Ticket, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns tickets for an org.
func (s *Service) List(ctx context.Context, orgID string, status Status, limit int) ([]Ticket, error) {
	return s.repo.List(ctx, orgID, status, limit)
}

// Transition moves a ticket between statuses and records the change for the
// automation system.
func (s *Service) Transition(ctx context.Context, orgID string, id uuid.UUID, to Status) (*Ticket, error) {
	t, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, orgID, id, t.Status, to); err != nil {
		return nil, err
	}
	updated, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		if _, err := s.events.Record(ctx, orgID, "ticket.status_changed", updated); err != nil {
			s.logger.Error("failed to queue status event", "error", err, "ticket_id", id)
		}
	}
	return updated, nil
}
