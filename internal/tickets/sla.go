package tickets

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist-ai/intake-platform/pkg/logging"
)

var slaTracer = otel.Tracer("intake/ticket-sla")

// SLAPolicy maps ticket priority to the first-response deadline.
type SLAPolicy struct {
	LowResponse    time.Duration
	NormalResponse time.Duration
	HighResponse   time.Duration
	UrgentResponse time.Duration
}

// DefaultSLAPolicy returns the standard response-time targets.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		LowResponse:    48 * time.Hour,
		NormalResponse: 24 * time.Hour,
		HighResponse:   4 * time.Hour,
		UrgentResponse: time.Hour,
	}
}

// DueAt computes the SLA deadline for a ticket created at the given time.
func (p SLAPolicy) DueAt(priority Priority, createdAt time.Time) time.Time {
	switch priority {
	case PriorityUrgent:
		return createdAt.Add(p.UrgentResponse)
	case PriorityHigh:
		return createdAt.Add(p.HighResponse)
	case PriorityLow:
		return createdAt.Add(p.LowResponse)
	default:
		return createdAt.Add(p.NormalResponse)
	}
}

// EscalationNotifier is told about tickets that blew their SLA.
type EscalationNotifier interface {
	NotifyOverdue(ctx context.Context, t Ticket) error
}

// Escalation is a recorded SLA breach.
type Escalation struct {
	ID        uuid.UUID
	TicketID  uuid.UUID
	OrgID     string
	Priority  Priority
	DueAt     time.Time
	CreatedAt time.Time
}

// SLATracker watches for tickets past their deadline, records an escalation
// for each, and notifies on-call staff. Breaches are recorded at most once
// per ticket.
type SLATracker struct {
	db       *sql.DB
	repo     *Repository
	notifier EscalationNotifier
	logger   *logging.Logger
	now      func() time.Time
}

// NewSLATracker creates an SLA tracker.
func NewSLATracker(db *sql.DB, repo *Repository, notifier EscalationNotifier, logger *logging.Logger) *SLATracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &SLATracker{
		db:       db,
		repo:     repo,
		notifier: notifier,
		logger:   logger.Component("ticket-sla"),
		now:      time.Now,
	}
}

// ProcessOverdue scans for overdue tickets and escalates new breaches.
func (s *SLATracker) ProcessOverdue(ctx context.Context) error {
	ctx, span := slaTracer.Start(ctx, "sla.process_overdue")
	defer span.End()

	overdue, err := s.repo.ListOverdue(ctx, s.now().UTC(), 100)
	if err != nil {
		return fmt.Errorf("tickets: fetch overdue: %w", err)
	}

	escalated := 0
	for _, t := range overdue {
		fresh, err := s.recordEscalation(ctx, t)
		if err != nil {
			s.logger.Error("failed to record escalation", "error", err, "ticket_id", t.ID)
			continue
		}
		if !fresh {
			continue
		}
		escalated++
		if s.notifier != nil {
			if err := s.notifier.NotifyOverdue(ctx, t); err != nil {
				s.logger.Error("escalation notification failed", "error", err, "ticket_id", t.ID)
			}
		}
		s.logger.Warn("ticket SLA breached",
			"ticket_id", t.ID,
			"priority", t.Priority,
			"due_at", t.SLADueAt,
			"org_id", t.OrgID,
		)
	}

	span.SetAttributes(
		attribute.Int("tickets.overdue", len(overdue)),
		attribute.Int("tickets.escalated", escalated),
	)
	return nil
}

// recordEscalation inserts a breach row; the unique index on ticket_id makes
// the insert a no-op for a ticket that already escalated.
func (s *SLATracker) recordEscalation(ctx context.Context, t Ticket) (bool, error) {
	query := `
		INSERT INTO ticket_escalations (id, ticket_id, org_id, priority, due_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticket_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, uuid.New(), t.ID, t.OrgID, t.Priority, t.SLADueAt)
	if err != nil {
		return false, fmt.Errorf("tickets: insert escalation: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Run polls for overdue tickets until the context is cancelled.
func (s *SLATracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ProcessOverdue(ctx); err != nil {
				s.logger.Error("SLA sweep failed", "error", err)
			}
		}
	}
}
