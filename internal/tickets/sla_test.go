package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestSLAPolicyDueAt(t *testing.T) {
	policy := DefaultSLAPolicy()
	created := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		priority Priority
		want     time.Duration
	}{
		{PriorityUrgent, time.Hour},
		{PriorityHigh, 4 * time.Hour},
		{PriorityNormal, 24 * time.Hour},
		{PriorityLow, 48 * time.Hour},
		{Priority("unknown"), 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := policy.DueAt(tt.priority, created); got != created.Add(tt.want) {
			t.Errorf("DueAt(%s) = %v, want created+%v", tt.priority, got, tt.want)
		}
	}
}

type recordingNotifier struct {
	notified []Ticket
}

func (n *recordingNotifier) NotifyOverdue(_ context.Context, t Ticket) error {
	n.notified = append(n.notified, t)
	return nil
}

func TestProcessOverdueEscalatesOnce(t *testing.T) {
	pgMock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer pgMock.Close()
	repo := newRepositoryWithQuerier(pgMock)

	db, sqlMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sql mock: %v", err)
	}
	defer db.Close()

	overdue := sampleTicket()
	overdue.SLADueAt = time.Now().UTC().Add(-2 * time.Hour)

	notifier := &recordingNotifier{}
	tracker := NewSLATracker(db, repo, notifier, nil)

	// First sweep: the breach is new, so it escalates and notifies.
	pgMock.ExpectQuery("SELECT .+ FROM tickets\\s+WHERE status IN").
		WithArgs(pgxmock.AnyArg(), 100).
		WillReturnRows(ticketRow(overdue))
	sqlMock.ExpectExec("INSERT INTO ticket_escalations").
		WithArgs(sqlmock.AnyArg(), overdue.ID, overdue.OrgID, overdue.Priority, overdue.SLADueAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := tracker.ProcessOverdue(context.Background()); err != nil {
		t.Fatalf("process overdue failed: %v", err)
	}
	if len(notifier.notified) != 1 || notifier.notified[0].ID != overdue.ID {
		t.Fatalf("expected one notification, got %#v", notifier.notified)
	}

	// Second sweep: same ticket still overdue, insert conflicts, no re-notify.
	pgMock.ExpectQuery("SELECT .+ FROM tickets\\s+WHERE status IN").
		WithArgs(pgxmock.AnyArg(), 100).
		WillReturnRows(ticketRow(overdue))
	sqlMock.ExpectExec("INSERT INTO ticket_escalations").
		WithArgs(sqlmock.AnyArg(), overdue.ID, overdue.OrgID, overdue.Priority, overdue.SLADueAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := tracker.ProcessOverdue(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if len(notifier.notified) != 1 {
		t.Fatalf("expected no second notification, got %d", len(notifier.notified))
	}

	if err := sqlMock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
