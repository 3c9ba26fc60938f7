package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func ticketColumnsList() []string {
	return []string{
		"id", "org_id", "contact_id", "category", "client_name", "email", "phone",
		"subject", "description", "priority", "status", "attachments", "sla_due_at",
		"resolved_at", "created_at", "updated_at",
	}
}

func sampleTicket() *Ticket {
	now := time.Now().UTC().Truncate(time.Second)
	return &Ticket{
		ID:          uuid.New(),
		OrgID:       "org-1",
		ContactID:   "contact-1",
		Category:    "billing",
		ClientName:  "Dana Wells",
		Email:       "dana@example.com",
		Subject:     "Invoice discrepancy",
		Description: "Duplicate seat charge.",
		Priority:    PriorityNormal,
		Status:      StatusOpen,
		Attachments: []string{"tickets/att-1.pdf"},
		SLADueAt:    now.Add(24 * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ticketRow(t *Ticket) *pgxmock.Rows {
	return pgxmock.NewRows(ticketColumnsList()).AddRow(
		t.ID, t.OrgID, t.ContactID, t.Category, t.ClientName, t.Email, t.Phone,
		t.Subject, t.Description, t.Priority, t.Status, t.Attachments, t.SLADueAt,
		t.ResolvedAt, t.CreatedAt, t.UpdatedAt,
	)
}

func TestRepositoryInsertAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock)
	ticket := sampleTicket()

	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(ticket.ID, ticket.OrgID, ticket.ContactID, ticket.Category, ticket.ClientName,
			ticket.Email, ticket.Phone, ticket.Subject, ticket.Description, ticket.Priority,
			ticket.Status, ticket.Attachments, ticket.SLADueAt, ticket.ResolvedAt,
			ticket.CreatedAt, ticket.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := repo.Insert(context.Background(), ticket); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	mock.ExpectQuery("SELECT .+ FROM tickets WHERE org_id").
		WithArgs("org-1", ticket.ID).
		WillReturnRows(ticketRow(ticket))
	got, err := repo.Get(context.Background(), "org-1", ticket.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Subject != ticket.Subject || got.Priority != ticket.Priority {
		t.Fatalf("unexpected ticket: %#v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM tickets WHERE org_id").
		WithArgs("org-1", id).
		WillReturnRows(pgxmock.NewRows(ticketColumnsList()))

	if _, err := repo.Get(context.Background(), "org-1", id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryListFiltersByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock)
	ticket := sampleTicket()

	mock.ExpectQuery("SELECT .+ FROM tickets WHERE org_id = \\$1 AND status = \\$2").
		WithArgs("org-1", StatusOpen).
		WillReturnRows(ticketRow(ticket))

	out, err := repo.List(context.Background(), "org-1", StatusOpen, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != ticket.ID {
		t.Fatalf("unexpected list: %#v", out)
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE tickets").
		WithArgs(StatusResolved, pgxmock.AnyArg(), pgxmock.AnyArg(), "org-1", id, StatusOpen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.UpdateStatus(context.Background(), "org-1", id, StatusOpen, StatusResolved); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Closed is terminal.
	if err := repo.UpdateStatus(context.Background(), "org-1", id, StatusClosed, StatusOpen); err == nil {
		t.Fatal("expected transition out of closed to be rejected")
	}

	// A concurrent transition already moved the row.
	mock.ExpectExec("UPDATE tickets").
		WithArgs(StatusResolved, pgxmock.AnyArg(), pgxmock.AnyArg(), "org-1", id, StatusOpen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.UpdateStatus(context.Background(), "org-1", id, StatusOpen, StatusResolved); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryListOverdue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithQuerier(mock)
	ticket := sampleTicket()
	cutoff := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM tickets\\s+WHERE status IN").
		WithArgs(cutoff, 100).
		WillReturnRows(ticketRow(ticket))

	out, err := repo.ListOverdue(context.Background(), cutoff, 100)
	if err != nil {
		t.Fatalf("list overdue failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one overdue ticket, got %d", len(out))
	}
}
