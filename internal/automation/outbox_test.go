package automation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithQuerier(mock)

	mock.ExpectExec("INSERT INTO automation_outbox").
		WithArgs(pgxmock.AnyArg(), "org-1", "ticket.created", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Record(context.Background(), "org-1", "ticket.created", map[string]string{"subject": "help"}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "org_id", "type", "payload", "attempts", "created_at"}).
		AddRow(id, "org-1", "ticket.created", []byte(`{"subject":"help"}`), 0, now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	events, err := store.FetchDue(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch due failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != id {
		t.Fatalf("unexpected events: %#v", events)
	}

	mock.ExpectExec("UPDATE automation_outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	mock.ExpectExec("UPDATE automation_outbox").
		WithArgs(id, pgxmock.AnyArg(), 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.MarkFailed(context.Background(), id, time.Minute, 5); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
