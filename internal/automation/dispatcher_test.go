package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
)

func dueEventRows(evt Event) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "org_id", "type", "payload", "attempts", "created_at"}).
		AddRow(evt.ID, evt.OrgID, evt.Type, []byte(evt.Payload), evt.Attempts, evt.CreatedAt)
}

func TestDispatcherDeliversAndDedupes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var hits atomic.Int32
	var gotType string
	var gotPayload map[string]string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotType = r.Header.Get("X-Intake-Event-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := newOutboxStoreWithQuerier(mock)

	evt := Event{
		ID:        uuid.New(),
		OrgID:     "org-1",
		Type:      "ticket.created",
		Payload:   json.RawMessage(`{"subject":"help"}`),
		CreatedAt: time.Now().UTC(),
	}

	d := NewDispatcher(store, rdb, DispatcherConfig{WebhookURL: webhook.URL}, nil, nil)

	mock.ExpectQuery("SELECT id").WithArgs(pgxmock.AnyArg()).WillReturnRows(dueEventRows(evt))
	mock.ExpectExec("UPDATE automation_outbox").WithArgs(evt.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	d.drain(context.Background())

	if hits.Load() != 1 {
		t.Fatalf("expected one webhook call, got %d", hits.Load())
	}
	if gotType != "ticket.created" || gotPayload["subject"] != "help" {
		t.Fatalf("unexpected delivery: type=%q payload=%v", gotType, gotPayload)
	}

	// The same event appearing again (MarkDelivered lost in a crash) is
	// reconciled from the redis dedupe set without re-posting.
	mock.ExpectQuery("SELECT id").WithArgs(pgxmock.AnyArg()).WillReturnRows(dueEventRows(evt))
	mock.ExpectExec("UPDATE automation_outbox").WithArgs(evt.ID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	d.drain(context.Background())

	if hits.Load() != 1 {
		t.Fatalf("deduped event must not be re-posted, got %d calls", hits.Load())
	}
}

func TestDispatcherSchedulesRetryOnFailure(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer webhook.Close()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	store := newOutboxStoreWithQuerier(mock)

	evt := Event{
		ID:        uuid.New(),
		OrgID:     "org-1",
		Type:      "survey.completed",
		Payload:   json.RawMessage(`{}`),
		Attempts:  2,
		CreatedAt: time.Now().UTC(),
	}

	d := NewDispatcher(store, nil, DispatcherConfig{
		WebhookURL:  webhook.URL,
		RetryBase:   30 * time.Second,
		MaxAttempts: 5,
	}, nil, nil)

	mock.ExpectQuery("SELECT id").WithArgs(pgxmock.AnyArg()).WillReturnRows(dueEventRows(evt))
	mock.ExpectExec("UPDATE automation_outbox").
		WithArgs(evt.ID, pgxmock.AnyArg(), 5).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	d.drain(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	d := NewDispatcher(nil, nil, DispatcherConfig{RetryBase: 30 * time.Second}, nil, nil)

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{3, 4 * time.Minute},
		{10, time.Hour},
	}
	for _, tt := range tests {
		if got := d.backoff(tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
