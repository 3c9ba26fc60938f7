// Package automation relays intake events (tickets, surveys, bookings) to
// the workflow-automation system's webhook. Events are written to a Postgres
// outbox so a webhook outage never loses them, then delivered with capped
// exponential backoff.
package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is a pending outbox entry.
type Event struct {
	ID        uuid.UUID
	OrgID     string
	Type      string
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OutboxStore persists events for reliable delivery.
type OutboxStore struct {
	pool querier
}

// NewOutboxStore creates an outbox store backed by a pgx pool.
func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("automation: pgx pool required")
	}
	return &OutboxStore{pool: pool}
}

func newOutboxStoreWithQuerier(q querier) *OutboxStore {
	return &OutboxStore{pool: q}
}

// Record queues an event for delivery and returns its id.
func (s *OutboxStore) Record(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("automation: marshal payload: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO automation_outbox (id, org_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, query, id, orgID, eventType, data); err != nil {
		return uuid.Nil, fmt.Errorf("automation: insert outbox: %w", err)
	}
	return id, nil
}

// FetchDue returns undelivered events whose next attempt is due, oldest first.
func (s *OutboxStore) FetchDue(ctx context.Context, limit int32) ([]Event, error) {
	query := `
		SELECT id, org_id, type, payload, attempts, created_at
		FROM automation_outbox
		WHERE delivered_at IS NULL AND dead_at IS NULL AND next_attempt_at <= now()
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("automation: fetch due: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var payload []byte
		if err := rows.Scan(&evt.ID, &evt.OrgID, &evt.Type, &payload, &evt.Attempts, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("automation: scan outbox: %w", err)
		}
		evt.Payload = append([]byte(nil), payload...)
		events = append(events, evt)
	}
	return events, rows.Err()
}

// MarkDelivered records a successful delivery.
func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE automation_outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("automation: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkFailed bumps the attempt counter and schedules the retry. An event
// that exhausted maxAttempts is parked as dead instead of retried.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, retryIn time.Duration, maxAttempts int) error {
	query := `
		UPDATE automation_outbox
		SET attempts = attempts + 1,
		    next_attempt_at = now() + $2::interval,
		    dead_at = CASE WHEN attempts + 1 >= $3 THEN now() ELSE NULL END
		WHERE id = $1 AND delivered_at IS NULL
	`
	interval := fmt.Sprintf("%f seconds", retryIn.Seconds())
	if _, err := s.pool.Exec(ctx, query, id, interval, maxAttempts); err != nil {
		return fmt.Errorf("automation: mark failed: %w", err)
	}
	return nil
}
