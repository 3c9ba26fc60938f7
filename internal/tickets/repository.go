package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no ticket matches.
var ErrNotFound = errors.New("tickets: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists tickets in Postgres.
type Repository struct {
	pool querier
}

// NewRepository creates a ticket repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("tickets: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	return &Repository{pool: q}
}

const ticketColumns = `id, org_id, contact_id, category, client_name, email, phone,
		subject, description, priority, status, attachments, sla_due_at,
		resolved_at, created_at, updated_at`

// Insert stores a new ticket.
func (r *Repository) Insert(ctx context.Context, t *Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.OrgID, t.ContactID, t.Category, t.ClientName, t.Email, t.Phone,
		t.Subject, t.Description, t.Priority, t.Status, t.Attachments, t.SLADueAt,
		t.ResolvedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("tickets: insert: %w", err)
	}
	return nil
}

// Get fetches a ticket scoped to an org.
func (r *Repository) Get(ctx context.Context, orgID string, id uuid.UUID) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE org_id = $1 AND id = $2`
	t, err := scanTicket(r.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tickets: get: %w", err)
	}
	return t, nil
}

// List returns an org's tickets, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, orgID string, status Status, limit int) ([]Ticket, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE org_id = $1`
	args := []any{orgID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tickets: list: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("tickets: scan: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a ticket's status, enforcing the lifecycle rules
// in SQL so concurrent updates can't race past them.
func (r *Repository) UpdateStatus(ctx context.Context, orgID string, id uuid.UUID, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("tickets: cannot move %s to %s", from, to)
	}

	now := time.Now().UTC()
	var resolvedAt *time.Time
	if to == StatusResolved {
		resolvedAt = &now
	}

	query := `
		UPDATE tickets
		SET status = $1, resolved_at = COALESCE($2, resolved_at), updated_at = $3
		WHERE org_id = $4 AND id = $5 AND status = $6
	`
	ct, err := r.pool.Exec(ctx, query, to, resolvedAt, now, orgID, id, from)
	if err != nil {
		return fmt.Errorf("tickets: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOverdue returns open or pending tickets past their SLA deadline.
func (r *Repository) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status IN ('open', 'pending') AND sla_due_at < $1
		ORDER BY sla_due_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("tickets: list overdue: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("tickets: scan: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.ID, &t.OrgID, &t.ContactID, &t.Category, &t.ClientName, &t.Email, &t.Phone,
		&t.Subject, &t.Description, &t.Priority, &t.Status, &t.Attachments, &t.SLADueAt,
		&t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
