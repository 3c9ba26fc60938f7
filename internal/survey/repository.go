package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no survey response matches.
var ErrNotFound = errors.New("survey: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists survey responses in Postgres. Answers are stored as a
// JSONB document since the questionnaire changes without migrations.
type Repository struct {
	pool querier
}

// NewRepository creates a survey repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("survey: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	return &Repository{pool: q}
}

// Insert stores a completed response.
func (r *Repository) Insert(ctx context.Context, resp *Response) error {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("survey: marshal answers: %w", err)
	}
	query := `
		INSERT INTO survey_responses
			(id, org_id, contact_id, client_name, email, phone, answers, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		resp.ID, resp.OrgID, resp.ContactID, resp.ClientName, resp.Email, resp.Phone,
		answers, resp.CompletedAt, resp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("survey: insert: %w", err)
	}
	return nil
}

// Get fetches one response scoped to an org.
func (r *Repository) Get(ctx context.Context, orgID string, id uuid.UUID) (*Response, error) {
	query := `
		SELECT id, org_id, contact_id, client_name, email, phone, answers, completed_at, created_at
		FROM survey_responses
		WHERE org_id = $1 AND id = $2
	`
	var resp Response
	var answers []byte
	err := r.pool.QueryRow(ctx, query, orgID, id).Scan(
		&resp.ID, &resp.OrgID, &resp.ContactID, &resp.ClientName, &resp.Email, &resp.Phone,
		&answers, &resp.CompletedAt, &resp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("survey: get: %w", err)
	}
	if err := json.Unmarshal(answers, &resp.Answers); err != nil {
		return nil, fmt.Errorf("survey: unmarshal answers: %w", err)
	}
	return &resp, nil
}
