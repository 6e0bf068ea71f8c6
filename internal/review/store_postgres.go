package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed request store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, req ContentRequest) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	submittedAt := req.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO content_requests (id, type, payload, submitted_by, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.Type, req.Payload, req.SubmittedBy, req.Status, submittedAt,
	)
	if err != nil {
		return fmt.Errorf("create content request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*ContentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	req, err := scanRequest(s.pool.QueryRow(ctx,
		`SELECT id, type, payload, submitted_by, status, reviewed_by, review_note, submitted_at, reviewed_at
		 FROM content_requests
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("content request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get content request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status RequestStatus) ([]ContentRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, type, payload, submitted_by, status, reviewed_by, review_note, submitted_at, reviewed_at
		 FROM content_requests
		 WHERE status = $1
		 ORDER BY submitted_at ASC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list content requests: %w", err)
	}
	defer rows.Close()

	var out []ContentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content request: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// Transition is a single conditional UPDATE guarded on status='pending';
// the zero-rows case tells a racing reviewer they lost.
func (s *PostgresStore) Transition(ctx context.Context, id string, to RequestStatus, reviewedBy, note string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE content_requests
		 SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = $5
		 WHERE id = $1 AND status = 'pending'`,
		id, to, reviewedBy, note, at,
	)
	if err != nil {
		return false, fmt.Errorf("transition content request: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*ContentRequest, error) {
	var req ContentRequest
	var reviewedBy, reviewNote *string
	if err := row.Scan(&req.ID, &req.Type, &req.Payload, &req.SubmittedBy, &req.Status, &reviewedBy, &reviewNote, &req.SubmittedAt, &req.ReviewedAt); err != nil {
		return nil, err
	}
	if reviewedBy != nil {
		req.ReviewedBy = *reviewedBy
	}
	if reviewNote != nil {
		req.ReviewNote = *reviewNote
	}
	return &req, nil
}
