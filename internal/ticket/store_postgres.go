package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathlearn/pathlearn/internal/platform/apperr"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. Sequential
// ticket IDs come from the ticket_seq sequence, formatted at insert time.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed ticket store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if t.Messages == nil {
		t.Messages = []Message{}
	}
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO tickets (id, subject, category, created_by, status, messages)
		 VALUES ('TKT-' || lpad(nextval('ticket_seq')::text, 6, '0'), $1, $2, $3, $4, $5)
		 RETURNING id`,
		t.Subject, t.Category, t.CreatedBy, t.Status, messages,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTicket(s.pool.QueryRow(ctx,
		`SELECT id, subject, category, created_by, status, assigned_to, messages,
		        resolution, resolved_by, resolved_at, created_at, updated_at
		 FROM tickets
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("ticket", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListByCreator(ctx context.Context, userID string) ([]Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, category, created_by, status, assigned_to, messages,
		        resolution, resolved_by, resolved_at, created_at, updated_at
		 FROM tickets
		 WHERE created_by = $1
		 ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, id string, m Message, from, to Status) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	// The status moves only if the row still matches the state the
	// transition was computed from.
	cmd, err := s.pool.Exec(ctx,
		`UPDATE tickets
		 SET messages = messages || $2::jsonb,
		     status = CASE WHEN $4::text <> '' AND status = $3::text THEN $4::text ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, raw, string(from), string(to),
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperr.NotFound("ticket", id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) SetAssignee(ctx context.Context, id, admin string, from, to Status) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE tickets
		 SET assigned_to = $2,
		     status = CASE WHEN $4::text <> '' AND status = $3::text THEN $4::text ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, admin, string(from), string(to),
	)
	if err != nil {
		return nil, fmt.Errorf("set assignee: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperr.NotFound("ticket", id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, st Status, resolution, resolvedBy string, resolvedAt *time.Time) (*Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE tickets
		 SET status = $2,
		     resolution = COALESCE(NULLIF($3, ''), resolution),
		     resolved_by = COALESCE(NULLIF($4, ''), resolved_by),
		     resolved_at = COALESCE($5, resolved_at),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, st, resolution, resolvedBy, resolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperr.NotFound("ticket", id)
	}
	return s.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var category, assignedTo, resolution, resolvedBy *string
	var messages []byte
	err := row.Scan(&t.ID, &t.Subject, &category, &t.CreatedBy, &t.Status, &assignedTo,
		&messages, &resolution, &resolvedBy, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if category != nil {
		t.Category = *category
	}
	if assignedTo != nil {
		t.AssignedTo = *assignedTo
	}
	if resolution != nil {
		t.Resolution = *resolution
	}
	if resolvedBy != nil {
		t.ResolvedBy = *resolvedBy
	}
	if err := json.Unmarshal(messages, &t.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &t, nil
}
