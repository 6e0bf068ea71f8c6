package xp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresUserStore is a PostgreSQL-backed UserStore implementation.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a PostgreSQL-backed user store.
func NewPostgresUserStore(pool *pgxpool.Pool) (*PostgresUserStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresUserStore{pool: pool}, nil
}

// AddXP applies the delta in SQL so concurrent awards never lose an
// increment. Unknown users get a row created with the delta as their total.
func (s *PostgresUserStore) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, xp)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET xp = users.xp + EXCLUDED.xp,
		     updated_at = NOW()
		 RETURNING xp`,
		userID, delta,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return total, nil
}

func (s *PostgresUserStore) GetXP(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT xp FROM users WHERE id = $1`,
		userID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get xp: %w", err)
	}
	return total, nil
}
