package progress

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
//
// The (user_id, course_id) primary key on the progress table is what
// rejects racing creations; every write goes through ON CONFLICT so the
// losing side merges instead of erroring.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, courseID string) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p Progress
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, course_id, total_time_spent, last_accessed_at, created_at
		 FROM progress
		 WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	).Scan(&p.UserID, &p.CourseID, &p.TotalTimeSpent, &p.LastAccessedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("progress", userID+"/"+courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	p.CompletedChapters = []ChapterCompletion{}
	rows, err := s.pool.Query(ctx,
		`SELECT chapter_id, reading_percent, completed_at
		 FROM completed_chapters
		 WHERE user_id = $1 AND course_id = $2
		 ORDER BY completed_at ASC`,
		userID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c ChapterCompletion
		if err := rows.Scan(&c.ChapterID, &c.ReadingPercent, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		p.CompletedChapters = append(p.CompletedChapters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}

	p.QuizResults = []QuizResult{}
	qrows, err := s.pool.Query(ctx,
		`SELECT quiz_id, score, passed, xp_earned, completed_at
		 FROM quiz_results
		 WHERE user_id = $1 AND course_id = $2
		 ORDER BY completed_at ASC, id ASC`,
		userID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var r QuizResult
		if err := qrows.Scan(&r.QuizID, &r.Score, &r.Passed, &r.XPEarned, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		p.QuizResults = append(p.QuizResults, r)
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quiz results: %w", err)
	}

	return &p, nil
}

// AddCompletion upserts the progress row, then inserts the completion with
// ON CONFLICT DO NOTHING. The insert's rows-affected count is the
// first-completion signal, so two racing duplicate requests cannot both
// win.
func (s *PostgresStore) AddCompletion(ctx context.Context, userID, courseID string, c ChapterCompletion) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertProgressTx(ctx, tx, userID, courseID); err != nil {
		return false, err
	}

	cmd, err := tx.Exec(ctx,
		`INSERT INTO completed_chapters (user_id, course_id, chapter_id, reading_percent, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, course_id, chapter_id) DO NOTHING`,
		userID, courseID, c.ChapterID, c.ReadingPercent, completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert completion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) AppendQuizResult(ctx context.Context, userID, courseID string, r QuizResult) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	completedAt := r.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertProgressTx(ctx, tx, userID, courseID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO quiz_results (user_id, course_id, quiz_id, score, passed, xp_earned, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, courseID, r.QuizID, r.Score, r.Passed, r.XPEarned, completedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}

	return tx.Commit(ctx)
}

// AddTime accumulates minutes with a single upsert; the addition happens
// in SQL against the stored value, so concurrent calls cannot lose
// updates.
func (s *PostgresStore) AddTime(ctx context.Context, userID, courseID string, minutes int) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress (user_id, course_id, total_time_spent, last_accessed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET total_time_spent = progress.total_time_spent + EXCLUDED.total_time_spent,
		     last_accessed_at = NOW()`,
		userID, courseID, minutes,
	)
	if err != nil {
		return nil, fmt.Errorf("add time: %w", err)
	}

	return s.Get(ctx, userID, courseID)
}

func upsertProgressTx(ctx context.Context, tx pgx.Tx, userID, courseID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO progress (user_id, course_id, total_time_spent, last_accessed_at)
		 VALUES ($1, $2, 0, NOW())
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET last_accessed_at = NOW()`,
		userID, courseID,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}
