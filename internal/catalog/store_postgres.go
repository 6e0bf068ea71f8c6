package catalog

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

// PostgresStore is a PostgreSQL-backed ContentStore implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed content store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, c Course) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	path, err := json.Marshal(pathOrEmpty(c.LearningPath))
	if err != nil {
		return fmt.Errorf("marshal learning path: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO courses (id, title, description, learning_path, is_published)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     learning_path = EXCLUDED.learning_path,
		     is_published = EXCLUDED.is_published,
		     updated_at = NOW()`,
		c.ID, c.Title, c.Description, path, c.IsPublished,
	)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, id string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Course
	var path []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, learning_path, is_published, created_at, updated_at
		 FROM courses
		 WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &path, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("course", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	if err := json.Unmarshal(path, &c.LearningPath); err != nil {
		return nil, fmt.Errorf("unmarshal learning path: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateChapter(ctx context.Context, ch Chapter) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO chapters (id, course_id, title, slug, content, ord, is_published, xp_reward)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		ch.ID, ch.CourseID, ch.Title, ch.Slug, ch.Content, ch.Order, ch.IsPublished, ch.XPReward,
	)
	if err != nil {
		return false, fmt.Errorf("create chapter: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetChapter(ctx context.Context, id string) (*Chapter, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var ch Chapter
	err := s.pool.QueryRow(ctx,
		`SELECT id, course_id, title, slug, content, ord, is_published, xp_reward, created_at
		 FROM chapters
		 WHERE id = $1`,
		id,
	).Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.Slug, &ch.Content, &ch.Order, &ch.IsPublished, &ch.XPReward, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("chapter", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return &ch, nil
}

func (s *PostgresStore) ListChaptersByCourse(ctx context.Context, courseID string) ([]Chapter, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, title, slug, content, ord, is_published, xp_reward, created_at
		 FROM chapters
		 WHERE course_id = $1
		 ORDER BY ord ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.Slug, &ch.Content, &ch.Order, &ch.IsPublished, &ch.XPReward, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MaxChapterOrder(ctx context.Context, courseID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var max int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(ord), 0) FROM chapters WHERE course_id = $1`,
		courseID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max chapter order: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) CreateQuiz(ctx context.Context, q Quiz) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return false, fmt.Errorf("marshal questions: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, course_id, chapter_id, title, slug, questions, passing_score, xp_reward, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		q.ID, nullIfEmpty(q.CourseID), nullIfEmpty(q.ChapterID), q.Title, q.Slug, questions, q.PassingScore, q.XPReward, q.IsPublished,
	)
	if err != nil {
		return false, fmt.Errorf("create quiz: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, id string) (*Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	q, err := s.scanQuiz(s.pool.QueryRow(ctx,
		`SELECT id, course_id, chapter_id, title, slug, questions, passing_score, xp_reward, is_published, created_at
		 FROM quizzes
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("quiz", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) ListQuizzesByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, course_id, chapter_id, title, slug, questions, passing_score, xp_reward, is_published, created_at
		 FROM quizzes
		 WHERE course_id = $1
		 ORDER BY id ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		q, err := s.scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendPathItem(ctx context.Context, courseID string, item PathItem) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	ref, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal path item: %w", err)
	}

	// Append only when a path already exists (legacy courses stay legacy)
	// and the reference is not there yet, so retried appends are no-ops.
	cmd, err := s.pool.Exec(ctx,
		`UPDATE courses
		 SET learning_path = learning_path || $2::jsonb,
		     updated_at = NOW()
		 WHERE id = $1
		   AND jsonb_array_length(learning_path) > 0
		   AND NOT learning_path @> jsonb_build_array($2::jsonb)`,
		courseID, ref,
	)
	if err != nil {
		return fmt.Errorf("append path item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Legacy mode, duplicate, or missing course; only the last is an
		// error for callers.
		if _, err := s.GetCourse(ctx, courseID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SetLearningPath(ctx context.Context, courseID string, path []PathItem) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	raw, err := json.Marshal(pathOrEmpty(path))
	if err != nil {
		return fmt.Errorf("marshal learning path: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE courses SET learning_path = $2, updated_at = NOW() WHERE id = $1`,
		courseID, raw,
	)
	if err != nil {
		return fmt.Errorf("set learning path: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("course", courseID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanQuiz(row rowScanner) (*Quiz, error) {
	var q Quiz
	var courseID, chapterID *string
	var questions []byte
	if err := row.Scan(&q.ID, &courseID, &chapterID, &q.Title, &q.Slug, &questions, &q.PassingScore, &q.XPReward, &q.IsPublished, &q.CreatedAt); err != nil {
		return nil, err
	}
	if courseID != nil {
		q.CourseID = *courseID
	}
	if chapterID != nil {
		q.ChapterID = *chapterID
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &q, nil
}

func pathOrEmpty(path []PathItem) []PathItem {
	if path == nil {
		return []PathItem{}
	}
	return path
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
