package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration is one named schema step. Steps are applied in order, each in
// its own transaction, and recorded in schema_migrations so reruns skip
// them.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				xp         BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
	},
	{
		name: "002_courses",
		sql: `
			CREATE TABLE IF NOT EXISTS courses (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL,
				description   TEXT NOT NULL DEFAULT '',
				learning_path JSONB NOT NULL DEFAULT '[]'::jsonb,
				is_published  BOOLEAN NOT NULL DEFAULT FALSE,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
	},
	{
		name: "003_chapters",
		sql: `
			CREATE TABLE IF NOT EXISTS chapters (
				id           TEXT PRIMARY KEY,
				course_id    TEXT NOT NULL,
				title        TEXT NOT NULL,
				slug         TEXT NOT NULL DEFAULT '',
				content      TEXT NOT NULL DEFAULT '',
				ord          INTEGER NOT NULL DEFAULT 1,
				is_published BOOLEAN NOT NULL DEFAULT FALSE,
				xp_reward    INTEGER NOT NULL DEFAULT 0,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS chapters_course_idx ON chapters (course_id, ord)`,
	},
	{
		name: "004_quizzes",
		sql: `
			CREATE TABLE IF NOT EXISTS quizzes (
				id            TEXT PRIMARY KEY,
				course_id     TEXT,
				chapter_id    TEXT,
				title         TEXT NOT NULL,
				slug          TEXT NOT NULL DEFAULT '',
				questions     JSONB NOT NULL DEFAULT '[]'::jsonb,
				passing_score INTEGER NOT NULL DEFAULT 70,
				xp_reward     INTEGER NOT NULL DEFAULT 0,
				is_published  BOOLEAN NOT NULL DEFAULT FALSE,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS quizzes_course_idx ON quizzes (course_id)`,
	},
	{
		name: "005_progress",
		sql: `
			CREATE TABLE IF NOT EXISTS progress (
				user_id          TEXT NOT NULL,
				course_id        TEXT NOT NULL,
				total_time_spent INTEGER NOT NULL DEFAULT 0,
				last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, course_id)
			)`,
	},
	{
		name: "006_completed_chapters",
		sql: `
			CREATE TABLE IF NOT EXISTS completed_chapters (
				user_id         TEXT NOT NULL,
				course_id       TEXT NOT NULL,
				chapter_id      TEXT NOT NULL,
				reading_percent INTEGER NOT NULL DEFAULT 100,
				completed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, course_id, chapter_id)
			)`,
	},
	{
		name: "007_quiz_results",
		sql: `
			CREATE TABLE IF NOT EXISTS quiz_results (
				id           BIGSERIAL PRIMARY KEY,
				user_id      TEXT NOT NULL,
				course_id    TEXT NOT NULL,
				quiz_id      TEXT NOT NULL,
				score        INTEGER NOT NULL,
				passed       BOOLEAN NOT NULL,
				xp_earned    INTEGER NOT NULL DEFAULT 0,
				completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS quiz_results_pair_idx ON quiz_results (user_id, course_id)`,
	},
	{
		name: "008_content_requests",
		sql: `
			CREATE TABLE IF NOT EXISTS content_requests (
				id           TEXT PRIMARY KEY,
				type         TEXT NOT NULL,
				payload      JSONB NOT NULL,
				submitted_by TEXT NOT NULL,
				status       TEXT NOT NULL DEFAULT 'pending',
				reviewed_by  TEXT,
				review_note  TEXT,
				submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				reviewed_at  TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS content_requests_status_idx ON content_requests (status, submitted_at)`,
	},
	{
		name: "009_tickets",
		sql: `
			CREATE SEQUENCE IF NOT EXISTS ticket_seq;
			CREATE TABLE IF NOT EXISTS tickets (
				id          TEXT PRIMARY KEY,
				subject     TEXT NOT NULL,
				category    TEXT,
				created_by  TEXT NOT NULL,
				status      TEXT NOT NULL DEFAULT 'open',
				assigned_to TEXT,
				messages    JSONB NOT NULL DEFAULT '[]'::jsonb,
				resolution  TEXT,
				resolved_by TEXT,
				resolved_at TIMESTAMPTZ,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS tickets_creator_idx ON tickets (created_by)`,
	},
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}

		slog.Info("migration applied", "migration", m.name)
	}

	return nil
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
