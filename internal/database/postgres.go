package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx connection pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	cfg.ConnConfig.Tracer = &metricsTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code TEXT NOT NULL UNIQUE,
		owner_id UUID NOT NULL REFERENCES users(id),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		estimate DOUBLE PRECISION,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		voter_id UUID NOT NULL REFERENCES users(id),
		estimate DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_room_id ON questions(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_question_id ON votes(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_owner_id ON rooms(owner_id)`,
}

// RunMigrations applies the schema statements in order. Statements are
// idempotent, so rerunning on startup is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	slog.Info("Database migrations applied", "statements", len(migrations))
	return nil
}
