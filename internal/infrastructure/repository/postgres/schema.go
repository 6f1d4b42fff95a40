package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	response_id TEXT NOT NULL,
	question TEXT NOT NULL,
	rating INTEGER NOT NULL,
	comment TEXT,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS resolutions (
	query_id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	quality DOUBLE PRECISION NOT NULL,
	efficiency DOUBLE PRECISION NOT NULL,
	elapsed_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_received_at ON feedback(received_at DESC);
CREATE INDEX IF NOT EXISTS idx_resolutions_created_at ON resolutions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_resolutions_source ON resolutions(source);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
