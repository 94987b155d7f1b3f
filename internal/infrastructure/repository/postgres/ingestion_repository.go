package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	statusReady  = "ready"
	statusFailed = "failed"

	schemaLockKey int64 = 2026101501
)

// IngestionRepository is an IngestionGuard backed by a status table. A
// transaction-scoped advisory lock per collection serializes concurrent
// ingesters across processes.
type IngestionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewIngestionRepository(db *sql.DB) *IngestionRepository {
	return &IngestionRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *IngestionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_ingestions (
	collection TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	passage_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	completed_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *IngestionRepository) RunOnce(
	ctx context.Context,
	collection string,
	fn func(context.Context) (int, error),
) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, collection); err != nil {
		return false, fmt.Errorf("acquire ingestion lock: %w", err)
	}

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM corpus_ingestions WHERE collection = $1`, collection).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read ingestion status: %w", err)
	}
	if status == statusReady {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit ingestion tx: %w", err)
		}
		return true, nil
	}

	count, runErr := fn(ctx)
	if runErr != nil {
		if err := r.record(ctx, tx, collection, statusFailed, 0, runErr.Error()); err != nil {
			return false, errors.Join(runErr, err)
		}
		if err := tx.Commit(); err != nil {
			return false, errors.Join(runErr, fmt.Errorf("commit ingestion tx: %w", err))
		}
		return false, runErr
	}

	if err := r.record(ctx, tx, collection, statusReady, count, ""); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit ingestion tx: %w", err)
	}
	return false, nil
}

func (r *IngestionRepository) record(ctx context.Context, tx *sql.Tx, collection, status string, count int, message string) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO corpus_ingestions (collection, status, passage_count, error_message, completed_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
ON CONFLICT (collection) DO UPDATE SET
	status = EXCLUDED.status,
	passage_count = EXCLUDED.passage_count,
	error_message = EXCLUDED.error_message,
	completed_at = EXCLUDED.completed_at
`, collection, status, count, message, r.now())
	if err != nil {
		return fmt.Errorf("record ingestion status: %w", err)
	}
	return nil
}
