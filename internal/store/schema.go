package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
-- One row per trials batch
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

-- One row per protocol run
CREATE TABLE IF NOT EXISTS results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    trial INTEGER NOT NULL,
    protocol TEXT NOT NULL,
    rounds_taken INTEGER NOT NULL,
    average_contacts REAL NOT NULL,
    total_messages_known INTEGER NOT NULL,
    total_contacts INTEGER NOT NULL,
    converged INTEGER NOT NULL DEFAULT 0,
    final_counts TEXT,  -- JSON object agent id -> known count
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_batch ON results(batch_id);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables if missing, stamps the schema version, and
// checks the file is sound. It is safe to call on every open.
func InitSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	version, err := schemaVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return ValidateIntegrity(ctx, db)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// schemaVersion returns the highest version stamped in schema_version.
func schemaVersion(ctx context.Context, q queryRower) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// ValidateIntegrity fails when SQLite reports page-level damage or when a
// result row points at a batch that does not exist.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var status string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&status); err != nil {
		return fmt.Errorf("failed to run quick_check: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("quick_check failed: %s", status)
	}

	var orphans int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_foreign_key_check`).Scan(&orphans); err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	if orphans > 0 {
		return fmt.Errorf("foreign_key_check failed: %d result rows reference a missing batch", orphans)
	}
	return nil
}
