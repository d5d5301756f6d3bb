package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaVersion = 1

// migrations[i] upgrades the schema from version i to version i+1.
// Activities carry no foreign key to children: records attributed to the
// unknown-child sentinel must still be storable.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS children (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		classroom TEXT NOT NULL,
		date_of_birth TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT NOT NULL,
		child_id TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		end_time TEXT,
		details JSONB NOT NULL DEFAULT '{}',
		notes TEXT,
		reported_by TEXT,
		PRIMARY KEY (id, child_id)
	);

	CREATE INDEX IF NOT EXISTS idx_activities_child_id ON activities (child_id);
	CREATE INDEX IF NOT EXISTS idx_activities_type ON activities (type);
	CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities (timestamp);
	CREATE INDEX IF NOT EXISTS idx_activities_child_type_ts ON activities (child_id, type, timestamp);

	CREATE TABLE IF NOT EXISTS sync_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	`,
}

// Migrate brings the schema up to the current version. All pending
// migrations run in one transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	current := currentVersion(ctx, pool)
	if current >= schemaVersion {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := current; i < schemaVersion; i++ {
		if _, err := tx.Exec(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration to v%d failed: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, schemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func currentVersion(ctx context.Context, pool *pgxpool.Pool) int {
	var version int
	err := pool.QueryRow(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		// Missing table or empty row both mean a fresh database.
		return 0
	}
	return version
}
