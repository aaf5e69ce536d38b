package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] moves the database from user_version i to i+1.
var migrations = []string{
	`CREATE TABLE sessions (
		chat_id       TEXT PRIMARY KEY,
		email_address TEXT NOT NULL,
		email_token   TEXT NOT NULL,
		expires_at    TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX sessions_created_at ON sessions (created_at)`,
}

// migrate applies every pending migration, each in its own transaction,
// tracking progress in PRAGMA user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: read user_version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("sqlite: database schema v%d is newer than this binary (v%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if err := applyMigration(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, v int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: migration %d: %w", v+1, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
		return fmt.Errorf("sqlite: migration %d: %w", v+1, err)
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
		return fmt.Errorf("sqlite: migration %d: set user_version: %w", v+1, err)
	}
	return tx.Commit()
}
