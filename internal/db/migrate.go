// Package db owns the PostgreSQL schema.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates any missing tables and rewrites orders still stored with the
// legacy "new" status to "pending". It is safe to run on every start and
// returns how many orders were rewritten.
func Migrate(ctx context.Context, db *sql.DB) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("migrate: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return 0, fmt.Errorf("migrate: apply schema: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status='pending', updated_at=NOW() WHERE status IN ('new','NEW')`)
	if err != nil {
		return 0, fmt.Errorf("migrate: legacy statuses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("migrate: legacy statuses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("migrate: commit: %w", err)
	}
	return n, nil
}
