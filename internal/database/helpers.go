package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// utcPtr normalizes nullable timestamps before they are written.
// SQLite compares timestamps as text, so every stored time is UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// loadTimestamps reads back database-assigned timestamps after an insert.
// RETURNING columns carry no declared type in SQLite, so times are selected separately.
func loadTimestamps(ctx context.Context, db sqlx.ExtContext, table string, id int64, created, updated *time.Time) error {
	query := db.Rebind("SELECT created_at, updated_at FROM " + table + " WHERE id = ?")
	if err := db.QueryRowxContext(ctx, query, id).Scan(created, updated); err != nil {
		return fmt.Errorf("failed to load %s timestamps: %w", table, err)
	}
	return nil
}
