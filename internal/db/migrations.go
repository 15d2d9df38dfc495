package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: browse views filter on status and order by date.
	`CREATE INDEX IF NOT EXISTS idx_items_status_date ON items(status, date DESC)`,
	// Migration 2: "my items" lists a single user's copies newest first.
	`CREATE INDEX IF NOT EXISTS idx_user_items_user_date ON user_items(user_id, date DESC)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
