package roles

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the role tables if they do not exist. The DDL sticks to
// the SQL subset shared by PostgreSQL and SQLite so the in-memory test
// stores run the same schema as production.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			permissions TEXT NOT NULL DEFAULT '[]',
			group_name TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, role_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_roles_user ON user_roles (user_id, position)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("roles migration failed: %w", err)
		}
	}
	return nil
}
