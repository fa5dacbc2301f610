package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore reads sessions from the shared database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a SQL-backed session store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the sessions table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("sessions migration failed: %w", err)
	}
	return nil
}

// Lookup returns the session for a token hash, or (nil, nil) when absent
// or already expired.
func (s *SQLStore) Lookup(ctx context.Context, tokenHash string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&session.UserID, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if session.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return &session, nil
}

// Put inserts or replaces a session record. The identity subsystem writes
// through this in shared-database deployments; tests use it directly.
//
// expires_at is a zoneless timestamp, so the instant is normalized to UTC
// before it is written; a local-zone wall clock would lose its offset in
// the cast and skew the expiry check on non-UTC servers.
func (s *SQLStore) Put(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id = $2, expires_at = $3`,
		HashToken(token), userID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("session insert failed: %w", err)
	}
	return nil
}

// Sweep deletes expired session rows and returns how many were removed.
func (s *SQLStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("session sweep failed: %w", err)
	}
	return res.RowsAffected()
}
