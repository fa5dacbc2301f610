// Package auth validates bearer session tokens.
//
// Session issuance is owned by the external identity subsystem; this
// package only reads session records. Tokens are stored hashed (SHA-256)
// so a leaked sessions table cannot be replayed.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidSession is returned for missing, unknown, or expired tokens.
var ErrInvalidSession = errors.New("invalid or expired session")

// Session is a validated session record.
type Session struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store looks up session records by token hash. Implementations return
// (nil, nil) for unknown hashes.
type Store interface {
	Lookup(ctx context.Context, tokenHash string) (*Session, error)
}

// HashToken computes the SHA-256 hex digest used as the storage key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
