// Package middleware provides HTTP middleware for session authentication.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/copperdesk/copperdesk/pkg/auth"
	"github.com/copperdesk/copperdesk/pkg/contextkeys"
	"github.com/copperdesk/copperdesk/pkg/httputil"
)

// SessionMiddleware authenticates requests via "Authorization: Bearer
// <session>" and places the session and user ID in the request context.
type SessionMiddleware struct {
	validator *auth.Validator
}

// NewSessionMiddleware creates session authentication middleware
func NewSessionMiddleware(validator *auth.Validator) *SessionMiddleware {
	return &SessionMiddleware{validator: validator}
}

// Handler wraps an HTTP handler with session authentication
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		session, err := m.validator.Validate(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				httputil.WriteUnauthorized(w, "invalid or expired session")
				return
			}
			// Store failure: the caller may retry; this is not their fault.
			httputil.WriteInternalError(w, "session validation failed", err)
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.SessionKey, session)
		ctx = contextkeys.WithUserID(ctx, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts the validated session from a request, if any.
func GetSession(r *http.Request) *auth.Session {
	session, ok := r.Context().Value(contextkeys.SessionKey).(*auth.Session)
	if !ok {
		return nil
	}
	return session
}
