package roles

import (
	"context"
	"fmt"

	"github.com/copperdesk/copperdesk/pkg/observability"
)

// UserSource is the read collaborator the resolver depends on. *Store
// satisfies it; tests substitute fakes.
type UserSource interface {
	FindUserWithRoles(ctx context.Context, userID string) (*User, error)
}

// Policy selects what scope a failed resolution degrades to.
type Policy int

const (
	// FailOpen grants unrestricted visibility when the role lookup fails.
	// This is the historical behavior: it favors availability over strict
	// confidentiality, and every downgrade is logged and counted.
	FailOpen Policy = iota
	// FailClosed restricts to owner-only visibility when the role lookup
	// fails.
	FailClosed
)

func (p Policy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// ResolutionError wraps a role/user lookup failure.
type ResolutionError struct {
	UserID string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving scope for user %s: %v", e.UserID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver computes the effective access scope for a user.
type Resolver struct {
	source  UserSource
	policy  Policy
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(source UserSource, policy Policy, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		source:  source,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// ResolveScope determines the user's effective scope, or a *ResolutionError
// when the lookup fails. It never applies the failure policy; callers that
// want policy handling use EffectiveScope.
//
// Resolution rules, in order:
//  1. unknown user or admin: no restriction (session validity is the
//     auth layer's concern, not this resolver's)
//  2. zero roles: no restriction (legacy default)
//  3. first role in stored order with a non-empty group: that group
//  4. otherwise: no restriction
//
// Unknown group literals count as "non-empty but unrecognized" and resolve
// to no restriction, matching how legacy rows behave.
func (r *Resolver) ResolveScope(ctx context.Context, userID string) (Scope, error) {
	user, err := r.source.FindUserWithRoles(ctx, userID)
	if err != nil {
		return ScopeNone, &ResolutionError{UserID: userID, Err: err}
	}

	if user == nil || user.IsAdmin {
		return ScopeNone, nil
	}

	if len(user.Roles) == 0 {
		return ScopeNone, nil
	}

	// First group-bearing role wins. A user with conflicting group-tagged
	// roles silently takes the first match; stored order is deterministic,
	// so this is stable across requests.
	for _, role := range user.Roles {
		if role.Group == "" {
			continue
		}
		switch role.Group {
		case GroupOwner:
			return ScopeOwner, nil
		case GroupTasker:
			return ScopeTasker, nil
		case GroupCoordinator:
			return ScopeCoordinator, nil
		default:
			// Unrecognized literal: no restriction, same as legacy.
			return ScopeNone, nil
		}
	}

	return ScopeNone, nil
}

// EffectiveScope resolves the scope and applies the configured failure
// policy on lookup errors. The downgrade is explicit here: it is logged as
// a warning and counted, never hidden inside the lookup.
func (r *Resolver) EffectiveScope(ctx context.Context, userID string) Scope {
	scope, err := r.ResolveScope(ctx, userID)
	if err == nil {
		r.count(scope, "ok")
		return scope
	}

	fallback := ScopeNone
	if r.policy == FailClosed {
		fallback = ScopeOwner
	}

	r.logger.WithContext(ctx).
		WithError(err).
		WithFields(map[string]interface{}{
			"user_id": userID,
			"policy":  r.policy.String(),
			"scope":   fallback.String(),
		}).
		Warn("scope resolution failed, applying failure policy")

	r.count(fallback, r.policy.String())
	return fallback
}

func (r *Resolver) count(scope Scope, outcome string) {
	if r.metrics != nil {
		r.metrics.ScopeResolutionsTotal.WithLabelValues(scope.String(), outcome).Inc()
	}
}
