// Package roles implements the role entity, user-role associations, and the
// access scope resolver that drives row-level ticket visibility.
package roles

import (
	"time"

	"github.com/copperdesk/copperdesk/pkg/permissions"
)

// Visibility group literals. A role may carry at most one group tag; the
// tag of a user's first group-bearing role becomes their effective scope.
const (
	GroupOwner       = "owner"
	GroupTasker      = "tasker"
	GroupCoordinator = "coordinator"
)

// KnownGroup reports whether g is one of the enumerated group literals.
func KnownGroup(g string) bool {
	switch g {
	case GroupOwner, GroupTasker, GroupCoordinator:
		return true
	}
	return false
}

// Scope is the effective access scope derived per request. It is never
// persisted; retrieval recomputes it every time.
type Scope string

const (
	// ScopeNone imposes no row-level restriction.
	ScopeNone Scope = ""
	// ScopeOwner restricts visibility to tickets the user created.
	ScopeOwner Scope = Scope(GroupOwner)
	// ScopeTasker restricts visibility to tickets assigned to or created
	// by the user.
	ScopeTasker Scope = Scope(GroupTasker)
	// ScopeCoordinator grants full visibility, same as ScopeNone; the
	// distinct value keeps the group's intent visible in logs and metrics.
	ScopeCoordinator Scope = Scope(GroupCoordinator)
)

func (s Scope) String() string {
	if s == ScopeNone {
		return "none"
	}
	return string(s)
}

// Role is a named bundle of permissions with an optional visibility group.
type Role struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Permissions []permissions.Permission `json:"permissions"`

	// Group is the raw stored literal. Legacy rows may hold values outside
	// the enumerated set; the resolver treats those as no restriction, so
	// the raw value is preserved here rather than parsed into a Scope.
	Group string `json:"group,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the identity record read by the resolver. Lifecycle is owned by
// the external identity subsystem; this package only reads it.
type User struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"is_admin"`

	// Roles in stored assignment order. Order is significant: the first
	// group-bearing role wins during scope resolution.
	Roles []Role `json:"roles"`
}
