package tickets

import (
	"github.com/copperdesk/copperdesk/pkg/query"
	"github.com/copperdesk/copperdesk/pkg/roles"
)

// Ticket column names referenced by visibility predicates.
const (
	colHidden    = "hidden"
	colCreatedBy = "created_by"
	colAssignee  = "user_id"
)

// BaseVisiblePredicate is the starting predicate for every retrieval:
// hidden tickets are invisible to everyone.
func BaseVisiblePredicate() query.Predicate {
	return query.Eq{Column: colHidden, Value: false}
}

// BuildScopePredicate composes the row-level visibility restriction for a
// scope onto a base predicate. Pure function: no I/O, no hidden state.
//
//   - coordinator and no-restriction scopes return base unchanged.
//   - owner restricts to tickets the user created, matching both persisted
//     encodings of created_by (the "id" key and the legacy "$.id" key).
//   - tasker restricts to tickets assigned to or created by the user. The
//     created-by arm checks only the "id" key: unlike owner it does not
//     match the legacy "$.id" encoding. Intentional asymmetry pending
//     product confirmation — taskers are scoped primarily by assignment —
//     so it is reproduced here rather than unified with the owner arm.
//   - any unrecognized scope returns base unchanged.
func BuildScopePredicate(base query.Predicate, scope roles.Scope, userID string) query.Predicate {
	switch scope {
	case roles.ScopeOwner:
		return query.AndOf(base, query.OrOf(
			query.JSONKey{Column: colCreatedBy, Key: "id", Value: userID},
			query.JSONKey{Column: colCreatedBy, Key: "$.id", Value: userID},
		))
	case roles.ScopeTasker:
		return query.AndOf(base, query.OrOf(
			query.Eq{Column: colAssignee, Value: userID},
			query.JSONKey{Column: colCreatedBy, Key: "id", Value: userID},
		))
	default:
		return base
	}
}
