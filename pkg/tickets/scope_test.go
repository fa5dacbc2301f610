package tickets

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperdesk/copperdesk/pkg/query"
	"github.com/copperdesk/copperdesk/pkg/roles"
)

func TestBuildScopePredicate_PassThroughScopes(t *testing.T) {
	base := BaseVisiblePredicate()

	for _, scope := range []roles.Scope{
		roles.ScopeNone,
		roles.ScopeCoordinator,
		roles.Scope("weird-legacy-value"),
	} {
		got := BuildScopePredicate(base, scope, "u1")
		if diff := cmp.Diff(base, got); diff != "" {
			t.Errorf("scope %q should leave the base predicate unchanged:\n%s", scope, diff)
		}
	}
}

func TestBuildScopePredicate_Owner(t *testing.T) {
	pred := BuildScopePredicate(BaseVisiblePredicate(), roles.ScopeOwner, "u1")

	sql, args, err := query.Render(pred, query.Postgres)
	require.NoError(t, err)

	assert.Equal(t,
		"(hidden = $1 AND ((created_by::jsonb ->> $2) = $3 OR (created_by::jsonb ->> $4) = $5))",
		sql)
	assert.Equal(t, []interface{}{false, "id", "u1", "$.id", "u1"}, args)
}

func TestBuildScopePredicate_Tasker(t *testing.T) {
	pred := BuildScopePredicate(BaseVisiblePredicate(), roles.ScopeTasker, "u1")

	sql, args, err := query.Render(pred, query.Postgres)
	require.NoError(t, err)

	// The tasker variant matches assignment or the "id" creator key only;
	// it does not carry the owner variant's legacy "$.id" arm.
	assert.Equal(t,
		"(hidden = $1 AND (user_id = $2 OR (created_by::jsonb ->> $3) = $4))",
		sql)
	assert.Equal(t, []interface{}{false, "u1", "id", "u1"}, args)
	assert.NotContains(t, args, "$.id")
}

func TestBuildScopePredicate_Pure(t *testing.T) {
	base := BaseVisiblePredicate()

	first := BuildScopePredicate(base, roles.ScopeOwner, "u1")
	second := BuildScopePredicate(base, roles.ScopeOwner, "u1")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical inputs produced different predicates:\n%s", diff)
	}

	// Base must not be mutated by composition.
	if diff := cmp.Diff(BaseVisiblePredicate(), base); diff != "" {
		t.Errorf("base predicate mutated:\n%s", diff)
	}
}

// Behavioral check against a real database: the owner predicate matches
// rows written under either created_by encoding, the tasker predicate only
// the current one.
func TestScopePredicates_DualEncoding(t *testing.T) {
	db := setupTicketDB(t)
	store := NewStore(db, query.SQLite)
	ctx := context.Background()

	seed := []Ticket{
		{ID: "t-new", Title: "new encoding", CreatedBy: rawCreator("id", "u1")},
		{ID: "t-old", Title: "legacy encoding", CreatedBy: rawCreator("$.id", "u1")},
		{ID: "t-other", Title: "someone else", CreatedBy: rawCreator("id", "u2")},
	}
	for i := range seed {
		require.NoError(t, store.Insert(ctx, &seed[i]))
	}

	owner, err := store.QueryVisible(ctx,
		BuildScopePredicate(BaseVisiblePredicate(), roles.ScopeOwner, "u1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t-new", "t-old"}, ticketIDs(owner),
		"owner must see rows under both encodings")

	tasker, err := store.QueryVisible(ctx,
		BuildScopePredicate(BaseVisiblePredicate(), roles.ScopeTasker, "u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"t-new"}, ticketIDs(tasker),
		"tasker matches only the current created_by encoding")
}

func ticketIDs(ts []Ticket) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}
