package ticketview

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/copperdesk/copperdesk/pkg/tickets"
)

func viewSample() []tickets.Ticket {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []tickets.Ticket{
		{ID: "t1", Priority: tickets.PriorityLow, Status: tickets.StatusDone, CreatedAt: base.Add(time.Hour), AssigneeID: "u1", AssignedTo: &tickets.UserSummary{ID: "u1", Name: "Avery"}},
		{ID: "t2", Priority: tickets.PriorityHigh, Status: tickets.StatusNeedsSupport, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "t3", Priority: tickets.PriorityHigh, Status: tickets.StatusInProgress, CreatedAt: base, AssigneeID: "u1", AssignedTo: &tickets.UserSummary{ID: "u1", Name: "Avery"}},
		{ID: "t4", Priority: tickets.PriorityMedium, Status: tickets.StatusNeedsSupport, CreatedAt: base.Add(3 * time.Hour), AssigneeID: "u2", AssignedTo: &tickets.UserSummary{ID: "u2", Name: "Blake"}},
	}
}

func TestSortTickets(t *testing.T) {
	cases := []struct {
		sortBy string
		want   []string
	}{
		{SortNewest, []string{"t4", "t2", "t1", "t3"}},
		{SortOldest, []string{"t3", "t1", "t2", "t4"}},
		{SortPriority, []string{"t2", "t3", "t4", "t1"}},
		{SortStatus, []string{"t2", "t4", "t3", "t1"}},
		{"bogus-key", []string{"t4", "t2", "t1", "t3"}},
	}

	for _, tc := range cases {
		t.Run(tc.sortBy, func(t *testing.T) {
			got := SortTickets(viewSample(), tc.sortBy)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestSortTickets_TiesBreakByID(t *testing.T) {
	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := []tickets.Ticket{
		{ID: "t-c", CreatedAt: when},
		{ID: "t-a", CreatedAt: when},
		{ID: "t-b", CreatedAt: when},
	}

	// Equal primary keys, so the order is fully determined by ID
	// regardless of input order.
	got := SortTickets(input, SortNewest)
	assert.Equal(t, []string{"t-a", "t-b", "t-c"}, ids(got))

	shuffled := []tickets.Ticket{input[2], input[0], input[1]}
	again := SortTickets(shuffled, SortNewest)
	assert.Equal(t, ids(got), ids(again), "order must be reproducible across renders")
}

func TestSortTickets_DoesNotMutateInput(t *testing.T) {
	input := viewSample()
	snapshot := viewSample()

	_ = SortTickets(input, SortPriority)
	if diff := cmp.Diff(snapshot, input); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

func TestPartitionKanban_StatusCover(t *testing.T) {
	sorted := SortTickets(viewSample(), SortNewest)
	columns := PartitionKanban(sorted, GroupByStatus)

	seen := map[string]int{}
	total := 0
	for _, col := range columns {
		for _, tk := range col.Tickets {
			seen[tk.ID]++
			total++
		}
	}

	assert.Equal(t, len(sorted), total, "every ticket appears in the partition")
	for id, n := range seen {
		assert.Equal(t, 1, n, "ticket %s must appear in exactly one bucket", id)
	}

	byKey := columnsByKey(columns)
	assert.Equal(t, []string{"t4", "t2"}, ids(byKey[tickets.StatusNeedsSupport].Tickets),
		"bucket preserves the sorted order")
	assert.Equal(t, []string{"t3"}, ids(byKey[tickets.StatusInProgress].Tickets))
	assert.Equal(t, []string{"t1"}, ids(byKey[tickets.StatusDone].Tickets))
}

func TestPartitionKanban_UnknownStatusNotDropped(t *testing.T) {
	input := []tickets.Ticket{{ID: "t1", Status: "escalated"}}

	columns := PartitionKanban(input, GroupByStatus)
	byKey := columnsByKey(columns)
	assert.Equal(t, []string{"t1"}, ids(byKey[UnassignedBucket].Tickets))
}

func TestPartitionKanban_Assignee(t *testing.T) {
	sorted := SortTickets(viewSample(), SortNewest)
	columns := PartitionKanban(sorted, GroupByAssignee)

	byKey := columnsByKey(columns)
	assert.Equal(t, []string{"t4"}, ids(byKey["u2"].Tickets))
	assert.Equal(t, []string{"t1", "t3"}, ids(byKey["u1"].Tickets))
	assert.Equal(t, []string{"t2"}, ids(byKey[UnassignedBucket].Tickets),
		"unassigned tickets get their own bucket")

	assert.Equal(t, "Blake", byKey["u2"].Title)
	assert.Equal(t, UnassignedBucket, columns[len(columns)-1].Key,
		"unassigned bucket is always last")
}

func TestDeriveView_ModeOnlyChangesPresentation(t *testing.T) {
	filtered := viewSample()

	list := DeriveView(filtered, ViewSettings{ViewMode: ViewList, SortBy: SortNewest})
	kanban := DeriveView(filtered, ViewSettings{ViewMode: ViewKanban, SortBy: SortNewest, KanbanGrouping: GroupByStatus})

	assert.Equal(t, ids(list.Sorted), ids(kanban.Sorted),
		"the sorted set is identical across view modes")
	assert.Nil(t, list.Columns)
	assert.NotEmpty(t, kanban.Columns)
}

func TestViewSettings_Roundtrip(t *testing.T) {
	kv := newMemKV()

	saved := ViewSettings{ViewMode: ViewKanban, SortBy: SortPriority, KanbanGrouping: GroupByAssignee}
	assert.NoError(t, SaveViewSettings(kv, saved))

	assert.Equal(t, saved, LoadViewSettings(kv))
}

func TestLoadViewSettings_DefaultsOnBadValues(t *testing.T) {
	kv := newMemKV()
	kv.data[KeyViewMode] = "hologram"
	kv.data[KeySortBy] = "by-vibes"

	got := LoadViewSettings(kv)
	assert.Equal(t, DefaultViewSettings(), got)

	assert.Equal(t, DefaultViewSettings(), LoadViewSettings(nil),
		"nil store yields the defaults")
}

func columnsByKey(columns []KanbanColumn) map[string]KanbanColumn {
	out := map[string]KanbanColumn{}
	for _, c := range columns {
		out[c.Key] = c
	}
	return out
}
