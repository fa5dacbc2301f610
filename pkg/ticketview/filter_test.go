package ticketview

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/copperdesk/copperdesk/pkg/tickets"
)

func sampleTickets() []tickets.Ticket {
	return []tickets.Ticket{
		{ID: "t1", Priority: tickets.PriorityHigh, Status: tickets.StatusNeedsSupport, AssigneeID: "u1"},
		{ID: "t2", Priority: tickets.PriorityLow, Status: tickets.StatusNeedsSupport, AssigneeID: "u2"},
		{ID: "t3", Priority: tickets.PriorityHigh, Status: tickets.StatusDone},
		{ID: "t4", Priority: tickets.PriorityMedium, Status: tickets.StatusInProgress, AssigneeID: "u1"},
	}
}

func TestApplyFilters_EmptyStateIsInclusive(t *testing.T) {
	input := sampleTickets()

	got := ApplyFilters(input, NewFilterState())
	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("empty filter state must pass everything through:\n%s", diff)
	}
}

func TestApplyFilters_Dimensions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*FilterState)
		want  []string
	}{
		{
			name:  "priority",
			setup: func(f *FilterState) { f.TogglePriority(tickets.PriorityHigh) },
			want:  []string{"t1", "t3"},
		},
		{
			name:  "status",
			setup: func(f *FilterState) { f.ToggleStatus(tickets.StatusNeedsSupport) },
			want:  []string{"t1", "t2"},
		},
		{
			name:  "assignee",
			setup: func(f *FilterState) { f.ToggleAssignee("u1") },
			want:  []string{"t1", "t4"},
		},
		{
			name: "dimensions conjoin",
			setup: func(f *FilterState) {
				f.TogglePriority(tickets.PriorityHigh)
				f.ToggleStatus(tickets.StatusNeedsSupport)
			},
			want: []string{"t1"},
		},
		{
			name: "values within a dimension union",
			setup: func(f *FilterState) {
				f.TogglePriority(tickets.PriorityHigh)
				f.TogglePriority(tickets.PriorityMedium)
			},
			want: []string{"t1", "t3", "t4"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := NewFilterState()
			tc.setup(state)
			got := ApplyFilters(sampleTickets(), state)
			assert.Equal(t, tc.want, ids(got), "input order must be preserved")
		})
	}
}

func TestToggle_SymmetricDifference(t *testing.T) {
	state := NewFilterState()

	state.TogglePriority(tickets.PriorityHigh)
	assert.True(t, state.Priorities[tickets.PriorityHigh])

	state.TogglePriority(tickets.PriorityHigh)
	assert.NotContains(t, state.Priorities, tickets.PriorityHigh)
	assert.True(t, state.Empty())
}

func TestApplyFilters_Monotonic(t *testing.T) {
	input := sampleTickets()
	state := NewFilterState()

	unfiltered := ApplyFilters(input, state)

	state.ToggleStatus(tickets.StatusNeedsSupport)
	narrowed := ApplyFilters(input, state)
	if len(narrowed) > len(unfiltered) {
		t.Fatalf("adding a constraint grew the result: %d > %d", len(narrowed), len(unfiltered))
	}

	state.ToggleAssignee("u1")
	narrower := ApplyFilters(input, state)
	if len(narrower) > len(narrowed) {
		t.Fatalf("adding a constraint grew the result: %d > %d", len(narrower), len(narrowed))
	}
}

func TestClear_RestoresFullSet(t *testing.T) {
	input := sampleTickets()
	state := NewFilterState()
	state.TogglePriority(tickets.PriorityHigh)
	state.ToggleStatus(tickets.StatusDone)
	state.ToggleAssignee("u2")

	state.Clear()

	assert.True(t, state.Empty())
	got := ApplyFilters(input, state)
	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("clear must restore the pre-filter set exactly:\n%s", diff)
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	input := sampleTickets()
	snapshot := sampleTickets()

	state := NewFilterState()
	state.TogglePriority(tickets.PriorityHigh)
	_ = ApplyFilters(input, state)

	if diff := cmp.Diff(snapshot, input); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

type memKV struct {
	data map[string]interface{}
	err  error
}

func newMemKV() *memKV { return &memKV{data: map[string]interface{}{}} }

func (m *memKV) Get(key string, value interface{}) error {
	if m.err != nil {
		return m.err
	}
	stored, ok := m.data[key]
	if !ok {
		return errors.New("not found")
	}
	switch v := value.(type) {
	case *[]string:
		*v = stored.([]string)
	case *string:
		*v = stored.(string)
	default:
		return errors.New("unsupported type")
	}
	return nil
}

func (m *memKV) Set(key string, value interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func TestFilterState_Roundtrip(t *testing.T) {
	kv := newMemKV()

	state := NewFilterState()
	state.TogglePriority(tickets.PriorityHigh)
	state.ToggleStatus(tickets.StatusHold)
	state.ToggleStatus(tickets.StatusDone)
	assert.NoError(t, SaveFilterState(kv, state))

	loaded := LoadFilterState(kv)
	assert.Equal(t, state.Priorities, loaded.Priorities)
	assert.Equal(t, state.Statuses, loaded.Statuses)
	assert.Empty(t, loaded.Assignees)
}

func TestFilterState_StorageFailureIsBestEffort(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk full")

	state := NewFilterState()
	state.TogglePriority(tickets.PriorityLow)

	err := SaveFilterState(kv, state)
	assert.Error(t, err, "the failure is reported for logging")

	loaded := LoadFilterState(kv)
	assert.True(t, loaded.Empty(), "load degrades to the inclusive default")
}

func ids(ts []tickets.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
