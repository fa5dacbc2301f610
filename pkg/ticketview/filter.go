// Package ticketview implements the client half of the ticket pipeline:
// in-memory filtering, sort/kanban view derivation, and the polling loop
// that refreshes the visible set. Everything here narrows or rearranges
// what the server returned; nothing can widen it.
package ticketview

import (
	"sort"

	"github.com/copperdesk/copperdesk/pkg/tickets"
)

// Preference keys for persisted filter selections. Each dimension is
// stored independently.
const (
	KeySelectedPriorities = "all_selectedPriorities"
	KeySelectedStatuses   = "all_selectedStatuses"
	KeySelectedAssignees  = "all_selectedAssignees"
)

// KV is the minimal persistence surface the view layer needs. Satisfied
// by prefs.Store; nil-safe wrappers below make persistence optional.
type KV interface {
	Get(key string, value interface{}) error
	Set(key string, value interface{}) error
}

// FilterState holds the three filter dimensions. An empty set places no
// constraint on its dimension.
type FilterState struct {
	Priorities map[string]bool
	Statuses   map[string]bool
	Assignees  map[string]bool
}

// NewFilterState returns an empty (all-inclusive) filter state.
func NewFilterState() *FilterState {
	return &FilterState{
		Priorities: map[string]bool{},
		Statuses:   map[string]bool{},
		Assignees:  map[string]bool{},
	}
}

// TogglePriority adds the priority if absent, removes it if present.
func (f *FilterState) TogglePriority(p string) { toggle(f.Priorities, p) }

// ToggleStatus adds the status if absent, removes it if present.
func (f *FilterState) ToggleStatus(s string) { toggle(f.Statuses, s) }

// ToggleAssignee adds the assignee ID if absent, removes it if present.
func (f *FilterState) ToggleAssignee(id string) { toggle(f.Assignees, id) }

func toggle(set map[string]bool, v string) {
	if set[v] {
		delete(set, v)
	} else {
		set[v] = true
	}
}

// Clear resets all three sets in a single step. Consumers observe either
// the old state or the fully cleared one, never a partial clear.
func (f *FilterState) Clear() {
	f.Priorities = map[string]bool{}
	f.Statuses = map[string]bool{}
	f.Assignees = map[string]bool{}
}

// Empty reports whether no dimension is constrained.
func (f *FilterState) Empty() bool {
	return len(f.Priorities) == 0 && len(f.Statuses) == 0 && len(f.Assignees) == 0
}

// Matches reports whether the ticket passes every constrained dimension.
func (f *FilterState) Matches(t *tickets.Ticket) bool {
	if len(f.Priorities) > 0 && !f.Priorities[t.Priority] {
		return false
	}
	if len(f.Statuses) > 0 && !f.Statuses[t.Status] {
		return false
	}
	if len(f.Assignees) > 0 && !f.Assignees[t.AssigneeID] {
		return false
	}
	return true
}

// ApplyFilters returns the tickets passing the filter state, preserving
// input order. Pure: neither input is modified.
func ApplyFilters(ticketList []tickets.Ticket, state *FilterState) []tickets.Ticket {
	if state == nil || state.Empty() {
		out := make([]tickets.Ticket, len(ticketList))
		copy(out, ticketList)
		return out
	}

	out := []tickets.Ticket{}
	for _, t := range ticketList {
		if state.Matches(&t) {
			out = append(out, t)
		}
	}
	return out
}

// LoadFilterState reads persisted filter selections. Missing or corrupt
// entries leave their dimension empty; a nil store yields the default.
func LoadFilterState(store KV) *FilterState {
	state := NewFilterState()
	if store == nil {
		return state
	}
	loadSet(store, KeySelectedPriorities, state.Priorities)
	loadSet(store, KeySelectedStatuses, state.Statuses)
	loadSet(store, KeySelectedAssignees, state.Assignees)
	return state
}

func loadSet(store KV, key string, into map[string]bool) {
	var values []string
	if err := store.Get(key, &values); err != nil {
		return
	}
	for _, v := range values {
		into[v] = true
	}
}

// SaveFilterState persists the selections. Best-effort: the first write
// error is returned for optional logging but all three writes are
// attempted regardless.
func SaveFilterState(store KV, state *FilterState) error {
	if store == nil || state == nil {
		return nil
	}
	var first error
	for _, kv := range []struct {
		key string
		set map[string]bool
	}{
		{KeySelectedPriorities, state.Priorities},
		{KeySelectedStatuses, state.Statuses},
		{KeySelectedAssignees, state.Assignees},
	} {
		if err := store.Set(kv.key, setToSlice(kv.set)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
