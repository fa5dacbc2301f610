package ticketview

import (
	"sort"

	"github.com/copperdesk/copperdesk/pkg/tickets"
)

// Preference keys for persisted view settings.
const (
	KeyViewMode       = "preferred_view_mode"
	KeyKanbanGrouping = "preferred_kanban_grouping"
	KeySortBy         = "preferred_sort_by"
)

// View modes
const (
	ViewList   = "list"
	ViewKanban = "kanban"
)

// Sort keys
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortPriority = "priority"
	SortStatus   = "status"
)

// Kanban grouping dimensions
const (
	GroupByStatus   = "status"
	GroupByAssignee = "assignee"
)

// UnassignedBucket receives tickets whose grouping value is missing.
const UnassignedBucket = "unassigned"

// priorityRank orders high before medium before low. Unknown priorities
// sink to the end.
var priorityRank = map[string]int{
	tickets.PriorityHigh:   0,
	tickets.PriorityMedium: 1,
	tickets.PriorityLow:    2,
}

// statusRank follows the workflow order.
var statusRank = map[string]int{
	tickets.StatusNeedsSupport: 0,
	tickets.StatusInProgress:   1,
	tickets.StatusInReview:     2,
	tickets.StatusDone:         3,
	tickets.StatusHold:         4,
}

// ViewSettings are the persisted presentation preferences.
type ViewSettings struct {
	ViewMode       string
	SortBy         string
	KanbanGrouping string
}

// DefaultViewSettings returns the settings used before any preference has
// been saved.
func DefaultViewSettings() ViewSettings {
	return ViewSettings{
		ViewMode:       ViewList,
		SortBy:         SortNewest,
		KanbanGrouping: GroupByStatus,
	}
}

// KanbanColumn is one ordered bucket of the kanban partition.
type KanbanColumn struct {
	Key     string
	Title   string
	Tickets []tickets.Ticket
}

// View is the derived presentation of a filtered ticket set.
type View struct {
	Sorted  []tickets.Ticket
	Columns []KanbanColumn
}

// DeriveView sorts the filtered tickets and, in kanban mode, partitions
// them into columns. Pure: the input slice is not modified. The sorted set
// is identical across view modes; the mode only selects what gets
// rendered.
func DeriveView(filtered []tickets.Ticket, settings ViewSettings) View {
	sorted := SortTickets(filtered, settings.SortBy)

	view := View{Sorted: sorted}
	if settings.ViewMode == ViewKanban {
		view.Columns = PartitionKanban(sorted, settings.KanbanGrouping)
	}
	return view
}

// SortTickets returns a sorted copy. The sort is total: ties on the
// primary key break by ticket ID, so the order is reproducible across
// renders. An unknown sort key falls back to newest-first.
func SortTickets(ticketList []tickets.Ticket, sortBy string) []tickets.Ticket {
	out := make([]tickets.Ticket, len(ticketList))
	copy(out, ticketList)

	less := func(a, b *tickets.Ticket) bool { return a.CreatedAt.After(b.CreatedAt) }
	switch sortBy {
	case SortOldest:
		less = func(a, b *tickets.Ticket) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortPriority:
		less = func(a, b *tickets.Ticket) bool { return rankOf(priorityRank, a.Priority) < rankOf(priorityRank, b.Priority) }
	case SortStatus:
		less = func(a, b *tickets.Ticket) bool { return rankOf(statusRank, a.Status) < rankOf(statusRank, b.Status) }
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})
	return out
}

func rankOf(ranks map[string]int, key string) int {
	if r, ok := ranks[key]; ok {
		return r
	}
	return len(ranks)
}

// PartitionKanban splits sorted tickets into ordered buckets by the
// grouping dimension. Every ticket lands in exactly one bucket; a missing
// grouping value goes to the "unassigned" bucket. Within each bucket the
// input order is preserved.
func PartitionKanban(sorted []tickets.Ticket, grouping string) []KanbanColumn {
	switch grouping {
	case GroupByAssignee:
		return partitionByAssignee(sorted)
	default:
		return partitionByStatus(sorted)
	}
}

func partitionByStatus(sorted []tickets.Ticket) []KanbanColumn {
	// Fixed workflow columns; an out-of-vocabulary status is treated as a
	// missing value rather than dropped.
	columns := []KanbanColumn{
		{Key: tickets.StatusNeedsSupport, Title: "Needs Support", Tickets: []tickets.Ticket{}},
		{Key: tickets.StatusInProgress, Title: "In Progress", Tickets: []tickets.Ticket{}},
		{Key: tickets.StatusInReview, Title: "In Review", Tickets: []tickets.Ticket{}},
		{Key: tickets.StatusDone, Title: "Done", Tickets: []tickets.Ticket{}},
		{Key: tickets.StatusHold, Title: "On Hold", Tickets: []tickets.Ticket{}},
		{Key: UnassignedBucket, Title: "Uncategorized", Tickets: []tickets.Ticket{}},
	}
	index := map[string]int{}
	for i, c := range columns {
		index[c.Key] = i
	}

	for _, t := range sorted {
		i, ok := index[t.Status]
		if !ok {
			i = index[UnassignedBucket]
		}
		columns[i].Tickets = append(columns[i].Tickets, t)
	}
	return columns
}

func partitionByAssignee(sorted []tickets.Ticket) []KanbanColumn {
	// Columns appear in order of first occurrence in the sorted set, with
	// the unassigned bucket always last.
	var columns []KanbanColumn
	index := map[string]int{}
	var unassigned []tickets.Ticket

	for _, t := range sorted {
		if t.AssigneeID == "" {
			unassigned = append(unassigned, t)
			continue
		}
		i, ok := index[t.AssigneeID]
		if !ok {
			title := t.AssigneeID
			if t.AssignedTo != nil && t.AssignedTo.Name != "" {
				title = t.AssignedTo.Name
			}
			i = len(columns)
			index[t.AssigneeID] = i
			columns = append(columns, KanbanColumn{Key: t.AssigneeID, Title: title, Tickets: []tickets.Ticket{}})
		}
		columns[i].Tickets = append(columns[i].Tickets, t)
	}

	columns = append(columns, KanbanColumn{Key: UnassignedBucket, Title: "Unassigned", Tickets: unassigned})
	if columns[len(columns)-1].Tickets == nil {
		columns[len(columns)-1].Tickets = []tickets.Ticket{}
	}
	return columns
}

// LoadViewSettings reads persisted view preferences, falling back to the
// defaults for anything missing, corrupt, or out of vocabulary.
func LoadViewSettings(store KV) ViewSettings {
	settings := DefaultViewSettings()
	if store == nil {
		return settings
	}

	var s string
	if err := store.Get(KeyViewMode, &s); err == nil && (s == ViewList || s == ViewKanban) {
		settings.ViewMode = s
	}
	if err := store.Get(KeySortBy, &s); err == nil {
		switch s {
		case SortNewest, SortOldest, SortPriority, SortStatus:
			settings.SortBy = s
		}
	}
	if err := store.Get(KeyKanbanGrouping, &s); err == nil && (s == GroupByStatus || s == GroupByAssignee) {
		settings.KanbanGrouping = s
	}
	return settings
}

// SaveViewSettings persists the three preferences independently.
// Best-effort, same contract as SaveFilterState.
func SaveViewSettings(store KV, settings ViewSettings) error {
	if store == nil {
		return nil
	}
	var first error
	for _, kv := range []struct {
		key   string
		value string
	}{
		{KeyViewMode, settings.ViewMode},
		{KeySortBy, settings.SortBy},
		{KeyKanbanGrouping, settings.KanbanGrouping},
	} {
		if err := store.Set(kv.key, kv.value); err != nil && first == nil {
			first = err
		}
	}
	return first
}
