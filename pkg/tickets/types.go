// Package tickets implements ticket retrieval with row-level visibility.
//
// The server decides which rows a user may see at all (scope predicate,
// applied in SQL); everything finer-grained — priority/status/assignee
// filters, sorting, kanban grouping — happens client-side in
// pkg/ticketview and never widens the set returned here.
package tickets

import (
	"encoding/json"
	"time"
)

// Priority literals
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status literals, in workflow order
const (
	StatusNeedsSupport = "needs_support"
	StatusInProgress   = "in_progress"
	StatusInReview     = "in_review"
	StatusDone         = "done"
	StatusHold         = "hold"
)

// UserSummary is the minimal joined view of a user for display.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ClientSummary is the minimal joined view of a client for display.
type ClientSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamSummary is the minimal joined view of a team for display.
type TeamSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ticket is a help-desk ticket row expanded with joined display fields.
//
// CreatedBy is kept as raw JSON: rows were persisted under two encodings
// over time ({"id": ...} and {"$.id": ...}), and normalizing on read would
// hide the very shape the visibility predicates have to match against.
type Ticket struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Detail    string          `json:"detail,omitempty"`
	Priority  string          `json:"priority"`
	Status    string          `json:"status"`
	Hidden    bool            `json:"hidden"`
	CreatedAt time.Time       `json:"createdAt"`
	CreatedBy json.RawMessage `json:"createdBy,omitempty"`

	// AssigneeID is the current assignee's user ID ("userId" on the wire,
	// the historical field name).
	AssigneeID string `json:"userId,omitempty"`

	Client     *ClientSummary `json:"client,omitempty"`
	AssignedTo *UserSummary   `json:"assignedTo,omitempty"`
	Team       *TeamSummary   `json:"team,omitempty"`
}

// CreatorID extracts the creating user's ID from either persisted encoding
// of CreatedBy. Returns "" when neither key is present.
func (t *Ticket) CreatorID() string {
	if len(t.CreatedBy) == 0 {
		return ""
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(t.CreatedBy, &m); err != nil {
		return ""
	}
	for _, key := range []string{"id", "$.id"} {
		if raw, ok := m[key]; ok {
			var id string
			if err := json.Unmarshal(raw, &id); err == nil {
				return id
			}
		}
	}
	return ""
}
