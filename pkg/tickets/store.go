package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/copperdesk/copperdesk/pkg/query"
)

// Store executes visibility-scoped ticket queries over database/sql.
type Store struct {
	db      *sql.DB
	dialect query.Dialect
}

// NewStore creates a ticket store. Production uses query.Postgres; tests
// run the same code against in-memory SQLite.
func NewStore(db *sql.DB, dialect query.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Migrate creates the ticket tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'low',
			status TEXT NOT NULL DEFAULT 'needs_support',
			hidden BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			created_by JSONB,
			user_id TEXT,
			client_id TEXT,
			team_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets (user_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tickets migration failed: %w", err)
		}
	}
	return nil
}

// QueryVisible returns all tickets matching the predicate, newest first,
// with joined client/assignee/team summaries. Ties on creation time break
// by ticket ID so the order is reproducible.
func (s *Store) QueryVisible(ctx context.Context, pred query.Predicate) ([]Ticket, error) {
	where, args, err := query.Render(pred, s.dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to render predicate: %w", err)
	}

	// The predicate references only ticket columns, all of which are
	// unambiguous in this join.
	q := `
		SELECT tickets.id, tickets.title, tickets.detail, tickets.priority, tickets.status,
		       tickets.hidden, tickets.created_at, tickets.created_by, tickets.user_id,
		       clients.id, clients.name,
		       users.id, users.name, users.email,
		       teams.id, teams.name
		FROM tickets
		LEFT JOIN clients ON clients.id = tickets.client_id
		LEFT JOIN users ON users.id = tickets.user_id
		LEFT JOIN teams ON teams.id = tickets.team_id
		WHERE ` + where + `
		ORDER BY tickets.created_at DESC, tickets.id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket query failed: %w", err)
	}
	defer rows.Close()

	tickets := []Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ticket iteration failed: %w", err)
	}
	return tickets, nil
}

func scanTicket(rows *sql.Rows) (*Ticket, error) {
	var (
		t          Ticket
		createdBy  sql.NullString
		assigneeID sql.NullString

		clientID, clientName        sql.NullString
		userID, userName, userEmail sql.NullString
		teamID, teamName            sql.NullString
	)

	err := rows.Scan(
		&t.ID, &t.Title, &t.Detail, &t.Priority, &t.Status,
		&t.Hidden, &t.CreatedAt, &createdBy, &assigneeID,
		&clientID, &clientName,
		&userID, &userName, &userEmail,
		&teamID, &teamName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	if createdBy.Valid && createdBy.String != "" {
		t.CreatedBy = json.RawMessage(createdBy.String)
	}
	if assigneeID.Valid {
		t.AssigneeID = assigneeID.String
	}
	if clientID.Valid {
		t.Client = &ClientSummary{ID: clientID.String, Name: clientName.String}
	}
	if userID.Valid {
		t.AssignedTo = &UserSummary{ID: userID.String, Name: userName.String, Email: userEmail.String}
	}
	if teamID.Valid {
		t.Team = &TeamSummary{ID: teamID.String, Name: teamName.String}
	}
	return &t, nil
}

// Insert writes a ticket row. Ticket creation belongs to the surrounding
// CRUD application; the visibility pipeline only needs this for seeding
// and tests, so it stays minimal.
func (s *Store) Insert(ctx context.Context, t *Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	var createdBy interface{}
	if len(t.CreatedBy) > 0 {
		createdBy = string(t.CreatedBy)
	}

	var clientID, teamID interface{}
	if t.Client != nil {
		clientID = t.Client.ID
	}
	if t.Team != nil {
		teamID = t.Team.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, title, detail, priority, status, hidden, created_at, created_by, user_id, client_id, team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Title, t.Detail, t.Priority, t.Status, t.Hidden, t.CreatedAt,
		createdBy, nullableString(t.AssigneeID), clientID, teamID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
