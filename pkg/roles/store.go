package roles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/copperdesk/copperdesk/pkg/permissions"
)

// Store persists roles and user-role associations over database/sql.
type Store struct {
	db *sql.DB
}

// NewStore creates a role store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole inserts a new role. The ID is assigned when empty.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, permissions, group_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		role.ID, role.Name, role.Description, string(perms), nullable(role.Group), role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetRole fetches a role by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetRole(ctx context.Context, id string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, permissions, group_name, created_at, updated_at
		FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// ListRoles returns all roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, permissions, group_name, created_at, updated_at
		FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

// UpdateRole updates a role's name, description, permissions, and group.
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	role.UpdatedAt = time.Now().UTC()

	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE roles SET name = $1, description = $2, permissions = $3, group_name = $4, updated_at = $5
		WHERE id = $6`,
		role.Name, role.Description, string(perms), nullable(role.Group), role.UpdatedAt, role.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteRole removes a role and its user assignments.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// SetUserRoles replaces a user's role assignments with the given role IDs,
// recording their position so resolution order stays deterministic.
func (s *Store) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear role assignments: %w", err)
	}

	for i, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id, position) VALUES ($1, $2, $3)`,
			userID, roleID, i,
		); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", roleID, err)
		}
	}

	return tx.Commit()
}

// FindUserWithRoles loads a user together with all associated roles in
// stored assignment order. Returns (nil, nil) when the user does not exist.
func (s *Store) FindUserWithRoles(ctx context.Context, userID string) (*User, error) {
	user := &User{ID: userID}

	err := s.db.QueryRowContext(ctx,
		`SELECT is_admin FROM users WHERE id = $1`, userID,
	).Scan(&user.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.permissions, r.group_name, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY ur.position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		user.Roles = append(user.Roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user roles: %w", err)
	}

	return user, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRole(s scanner) (*Role, error) {
	var (
		role      Role
		permsJSON string
		group     sql.NullString
	)
	err := s.Scan(&role.ID, &role.Name, &role.Description, &permsJSON, &group, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(permsJSON), &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions for role %s: %w", role.ID, err)
	}
	if role.Permissions == nil {
		role.Permissions = []permissions.Permission{}
	}
	if group.Valid {
		role.Group = group.String
	}
	return &role, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
