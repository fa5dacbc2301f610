package roles

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/copperdesk/copperdesk/pkg/contextkeys"
	"github.com/copperdesk/copperdesk/pkg/httputil"
	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/permissions"
)

// Handlers provides HTTP handlers for role management. These are the
// writer side of the visibility pipeline: they maintain the role records
// and ordered user assignments the resolver later reads.
type Handlers struct {
	store  *Store
	logger *observability.Logger
}

// NewHandlers creates role management handlers
func NewHandlers(store *Store, logger *observability.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// RegisterRoutes registers all role management routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/roles", h.CreateRole).Methods("POST")
	router.HandleFunc("/api/v1/roles", h.ListRoles).Methods("GET")
	router.HandleFunc("/api/v1/roles/{id}", h.GetRole).Methods("GET")
	router.HandleFunc("/api/v1/roles/{id}", h.UpdateRole).Methods("PUT")
	router.HandleFunc("/api/v1/roles/{id}", h.DeleteRole).Methods("DELETE")

	router.HandleFunc("/api/v1/users/{id}/roles", h.GetUserRoles).Methods("GET")
	router.HandleFunc("/api/v1/users/{id}/roles", h.SetUserRoles).Methods("PUT")

	router.HandleFunc("/api/v1/permissions", h.ListPermissions).Methods("GET")
}

type roleRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Permissions []permissions.Permission `json:"permissions"`
	Group       string                   `json:"group"`
}

func (req *roleRequest) validate() string {
	if req.Name == "" {
		return "role name is required"
	}
	for _, p := range req.Permissions {
		if !permissions.Valid(p) {
			return "unknown permission: " + string(p)
		}
	}
	// New and updated roles must use the enumerated group literals; the
	// resolver stays tolerant of legacy rows, but nothing new may create
	// an unrecognized literal that silently widens visibility.
	if req.Group != "" && !KnownGroup(req.Group) {
		return "unknown visibility group: " + req.Group
	}
	return ""
}

// CreateRole creates a new role
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteBadRequest(w, msg)
		return
	}

	role := &Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		Group:       req.Group,
	}
	if role.Permissions == nil {
		role.Permissions = []permissions.Permission{}
	}

	if err := h.store.CreateRole(r.Context(), role); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("failed to create role")
		httputil.WriteInternalError(w, "failed to create role", err)
		return
	}

	httputil.WriteCreated(w, role)
}

// ListRoles lists all roles
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	rolesList, err := h.store.ListRoles(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("failed to list roles")
		httputil.WriteInternalError(w, "failed to list roles", err)
		return
	}
	if rolesList == nil {
		rolesList = []Role{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"success": true, "roles": rolesList})
}

// GetRole fetches a single role
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	role, err := h.store.GetRole(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteNotFound(w, "role not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, "failed to fetch role", err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// UpdateRole updates a role
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteBadRequest(w, msg)
		return
	}

	role := &Role{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		Group:       req.Group,
	}
	if role.Permissions == nil {
		role.Permissions = []permissions.Permission{}
	}

	err := h.store.UpdateRole(r.Context(), role)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteNotFound(w, "role not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, "failed to update role", err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// DeleteRole removes a role and its assignments
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	err := h.store.DeleteRole(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteNotFound(w, "role not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, "failed to delete role", err)
		return
	}
	httputil.WriteNoContent(w)
}

// GetUserRoles returns a user's roles in stored order
func (h *Handlers) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.FindUserWithRoles(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, "failed to fetch user roles", err)
		return
	}
	if user == nil {
		httputil.WriteNotFound(w, "user not found")
		return
	}
	if user.Roles == nil {
		user.Roles = []Role{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"success": true, "roles": user.Roles})
}

// SetUserRoles replaces a user's role assignments. The request order is the
// stored order, which in turn decides scope resolution precedence.
func (h *Handlers) SetUserRoles(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		RoleIDs []string `json:"role_ids"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.store.SetUserRoles(r.Context(), id, req.RoleIDs); err != nil {
		httputil.WriteInternalError(w, "failed to update role assignments", err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListPermissions returns the static permission catalog grouped by category
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"success": true,
		"groups":  permissions.Groups(),
	})
}

// requireAdmin checks that the authenticated caller is an admin. Writes a
// 403 and returns false otherwise.
func (h *Handlers) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	userID, ok := contextkeys.UserID(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return false
	}

	user, err := h.store.FindUserWithRoles(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "failed to verify permissions", err)
		return false
	}
	if user == nil || !user.IsAdmin {
		httputil.WriteForbidden(w, "admin access required")
		return false
	}
	return true
}
