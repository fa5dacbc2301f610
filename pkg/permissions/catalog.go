// Package permissions defines the static permission catalog.
//
// Permissions are opaque "<domain>::<action>" tags grouped into named
// categories for bulk selection in the role editor. The catalog is fixed at
// compile time; roles reference catalog entries but never invent new ones.
package permissions

// Permission is an opaque permission tag of the form "<domain>::<action>".
type Permission string

// Task management permissions
const (
	TaskCreate   Permission = "task::create"
	TaskRead     Permission = "task::read"
	TaskWrite    Permission = "task::write"
	TaskUpdate   Permission = "task::update"
	TaskDelete   Permission = "task::delete"
	TaskAssign   Permission = "task::assign"
	TaskTransfer Permission = "task::transfer"
	TaskComment  Permission = "task::comment"
)

// User management permissions
const (
	UserCreate Permission = "user::create"
	UserRead   Permission = "user::read"
	UserUpdate Permission = "user::update"
	UserDelete Permission = "user::delete"
	UserManage Permission = "user::manage"
)

// Role management permissions
const (
	RoleCreate Permission = "role::create"
	RoleRead   Permission = "role::read"
	RoleUpdate Permission = "role::update"
	RoleDelete Permission = "role::delete"
	RoleManage Permission = "role::manage"
)

// Team management permissions
const (
	TeamCreate Permission = "team::create"
	TeamRead   Permission = "team::read"
	TeamUpdate Permission = "team::update"
	TeamDelete Permission = "team::delete"
	TeamManage Permission = "team::manage"
)

// Client management permissions
const (
	ClientCreate Permission = "client::create"
	ClientRead   Permission = "client::read"
	ClientUpdate Permission = "client::update"
	ClientDelete Permission = "client::delete"
	ClientManage Permission = "client::manage"
)

// Knowledge base permissions
const (
	KBCreate Permission = "kb::create"
	KBRead   Permission = "kb::read"
	KBUpdate Permission = "kb::update"
	KBDelete Permission = "kb::delete"
	KBManage Permission = "kb::manage"
)

// System settings permissions
const (
	SettingsView        Permission = "settings::view"
	SettingsManage      Permission = "settings::manage"
	WebhookManage       Permission = "webhook::manage"
	IntegrationManage   Permission = "integration::manage"
	EmailTemplateManage Permission = "email_template::manage"
)

// Time tracking permissions
const (
	TimeEntryCreate Permission = "time_entry::create"
	TimeEntryRead   Permission = "time_entry::read"
	TimeEntryUpdate Permission = "time_entry::update"
	TimeEntryDelete Permission = "time_entry::delete"
)

// Webhook permissions
const (
	WebhookCreate Permission = "webhook::create"
	WebhookRead   Permission = "webhook::read"
	WebhookUpdate Permission = "webhook::update"
	WebhookDelete Permission = "webhook::delete"
)

// Document permissions
const (
	DocumentCreate Permission = "document::create"
	DocumentRead   Permission = "document::read"
	DocumentUpdate Permission = "document::update"
	DocumentDelete Permission = "document::delete"
	DocumentManage Permission = "document::manage"
)

// Category is a named group of permissions used for bulk selection.
type Category string

const (
	CategoryTask          Category = "Task Management"
	CategoryUser          Category = "User Management"
	CategoryRole          Category = "Role Management"
	CategoryTeam          Category = "Team Management"
	CategoryClient        Category = "Client Management"
	CategoryKnowledgeBase Category = "Knowledge Base"
	CategorySystem        Category = "System Settings"
	CategoryTimeTracking  Category = "Time Tracking"
	CategoryWebhook       Category = "Webhook Management"
	CategoryDocumentation Category = "Documentation"
)

// Group pairs a category with its permissions.
type Group struct {
	Category    Category
	Permissions []Permission
}

// catalog is the authoritative grouping. Every permission appears in exactly
// one category.
var catalog = []Group{
	{CategoryTask, []Permission{
		TaskCreate, TaskRead, TaskWrite, TaskUpdate,
		TaskDelete, TaskAssign, TaskTransfer, TaskComment,
	}},
	{CategoryUser, []Permission{
		UserCreate, UserRead, UserUpdate, UserDelete, UserManage,
	}},
	{CategoryRole, []Permission{
		RoleCreate, RoleRead, RoleUpdate, RoleDelete, RoleManage,
	}},
	{CategoryTeam, []Permission{
		TeamCreate, TeamRead, TeamUpdate, TeamDelete, TeamManage,
	}},
	{CategoryClient, []Permission{
		ClientCreate, ClientRead, ClientUpdate, ClientDelete, ClientManage,
	}},
	{CategoryKnowledgeBase, []Permission{
		KBCreate, KBRead, KBUpdate, KBDelete, KBManage,
	}},
	{CategorySystem, []Permission{
		SettingsView, SettingsManage, WebhookManage,
		IntegrationManage, EmailTemplateManage,
	}},
	{CategoryTimeTracking, []Permission{
		TimeEntryCreate, TimeEntryRead, TimeEntryUpdate, TimeEntryDelete,
	}},
	{CategoryWebhook, []Permission{
		WebhookCreate, WebhookRead, WebhookUpdate, WebhookDelete,
	}},
	{CategoryDocumentation, []Permission{
		DocumentCreate, DocumentRead, DocumentUpdate, DocumentDelete, DocumentManage,
	}},
}

var byPermission = func() map[Permission]Category {
	m := make(map[Permission]Category)
	for _, g := range catalog {
		for _, p := range g.Permissions {
			m[p] = g.Category
		}
	}
	return m
}()

// All returns every permission in the catalog in category order.
func All() []Permission {
	var out []Permission
	for _, g := range catalog {
		out = append(out, g.Permissions...)
	}
	return out
}

// Valid reports whether p is a catalog permission.
func Valid(p Permission) bool {
	_, ok := byPermission[p]
	return ok
}

// CategoryOf returns the category a permission belongs to.
func CategoryOf(p Permission) (Category, bool) {
	c, ok := byPermission[p]
	return c, ok
}

// Groups returns the full catalog grouped by category. The returned slices
// are copies; callers may mutate them freely.
func Groups() []Group {
	out := make([]Group, len(catalog))
	for i, g := range catalog {
		perms := make([]Permission, len(g.Permissions))
		copy(perms, g.Permissions)
		out[i] = Group{Category: g.Category, Permissions: perms}
	}
	return out
}

// ByCategory returns the permissions in a single category.
func ByCategory(c Category) []Permission {
	for _, g := range catalog {
		if g.Category == c {
			perms := make([]Permission, len(g.Permissions))
			copy(perms, g.Permissions)
			return perms
		}
	}
	return nil
}
