package permissions

import (
	"strings"
	"testing"
)

func TestEveryPermissionInExactlyOneCategory(t *testing.T) {
	seen := make(map[Permission]Category)
	for _, g := range Groups() {
		for _, p := range g.Permissions {
			if prev, dup := seen[p]; dup {
				t.Errorf("permission %q appears in both %q and %q", p, prev, g.Category)
			}
			seen[p] = g.Category
		}
	}

	if len(seen) != len(All()) {
		t.Errorf("All() returned %d permissions, catalog has %d", len(All()), len(seen))
	}
}

func TestPermissionFormat(t *testing.T) {
	for _, p := range All() {
		parts := strings.Split(string(p), "::")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			t.Errorf("permission %q is not of the form <domain>::<action>", p)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid(TaskAssign) {
		t.Error("task::assign should be a valid catalog permission")
	}
	if Valid(Permission("task::frobnicate")) {
		t.Error("unknown permission reported as valid")
	}
}

func TestCategoryOf(t *testing.T) {
	c, ok := CategoryOf(WebhookManage)
	if !ok || c != CategorySystem {
		t.Errorf("webhook::manage should be in %q, got %q (ok=%v)", CategorySystem, c, ok)
	}

	// webhook::manage (system settings) and webhook::create (webhook CRUD)
	// live in different categories on purpose.
	c, ok = CategoryOf(WebhookCreate)
	if !ok || c != CategoryWebhook {
		t.Errorf("webhook::create should be in %q, got %q", CategoryWebhook, c)
	}
}

func TestByCategory(t *testing.T) {
	perms := ByCategory(CategoryTask)
	if len(perms) != 8 {
		t.Errorf("expected 8 task permissions, got %d", len(perms))
	}

	if ByCategory(Category("Nonexistent")) != nil {
		t.Error("unknown category should return nil")
	}
}
