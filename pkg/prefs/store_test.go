package prefs

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperdesk/copperdesk/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.json")
	store, err := Open(path, testLogger())
	require.NoError(t, err)
	return store, path
}

func TestStore_SetGet(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Set("preferred_view_mode", "kanban"))
	require.NoError(t, store.Set("all_selectedStatuses", []string{"done", "hold"}))

	var mode string
	require.NoError(t, store.Get("preferred_view_mode", &mode))
	assert.Equal(t, "kanban", mode)

	var statuses []string
	require.NoError(t, store.Get("all_selectedStatuses", &statuses))
	assert.Equal(t, []string{"done", "hold"}, statuses)
}

func TestStore_MissingKey(t *testing.T) {
	store, _ := openTestStore(t)

	var v string
	err := store.Get("never_set", &v)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	store, path := openTestStore(t)
	require.NoError(t, store.Set("preferred_sort_by", "priority"))

	reopened, err := Open(path, testLogger())
	require.NoError(t, err)

	var sortBy string
	require.NoError(t, reopened.Get("preferred_sort_by", &sortBy))
	assert.Equal(t, "priority", sortBy)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := Open(path, testLogger())
	require.NoError(t, err, "a corrupt file must not fail the caller")

	var v string
	assert.True(t, errors.Is(store.Get("anything", &v), ErrNotFound))

	// The store stays writable afterwards.
	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Get("k", &v))
	assert.Equal(t, "v", v)
}

func TestStore_Delete(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Delete("k"))

	var v string
	assert.True(t, errors.Is(store.Get("k", &v), ErrNotFound))

	assert.NoError(t, store.Delete("k"), "deleting an absent key is a no-op")
}

func TestStore_KeysAreIndependent(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Set("all_selectedPriorities", []string{"high"}))
	require.NoError(t, store.Set("preferred_view_mode", "list"))
	require.NoError(t, store.Delete("all_selectedPriorities"))

	var mode string
	require.NoError(t, store.Get("preferred_view_mode", &mode))
	assert.Equal(t, "list", mode, "deleting one namespace must not touch another")
}

func TestStore_WatchReloadsExternalWrite(t *testing.T) {
	store, path := openTestStore(t)

	reloaded := make(chan struct{}, 4)
	closeWatch, err := store.Watch(func() { reloaded <- struct{}{} })
	require.NoError(t, err)
	defer closeWatch()

	// Simulate a second browsing context rewriting the file.
	external := map[string]json.RawMessage{
		"preferred_view_mode": json.RawMessage(`"kanban"`),
	}
	data, err := json.Marshal(external)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("watch never observed the external write")
	}

	var mode string
	require.NoError(t, store.Get("preferred_view_mode", &mode))
	assert.Equal(t, "kanban", mode)
}
