// Package prefs is a small file-backed key-value store for client-side
// preferences. Values are JSON; writes are atomic; every operation is
// best-effort because losing a preference must never break the view.
package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"

	"github.com/copperdesk/copperdesk/pkg/observability"
)

// ErrNotFound is returned by Get for a key with no stored value.
var ErrNotFound = errors.New("preference not found")

// Store persists string-keyed JSON values in a single file.
type Store struct {
	path   string
	logger *observability.Logger

	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// Open loads the preference file at path, creating the parent directory
// if needed. A missing file starts empty; a corrupt file is discarded
// with a warning rather than failing the caller.
func Open(path string, logger *observability.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	s := &Store{
		path:   path,
		logger: logger,
		values: map[string]json.RawMessage{},
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("failed to read preference file")
		}
		return
	}

	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.WithError(err).Warn("preference file corrupt, starting empty")
		return
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

// Get unmarshals the stored value for key into value. Returns
// ErrNotFound when the key has never been set.
func (s *Store) Get(key string, value interface{}) error {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return fmt.Errorf("failed to decode preference %q: %w", key, err)
	}
	return nil
}

// Set stores the value under key and rewrites the file atomically.
func (s *Store) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference %q: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = raw
	err = s.flushLocked()
	s.mu.Unlock()
	return err
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write preference file: %w", err)
	}
	return nil
}

// Keys returns the stored keys, for diagnostics.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Watch reloads the store when another process rewrites the preference
// file, the analog of a storage event from a second browsing context.
// onReload may be nil. Watch returns immediately; reloading stops when
// the returned closer is called.
func (s *Store) Watch(onReload func()) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create preference watcher: %w", err)
	}

	// Watch the directory, not the file: atomic writes replace the file
	// by rename, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch preference directory: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				s.load()
				if onReload != nil {
					onReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("preference watcher error")
			}
		}
	}()

	return watcher.Close, nil
}
