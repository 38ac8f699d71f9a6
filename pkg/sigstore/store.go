// Package sigstore persists the invalidation signals recorded after each
// successful build, keyed by build name. It replaces ambient build-tool state
// with a store injected into the driver.
package sigstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Signal is one invalidation input: a key scoped by build name and the
// freshly computed value to compare against the recorded one.
type Signal struct {
	Key   string
	Value string
}

// Store keeps the last recorded signal values, persisted as a JSON file.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return s, nil
	default:
		return nil, errors.WithStack(err)
	}

	if err := json.Unmarshal(raw, &s.values); err != nil {
		return nil, errors.Wrapf(err, "signal store %q is corrupt", path)
	}
	return s, nil
}

// Changed reports whether any signal differs from its recorded value.
// Signals never recorded count as changed.
func (s *Store) Changed(signals ...Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range signals {
		recorded, exists := s.values[sig.Key]
		if !exists || recorded != sig.Value {
			return true
		}
	}
	return false
}

// Record stores the given values as the new last-known state. Call Save to
// persist them.
func (s *Store) Record(signals ...Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range signals {
		s.values[sig.Key] = sig.Value
	}
}

// Save writes the store to disk. The write goes through a temporary file and
// a rename, so a crash never leaves a half-written store behind.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.WithStack(err)
	}

	tmp := s.path + ".tmp"
	raw := lo.Must(json.MarshalIndent(s.values, "", "  "))
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, s.path))
}
