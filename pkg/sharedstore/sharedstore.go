// Package sharedstore is the filesystem-backed key-value scratch space for
// cross-worker aggregation. The coordinating process provisions the
// directory before workers start and removes it after they finish; the
// designated first worker writes each key at most once, so rename
// atomicity is the only synchronization needed.
package sharedstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingKey is returned when an expected key was never written. A
// missing key at read time is an integration failure, never a default.
var ErrMissingKey = errors.New("shared store: key not found")

// Store is a handle on the shared scratch directory.
type Store struct {
	dir string
}

// Provision creates a fresh scratch directory. Coordinator-side.
func Provision() (*Store, error) {
	dir, err := os.MkdirTemp("", "speccov-shared-")
	if err != nil {
		return nil, fmt.Errorf("provisioning shared store: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Open attaches to an existing scratch directory. Worker-side.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("shared store unavailable at %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("shared store path %q is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the scratch directory path, for handing to workers.
func (s *Store) Dir() string { return s.dir }

// Put writes a value under a key, atomically via temp file + rename.
func (s *Store) Put(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, key+".tmp-")
	if err != nil {
		return fmt.Errorf("shared store: writing %q: %w", key, err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("shared store: writing %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("shared store: writing %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("shared store: writing %q: %w", key, err)
	}
	return nil
}

// Get reads the value written under a key.
func (s *Store) Get(key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
		return "", fmt.Errorf("shared store: reading %q: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Remove deletes the scratch directory. Coordinator-side teardown.
func (s *Store) Remove() error {
	return os.RemoveAll(s.dir)
}
