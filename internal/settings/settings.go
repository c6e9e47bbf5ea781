// Package settings persists a small key/value record as a JSON file.
//
// A record is identified by a name and a directory and is stored at
// <Dir>/<Name>.json. Defaults fill in keys that are absent from the file and
// never replace a stored value.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Options identifies a record and its defaults.
type Options struct {
	Name     string
	Dir      string
	Defaults map[string]any
}

// Store is one settings record.
//
// Thread-safety: Store is safe for concurrent use via internal mutex.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// Open loads the record, applies defaults for missing keys and writes the
// result back when a default was applied or the file did not exist.
func Open(opts Options) (*Store, error) {
	if opts.Name == "" {
		return nil, errors.New("settings: name required")
	}
	if opts.Dir == "" {
		return nil, errors.New("settings: directory required")
	}

	s := &Store{
		path:   filepath.Join(opts.Dir, opts.Name+".json"),
		values: map[string]any{},
	}

	existed := true
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existed = false
	case err != nil:
		return nil, fmt.Errorf("settings: read %s: %w", s.path, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("settings: parse %s: %w", s.path, err)
		}
		if s.values == nil {
			s.values = map[string]any{}
		}
	}

	changed := !existed
	for key, value := range opts.Defaults {
		if _, ok := s.values[key]; !ok {
			s.values[key] = value
			changed = true
		}
	}

	if changed {
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the file backing the record.
func (s *Store) Path() string {
	return s.path
}

// Get returns the raw value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the value for key when it is a string.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores value under key and persists the record.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return s.Save()
}

// Save writes the record to disk, creating the directory if needed.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "\t")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}
