package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/crmdesk/internal/apperr"
)

const fileExt = ".json"

// FS implements Provider with one JSON file per key in a directory.
type FS struct {
	root string // absolute path to data directory
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("kv: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("kv: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("kv: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data directory.
func (f *FS) Root() string {
	return f.root
}

func (f *FS) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("kv: invalid key %q", key)
	}
	return filepath.Join(f.root, key+fileExt), nil
}

// KeyForPath maps a file name inside the data directory back to its key.
func KeyForPath(p string) (string, bool) {
	name := filepath.Base(p)
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, fileExt)
	return key, ValidKey(key)
}

// Get returns the value stored under key.
func (f *FS) Get(key string) ([]byte, error) {
	abs, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("kv: get %s: %w", key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return data, nil
}

// Set atomically writes value: tmp file → fsync → rename.
func (f *FS) Set(key string, value []byte) error {
	abs, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".crmdesk-tmp-*")
	if err != nil {
		return fmt.Errorf("kv: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("kv: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("kv: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("kv: rename: %w", err)
	}
	success = true
	return nil
}

// SetMany writes each value atomically. If one write fails, keys already
// written are restored to their previous content.
func (f *FS) SetMany(values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !ValidKey(k) {
			return fmt.Errorf("kv: invalid key %q", k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	type previous struct {
		data   []byte
		exists bool
	}
	prev := make(map[string]previous, len(keys))
	for _, k := range keys {
		data, err := f.Get(k)
		switch {
		case err == nil:
			prev[k] = previous{data: data, exists: true}
		case errors.Is(err, apperr.ErrNotFound):
			prev[k] = previous{}
		default:
			return err
		}
	}

	for i, k := range keys {
		if err := f.Set(k, values[k]); err != nil {
			for _, done := range keys[:i] {
				p := prev[done]
				if p.exists {
					_ = f.Set(done, p.data)
				} else {
					_ = f.Delete(done)
				}
			}
			return err
		}
	}
	return nil
}

// Delete removes the file backing key.
func (f *FS) Delete(key string) error {
	abs, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys that have a file in the data directory.
func (f *FS) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("kv: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := KeyForPath(e.Name()); ok {
			out = append(out, key)
		}
	}
	return out, nil
}
