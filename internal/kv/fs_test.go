package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/crmdesk/internal/apperr"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFS_SetAndGet(t *testing.T) {
	s := tempFS(t)
	if err := s.Set(KeyCustomers, []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(KeyCustomers)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("value = %q", got)
	}
}

func TestFS_GetMissing(t *testing.T) {
	s := tempFS(t)
	_, err := s.Get(KeySettings)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFS_DeleteMissingIsNoop(t *testing.T) {
	s := tempFS(t)
	if err := s.Delete(KeyDarkMode); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
	_ = s.Set(KeyDarkMode, []byte("true"))
	if err := s.Delete(KeyDarkMode); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(KeyDarkMode); err == nil {
		t.Error("expected error reading deleted key")
	}
}

func TestFS_InvalidKeyRejected(t *testing.T) {
	s := tempFS(t)
	for _, k := range []string{"../escape", "/etc/passwd", "Upper", ""} {
		if err := s.Set(k, []byte("x")); err == nil {
			t.Errorf("expected error for key %q", k)
		}
		if _, err := s.Get(k); err == nil {
			t.Errorf("expected error reading key %q", k)
		}
	}
}

func TestFS_SetMany(t *testing.T) {
	s := tempFS(t)
	err := s.SetMany(map[string][]byte{
		KeyCustomers: []byte(`[]`),
		KeySettings:  []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v, want 2", keys)
	}
}

func TestFS_SetManyRejectsInvalidKeyBeforeWriting(t *testing.T) {
	s := tempFS(t)
	err := s.SetMany(map[string][]byte{
		KeyCustomers: []byte(`[1]`),
		"bad/key":    []byte(`{}`),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Get(KeyCustomers); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("no key should have been written")
	}
}

func TestFS_AtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempFS(t)
	_ = s.Set(KeyCustomers, []byte("original"))
	if err := s.Set(KeyCustomers, []byte("updated")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get(KeyCustomers)
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".crmdesk-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "crmdesk-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestKeyForPath(t *testing.T) {
	if k, ok := KeyForPath("/data/crm_customers.json"); !ok || k != KeyCustomers {
		t.Errorf("KeyForPath = %q, %v", k, ok)
	}
	if _, ok := KeyForPath("/data/.crmdesk-tmp-123"); ok {
		t.Error("temp file should not map to a key")
	}
}
