// Package testutil provides shared test helpers for setting up storage and stores.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/crmdesk/internal/kv"
	"github.com/starford/crmdesk/internal/store"
)

// Now is the fixed clock of stores built by TestStore.
var Now = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time { return Now }

// SeqIDs returns a generator of predictable ids: id-1, id-2, ...
func SeqIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFS creates a temporary data directory with a kv.FS provider.
func TestFS(t *testing.T) (string, *kv.FS) {
	t.Helper()
	dir := t.TempDir()
	p, err := kv.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, p
}

// TestSQLite creates a temporary SQLite kv provider that is closed on cleanup.
func TestSQLite(t *testing.T) *kv.SQLite {
	t.Helper()
	p, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "crmdesk-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// TestStore opens a store over p with the fixed clock and sequential ids.
// A nil p gets a fresh temporary FS provider.
func TestStore(t *testing.T, p kv.Provider, opts ...store.Option) *store.Store {
	t.Helper()
	if p == nil {
		_, p = TestFS(t)
	}
	base := []store.Option{
		store.WithClock(Clock),
		store.WithIDGenerator(SeqIDs()),
		store.WithLogger(DiscardLogger()),
	}
	s, err := store.Open(p, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
