package shell

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNew_PrecachesShell(t *testing.T) {
	h, err := New(discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, p := range Precached {
		if !h.Cached(p) {
			t.Errorf("%s not precached", p)
		}
	}

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/app.js") {
		t.Error("index does not reference app.js")
	}

	rec = get(t, h, "/manifest.webmanifest")
	if ct := rec.Header().Get("Content-Type"); ct != "application/manifest+json" {
		t.Errorf("manifest content type = %q", ct)
	}
}

func TestServeHTTP_UnknownPath(t *testing.T) {
	h, err := New(discard())
	if err != nil {
		t.Fatal(err)
	}
	rec := get(t, h, "/missing.css")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if h.Cached("/missing.css") {
		t.Error("missing asset was cached")
	}
}

func TestServeHTTP_WriteThrough(t *testing.T) {
	files := fstest.MapFS{
		"index.html": {Data: []byte("<html></html>")},
		"extra.css":  {Data: []byte("body{}")},
	}
	h, err := newHandler(files, []string{"/"}, discard())
	if err != nil {
		t.Fatal(err)
	}
	if h.Cached("/extra.css") {
		t.Fatal("extra.css cached before first request")
	}

	rec := get(t, h, "/extra.css")
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if !h.Cached("/extra.css") {
		t.Error("extra.css not written through into the cache")
	}

	// Cache-first: removing the file does not affect cached responses.
	delete(files, "extra.css")
	rec = get(t, h, "/extra.css")
	if rec.Code != http.StatusOK {
		t.Errorf("cached status = %d, want 200", rec.Code)
	}
}

func TestNewHandler_MissingPrecache(t *testing.T) {
	if _, err := newHandler(fstest.MapFS{}, []string{"/app.js"}, discard()); err == nil {
		t.Error("expected error for missing precached asset")
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	h, err := New(discard())
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
