// Package shell serves the embedded single-page shell of the web UI.
package shell

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed assets
var assets embed.FS

// Precached lists the asset paths loaded into memory at startup.
var Precached = []string{"/", "/index.html", "/app.js", "/manifest.webmanifest"}

type entry struct {
	contentType string
	body        []byte
}

// Handler serves shell assets cache-first. Misses fall back to the
// embedded filesystem and are written through into the cache.
type Handler struct {
	files  fs.FS
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]entry
}

// New creates a Handler over the embedded assets and pre-caches Precached.
func New(logger *slog.Logger) (*Handler, error) {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, err
	}
	return newHandler(sub, Precached, logger)
}

func newHandler(files fs.FS, precache []string, logger *slog.Logger) (*Handler, error) {
	h := &Handler{
		files:  files,
		logger: logger,
		cache:  make(map[string]entry, len(precache)),
	}
	for _, p := range precache {
		e, err := h.load(p)
		if err != nil {
			return nil, err
		}
		h.cache[p] = e
	}
	return h, nil
}

// load reads one request path from the filesystem.
func (h *Handler) load(urlPath string) (entry, error) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "index.html"
	}
	body, err := fs.ReadFile(h.files, name)
	if err != nil {
		return entry{}, err
	}
	ct := mime.TypeByExtension(path.Ext(name))
	switch {
	case path.Ext(name) == ".webmanifest":
		ct = "application/manifest+json"
	case ct == "":
		ct = http.DetectContentType(body)
	}
	return entry{contentType: ct, body: body}, nil
}

func (h *Handler) lookup(p string) (entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.cache[p]
	return e, ok
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := r.URL.Path
	e, ok := h.lookup(p)
	if !ok {
		var err error
		e, err = h.load(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				h.logger.Warn("shell asset read failed",
					slog.String("path", p),
					slog.String("error", err.Error()))
			}
			http.NotFound(w, r)
			return
		}
		h.mu.Lock()
		h.cache[p] = e
		h.mu.Unlock()
	}

	w.Header().Set("Content-Type", e.contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(e.body)
	}
}

// Cached reports whether p is currently held in the in-memory cache.
func (h *Handler) Cached(p string) bool {
	_, ok := h.lookup(p)
	return ok
}
