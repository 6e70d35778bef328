// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/crmdesk/internal/api"
	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/kv"
	"github.com/starford/crmdesk/internal/shell"
	"github.com/starford/crmdesk/internal/sse"
	"github.com/starford/crmdesk/internal/store"
)

var errConfigRequired = errors.New("config is required")

// newLogger builds the JSON logger. With a log file configured, records
// also go to a lumberjack-rotated file; the returned func closes it.
func newLogger(w io.Writer, cfg ApplicationConfig) (*slog.Logger, func() error) {
	if w == nil {
		w = os.Stdout
	}
	closeFn := func() error { return nil }
	if lf := cfg.LogFile; lf.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   lf.Path,
			MaxSize:    lf.MaxSizeMB,
			MaxBackups: lf.MaxBackups,
			MaxAge:     lf.MaxAgeDays,
			Compress:   lf.Compress,
		}
		w = io.MultiWriter(w, rotating)
		closeFn = rotating.Close
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})), closeFn
}

// backend is an opened key-value provider with its teardown.
type backend struct {
	provider kv.Provider
	watchDir string
	close    func() error
}

func openBackend(cfg *Config) (*backend, error) {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := kv.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{provider: db, close: db.Close}, nil
	default:
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fsys, err := kv.NewFS(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		b := &backend{provider: fsys, close: func() error { return nil }}
		if cfg.Storage.Watch {
			b.watchDir = fsys.Root()
		}
		return b, nil
	}
}

// openService opens the configured storage, loads the store and wraps it
// in the customer service.
func openService(app *application) (*customerservice.Service, *backend, error) {
	cfg := app.config
	locale, err := cfg.LanguageTag()
	if err != nil {
		return nil, nil, err
	}
	b, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(b.provider,
		store.WithLogger(app.logger),
		store.WithDefaultSources(cfg.Settings.DefaultSources),
	)
	if err != nil {
		_ = b.close()
		return nil, nil, fmt.Errorf("load store: %w", err)
	}
	return customerservice.NewService(st, locale, app.logger), b, nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.closeLog() }()
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("locale", cfg.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, b, err := openService(app)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn("storage close failed", slog.String("error", err.Error()))
		}
	}()
	st := svc.Store()

	// SSE broker fed by store change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	detach := broker.Attach(st)
	defer detach()

	shellHandler, err := shell.New(logger)
	if err != nil {
		return fmt.Errorf("init shell: %w", err)
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	rl := cfg.App.HTTP.RateLimit
	r.Route("/api", func(r chi.Router) {
		r.Use(api.RateLimit(rl.RequestsPerSecond, rl.Burst))
		r.Mount("/", apiRouter)
	})
	r.Handle("/*", shellHandler)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload keys edited by other processes.
	if b.watchDir != "" {
		g.Go(func() error {
			err := kv.Watch(gCtx, b.watchDir, logger, func(key string) {
				if err := st.Reload(key); err != nil {
					logger.Warn("reload failed",
						slog.String("key", key),
						slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
