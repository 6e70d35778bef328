package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/crmdesk/internal/customerservice"
	"github.com/starford/crmdesk/internal/mcpserver"
	"github.com/starford/crmdesk/internal/transfer"
)

// withService opens the configured store for a one-shot command.
func withService(opts []Option, fn func(*customerservice.Service, *slog.Logger) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.closeLog() }()
	svc, b, err := openService(app)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			app.logger.Warn("storage close failed", slog.String("error", err.Error()))
		}
	}()
	return fn(svc, app.logger)
}

// ImportFile appends the customers of a CSV or XLSX file and prints the result.
func ImportFile(ctx context.Context, path string, out io.Writer, opts ...Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return withService(opts, func(svc *customerservice.Service, _ *slog.Logger) error {
		res, err := svc.Import(ctx, filepath.Base(path), data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, res.Message)
		return err
	})
}

// ExportFile writes an export in the given format. An empty dest writes
// the dated default file name into the working directory; a directory
// dest receives the default file name inside it.
func ExportFile(ctx context.Context, format, dest string, out io.Writer, opts ...Option) error {
	f, err := transfer.ParseFormat(format)
	if err != nil {
		return err
	}
	return withService(opts, func(svc *customerservice.Service, _ *slog.Logger) error {
		exp, err := svc.Export(ctx, f)
		if err != nil {
			return err
		}
		target := dest
		if target == "" {
			target = exp.Filename
		} else if fi, err := os.Stat(target); err == nil && fi.IsDir() {
			target = filepath.Join(target, exp.Filename)
		}
		if err := os.WriteFile(target, exp.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		_, err = fmt.Fprintf(out, "exported %d customers to %s\n", len(svc.Store().Customers()), target)
		return err
	})
}

// RestoreFile replaces all data with a JSON backup. Without confirmed it
// only validates the file.
func RestoreFile(ctx context.Context, path string, confirmed bool, out io.Writer, opts ...Option) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return withService(opts, func(svc *customerservice.Service, logger *slog.Logger) error {
		n, err := svc.Restore(ctx, data, confirmed)
		if err != nil {
			return err
		}
		logger.Info("backup restored", slog.String("file", path), slog.Int("customers", n))
		_, err = fmt.Fprintf(out, "restored %d customers\n", n)
		return err
	})
}

// PrintDoings lists open reminders, earliest first. limit <= 0 prints all.
func PrintDoings(ctx context.Context, limit int, out io.Writer, opts ...Option) error {
	return withService(opts, func(svc *customerservice.Service, _ *slog.Logger) error {
		doings := svc.Doings(ctx, limit)
		if len(doings) == 0 {
			_, err := fmt.Fprintln(out, "no open doings")
			return err
		}
		for _, d := range doings {
			marker := ""
			if d.Overdue {
				marker = "  OVERDUE"
			}
			if _, err := fmt.Fprintf(out, "%s  %s: %s%s\n",
				d.Customer.ReminderDate.Display(), d.Customer.CompanyName, d.Customer.NextSteps, marker); err != nil {
				return err
			}
		}
		return nil
	})
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	return withService(opts, func(svc *customerservice.Service, logger *slog.Logger) error {
		logger.Info("MCP server starting on stdio")
		return mcpserver.New(svc).ServeStdio()
	})
}
