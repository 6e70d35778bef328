package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/crmdesk/internal"
	"github.com/starford/crmdesk/internal/apperr"
	pkgconfig "github.com/starford/crmdesk/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// commandOptions builds the options of one-shot commands, which log to stderr.
func commandOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func requireArg(cmd *cli.Command, what string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one %s argument", cmd.Name, what)
	}
	return cmd.Args().First(), nil
}

func main() {
	cmd := &cli.Command{
		Name:   "crmdesk",
		Usage:  "Local-first customer relationship manager with reminders, CSV/XLSX import and JSON backups",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Import customers from a CSV or XLSX file",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path, err := requireArg(cmd, "file")
					if err != nil {
						return err
					}
					opts, err := commandOptions(cmd)
					if err != nil {
						return err
					}
					return internal.ImportFile(ctx, path, os.Stdout, opts...)
				},
			},
			{
				Name:  "export",
				Usage: "Export customers as CSV or XLSX, or all data as a JSON backup",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "csv, xlsx or json"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file or directory (default: dated file name)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := commandOptions(cmd)
					if err != nil {
						return err
					}
					return internal.ExportFile(ctx, cmd.String("format"), cmd.String("out"), os.Stdout, opts...)
				},
			},
			{
				Name:      "restore",
				Usage:     "Replace all customers and settings with a JSON backup",
				ArgsUsage: "<backup.json>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm that all existing data is replaced"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path, err := requireArg(cmd, "backup file")
					if err != nil {
						return err
					}
					opts, err := commandOptions(cmd)
					if err != nil {
						return err
					}
					return internal.RestoreFile(ctx, path, cmd.Bool("yes"), os.Stdout, opts...)
				},
			},
			{
				Name:  "doings",
				Usage: "Print open reminders, earliest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of entries (0 for all)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := commandOptions(cmd)
					if err != nil {
						return err
					}
					return internal.PrintDoings(ctx, int(cmd.Int("limit")), os.Stdout, opts...)
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools on stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := commandOptions(cmd)
					if err != nil {
						return err
					}
					return internal.ServeMCP(ctx, opts...)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrConfirmationRequired) {
			slog.Error("restore replaces all data; rerun with --yes to confirm")
		} else {
			slog.Error("application error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
