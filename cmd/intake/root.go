package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/internal/logger"
)

// app carries what every command needs. cfg and logger are set before any
// command runs.
type app struct {
	fs     afero.Fs
	cfg    *intake.Config
	logger *slog.Logger
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "intake",
		Short: "Validate uploaded files and bulk order spreadsheets",
		Long: `intake checks uploaded files by their content: format, size, geometry and
embedded payloads, against per-owner upload policies, and rejects content an
owner already uploaded. It also validates bulk order CSV files against
templates. Configuration is read from BEAVER_INTAKE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := intake.GetConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			a.cfg = cfg
			a.logger = logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newServeCommand(a),
		newCheckCommand(a),
		newTemplatesCommand(a),
		newBulkCommand(a),
		newWatchCommand(a),
	)
	return root
}

// offlineService builds a service for one-shot commands: the configured
// policies, nothing stored and nothing remembered between runs.
func (a *app) offlineService(ctx context.Context) (*intake.Service, error) {
	cfg := *a.cfg
	cfg.Driver = "none"
	cfg.DedupStore = "memory"
	cfg.BulkStore = "memory"
	return intake.Open(ctx, &cfg, a.logger)
}
