// Package commands implements the leapml subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapml/internal/cli/config"
	"github.com/leapstack-labs/leapml/internal/engine"
	"github.com/leapstack-labs/leapml/internal/metrics"
	"github.com/leapstack-labs/leapml/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pipeline HTTP API",
		Long: `Start the HTTP API for uploading datasets, training pipelines and
scoring records with trained artifacts.

Every /api route except /api/health requires the X-API-Key header.`,
		Example: `  # Serve on the default address with an in-memory run history
  leapml serve

  # Persist run history and load seed datasets
  leapml serve --state runs.db --seeds-dir seeds --watch-seeds`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config.FromContext(cmd.Context()), config.GetLogger(cmd.Context()))
		},
	}

	f := cmd.Flags()
	f.String("addr", config.DefaultAddr, "Listen address")
	f.String("api-key", "", "Shared secret expected in the X-API-Key header")
	f.Int64("max-upload-bytes", config.DefaultMaxUploadBytes, "Maximum dataset upload size in bytes")
	f.Int("workers", 0, "Concurrent training and prediction jobs (default: GOMAXPROCS)")
	f.String("state", config.DefaultStatePath, "Path to the run history database")
	f.String("seeds-dir", "", "Directory of datasets to register at startup")
	f.Bool("watch-seeds", false, "Re-ingest seed files when they change")
	f.Duration("shutdown-timeout", config.DefaultShutdownTimeout, "Graceful shutdown timeout")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if cfg.APIKey == config.DefaultAPIKey {
		logger.Warn("using the default API key; set LEAPML_API_KEY or --api-key")
	}

	eng, err := engine.New(ctx, engine.Config{
		Workers:        cfg.Workers,
		StatePath:      cfg.StatePath,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SeedsDir:       cfg.SeedsDir,
		Metrics:        metrics.New(),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	srv := server.New(server.Config{
		Engine:          eng,
		Addr:            cfg.Addr,
		APIKey:          cfg.APIKey,
		WatchSeeds:      cfg.WatchSeeds,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})
	return srv.Serve(ctx)
}
