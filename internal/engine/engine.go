// Package engine orchestrates the pipeline: it resolves datasets, prepares
// features, checks class balance, trains and stores artifacts, and replays
// them for prediction. CPU-bound work runs on a bounded worker pool; every run
// is recorded in the state store and in metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/dataset"
	"github.com/leapstack-labs/leapml/internal/inference"
	"github.com/leapstack-labs/leapml/internal/metrics"
	"github.com/leapstack-labs/leapml/internal/state"
)

// Engine wires the pipeline components together.
type Engine struct {
	logger *slog.Logger

	datasets  *dataset.Registry
	ingestor  *dataset.Ingestor
	seeds     *dataset.SeedLoader
	artifacts *artifact.Store
	replayer  *inference.Replayer
	store     *state.SQLiteStore
	metrics   *metrics.Metrics
	pool      *Pool
}

// Config holds engine configuration.
type Config struct {
	// Workers bounds concurrent CPU-bound work. Zero means GOMAXPROCS.
	Workers int
	// StatePath is the SQLite run history database; empty means ":memory:".
	StatePath string
	// MaxUploadBytes caps dataset uploads. Zero means dataset.DefaultMaxBytes.
	MaxUploadBytes int64
	// SeedsDir, when set, is scanned for datasets at startup.
	SeedsDir string
	// Metrics receives instrumentation (optional, a private set is created if nil)
	Metrics *metrics.Metrics
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine, opening the ingestion and state databases.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	statePath := cfg.StatePath
	if statePath == "" {
		statePath = ":memory:"
	}

	logger.Debug("initializing engine", "workers", workers, "state_path", statePath)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(statePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}

	ingestor, err := dataset.NewIngestor(ctx, dataset.IngestorConfig{
		MaxBytes: cfg.MaxUploadBytes,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := dataset.NewRegistry()
	artifacts := artifact.NewStore(logger)
	e := &Engine{
		logger:    logger,
		datasets:  registry,
		ingestor:  ingestor,
		artifacts: artifacts,
		replayer:  inference.New(artifacts, logger),
		store:     store,
		metrics:   m,
		pool:      NewPool(workers, m.WorkersBusy.Add),
	}

	if cfg.SeedsDir != "" {
		e.seeds = dataset.NewSeedLoader(cfg.SeedsDir, registry, ingestor, logger)
		ids, err := e.seeds.Load(ctx)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		logger.Info("seeds loaded", "count", len(ids))
		m.Datasets.Set(float64(registry.Len()))
	}

	return e, nil
}

// Close releases the databases held by the engine.
func (e *Engine) Close() error {
	return errors.Join(e.ingestor.Close(), e.store.Close())
}

// Metrics returns the engine's instruments.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Datasets returns the dataset registry.
func (e *Engine) Datasets() *dataset.Registry {
	return e.datasets
}

// Artifacts returns the artifact store.
func (e *Engine) Artifacts() *artifact.Store {
	return e.artifacts
}

// MaxUploadBytes returns the upload size cap.
func (e *Engine) MaxUploadBytes() int64 {
	return e.ingestor.MaxBytes()
}

// WatchSeeds re-ingests changed seed files until ctx is done. It returns
// immediately when no seeds directory is configured.
func (e *Engine) WatchSeeds(ctx context.Context) error {
	if e.seeds == nil {
		return nil
	}
	return e.seeds.Watch(ctx)
}
