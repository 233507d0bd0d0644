// Package state records training and prediction runs in SQLite.
// The default database is in-memory, so history lives as long as the process
// unless a file path is configured.
package state

import (
	"context"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// RunRecorder is the subset of the store used by the pipeline engine.
type RunRecorder interface {
	StartRun(ctx context.Context, kind core.RunKind, datasetID, modelID string) (*core.Run, error)
	CompleteRun(ctx context.Context, id string, outcome Outcome) error
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)
}

// Outcome is the final state of a run.
type Outcome struct {
	Status    core.RunStatus
	ModelID   string
	ModelKind core.ModelKind
	Accuracy  *float64
	Rows      int
	Err       error
}

var _ RunRecorder = (*SQLiteStore)(nil)
