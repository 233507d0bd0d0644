// Package inference scores raw records against a stored artifact by replaying
// its recipe and decoding the model's predictions.
package inference

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// Loader resolves artifact handles.
type Loader interface {
	Load(handle string) (*artifact.Artifact, error)
}

// Replayer produces predictions for raw records.
type Replayer struct {
	store  Loader
	logger *slog.Logger
}

// New creates a Replayer reading artifacts from store.
func New(store Loader, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Replayer{store: store, logger: logger}
}

// Predict returns one decoded prediction per record, in input order.
func (r *Replayer) Predict(_ context.Context, handle string, records []map[string]any) ([]any, error) {
	a, err := r.store.Load(handle)
	if err != nil {
		return nil, err
	}
	return Score(a, records)
}

// Score runs the replay pipeline for an already loaded artifact.
func Score(a *artifact.Artifact, records []map[string]any) ([]any, error) {
	if len(records) == 0 {
		return nil, core.EmptyInputErrorf("No records provided for prediction.")
	}

	x, err := a.Recipe.Replay(records)
	if err != nil {
		return nil, err
	}

	encoded, err := a.Model.Predict(x)
	if err != nil {
		return nil, core.WrapTraining(err, "Prediction failed")
	}
	return a.Recipe.Labels(encoded), nil
}
