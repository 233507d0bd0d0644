package engine

import (
	"context"

	"github.com/leapstack-labs/leapml/internal/metrics"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// Predict replays a stored recipe on raw records and scores them.
func (e *Engine) Predict(ctx context.Context, req core.PredictRequest) (*core.PredictResponse, error) {
	if err := req.Validate(); err != nil {
		e.metrics.ObserveError("predict", err)
		return nil, err
	}

	run := e.startRun(ctx, core.RunKindPredict, "", req.ModelID)

	var predictions []any
	err := e.pool.Do(ctx, func() error {
		var err error
		predictions, err = e.replayer.Predict(ctx, req.ModelID, req.Records)
		return err
	})
	if err != nil {
		e.metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeError).Add(float64(len(req.Records)))
		e.metrics.ObserveError("predict", err)
		e.completeRun(ctx, run, state.Outcome{Status: core.RunStatusFailed, Rows: len(req.Records), Err: err})
		return nil, err
	}

	e.metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeSuccess).Add(float64(len(predictions)))
	e.completeRun(ctx, run, state.Outcome{Status: core.RunStatusCompleted, ModelID: req.ModelID, Rows: len(predictions)})
	e.logger.Debug("prediction completed", "model_id", req.ModelID, "records", len(predictions))
	return &core.PredictResponse{Predictions: predictions}, nil
}

// Export returns the serialized bundle stored under handle.
func (e *Engine) Export(handle string) ([]byte, error) {
	data, err := e.artifacts.ExportBytes(handle)
	if err != nil {
		e.metrics.ObserveError("export", err)
		return nil, err
	}
	return data, nil
}

// Manifest returns a YAML description of the recipe stored under handle.
func (e *Engine) Manifest(handle string) ([]byte, error) {
	data, err := e.artifacts.Manifest(handle)
	if err != nil {
		e.metrics.ObserveError("manifest", err)
		return nil, err
	}
	return data, nil
}

// Models describes every stored artifact, oldest first.
func (e *Engine) Models() []core.ModelInfo {
	handles := e.artifacts.Handles()
	out := make([]core.ModelInfo, 0, len(handles))
	for _, h := range handles {
		a, err := e.artifacts.Load(h)
		if err != nil {
			continue
		}
		out = append(out, core.ModelInfo{
			ModelID:      a.Handle,
			ModelType:    a.ModelKind,
			TargetColumn: a.Recipe.Target(),
			DownloadPath: DownloadPath(a.Handle),
			CreatedAt:    a.CreatedAt,
		})
	}
	return out
}
