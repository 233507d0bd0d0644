package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapml/internal/features"
	"github.com/leapstack-labs/leapml/internal/guard"
	"github.com/leapstack-labs/leapml/internal/metrics"
	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// DownloadPath returns the HTTP path an artifact can be exported from.
func DownloadPath(handle string) string {
	return fmt.Sprintf("/api/pipeline/models/%s/download", handle)
}

// trainOutput is what a training run produced on the worker.
type trainOutput struct {
	prepared *features.Prepared
	guarded  *guard.Result
	result   *trainer.Result
}

// Train runs one pipeline: prepare, guard, train, evaluate and save. A run
// that ends with fewer than two classes after dropping rare ones succeeds
// without an artifact.
func (e *Engine) Train(ctx context.Context, req core.TrainRequest) (*core.TrainResponse, error) {
	if err := req.Validate(); err != nil {
		e.metrics.ObserveError("train", err)
		return nil, err
	}
	if _, err := trainer.NewModel(req.Model, req.Split.Seed); err != nil {
		e.metrics.ObserveError("train", err)
		return nil, err
	}
	table, err := e.datasets.Get(req.DatasetID)
	if err != nil {
		e.metrics.ObserveError("train", err)
		return nil, err
	}

	run := e.startRun(ctx, core.RunKindTrain, req.DatasetID, "")
	start := time.Now()

	var out trainOutput
	err = e.pool.Do(ctx, func() error {
		prepared, err := features.Prepare(table, req.TargetColumn, req.FeatureColumns, req.Preprocess)
		if err != nil {
			return err
		}
		out.prepared = prepared

		guarded, err := guard.Guard(prepared.X, prepared.Y, req.DropRareClasses, prepared.Recipe.DecodeLabel)
		if err != nil {
			return err
		}
		out.guarded = guarded
		if guarded.Stop {
			return nil
		}

		in := trainer.Input{
			X:            guarded.X,
			Y:            guarded.Y,
			FeatureNames: prepared.Recipe.ExpandedColumns(),
			Decode:       prepared.Recipe.DecodeLabel,
		}
		if enc := prepared.Recipe.LabelEncoder(); enc != nil {
			in.Labels = make([]float64, len(enc.Classes))
			for i := range enc.Classes {
				in.Labels[i] = float64(i)
			}
		}
		out.result, err = trainer.Train(in, *req.Split, req.Model, e.logger)
		return err
	})
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.ObserveRun(req.Model, metrics.OutcomeError, elapsed)
		e.metrics.ObserveError("train", err)
		e.completeRun(ctx, run, state.Outcome{Status: core.RunStatusFailed, ModelKind: req.Model, Rows: table.Rows(), Err: err})
		return nil, err
	}

	warnings := append(append([]string{}, out.prepared.Warnings...), out.guarded.Warnings...)

	if out.guarded.Stop {
		e.logger.Info("training skipped", "dataset_id", req.DatasetID, "model", req.Model)
		e.metrics.ObserveRun(req.Model, metrics.OutcomeSkipped, elapsed)
		e.completeRun(ctx, run, state.Outcome{Status: core.RunStatusSkipped, ModelKind: req.Model, Rows: table.Rows()})
		return &core.TrainResponse{
			Status:   core.StatusSuccess,
			Message:  "Not enough classes remain after dropping rare classes; no model was trained.",
			Warnings: warnings,
		}, nil
	}

	res := out.result
	handle := e.artifacts.Save(res.Model, out.prepared.Recipe, req.Model, res.ConfusionMatrix.Labels)
	e.metrics.Artifacts.Set(float64(e.artifacts.Len()))
	e.metrics.ObserveRun(req.Model, metrics.OutcomeSuccess, elapsed)

	accuracy := res.Accuracy
	e.completeRun(ctx, run, state.Outcome{
		Status:    core.RunStatusCompleted,
		ModelID:   handle,
		ModelKind: req.Model,
		Accuracy:  &accuracy,
		Rows:      len(out.guarded.Y),
	})

	e.logger.Info("training completed",
		slog.String("dataset_id", req.DatasetID),
		slog.String("model", string(req.Model)),
		slog.String("model_id", handle),
		slog.Float64("accuracy", accuracy),
		slog.Duration("elapsed", elapsed))

	cm := res.ConfusionMatrix
	resp := &core.TrainResponse{
		Status:            core.StatusSuccess,
		Accuracy:          &accuracy,
		ConfusionMatrix:   &cm,
		Warnings:          warnings,
		ModelType:         req.Model,
		ModelID:           handle,
		ModelDownloadPath: DownloadPath(handle),
	}
	if res.ImportancesAvailable {
		resp.FeatureImportances = res.Importances
	}
	return resp, nil
}

// startRun records a run start. Failures are logged and yield a nil run so
// history problems never fail the pipeline. History writes outlive the
// request context so a cancelled run is still closed out.
func (e *Engine) startRun(ctx context.Context, kind core.RunKind, datasetID, modelID string) *core.Run {
	run, err := e.store.StartRun(context.WithoutCancel(ctx), kind, datasetID, modelID)
	if err != nil {
		e.logger.Warn("failed to record run start", "kind", kind, "error", err)
		return nil
	}
	return run
}

func (e *Engine) completeRun(ctx context.Context, run *core.Run, outcome state.Outcome) {
	if run == nil {
		return
	}
	if err := e.store.CompleteRun(context.WithoutCancel(ctx), run.ID, outcome); err != nil {
		e.logger.Warn("failed to record run completion", "run_id", run.ID, "error", err)
	}
}
