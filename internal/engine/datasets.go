package engine

import (
	"context"
	"io"

	"github.com/leapstack-labs/leapml/internal/dataset"
	"github.com/leapstack-labs/leapml/internal/metrics"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// Upload parses an uploaded file, registers it and returns its summary.
func (e *Engine) Upload(ctx context.Context, filename string, r io.Reader) (*core.DatasetSummary, error) {
	table, err := e.ingestor.Parse(ctx, filename, r)
	if err != nil {
		e.metrics.UploadsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		e.metrics.ObserveError("upload", err)
		return nil, err
	}

	id := e.datasets.Add(filename, table)
	e.metrics.UploadsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	e.metrics.Datasets.Set(float64(e.datasets.Len()))
	e.logger.Info("dataset uploaded", "dataset_id", id, "filename", filename,
		"rows", table.Rows(), "columns", len(table.Columns))
	return dataset.Summarize(id, table), nil
}

// Dataset returns the summary of a registered dataset.
func (e *Engine) Dataset(id string) (*core.DatasetSummary, error) {
	table, err := e.datasets.Get(id)
	if err != nil {
		return nil, err
	}
	return dataset.Summarize(id, table), nil
}

// ListDatasets describes every registered dataset.
func (e *Engine) ListDatasets() []dataset.Info {
	return e.datasets.List()
}
