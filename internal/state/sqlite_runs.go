package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// DefaultRunLimit bounds ListRuns when no limit is given.
const DefaultRunLimit = 50

const runColumns = `id, kind, dataset_id, model_id, model_kind, status, error_kind, error,
	accuracy, row_count, started_at, completed_at`

// StartRun records a new running run.
func (s *SQLiteStore) StartRun(ctx context.Context, kind core.RunKind, datasetID, modelID string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Kind:      kind,
		DatasetID: datasetID,
		ModelID:   modelID,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("kind", string(kind)))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, dataset_id, model_id, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), nullString(datasetID), nullString(modelID), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the outcome of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, outcome Outcome) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errKind, errMsg sql.NullString
	if outcome.Err != nil {
		errMsg = sql.NullString{String: outcome.Err.Error(), Valid: true}
		if kind := core.KindOf(outcome.Err); kind != "" {
			errKind = sql.NullString{String: string(kind), Valid: true}
		}
	}
	var accuracy sql.NullFloat64
	if outcome.Accuracy != nil {
		accuracy = sql.NullFloat64{Float64: *outcome.Accuracy, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, model_id = COALESCE(?, model_id), model_kind = ?, error_kind = ?, error = ?,
			accuracy = ?, row_count = ?, completed_at = ? WHERE id = ?`,
		string(outcome.Status), nullString(outcome.ModelID), nullString(string(outcome.ModelKind)),
		errKind, errMsg, accuracy, outcome.Rows, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	var (
		run                           core.Run
		kind, status, startedAt       string
		datasetID, modelID, modelKind sql.NullString
		errKind, errMsg, completedAt  sql.NullString
		accuracy                      sql.NullFloat64
	)
	err := row.Scan(&run.ID, &kind, &datasetID, &modelID, &modelKind, &status, &errKind, &errMsg,
		&accuracy, &run.Rows, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Kind = core.RunKind(kind)
	run.Status = core.RunStatus(status)
	run.DatasetID = datasetID.String
	run.ModelID = modelID.String
	run.ModelKind = core.ModelKind(modelKind.String)
	run.ErrorKind = core.ErrorKind(errKind.String)
	run.Error = errMsg.String
	if accuracy.Valid {
		run.Accuracy = &accuracy.Float64
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
