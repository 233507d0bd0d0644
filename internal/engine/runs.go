package engine

import (
	"context"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// Runs returns the most recent runs, newest first. A non-positive limit uses
// state.DefaultRunLimit.
func (e *Engine) Runs(ctx context.Context, limit int) ([]*core.Run, error) {
	return e.store.ListRuns(ctx, limit)
}
