package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/artifact"
	"github.com/leapstack-labs/leapml/internal/features"
	"github.com/leapstack-labs/leapml/internal/testutil"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// irisLike has a string target so predictions decode to class names.
func irisLike(t *testing.T) *core.Table {
	t.Helper()
	var length, width []float64
	var species []string
	for i := range 30 {
		switch i % 3 {
		case 0:
			length = append(length, 1+float64(i%4)*0.1)
			width = append(width, 0.2)
			species = append(species, "setosa")
		case 1:
			length = append(length, 4+float64(i%4)*0.1)
			width = append(width, 1.3)
			species = append(species, "versicolor")
		default:
			length = append(length, 6+float64(i%4)*0.1)
			width = append(width, 2.1)
			species = append(species, "virginica")
		}
	}
	return testutil.MustTable(t,
		testutil.Floats("petal_length", length...),
		testutil.Floats("petal_width", width...),
		testutil.Strings("species", species...),
	)
}

func newReplayer(t *testing.T, kind core.ModelKind) (*Replayer, string) {
	t.Helper()
	p, err := features.Prepare(irisLike(t), "species", nil, []core.PreprocessStep{{Kind: core.Standardize}})
	require.NoError(t, err)
	res, err := trainer.Train(trainer.Input{X: p.X, Y: p.Y, FeatureNames: p.Recipe.ExpandedColumns()},
		core.DefaultSplitConfig(), kind, nil)
	require.NoError(t, err)

	store := artifact.NewStore(nil)
	handle := store.Save(res.Model, p.Recipe, kind, []any{"setosa", "versicolor", "virginica"})
	return New(store, testutil.NewTestLogger(t)), handle
}

func TestReplayer_Predict(t *testing.T) {
	for _, kind := range []core.ModelKind{core.LogisticRegression, core.DecisionTree} {
		t.Run(string(kind), func(t *testing.T) {
			r, handle := newReplayer(t, kind)

			got, err := r.Predict(context.Background(), handle, []map[string]any{
				{"petal_length": 6.1, "petal_width": 2.1},
				{"petal_length": "1.0", "petal_width": 0.2},
				{"petal_length": 4.2, "petal_width": "1.3", "unused": true},
			})
			require.NoError(t, err)
			assert.Equal(t, []any{"virginica", "setosa", "versicolor"}, got)
		})
	}
}

func TestReplayer_StringAndNumberAgree(t *testing.T) {
	r, handle := newReplayer(t, core.LogisticRegression)

	a, err := r.Predict(context.Background(), handle, []map[string]any{{"petal_length": "4", "petal_width": 1.3}})
	require.NoError(t, err)
	b, err := r.Predict(context.Background(), handle, []map[string]any{{"petal_length": 4, "petal_width": 1.3}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReplayer_Errors(t *testing.T) {
	r, handle := newReplayer(t, core.DecisionTree)
	ctx := context.Background()

	_, err := r.Predict(ctx, "unknown", []map[string]any{{"petal_length": 1}})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = r.Predict(ctx, handle, nil)
	assert.ErrorIs(t, err, core.ErrEmptyInput)

	_, err = r.Predict(ctx, handle, []map[string]any{{"sepal": 1}})
	require.ErrorIs(t, err, core.ErrSchema)
	assert.Contains(t, err.Error(), "petal_length, petal_width")
}
