package artifact

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapml/internal/features"
	"github.com/leapstack-labs/leapml/internal/ml"
	"github.com/leapstack-labs/leapml/internal/testutil"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/pkg/core"
)

type fitted struct {
	model  ml.Classifier
	recipe *features.Recipe
	table  *core.Table
}

func fitBinary(t *testing.T, kind core.ModelKind) fitted {
	t.Helper()
	tbl := testutil.BinaryTable(t, 30)
	p, err := features.Prepare(tbl, "target", nil, []core.PreprocessStep{{Kind: core.Standardize}})
	require.NoError(t, err)

	res, err := trainer.Train(trainer.Input{
		X:            p.X,
		Y:            p.Y,
		FeatureNames: p.Recipe.ExpandedColumns(),
	}, core.DefaultSplitConfig(), kind, nil)
	require.NoError(t, err)
	return fitted{model: res.Model, recipe: p.Recipe, table: tbl}
}

func TestStore_SaveLoad(t *testing.T) {
	f := fitBinary(t, core.DecisionTree)
	s := NewStore(testutil.NewTestLogger(t))

	h1 := s.Save(f.model, f.recipe, core.DecisionTree, []any{0.0, 1.0})
	h2 := s.Save(f.model, f.recipe, core.DecisionTree, []any{0.0, 1.0})
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, s.Len())
	assert.ElementsMatch(t, []string{h1, h2}, s.Handles())

	a, err := s.Load(h1)
	require.NoError(t, err)
	assert.Equal(t, h1, a.Handle)
	assert.Equal(t, core.DecisionTree, a.ModelKind)
	assert.Same(t, f.recipe, a.Recipe)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestStore_Unknown(t *testing.T) {
	s := NewStore(nil)

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.ExportBytes("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Manifest("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ExportRoundTrip(t *testing.T) {
	for _, kind := range []core.ModelKind{core.LogisticRegression, core.DecisionTree} {
		t.Run(string(kind), func(t *testing.T) {
			f := fitBinary(t, kind)
			s := NewStore(nil)
			handle := s.Save(f.model, f.recipe, kind, []any{0.0, 1.0})

			data, err := s.ExportBytes(handle)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, handle, decoded.Handle)
			assert.Equal(t, kind, decoded.ModelKind)
			assert.Equal(t, []any{0.0, 1.0}, decoded.TargetLabels)
			assert.Equal(t, f.recipe.ExpandedColumns(), decoded.Recipe.ExpandedColumns())

			records := make([]map[string]any, f.table.Rows())
			for i := range records {
				records[i] = f.table.Record(i)
			}
			x, err := f.recipe.Replay(records)
			require.NoError(t, err)

			want, err := f.model.Predict(x)
			require.NoError(t, err)
			got, err := decoded.Model.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("not a gob stream"))
	assert.ErrorIs(t, err, core.ErrInputFormat)
}

func TestStore_Manifest(t *testing.T) {
	f := fitBinary(t, core.LogisticRegression)
	s := NewStore(nil)
	handle := s.Save(f.model, f.recipe, core.LogisticRegression, []any{0.0, 1.0})

	out, err := s.Manifest(handle)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, yaml.Unmarshal(out, &m))
	assert.Equal(t, handle, m["handle"])
	assert.Equal(t, "logistic_regression", m["model_kind"])
	assert.Equal(t, "target", m["target"])
	assert.Equal(t, []any{"feature1", "feature2", "color"}, m["feature_columns"])
	assert.Len(t, m["scalers"], 1)
	assert.NotContains(t, m, "classes")
}

func TestStore_ConcurrentSaveLoad(t *testing.T) {
	f := fitBinary(t, core.DecisionTree)
	s := NewStore(nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := s.Save(f.model, f.recipe, core.DecisionTree, nil)
			_, err := s.Load(h)
			assert.NoError(t, err)
			_, err = s.ExportBytes(h)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, s.Len())
}
