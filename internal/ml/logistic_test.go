package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// blobs returns three well separated 2-D clusters of size per class.
func blobs(per int) (*mat.Dense, []float64) {
	centers := [][2]float64{{0, 0}, {5, 5}, {-5, 5}}
	x := mat.NewDense(per*len(centers), 2, nil)
	y := make([]float64, 0, per*len(centers))
	row := 0
	for c, center := range centers {
		for i := range per {
			dx := float64(i%3)*0.2 - 0.2
			dy := float64(i%2)*0.2 - 0.1
			x.Set(row, 0, center[0]+dx)
			x.Set(row, 1, center[1]+dy)
			y = append(y, float64(c))
			row++
		}
	}
	return x, y
}

func TestLogisticRegression_FitPredict(t *testing.T) {
	x, y := blobs(10)
	m := NewLogisticRegression()
	require.NoError(t, m.Fit(x, y))

	pred, err := m.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, 1.0, Accuracy(y, pred))
	assert.Equal(t, []float64{0, 1, 2}, m.Classes)

	coef := m.Coefficients()
	r, c := coef.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)

	proba, err := m.PredictProba(x)
	require.NoError(t, err)
	for i := range 3 {
		assert.InDelta(t, 1.0, floats.Sum(proba.RawRowView(i)), 1e-9)
	}
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	x, y := blobs(6)
	a, b := NewLogisticRegression(), NewLogisticRegression()
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))
	assert.Equal(t, a.Coef, b.Coef)
	assert.Equal(t, a.Intercept, b.Intercept)
}

func TestLogisticRegression_Errors(t *testing.T) {
	t.Run("single class", func(t *testing.T) {
		x := mat.NewDense(3, 1, []float64{1, 2, 3})
		err := NewLogisticRegression().Fit(x, []float64{1, 1, 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 2 classes")
	})

	t.Run("label count mismatch", func(t *testing.T) {
		x := mat.NewDense(3, 1, []float64{1, 2, 3})
		assert.Error(t, NewLogisticRegression().Fit(x, []float64{0, 1}))
	})

	t.Run("unfitted predict", func(t *testing.T) {
		_, err := NewLogisticRegression().Predict(mat.NewDense(1, 1, nil))
		assert.Error(t, err)
	})

	t.Run("feature mismatch", func(t *testing.T) {
		x, y := blobs(4)
		m := NewLogisticRegression()
		require.NoError(t, m.Fit(x, y))
		_, err := m.Predict(mat.NewDense(1, 3, nil))
		var dimErr *DimensionError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 2, dimErr.Want)
		assert.Equal(t, 3, dimErr.Got)
	})
}
