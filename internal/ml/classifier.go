// Package ml implements the classifiers and evaluation helpers used by the
// trainer. Models operate on gonum matrices whose columns are the expanded
// feature columns of a recipe, and on float64 class labels.
//
// Model types keep their fitted state in exported fields so that artifacts can
// be gob encoded.
package ml

import (
	"encoding/gob"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&LogisticRegression{})
	gob.Register(&DecisionTree{})
}

// Classifier is a fitted or unfitted classification model.
type Classifier interface {
	// Fit trains the model on X (rows x features) and labels y.
	Fit(X mat.Matrix, y []float64) error

	// Predict returns one label per row of X.
	Predict(X mat.Matrix) ([]float64, error)
}

// CoefficientModel exposes per-class linear weights (classes x features).
type CoefficientModel interface {
	Coefficients() *mat.Dense
}

// ImportanceModel exposes normalized per-feature importances.
type ImportanceModel interface {
	FeatureImportances() []float64
}

// DimensionError reports a feature count mismatch at prediction time.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("model expects %d features, got %d", e.Want, e.Got)
}

// UniqueSorted returns the distinct values of y in ascending order.
func UniqueSorted(y []float64) []float64 {
	seen := make(map[float64]struct{}, len(y))
	out := make([]float64, 0)
	for _, v := range y {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func classIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}
