package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// ScalerStep is one fitted scaling step: value -> (value - Offset) / Scale for
// each of Columns.
type ScalerStep struct {
	Kind    core.PreprocessKind
	Columns []string
	Offset  []float64
	Scale   []float64
}

// fitScaler fits a scaler over the given column values (one slice per column).
// Standardize uses the mean and population standard deviation; normalize uses
// the minimum and range. A zero spread scales by 1.
func fitScaler(kind core.PreprocessKind, columns []string, values [][]float64) ScalerStep {
	step := ScalerStep{
		Kind:    kind,
		Columns: append([]string(nil), columns...),
		Offset:  make([]float64, len(columns)),
		Scale:   make([]float64, len(columns)),
	}
	for i, v := range values {
		var offset, spread float64
		switch kind {
		case core.Normalize:
			offset = floats.Min(v)
			spread = floats.Max(v) - offset
		default:
			mean, variance := stat.PopMeanVariance(v, nil)
			offset = mean
			spread = math.Sqrt(variance)
		}
		if spread == 0 || math.IsNaN(spread) {
			spread = 1
		}
		step.Offset[i] = offset
		step.Scale[i] = spread
	}
	return step
}

// apply scales v in place as column i of the step.
func (s ScalerStep) apply(i int, v []float64) {
	for j := range v {
		v[j] = (v[j] - s.Offset[i]) / s.Scale[i]
	}
}

func (s ScalerStep) clone() ScalerStep {
	return ScalerStep{
		Kind:    s.Kind,
		Columns: append([]string(nil), s.Columns...),
		Offset:  append([]float64(nil), s.Offset...),
		Scale:   append([]float64(nil), s.Scale...),
	}
}
