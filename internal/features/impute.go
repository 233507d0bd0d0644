package features

import (
	"math"
	"sort"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// median returns the median of the observed values of a numeric column, the
// mean of the two middle values for even counts. ok is false when nothing is
// observed.
func median(col *core.Column) (float64, bool) {
	observed := make([]float64, 0, len(col.Floats))
	for _, v := range col.Floats {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return 0, false
	}
	sort.Float64s(observed)
	mid := len(observed) / 2
	if len(observed)%2 == 1 {
		return observed[mid], true
	}
	return (observed[mid-1] + observed[mid]) / 2, true
}

// stringMode returns the most frequent observed value, the smallest on ties.
func stringMode(col *core.Column) (string, bool) {
	counts := make(map[string]int)
	for i, s := range col.Strings {
		if col.Valid[i] {
			counts[s]++
		}
	}
	var best string
	bestCount := 0
	for s, c := range counts {
		if c > bestCount || (c == bestCount && s < best) {
			best, bestCount = s, c
		}
	}
	return best, bestCount > 0
}

// floatMode returns the most frequent observed value, the smallest on ties.
func floatMode(col *core.Column) (float64, bool) {
	counts := make(map[float64]int)
	for _, v := range col.Floats {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	var best float64
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, bestCount > 0
}

func fillNumeric(v []float64, fill float64) int {
	filled := 0
	for i := range v {
		if math.IsNaN(v[i]) {
			v[i] = fill
			filled++
		}
	}
	return filled
}

func fillCategorical(col *core.Column, fill string) int {
	filled := 0
	for i := range col.Strings {
		if !col.Valid[i] {
			col.Strings[i] = fill
			col.Valid[i] = true
			filled++
		}
	}
	return filled
}
