// Package guard checks that every target class has enough rows to be split
// into train and test sets.
package guard

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/internal/ml"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// MinClassCount is the smallest class size that is not rare.
const MinClassCount = 2

// Result is the outcome of a balance check.
type Result struct {
	X *mat.Dense
	Y []float64
	// Stop is set when fewer than two classes remain after dropping rare ones;
	// X is nil in that case.
	Stop     bool
	Warnings []string
}

// Guard checks target class sizes. With dropRare unset any rare class is an
// ImbalancedDataError; with it set, rows of rare classes are removed. label
// renders a class for messages and may be nil.
func Guard(x *mat.Dense, y []float64, dropRare bool, label func(float64) any) (*Result, error) {
	if label == nil {
		label = func(v float64) any { return v }
	}

	counts := make(map[float64]int)
	for _, v := range y {
		counts[v]++
	}
	var rare []float64
	for v, c := range counts {
		if c < MinClassCount {
			rare = append(rare, v)
		}
	}
	if len(rare) == 0 {
		return &Result{X: x, Y: y}, nil
	}
	sort.Float64s(rare)

	parts := make([]string, len(rare))
	for i, v := range rare {
		parts[i] = fmt.Sprintf("%v (%d)", label(v), counts[v])
	}
	listing := strings.Join(parts, ", ")

	if !dropRare {
		return nil, core.ImbalancedDataErrorf(
			"The least populated classes have fewer than %d samples: %s. "+
				"Remove or merge these classes, or set drop_rare_classes to drop them automatically.",
			MinClassCount, listing)
	}

	isRare := make(map[float64]bool, len(rare))
	for _, v := range rare {
		isRare[v] = true
	}
	var keep []int
	for i, v := range y {
		if !isRare[v] {
			keep = append(keep, i)
		}
	}

	res := &Result{
		Warnings: []string{fmt.Sprintf("Dropped classes with fewer than %d samples: %s.", MinClassCount, listing)},
	}
	if len(counts)-len(rare) < 2 {
		res.Stop = true
		res.Warnings = append(res.Warnings, "Fewer than 2 classes remain after dropping rare classes; training skipped.")
		return res, nil
	}

	res.X = ml.SelectRows(x, keep)
	res.Y = ml.SelectLabels(y, keep)
	return res, nil
}
