package testutil

import (
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// MustTable builds a table or fails the test.
func MustTable(t testing.TB, columns ...*core.Column) *core.Table {
	t.Helper()
	tbl, err := core.NewTable(columns...)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return tbl
}

// Strings builds a fully observed categorical column.
func Strings(name string, values ...string) *core.Column {
	return core.NewCategoricalColumn(name, values, nil)
}

// Floats builds a numeric column.
func Floats(name string, values ...float64) *core.Column {
	return core.NewNumericColumn(name, values)
}

// Sequence builds a numeric column holding start, start+1, ... for n rows.
func Sequence(name string, start float64, n int) *core.Column {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)
	}
	return core.NewNumericColumn(name, values)
}

// Repeat returns the labels each repeated count times, in order.
func Repeat(count int, labels ...string) []string {
	out := make([]string, 0, count*len(labels))
	for _, l := range labels {
		for range count {
			out = append(out, l)
		}
	}
	return out
}

// BinaryTable returns a separable two-class table with n rows: two numeric
// features, one categorical feature and a numeric 0/1 target.
func BinaryTable(t testing.TB, n int) *core.Table {
	t.Helper()
	f1 := make([]float64, n)
	f2 := make([]float64, n)
	color := make([]string, n)
	target := make([]float64, n)
	for i := range n {
		cls := i % 2
		f1[i] = float64(i%7) + float64(cls)*10
		f2[i] = float64(cls)*2 - 1 + float64(i%3)*0.1
		color[i] = fmt.Sprintf("c%d", i%3)
		target[i] = float64(cls)
	}
	return MustTable(t,
		core.NewNumericColumn("feature1", f1),
		core.NewNumericColumn("feature2", f2),
		core.NewCategoricalColumn("color", color, nil),
		core.NewNumericColumn("target", target),
	)
}
