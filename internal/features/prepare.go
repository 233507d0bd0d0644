// Package features turns a raw table into a model-ready matrix and records
// every fitted transform in a Recipe, which can later be replayed on raw
// records at prediction time.
package features

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// Prepared is a model-ready dataset and the recipe that produced it.
type Prepared struct {
	// X has one column per Recipe.ExpandedColumns entry, in that order.
	X        *mat.Dense
	Y        []float64
	Recipe   *Recipe
	Warnings []string
}

// Prepare selects feature columns, imputes missing values, applies the scaling
// steps in order, one-hot expands categorical columns and encodes the target.
// The input table is not modified.
func Prepare(table *core.Table, target string, requested []string, steps []core.PreprocessStep) (*Prepared, error) {
	targetCol, ok := table.Column(target)
	if !ok {
		return nil, core.SchemaErrorf("Target column not found in dataset.")
	}
	if table.Rows() == 0 {
		return nil, core.EmptyInputErrorf("Dataset contains no rows.")
	}

	featureNames, warnings, err := resolveFeatures(table, target, requested)
	if err != nil {
		return nil, err
	}

	recipe := &Recipe{
		target:          target,
		featureColumns:  featureNames,
		numericFill:     make(map[string]float64),
		categoricalFill: make(map[string]string),
	}

	cols := make([]*core.Column, len(featureNames))
	byName := make(map[string]*core.Column, len(featureNames))
	for i, name := range featureNames {
		src, _ := table.Column(name)
		col := src.Clone()
		if err := impute(col, recipe); err != nil {
			return nil, err
		}
		cols[i] = col
		byName[name] = col
	}

	y, labels, warning, err := encodeTarget(targetCol)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		warnings = append(warnings, warning)
	}
	recipe.labels = labels

	numeric := numericColumns(cols)
	for _, step := range steps {
		selected := numeric
		if len(step.Columns) > 0 {
			var skipped []string
			selected, skipped = intersect(dedupe(step.Columns), numeric)
			if len(skipped) > 0 {
				warnings = append(warnings, fmt.Sprintf("Skipped non-numeric or missing columns for %s: %s",
					step.Kind, strings.Join(skipped, ", ")))
			}
		}
		if len(selected) == 0 {
			continue
		}

		values := make([][]float64, len(selected))
		for i, name := range selected {
			values[i] = byName[name].Floats
		}
		scaler := fitScaler(step.Kind, selected, values)
		for i := range selected {
			scaler.apply(i, values[i])
		}
		recipe.scalers = append(recipe.scalers, scaler)
	}

	x, expanded, err := expand(cols, table.Rows())
	if err != nil {
		return nil, err
	}
	recipe.expandedColumns = expanded

	return &Prepared{X: x, Y: y, Recipe: recipe, Warnings: warnings}, nil
}

// resolveFeatures returns the requested feature columns, or every non-target
// column in table order when none were requested.
func resolveFeatures(table *core.Table, target string, requested []string) ([]string, []string, error) {
	var warnings []string
	if len(requested) == 0 {
		var names []string
		for _, name := range table.Names() {
			if name != target {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, nil, core.SchemaErrorf("No feature columns selected.")
		}
		return names, nil, nil
	}

	var names, absent []string
	for _, name := range dedupe(requested) {
		if name == target {
			warnings = append(warnings, fmt.Sprintf("Target column %s removed from feature columns.", target))
			continue
		}
		if _, ok := table.Column(name); !ok {
			absent = append(absent, name)
			continue
		}
		names = append(names, name)
	}
	if len(absent) > 0 {
		return nil, nil, core.SchemaErrorf("Feature columns not found in dataset: %s", strings.Join(absent, ", "))
	}
	if len(names) == 0 {
		return nil, nil, core.SchemaErrorf("No feature columns selected.")
	}
	return names, warnings, nil
}

func impute(col *core.Column, recipe *Recipe) error {
	if col.Kind == core.KindNumeric {
		fill, ok := median(col)
		if !ok {
			return core.SchemaErrorf("Feature column %s has no observed values.", col.Name)
		}
		fillNumeric(col.Floats, fill)
		recipe.numericFill[col.Name] = fill
		return nil
	}

	fill, ok := stringMode(col)
	if !ok {
		return core.SchemaErrorf("Feature column %s has no observed values.", col.Name)
	}
	fillCategorical(col, fill)
	recipe.categoricalFill[col.Name] = fill
	return nil
}

// encodeTarget fills missing target values with the mode and label encodes a
// categorical target.
func encodeTarget(src *core.Column) ([]float64, *LabelEncoder, string, error) {
	col := src.Clone()
	var warning string

	if col.Kind == core.KindNumeric {
		fill, ok := floatMode(col)
		if !ok {
			return nil, nil, "", core.SchemaErrorf("Target column %s has no observed values.", col.Name)
		}
		if fillNumeric(col.Floats, fill) > 0 {
			warning = fmt.Sprintf("Missing target values filled with mode: %s.", formatValue(fill))
		}
		return col.Floats, nil, warning, nil
	}

	fill, ok := stringMode(col)
	if !ok {
		return nil, nil, "", core.SchemaErrorf("Target column %s has no observed values.", col.Name)
	}
	if fillCategorical(col, fill) > 0 {
		warning = fmt.Sprintf("Missing target values filled with mode: %s.", fill)
	}

	classes := sortedDistinct(col.Strings)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]float64, len(col.Strings))
	for i, s := range col.Strings {
		y[i] = float64(index[s])
	}
	return y, &LabelEncoder{Classes: classes}, warning, nil
}

// expand lays out numeric columns first, then one indicator column per sorted
// category of each categorical column, named <column>_<category>. Two
// expanded columns with the same name are a schema error.
func expand(cols []*core.Column, rows int) (*mat.Dense, []string, error) {
	var names []string
	var numeric, categorical []*core.Column
	categories := make(map[string][]string)
	for _, col := range cols {
		if col.Kind == core.KindNumeric {
			numeric = append(numeric, col)
			names = append(names, col.Name)
		} else {
			categorical = append(categorical, col)
		}
	}
	for _, col := range categorical {
		categories[col.Name] = sortedDistinct(col.Strings)
		for _, c := range categories[col.Name] {
			names = append(names, dummyName(col.Name, c))
		}
	}
	if dup := duplicates(names); len(dup) > 0 {
		return nil, nil, core.SchemaErrorf("Expanded feature columns collide: %s", strings.Join(dup, ", "))
	}

	x := mat.NewDense(rows, len(names), nil)
	for j, col := range numeric {
		x.SetCol(j, col.Floats)
	}
	offset := len(numeric)
	for _, col := range categorical {
		levels := categories[col.Name]
		for i, s := range col.Strings {
			k := sort.SearchStrings(levels, s)
			x.Set(i, offset+k, 1)
		}
		offset += len(levels)
	}
	return x, names, nil
}

// duplicates returns each name that occurs more than once, in first-seen order.
func duplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	var dup []string
	for _, name := range names {
		seen[name]++
		if seen[name] == 2 {
			dup = append(dup, name)
		}
	}
	return dup
}

func dummyName(column, category string) string {
	return column + "_" + category
}

func numericColumns(cols []*core.Column) []string {
	var names []string
	for _, col := range cols {
		if col.Kind == core.KindNumeric {
			names = append(names, col.Name)
		}
	}
	return names
}

// intersect splits requested into names present in allowed and the rest,
// both in requested order.
func intersect(requested, allowed []string) (kept, dropped []string) {
	for _, name := range requested {
		if slices.Contains(allowed, name) {
			kept = append(kept, name)
		} else {
			dropped = append(dropped, name)
		}
	}
	return kept, dropped
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func sortedDistinct(values []string) []string {
	out := dedupe(values)
	sort.Strings(out)
	return out
}
