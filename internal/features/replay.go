package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// Replay applies the recipe to raw records. The result has one row per record,
// in input order, and exactly the columns of ExpandedColumns: categories never
// seen during preparation produce all-zero indicator columns and unknown record
// keys are ignored.
func (r *Recipe) Replay(records []map[string]any) (*mat.Dense, error) {
	if len(records) == 0 {
		return nil, core.EmptyInputErrorf("No records provided for prediction.")
	}

	var absent []string
	for _, name := range r.featureColumns {
		if !anyHas(records, name) {
			absent = append(absent, name)
		}
	}
	if len(absent) > 0 {
		return nil, core.SchemaErrorf("Records are missing feature columns: %s", strings.Join(absent, ", "))
	}

	n := len(records)
	index := make(map[string]int, len(r.expandedColumns))
	for j, name := range r.expandedColumns {
		index[name] = j
	}
	x := mat.NewDense(n, len(r.expandedColumns), nil)

	numeric := make(map[string][]float64)
	for _, name := range r.featureColumns {
		if !r.IsNumeric(name) {
			continue
		}
		fill := r.numericFill[name]
		values := make([]float64, n)
		for i, rec := range records {
			v, present := coerceNumeric(rec[name])
			if !present {
				v = fill
			}
			values[i] = v
		}
		numeric[name] = values
	}

	for _, step := range r.scalers {
		for i, name := range step.Columns {
			if values, ok := numeric[name]; ok {
				step.apply(i, values)
			}
		}
	}

	for _, name := range r.featureColumns {
		if values, ok := numeric[name]; ok {
			if j, ok := index[name]; ok {
				x.SetCol(j, values)
			}
			continue
		}

		fill := r.categoricalFill[name]
		for i, rec := range records {
			s, present := stringify(rec[name])
			if !present {
				s = fill
			}
			if j, ok := index[dummyName(name, s)]; ok {
				x.Set(i, j, 1)
			}
		}
	}
	return x, nil
}

func anyHas(records []map[string]any, key string) bool {
	for _, rec := range records {
		if _, ok := rec[key]; ok {
			return true
		}
	}
	return false
}

// coerceNumeric converts a raw record value to a number. Values that cannot be
// read as a finite number count as missing.
func coerceNumeric(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringify renders a raw categorical value; nil counts as missing.
func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	default:
		return formatValue(x), true
	}
}
