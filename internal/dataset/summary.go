package dataset

import (
	"math"

	"github.com/leapstack-labs/leapml/pkg/core"
)

// PreviewRows is the number of leading rows included in a summary.
const PreviewRows = 5

// Summarize describes a registered table. Missing preview values are reported
// as the string "null" and infinite ones as "inf" or "-inf", so the preview
// always encodes as JSON.
func Summarize(id string, table *core.Table) *core.DatasetSummary {
	summary := &core.DatasetSummary{
		DatasetID:   id,
		Rows:        table.Rows(),
		Columns:     len(table.Columns),
		ColumnNames: table.Names(),
		Dtypes:      make(map[string]string, len(table.Columns)),
	}
	for _, col := range table.Columns {
		summary.Dtypes[col.Name] = col.Kind.String()
	}

	n := min(PreviewRows, table.Rows())
	summary.Preview = make([]map[string]any, n)
	for i := range n {
		rec := table.Record(i)
		for k, v := range rec {
			rec[k] = previewValue(v)
		}
		summary.Preview[i] = rec
	}
	return summary
}

func previewValue(v any) any {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		switch {
		case math.IsInf(x, 1):
			return "inf"
		case math.IsInf(x, -1):
			return "-inf"
		case math.IsNaN(x):
			return "null"
		}
	}
	return v
}
