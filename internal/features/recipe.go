package features

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"maps"
	"strconv"
)

// LabelEncoder maps string target classes to their index in Classes, which is
// sorted ascending.
type LabelEncoder struct {
	Classes []string
}

// Recipe is the ordered, immutable record of every fitted transform applied
// while preparing a dataset. Replaying it on raw records reproduces the column
// layout the model was trained on.
type Recipe struct {
	target          string
	featureColumns  []string
	numericFill     map[string]float64
	categoricalFill map[string]string
	scalers         []ScalerStep
	expandedColumns []string
	labels          *LabelEncoder
}

// Target returns the target column name.
func (r *Recipe) Target() string { return r.target }

// FeatureColumns returns the raw feature columns in order.
func (r *Recipe) FeatureColumns() []string { return append([]string(nil), r.featureColumns...) }

// NumericFill returns the median used for each numeric feature column.
func (r *Recipe) NumericFill() map[string]float64 { return maps.Clone(r.numericFill) }

// CategoricalFill returns the mode used for each categorical feature column.
func (r *Recipe) CategoricalFill() map[string]string { return maps.Clone(r.categoricalFill) }

// Scalers returns the fitted scaling steps in application order.
func (r *Recipe) Scalers() []ScalerStep {
	out := make([]ScalerStep, len(r.scalers))
	for i, s := range r.scalers {
		out[i] = s.clone()
	}
	return out
}

// ExpandedColumns returns the model input columns after one-hot expansion.
func (r *Recipe) ExpandedColumns() []string { return append([]string(nil), r.expandedColumns...) }

// LabelEncoder returns the target encoder, or nil for a numeric target.
func (r *Recipe) LabelEncoder() *LabelEncoder {
	if r.labels == nil {
		return nil
	}
	return &LabelEncoder{Classes: append([]string(nil), r.labels.Classes...)}
}

// IsNumeric reports whether a feature column was numeric at training time.
func (r *Recipe) IsNumeric(column string) bool {
	_, ok := r.numericFill[column]
	return ok
}

// DecodeLabel maps an encoded prediction back to the original target value:
// a class string when the target was label encoded, the float otherwise.
func (r *Recipe) DecodeLabel(v float64) any {
	if r.labels == nil {
		return v
	}
	i := int(v)
	if i < 0 || i >= len(r.labels.Classes) {
		return nil
	}
	return r.labels.Classes[i]
}

// Labels decodes each of values.
func (r *Recipe) Labels(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = r.DecodeLabel(v)
	}
	return out
}

// recipeWire is the gob representation of a Recipe.
type recipeWire struct {
	Target          string
	FeatureColumns  []string
	NumericFill     map[string]float64
	CategoricalFill map[string]string
	Scalers         []ScalerStep
	ExpandedColumns []string
	Labels          *LabelEncoder
}

// GobEncode implements gob.GobEncoder.
func (r *Recipe) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(recipeWire{
		Target:          r.target,
		FeatureColumns:  r.featureColumns,
		NumericFill:     r.numericFill,
		CategoricalFill: r.categoricalFill,
		Scalers:         r.scalers,
		ExpandedColumns: r.expandedColumns,
		Labels:          r.labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipe: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (r *Recipe) GobDecode(data []byte) error {
	var w recipeWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("failed to decode recipe: %w", err)
	}
	*r = Recipe{
		target:          w.Target,
		featureColumns:  w.FeatureColumns,
		numericFill:     w.NumericFill,
		categoricalFill: w.CategoricalFill,
		scalers:         w.Scalers,
		expandedColumns: w.ExpandedColumns,
		labels:          w.Labels,
	}
	if r.numericFill == nil {
		r.numericFill = map[string]float64{}
	}
	if r.categoricalFill == nil {
		r.categoricalFill = map[string]string{}
	}
	return nil
}

// formatValue renders a fill value the way it appears in warnings.
func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
