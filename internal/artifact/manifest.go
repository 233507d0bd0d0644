package artifact

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type scalerManifest struct {
	Kind    string             `yaml:"kind"`
	Columns []string           `yaml:"columns"`
	Offset  map[string]float64 `yaml:"offset"`
	Scale   map[string]float64 `yaml:"scale"`
}

type manifest struct {
	Handle          string             `yaml:"handle"`
	ModelKind       string             `yaml:"model_kind"`
	CreatedAt       time.Time          `yaml:"created_at"`
	Target          string             `yaml:"target"`
	FeatureColumns  []string           `yaml:"feature_columns"`
	NumericFill     map[string]float64 `yaml:"numeric_fill,omitempty"`
	CategoricalFill map[string]string  `yaml:"categorical_fill,omitempty"`
	Scalers         []scalerManifest   `yaml:"scalers,omitempty"`
	ExpandedColumns []string           `yaml:"expanded_columns"`
	Classes         []string           `yaml:"classes,omitempty"`
	TargetLabels    []any              `yaml:"target_labels"`
}

// Manifest renders the recipe of the artifact stored under handle as YAML.
func (s *Store) Manifest(handle string) ([]byte, error) {
	a, err := s.Load(handle)
	if err != nil {
		return nil, err
	}

	r := a.Recipe
	m := manifest{
		Handle:          a.Handle,
		ModelKind:       string(a.ModelKind),
		CreatedAt:       a.CreatedAt,
		Target:          r.Target(),
		FeatureColumns:  r.FeatureColumns(),
		NumericFill:     r.NumericFill(),
		CategoricalFill: r.CategoricalFill(),
		ExpandedColumns: r.ExpandedColumns(),
		TargetLabels:    a.TargetLabels,
	}
	for _, step := range r.Scalers() {
		sm := scalerManifest{
			Kind:    string(step.Kind),
			Columns: step.Columns,
			Offset:  make(map[string]float64, len(step.Columns)),
			Scale:   make(map[string]float64, len(step.Columns)),
		}
		for i, col := range step.Columns {
			sm.Offset[col] = step.Offset[i]
			sm.Scale[col] = step.Scale[i]
		}
		m.Scalers = append(m.Scalers, sm)
	}
	if enc := r.LabelEncoder(); enc != nil {
		m.Classes = enc.Classes
	}

	out, err := yaml.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}
	return out, nil
}
