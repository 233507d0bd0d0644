package artifact

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapml/internal/features"
	"github.com/leapstack-labs/leapml/internal/ml"
	"github.com/leapstack-labs/leapml/pkg/core"
)

// FormatVersion identifies the export layout.
const FormatVersion = 1

type bundle struct {
	Version      int
	Handle       string
	ModelKind    core.ModelKind
	Model        ml.Classifier
	Recipe       *features.Recipe
	TargetLabels []any
	CreatedAt    time.Time
}

// Encode serializes an artifact with encoding/gob.
func Encode(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&bundle{
		Version:      FormatVersion,
		Handle:       a.Handle,
		ModelKind:    a.ModelKind,
		Model:        a.Model,
		Recipe:       a.Recipe,
		TargetLabels: a.TargetLabels,
		CreatedAt:    a.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Artifact, error) {
	var b bundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, core.InputFormatErrorf("failed to decode artifact: %v", err)
	}
	if b.Version != FormatVersion {
		return nil, core.InputFormatErrorf("unsupported artifact version %d", b.Version)
	}
	if b.Model == nil || b.Recipe == nil {
		return nil, core.InputFormatErrorf("artifact is missing its model or recipe")
	}
	return &Artifact{
		Handle:       b.Handle,
		Model:        b.Model,
		Recipe:       b.Recipe,
		ModelKind:    b.ModelKind,
		TargetLabels: b.TargetLabels,
		CreatedAt:    b.CreatedAt,
	}, nil
}
