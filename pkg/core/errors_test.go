package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := SchemaErrorf("Target column not found in dataset.")
	wrapped := fmt.Errorf("failed to prepare: %w", err)

	assert.ErrorIs(t, wrapped, ErrSchema)
	assert.NotErrorIs(t, wrapped, ErrTraining)
	assert.Equal(t, KindSchema, KindOf(wrapped))
	assert.Equal(t, "Target column not found in dataset.", err.Error())
}

func TestError_WrapTraining(t *testing.T) {
	cause := errors.New("weights diverged")
	err := WrapTraining(cause, "model fit failed")

	assert.ErrorIs(t, err, ErrTraining)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "model fit failed: weights diverged", err.Error())
}

func TestIsClientFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"schema", SchemaErrorf("x"), true},
		{"imbalanced", ImbalancedDataErrorf("x"), true},
		{"unsupported model", UnsupportedModelErrorf("x"), true},
		{"not found", NotFoundErrorf("x"), true},
		{"empty input", EmptyInputErrorf("x"), true},
		{"input format", InputFormatErrorf("x"), true},
		{"config", ConfigErrorf("x"), true},
		{"training", WrapTraining(errors.New("diverged"), "x"), false},
		{"unclassified", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientFault(tt.err))
		})
	}
}
