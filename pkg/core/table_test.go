package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tbl, err := NewTable(
			NewNumericColumn("a", []float64{1, math.NaN()}),
			NewCategoricalColumn("b", []string{"x", ""}, []bool{true, false}),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, tbl.Rows())
		assert.Equal(t, []string{"a", "b"}, tbl.Names())
		assert.Equal(t, map[string]any{"a": 1.0, "b": "x"}, tbl.Record(0))
		assert.Equal(t, map[string]any{"a": nil, "b": nil}, tbl.Record(1))
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewTable(NewNumericColumn("a", nil), NewNumericColumn("a", nil))
		assert.ErrorIs(t, err, ErrInputFormat)
	})

	t.Run("ragged", func(t *testing.T) {
		_, err := NewTable(NewNumericColumn("a", []float64{1}), NewNumericColumn("b", []float64{1, 2}))
		assert.ErrorIs(t, err, ErrInputFormat)
	})
}

func TestTable_CloneIsDeep(t *testing.T) {
	tbl, err := NewTable(NewNumericColumn("a", []float64{1, 2}))
	require.NoError(t, err)

	clone := tbl.Clone()
	clone.Columns[0].Floats[0] = 99

	assert.Equal(t, 1.0, tbl.Columns[0].Floats[0])
}
