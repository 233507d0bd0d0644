package core

import (
	"fmt"
	"math"
)

// Kind is the semantic kind of a column.
type Kind int

// Column kinds.
const (
	KindNumeric Kind = iota
	KindCategorical
)

// String returns the dtype name reported in dataset summaries.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is a named, typed column of a Table.
//
// Numeric columns store their values in Floats and mark missing entries with NaN.
// Categorical columns store their values in Strings and mark missing entries with
// Valid[i] == false.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Valid   []bool
}

// NewNumericColumn creates a numeric column. NaN entries are missing.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindNumeric, Floats: values}
}

// NewCategoricalColumn creates a categorical column. A nil valid slice means
// every entry is present.
func NewCategoricalColumn(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return &Column{Name: name, Kind: KindCategorical, Strings: values, Valid: valid}
}

// Len returns the number of entries in the column.
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether entry i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.Floats[i])
	}
	return !c.Valid[i]
}

// Value returns entry i as float64, string or nil when missing.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	if c.Kind == KindNumeric {
		return c.Floats[i]
	}
	return c.Strings[i]
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Valid != nil {
		out.Valid = append([]bool(nil), c.Valid...)
	}
	return out
}

// Table is an ordered collection of equally sized columns.
// Tables handed out by the dataset registry are shared and must be treated as
// read-only; callers clone before mutating.
type Table struct {
	Columns []*Column
}

// NewTable builds a table, rejecting duplicate names and ragged columns.
func NewTable(columns ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if _, dup := seen[col.Name]; dup {
			return nil, InputFormatErrorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
		if i > 0 && col.Len() != columns[0].Len() {
			return nil, InputFormatErrorf("column %q has %d rows, expected %d",
				col.Name, col.Len(), columns[0].Len())
		}
	}
	return &Table{Columns: columns}, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return nil, false
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = col.Clone()
	}
	return out
}

// Record returns row i keyed by column name, with missing entries as nil.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.Columns))
	for _, col := range t.Columns {
		rec[col.Name] = col.Value(i)
	}
	return rec
}
