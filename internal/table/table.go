// Package table holds the tabular dataset model and the steps that turn
// raw cell grids into a single coherent output table: normalization
// (headers, padding, numeric coercion, RTL repair) and assembly
// (reconciling candidate tables from different extraction sources).
package table

import (
	"strconv"
	"strings"
)

// Cell is one value in a table. A cell is either plain text or, after
// numeric coercion, a number.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextCell builds a plain text cell.
func TextCell(s string) Cell {
	return Cell{Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Number: f, Numeric: true}
}

// Value returns the cell's native value: float64 for numeric cells,
// string otherwise.
func (c Cell) Value() any {
	if c.Numeric {
		return c.Number
	}
	return c.Text
}

// String renders the cell for display. Numbers use the shortest
// round-trip representation.
func (c Cell) String() string {
	if c.Numeric {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// IsBlank reports whether the cell carries no value.
func (c Cell) IsBlank() bool {
	if c.Numeric {
		return false
	}
	return strings.TrimSpace(c.Text) == ""
}

// Table is an ordered grid of rows by columns with an optional header
// row. Rows all share the header's column count after normalization.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// Columns returns the column count.
func (t Table) Columns() int {
	return len(t.Header)
}

// Empty reports whether the table has neither header nor rows.
func (t Table) Empty() bool {
	return len(t.Header) == 0 && len(t.Rows) == 0
}

// Size returns rows times columns, the measure used to pick the primary
// candidate during assembly.
func (t Table) Size() int {
	return len(t.Rows) * t.Columns()
}
