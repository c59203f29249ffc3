// Package records reads and writes table rows through statements built
// from the current catalog snapshot.
package records

import (
	"fmt"

	"github.com/koustreak/mngr/internal/catalog"
)

// Row gives access to a result row by column name.
type Row interface {
	Value(name string) (any, bool)
}

// MapRow adapts a row produced by database.ScanRows.
type MapRow map[string]any

func (r MapRow) Value(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Cell is one column's value as text.
type Cell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Null   bool   `json:"null,omitempty"`
}

// Project reads the value of each column from row, in column order. A
// column missing from the row or holding NULL gives a Null cell.
func Project(columns []*catalog.Column, row Row) []Cell {
	cells := make([]Cell, len(columns))
	for i, col := range columns {
		cells[i] = Cell{Column: col.Name}

		v, ok := row.Value(col.Name)
		if !ok || v == nil {
			cells[i].Null = true
			continue
		}
		cells[i].Value = text(v)
	}
	return cells
}

// Values turns cells back into the string map forms and builders use.
// NULL becomes the empty string.
func Values(cells []Cell) map[string]string {
	out := make(map[string]string, len(cells))
	for _, c := range cells {
		out[c.Column] = c.Value
	}
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
