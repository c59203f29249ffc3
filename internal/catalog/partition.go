package catalog

import (
	"strconv"
	"strings"
)

// Partitioned splits a table's constraints by arity: constraints on a
// single column (used to annotate one field) and constraints spanning
// several columns (used to annotate the whole row).
type Partitioned struct {
	ByColumn map[Position][]*Constraint `json:"by_column"`

	// ByColumns is keyed by PositionsKey of the sorted column list.
	ByColumns map[string][]*Constraint `json:"by_columns"`

	// Keys maps each ByColumns key back to its positions.
	Keys map[string][]Position `json:"-"`
}

// Partition classifies constraint sets purely by how many columns they
// cover. Constraints from different sets on the same single column are
// merged. Sets with no column positions go to ByColumns under "".
func Partition(sets []*ConstraintSet) Partitioned {
	p := Partitioned{
		ByColumn:  make(map[Position][]*Constraint),
		ByColumns: make(map[string][]*Constraint),
		Keys:      make(map[string][]Position),
	}

	for _, set := range sets {
		if set.IsColumnConstraint() {
			pos := set.Columns[0]
			p.ByColumn[pos] = append(p.ByColumn[pos], set.Constraints...)
			continue
		}
		positions := sortedPositions(set.Columns)
		key := PositionsKey(positions)
		p.ByColumns[key] = append(p.ByColumns[key], set.Constraints...)
		p.Keys[key] = positions
	}

	return p
}

// PositionsKey renders positions as "1,2,3", the ByColumns map key.
func PositionsKey(positions []Position) string {
	parts := make([]string, len(positions))
	for i, pos := range positions {
		parts[i] = strconv.Itoa(int(pos))
	}
	return strings.Join(parts, ",")
}
