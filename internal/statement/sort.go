package statement

import (
	"strings"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
)

// Direction is a sort order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts "asc" or "desc" in any case. Empty means Asc.
// Anything else is rejected rather than passed on to SQL.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return Asc, errs.Newf(errs.ErrKindInvalidInput, "sort direction must be asc or desc, got %q", s)
}

// ResolveSort picks the sort column: the first column in ordinal order when
// name is empty, else the column called name.
func ResolveSort(table *catalog.Table, name string) (*catalog.Column, error) {
	if name == "" {
		if len(table.Columns) == 0 {
			return nil, errs.Newf(errs.ErrKindNotFound, "table %s has no columns", table.QualifiedName())
		}
		return table.Columns[0], nil
	}
	col, ok := table.Column(name)
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "sort column %q does not exist in %s", name, table.QualifiedName())
	}
	return col, nil
}
