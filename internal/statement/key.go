package statement

import (
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
)

// KeyColumn returns the column that identifies a row of table, in order
// of preference: the configured key, a single-column primary key, a column
// named "id", the first column.
//
// A composite primary key with no configured key is an error; a partial key
// could address several rows.
func KeyColumn(table *catalog.Table) (*catalog.Column, error) {
	if table.KeyColumn != "" {
		col, ok := table.Column(table.KeyColumn)
		if !ok {
			return nil, errs.Newf(errs.ErrKindConfiguration, "key column %q does not exist in %s", table.KeyColumn, table.QualifiedName())
		}
		return col, nil
	}

	switch pk := table.PrimaryKey(); len(pk) {
	case 0:
	case 1:
		return pk[0], nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"%s has a composite primary key, configure a key column for it", table.QualifiedName())
	}

	if col, ok := table.Column("id"); ok {
		return col, nil
	}
	if len(table.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s has no columns", table.QualifiedName())
	}
	return table.Columns[0], nil
}
