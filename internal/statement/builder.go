// Package statement builds parameterized SELECT, INSERT and UPDATE
// statements from catalog metadata and untyped string values.
//
// Identifiers are always double-quoted and every value is a $n bind
// parameter cast to the column's declared type, so no submitted text ever
// becomes part of the SQL itself. Builders are pure functions.
package statement

import (
	"fmt"
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
)

// DefaultLimit is the page size when ListOptions.Limit is unset.
const DefaultLimit = 50

// Statement is SQL ready to execute together with its bind values.
type Statement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// ListOptions selects one sorted page of rows.
type ListOptions struct {
	SortColumn string
	Direction  Direction
	Limit      int
	// Page is 1-based; values below 1 mean the first page.
	Page int
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// QuoteIdent double-quotes an identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ident quotes name for use inside a squirrel expression, where a bare ?
// would be taken for a placeholder.
func ident(name string) string {
	return escapePlaceholders(QuoteIdent(name))
}

func escapePlaceholders(s string) string {
	return strings.ReplaceAll(s, "?", "??")
}

func tableName(t *catalog.Table) string {
	return QuoteIdent(t.Schema) + "." + QuoteIdent(t.Name)
}

// bind is a placeholder cast to the column's declared type.
func bind(col *catalog.Column, value any) sq.Sqlizer {
	return sq.Expr("?::"+escapePlaceholders(col.DataType), value)
}

func equals(col *catalog.Column, value any) sq.Sqlizer {
	return sq.Expr(ident(col.Name)+" = ?::"+escapePlaceholders(col.DataType), value)
}

// selectColumns casts every column to text so rows can be projected
// without knowing their types.
func selectColumns(t *catalog.Table) []string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ident(c.Name) + "::text"
	}
	return cols
}

// Select lists one page of table sorted by a single column.
func Select(table *catalog.Table, opts ListOptions) (Statement, error) {
	sortCol, err := ResolveSort(table, opts.SortColumn)
	if err != nil {
		return Statement{}, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := psql.Select(selectColumns(table)...).
		From(escapePlaceholders(tableName(table))).
		OrderBy(ident(sortCol.Name) + " " + opts.Direction.String()).
		Limit(uint64(limit))
	if opts.Page > 1 {
		if opts.Page-1 > math.MaxInt64/limit {
			return Statement{}, errs.Newf(errs.ErrKindInvalidInput, "page %d is out of range", opts.Page)
		}
		q = q.Offset(uint64((opts.Page - 1) * limit))
	}

	return build(table, q)
}

// SelectByKey reads the row whose key column equals key.
func SelectByKey(table *catalog.Table, key any) (Statement, error) {
	keyCol, err := KeyColumn(table)
	if err != nil {
		return Statement{}, err
	}
	if len(table.Columns) == 0 {
		return Statement{}, errs.Newf(errs.ErrKindNotFound, "table %s has no columns", table.QualifiedName())
	}

	q := psql.Select(selectColumns(table)...).
		From(escapePlaceholders(tableName(table))).
		Where(equals(keyCol, key))

	return build(table, q)
}

// Insert adds one row. Columns the database always generates are left out
// even when values name them, and so are empty values, letting the column
// default apply. With nothing left the row is inserted with DEFAULT VALUES.
func Insert(table *catalog.Table, values map[string]string) (Statement, error) {
	if err := checkColumns(table, values); err != nil {
		return Statement{}, err
	}

	var (
		cols []string
		vals []any
	)
	for _, col := range table.Columns {
		if col.AlwaysGenerated() {
			continue
		}
		v, ok := values[col.Name]
		if !ok || v == "" {
			continue
		}
		cols = append(cols, ident(col.Name))
		vals = append(vals, bind(col, v))
	}

	if len(cols) == 0 {
		return Statement{SQL: "INSERT INTO " + tableName(table) + " DEFAULT VALUES"}, nil
	}

	q := psql.Insert(escapePlaceholders(tableName(table))).Columns(cols...).Values(vals...)
	return build(table, q)
}

// Update sets the given columns of the row identified by key. Values are
// bound as given, except that an empty value for a nullable column sets it
// to NULL.
func Update(table *catalog.Table, key any, values map[string]string) (Statement, error) {
	if err := checkColumns(table, values); err != nil {
		return Statement{}, err
	}
	keyCol, err := KeyColumn(table)
	if err != nil {
		return Statement{}, err
	}

	q := psql.Update(escapePlaceholders(tableName(table)))
	set := 0
	for _, col := range table.Columns {
		if col.AlwaysGenerated() {
			continue
		}
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		if v == "" && col.Nullable {
			q = q.Set(ident(col.Name), bind(col, nil))
		} else {
			q = q.Set(ident(col.Name), bind(col, v))
		}
		set++
	}
	if set == 0 {
		return Statement{}, errs.Newf(errs.ErrKindInvalidInput, "no settable column given for %s", table.QualifiedName())
	}

	q = q.Where(equals(keyCol, key))
	return build(table, q)
}

// checkColumns rejects value keys that name no column of table.
func checkColumns(table *catalog.Table, values map[string]string) error {
	for name := range values {
		if _, ok := table.Column(name); !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "column %q does not exist in %s", name, table.QualifiedName())
		}
	}
	return nil
}

func build(table *catalog.Table, q sq.Sqlizer) (Statement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return Statement{}, errs.Wrap(errs.ErrKindQueryFailed,
			fmt.Sprintf("failed to build statement for %s", table.QualifiedName()), err)
	}
	return Statement{SQL: sql, Args: args}, nil
}
