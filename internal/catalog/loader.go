package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/mngr/internal/database"
	"github.com/koustreak/mngr/internal/errs"
	"golang.org/x/sync/errgroup"
)

// Querier is the subset of database.DB the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (database.Rows, error)
}

// TableOverride attaches configuration to one visible table. Schema may be
// left empty when the table name is unique across visible schemas.
type TableOverride struct {
	Schema      string `yaml:"schema"`
	Table       string `yaml:"table"`
	Description string `yaml:"description"`
	Key         string `yaml:"key"`
}

func (o TableOverride) String() string {
	if o.Schema == "" {
		return o.Table
	}
	return o.Schema + "." + o.Table
}

// LoadOptions controls what Load makes visible.
type LoadOptions struct {
	Scope  Scope
	Tables []TableOverride
}

// Load reads the catalog through q and returns a complete snapshot, or an
// error and no snapshot at all.
//
// Errors:
//   - ErrKindConfiguration: empty include list, no visible table, or a table
//     override that is ambiguous, unknown or names an unknown key column
//   - ErrKindConnectionFailed / ErrKindTimeout / ErrKindQueryFailed: as
//     reported by the driver while reading the catalog
func Load(ctx context.Context, q Querier, opts LoadOptions) (*Catalog, error) {
	if err := opts.Scope.Validate(); err != nil {
		return nil, err
	}

	tables, err := loadTables(ctx, q, opts.Scope)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, errs.Newf(errs.ErrKindConfiguration,
			"scope include %v / exclude %v matches no table", opts.Scope.Include, opts.Scope.Exclude)
	}

	oids := make([]uint32, len(tables))
	byOID := make(map[uint32]*Table, len(tables))
	for i, t := range tables {
		oids[i] = t.OID
		byOID[t.OID] = t
	}

	var (
		columns     []columnRow
		constraints []constraintRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		columns, err = loadColumns(gctx, q, oids)
		return err
	})
	g.Go(func() error {
		var err error
		constraints, err = loadConstraints(gctx, q, oids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, row := range columns {
		t, ok := byOID[row.tableOID]
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, row.column)
	}
	for _, t := range tables {
		t.index()
	}

	if err := attachConstraints(byOID, constraints); err != nil {
		return nil, err
	}

	if err := applyOverrides(tables, opts.Tables); err != nil {
		return nil, err
	}

	return New(groupBySchema(tables)), nil
}

// --- passes ---

func loadTables(ctx context.Context, q Querier, scope Scope) ([]*Table, error) {
	rows, err := q.Query(ctx, tablesQuery)
	if err != nil {
		return nil, loadError("list tables", err)
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		t := &Table{}
		if err := rows.Scan(&t.OID, &t.Schema, &t.Name, &t.Description); err != nil {
			return nil, loadError("scan table", err)
		}
		if !scope.Matches(t.QualifiedName()) {
			continue
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("list tables", err)
	}
	return tables, nil
}

type columnRow struct {
	tableOID uint32
	column   *Column
}

func loadColumns(ctx context.Context, q Querier, oids []uint32) ([]columnRow, error) {
	rows, err := q.Query(ctx, columnsQuery, oids)
	if err != nil {
		return nil, loadError("list columns", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var (
			r                   columnRow
			c                   Column
			identity, generated string
		)
		if err := rows.Scan(&r.tableOID, &c.Name, &c.Position, &c.DataType, &c.Nullable,
			&c.Expression, &identity, &generated, &c.Description); err != nil {
			return nil, loadError("scan column", err)
		}

		if c.Identity, err = parseIdentity(identity); err != nil {
			return nil, loadError("column "+c.Name, err)
		}
		if c.Generated, err = parseGenerated(generated); err != nil {
			return nil, loadError("column "+c.Name, err)
		}

		r.column = &c
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("list columns", err)
	}
	return out, nil
}

type constraintRow struct {
	tableOID   uint32
	positions  []Position
	constraint *Constraint
}

func loadConstraints(ctx context.Context, q Querier, oids []uint32) ([]constraintRow, error) {
	rows, err := q.Query(ctx, constraintsQuery, oids)
	if err != nil {
		return nil, loadError("list constraints", err)
	}
	defer rows.Close()

	var out []constraintRow
	for rows.Next() {
		var (
			r                    constraintRow
			c                    Constraint
			kind, def, matchType string
			foreignOID           uint32
		)
		if err := rows.Scan(&r.tableOID, &c.Name, &kind, &r.positions, &def, &foreignOID, &matchType); err != nil {
			return nil, loadError("scan constraint", err)
		}

		if c.Kind, err = parseConstraintKind(kind); err != nil {
			return nil, loadError("constraint "+c.Name, err)
		}

		switch c.Kind {
		case ConstraintCheck, ConstraintExclusion:
			c.Expression = &def
		case ConstraintForeignKey:
			c.Expression = &def
			mt, err := parseMatchType(matchType)
			if err != nil {
				return nil, loadError("constraint "+c.Name, err)
			}
			c.ForeignRef = &ForeignRef{TableOID: foreignOID, MatchType: mt}
		}

		r.constraint = &c
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError("list constraints", err)
	}
	return out, nil
}

// --- assembly ---

// attachConstraints groups constraints covering the same sorted positions
// into one ConstraintSet per table.
func attachConstraints(byOID map[uint32]*Table, rows []constraintRow) error {
	sets := make(map[uint32]map[string]*ConstraintSet)

	for _, r := range rows {
		t, ok := byOID[r.tableOID]
		if !ok {
			continue
		}
		positions := sortedPositions(r.positions)
		for _, pos := range positions {
			if _, ok := t.ColumnAt(pos); !ok {
				return errs.Newf(errs.ErrKindQueryFailed,
					"constraint %q on %s references unknown column position %d", r.constraint.Name, t.QualifiedName(), pos)
			}
		}

		key := PositionsKey(positions)
		if sets[t.OID] == nil {
			sets[t.OID] = make(map[string]*ConstraintSet)
		}
		set, ok := sets[t.OID][key]
		if !ok {
			set = &ConstraintSet{Columns: positions}
			sets[t.OID][key] = set
			t.ConstraintSets = append(t.ConstraintSets, set)
		}
		set.Constraints = append(set.Constraints, r.constraint)
	}
	return nil
}

func applyOverrides(tables []*Table, overrides []TableOverride) error {
	for _, o := range overrides {
		var matches []*Table
		for _, t := range tables {
			if t.Name == o.Table && (o.Schema == "" || t.Schema == o.Schema) {
				matches = append(matches, t)
			}
		}

		switch {
		case len(matches) == 0:
			return errs.Newf(errs.ErrKindConfiguration, "configured table %q is not visible in scope", o.String())
		case len(matches) > 1:
			names := make([]string, len(matches))
			for i, t := range matches {
				names[i] = t.QualifiedName()
			}
			return errs.Newf(errs.ErrKindConfiguration,
				"configured table %q is ambiguous, set its schema to one of: %s", o.Table, strings.Join(names, ", "))
		}

		t := matches[0]
		if o.Description != "" {
			d := o.Description
			t.Description = &d
		}
		if o.Key != "" {
			if _, ok := t.Column(o.Key); !ok {
				return errs.Newf(errs.ErrKindConfiguration, "configured key %q is not a column of %s", o.Key, t.QualifiedName())
			}
			t.KeyColumn = o.Key
		}
	}
	return nil
}

// groupBySchema keeps the query's schema/name order.
func groupBySchema(tables []*Table) []*Schema {
	var schemas []*Schema
	var current *Schema
	for _, t := range tables {
		if current == nil || current.Name != t.Schema {
			current = &Schema{Name: t.Schema}
			schemas = append(schemas, current)
		}
		current.Tables = append(current.Tables, t)
	}
	return schemas
}

// loadError keeps the driver's classification and adds which pass failed.
func loadError(pass string, err error) error {
	kind := errs.KindOf(err)
	if kind == errs.ErrKindUnknown {
		kind = errs.ErrKindQueryFailed
	}
	return errs.Wrap(kind, fmt.Sprintf("catalog: %s", pass), err)
}
