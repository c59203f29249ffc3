package catalog

import (
	"fmt"
	"slices"
)

// Position is a column's 1-based ordinal position within its table.
type Position = int16

// Identity says whether a column's value comes from an identity sequence.
type Identity int

const (
	IdentityNone               Identity = iota
	IdentityAlways                      // GENERATED ALWAYS AS IDENTITY
	IdentityGeneratedByDefault          // GENERATED BY DEFAULT AS IDENTITY
)

func (i Identity) String() string {
	switch i {
	case IdentityAlways:
		return "always-generated"
	case IdentityGeneratedByDefault:
		return "generated-by-default"
	default:
		return ""
	}
}

// parseIdentity maps pg_attribute.attidentity.
func parseIdentity(code string) (Identity, error) {
	switch code {
	case "":
		return IdentityNone, nil
	case "a":
		return IdentityAlways, nil
	case "d":
		return IdentityGeneratedByDefault, nil
	}
	return IdentityNone, fmt.Errorf("unknown identity code %q", code)
}

// Generated says whether a column is computed from an expression.
type Generated int

const (
	GeneratedNone    Generated = iota
	GeneratedStored            // GENERATED ALWAYS AS (...) STORED
	GeneratedVirtual           // GENERATED ALWAYS AS (...) VIRTUAL, PostgreSQL 18+
)

func (g Generated) String() string {
	switch g {
	case GeneratedStored:
		return "stored"
	case GeneratedVirtual:
		return "virtual"
	default:
		return ""
	}
}

// parseGenerated maps pg_attribute.attgenerated.
func parseGenerated(code string) (Generated, error) {
	switch code {
	case "":
		return GeneratedNone, nil
	case "s":
		return GeneratedStored, nil
	case "v":
		return GeneratedVirtual, nil
	}
	return GeneratedNone, fmt.Errorf("unknown generated code %q", code)
}

// ConstraintKind is the closed set of constraint kinds the catalog exposes.
type ConstraintKind int

const (
	ConstraintCheck ConstraintKind = iota
	ConstraintExclusion
	ConstraintForeignKey
	ConstraintPrimaryKey
	ConstraintTrigger
	ConstraintUnique
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintCheck:
		return "check"
	case ConstraintExclusion:
		return "exclusion"
	case ConstraintForeignKey:
		return "foreign-key"
	case ConstraintPrimaryKey:
		return "primary-key"
	case ConstraintTrigger:
		return "trigger"
	case ConstraintUnique:
		return "unique"
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON output.
func (k ConstraintKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// parseConstraintKind maps pg_constraint.contype.
func parseConstraintKind(code string) (ConstraintKind, error) {
	switch code {
	case "c":
		return ConstraintCheck, nil
	case "x":
		return ConstraintExclusion, nil
	case "f":
		return ConstraintForeignKey, nil
	case "p":
		return ConstraintPrimaryKey, nil
	case "t":
		return ConstraintTrigger, nil
	case "u":
		return ConstraintUnique, nil
	}
	return 0, fmt.Errorf("unknown constraint type %q", code)
}

// MatchType is a foreign key's MATCH mode.
type MatchType int

const (
	MatchSimple MatchType = iota
	MatchFull
	MatchPartial
)

func (m MatchType) String() string {
	switch m {
	case MatchFull:
		return "full"
	case MatchPartial:
		return "partial"
	default:
		return "simple"
	}
}

// MarshalText renders the match type by name in JSON output.
func (m MatchType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// parseMatchType maps pg_constraint.confmatchtype.
func parseMatchType(code string) (MatchType, error) {
	switch code {
	case "s":
		return MatchSimple, nil
	case "f":
		return MatchFull, nil
	case "p":
		return MatchPartial, nil
	}
	return MatchSimple, fmt.Errorf("unknown foreign key match type %q", code)
}

// Schema is a namespace and the visible tables it holds, ordered by name.
type Schema struct {
	Name   string   `json:"name"`
	Tables []*Table `json:"tables"`
}

// Table is one visible relation.
type Table struct {
	OID            uint32           `json:"oid"`
	Schema         string           `json:"schema"`
	Name           string           `json:"name"`
	Description    *string          `json:"description,omitempty"`
	Columns        []*Column        `json:"columns"`
	ConstraintSets []*ConstraintSet `json:"constraint_sets"`

	// KeyColumn is the configured identifying column, if any.
	KeyColumn string `json:"key_column,omitempty"`

	byName map[string]*Column
}

// QualifiedName returns "schema.table", the form scope patterns match against.
func (t *Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// Column finds a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	if t.byName == nil {
		for _, c := range t.Columns {
			if c.Name == name {
				return c, true
			}
		}
		return nil, false
	}
	c, ok := t.byName[name]
	return c, ok
}

// ColumnAt finds a column by ordinal position.
func (t *Table) ColumnAt(pos Position) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Position == pos {
			return c, true
		}
	}
	return nil, false
}

// RequiresUnique reports whether any primary key or unique constraint covers
// at least one column, i.e. rows can be identified by some column combination.
func (t *Table) RequiresUnique() bool {
	for _, set := range t.ConstraintSets {
		if len(set.Columns) == 0 {
			continue
		}
		for _, c := range set.Constraints {
			if c.Kind == ConstraintPrimaryKey || c.Kind == ConstraintUnique {
				return true
			}
		}
	}
	return false
}

// PrimaryKey returns the primary key's columns in position order, or nil.
func (t *Table) PrimaryKey() []*Column {
	for _, set := range t.ConstraintSets {
		for _, c := range set.Constraints {
			if c.Kind != ConstraintPrimaryKey {
				continue
			}
			cols := make([]*Column, 0, len(set.Columns))
			for _, pos := range set.Columns {
				if col, ok := t.ColumnAt(pos); ok {
					cols = append(cols, col)
				}
			}
			return cols
		}
	}
	return nil
}

// index builds the name lookup. Called once by the loader before the table
// is published; tables built by hand fall back to a scan.
func (t *Table) index() {
	t.byName = make(map[string]*Column, len(t.Columns))
	for _, c := range t.Columns {
		t.byName[c.Name] = c
	}
}

// Column is one attribute of a table.
type Column struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
	DataType string   `json:"data_type"`
	Nullable bool     `json:"nullable"`

	// Expression is the column's default or generation expression.
	Expression  *string   `json:"expression,omitempty"`
	Identity    Identity  `json:"-"`
	Generated   Generated `json:"-"`
	Description *string   `json:"description,omitempty"`
}

// AlwaysGenerated reports whether the database never accepts a value for
// the column. Such columns are left out of every insert and update.
func (c *Column) AlwaysGenerated() bool {
	return c.Identity == IdentityAlways || c.Generated != GeneratedNone
}

// Required reports whether a value must be supplied: the column is NOT NULL
// and the database has no way to produce a value on its own.
func (c *Column) Required() bool {
	return !c.Nullable && c.Expression == nil && c.Identity == IdentityNone
}

// ConstraintSet groups the constraints that cover the same column positions.
type ConstraintSet struct {
	Columns     []Position    `json:"columns"`
	Constraints []*Constraint `json:"constraints"`
}

// IsColumnConstraint reports whether the set covers exactly one column.
func (s *ConstraintSet) IsColumnConstraint() bool {
	return len(s.Columns) == 1
}

// Constraint is a single named constraint.
type Constraint struct {
	Name       string         `json:"name"`
	Kind       ConstraintKind `json:"kind"`
	Expression *string        `json:"expression,omitempty"`
	ForeignRef *ForeignRef    `json:"foreign_ref,omitempty"`
}

// ForeignRef points at the table a foreign key references.
type ForeignRef struct {
	TableOID  uint32    `json:"table_oid"`
	MatchType MatchType `json:"match_type"`
}

// sortedPositions returns a sorted copy of positions.
func sortedPositions(positions []Position) []Position {
	out := slices.Clone(positions)
	slices.Sort(out)
	return out
}
