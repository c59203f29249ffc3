package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCodes(t *testing.T) {
	identity := map[string]Identity{"": IdentityNone, "a": IdentityAlways, "d": IdentityGeneratedByDefault}
	for code, want := range identity {
		got, err := parseIdentity(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseIdentity("x")
	assert.Error(t, err)

	generated := map[string]Generated{"": GeneratedNone, "s": GeneratedStored, "v": GeneratedVirtual}
	for code, want := range generated {
		got, err := parseGenerated(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = parseGenerated("x")
	assert.Error(t, err)

	kinds := map[string]ConstraintKind{
		"c": ConstraintCheck, "x": ConstraintExclusion, "f": ConstraintForeignKey,
		"p": ConstraintPrimaryKey, "t": ConstraintTrigger, "u": ConstraintUnique,
	}
	for code, want := range kinds {
		got, err := parseConstraintKind(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = parseConstraintKind("n")
	assert.Error(t, err)

	matches := map[string]MatchType{"s": MatchSimple, "f": MatchFull, "p": MatchPartial}
	for code, want := range matches {
		got, err := parseMatchType(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = parseMatchType(" ")
	assert.Error(t, err)
}

func TestColumn_Predicates(t *testing.T) {
	def := "now()"

	tests := []struct {
		name     string
		column   Column
		always   bool
		required bool
	}{
		{"plain not null", Column{Nullable: false}, false, true},
		{"nullable", Column{Nullable: true}, false, false},
		{"with default", Column{Expression: &def}, false, false},
		{"identity always", Column{Identity: IdentityAlways}, true, false},
		{"identity by default", Column{Identity: IdentityGeneratedByDefault}, false, false},
		{"stored generated", Column{Generated: GeneratedStored, Expression: &def}, true, false},
		{"virtual generated", Column{Generated: GeneratedVirtual, Expression: &def}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.always, tt.column.AlwaysGenerated())
			assert.Equal(t, tt.required, tt.column.Required())
		})
	}
}

func TestTable_RequiresUnique(t *testing.T) {
	tbl := &Table{ConstraintSets: []*ConstraintSet{
		{Columns: []Position{2}, Constraints: []*Constraint{{Kind: ConstraintCheck}}},
	}}
	assert.False(t, tbl.RequiresUnique())

	tbl.ConstraintSets = append(tbl.ConstraintSets,
		&ConstraintSet{Columns: nil, Constraints: []*Constraint{{Kind: ConstraintUnique}}})
	assert.False(t, tbl.RequiresUnique())

	tbl.ConstraintSets = append(tbl.ConstraintSets,
		&ConstraintSet{Columns: []Position{1, 2}, Constraints: []*Constraint{{Kind: ConstraintUnique}}})
	assert.True(t, tbl.RequiresUnique())
}

func TestConstraint_JSON(t *testing.T) {
	def := "FOREIGN KEY (user_id) REFERENCES users(id)"
	c := Constraint{
		Name:       "orders_user_id_fkey",
		Kind:       ConstraintForeignKey,
		Expression: &def,
		ForeignRef: &ForeignRef{TableOID: 42, MatchType: MatchFull},
	}

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "orders_user_id_fkey",
		"kind": "foreign-key",
		"expression": "FOREIGN KEY (user_id) REFERENCES users(id)",
		"foreign_ref": {"table_oid": 42, "match_type": "full"}
	}`, string(b))
}
