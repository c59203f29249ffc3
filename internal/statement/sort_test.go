package statement

import (
	"testing"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"", Asc, false},
		{"asc", Asc, false},
		{"ASC", Asc, false},
		{"desc", Desc, false},
		{"Desc", Desc, false},
		{"descending", Asc, true},
		{"; DROP TABLE x", Asc, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirection_InjectionNeverReachesSQL(t *testing.T) {
	dir, err := ParseDirection("; DROP TABLE x")
	require.Error(t, err)

	st, err := Select(usersTable(), ListOptions{Direction: dir})
	require.NoError(t, err)
	assert.NotContains(t, st.SQL, "DROP")
}

func TestResolveSort(t *testing.T) {
	table := usersTable()

	col, err := ResolveSort(table, "")
	require.NoError(t, err)
	assert.Equal(t, "id", col.Name)

	col, err = ResolveSort(table, "email")
	require.NoError(t, err)
	assert.Equal(t, "email", col.Name)

	_, err = ResolveSort(table, "Email")
	assert.True(t, errs.IsNotFound(err))

	_, err = ResolveSort(&catalog.Table{Schema: "public", Name: "empty"}, "")
	assert.True(t, errs.IsNotFound(err))
}

func TestKeyColumn(t *testing.T) {
	cols := func() []*catalog.Column {
		return []*catalog.Column{
			{Name: "code", Position: 1, DataType: "text"},
			{Name: "region", Position: 2, DataType: "text"},
			{Name: "id", Position: 3, DataType: "bigint"},
		}
	}

	tests := []struct {
		name    string
		table   *catalog.Table
		want    string
		wantErr func(error) bool
	}{
		{"configured key wins", &catalog.Table{Columns: cols(), KeyColumn: "region", ConstraintSets: []*catalog.ConstraintSet{pkSet(1)}}, "region", nil},
		{"single column primary key", &catalog.Table{Columns: cols(), ConstraintSets: []*catalog.ConstraintSet{pkSet(1)}}, "code", nil},
		{"column named id", &catalog.Table{Columns: cols()}, "id", nil},
		{"first column", &catalog.Table{Columns: cols()[:2]}, "code", nil},
		{"composite primary key", &catalog.Table{Columns: cols(), ConstraintSets: []*catalog.ConstraintSet{pkSet(1, 2)}}, "", errs.IsInvalidInput},
		{"composite with override", &catalog.Table{Columns: cols(), KeyColumn: "id", ConstraintSets: []*catalog.ConstraintSet{pkSet(1, 2)}}, "id", nil},
		{"unknown configured key", &catalog.Table{Columns: cols(), KeyColumn: "uuid"}, "", errs.IsConfiguration},
		{"no columns", &catalog.Table{}, "", errs.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := KeyColumn(tt.table)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, col.Name)
		})
	}
}

func TestSelectByKey_CompositeKey(t *testing.T) {
	table := usersTable()
	table.ConstraintSets = []*catalog.ConstraintSet{pkSet(1, 2)}

	_, err := SelectByKey(table, 1)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Update(table, 1, map[string]string{"name": "Ann"})
	assert.True(t, errs.IsInvalidInput(err))
}
