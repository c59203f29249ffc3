package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/database"
	"github.com/koustreak/mngr/internal/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const integrationSchema = `
CREATE TABLE public.users (
	id         integer GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name       text NOT NULL CHECK (name <> ''),
	email      character varying(255) UNIQUE,
	active     boolean NOT NULL DEFAULT true,
	created_at timestamp with time zone NOT NULL DEFAULT now(),
	label      text GENERATED ALWAYS AS (upper(name)) STORED
);
COMMENT ON TABLE public.users IS 'People who can **sign in**';
COMMENT ON COLUMN public.users.email IS 'Contact address';

CREATE TABLE public.orders (
	id        bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	user_id   integer NOT NULL REFERENCES public.users (id) MATCH FULL,
	total     numeric(10,2) NOT NULL,
	placed_on date,
	UNIQUE (user_id, total)
);

CREATE TABLE public.audit_log (
	id      bigserial PRIMARY KEY,
	payload text
);
`

func TestLoad_PostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.New(ctx, database.DefaultConfig(dsn))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(ctx, integrationSchema)
	require.NoError(t, err)

	c, err := catalog.Load(ctx, db, catalog.LoadOptions{
		Scope: catalog.Scope{
			Include: []string{"public.%"},
			Exclude: []string{"public.audit_log"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	users, err := c.Table("users")
	require.NoError(t, err)
	require.NotNil(t, users.Description)
	assert.Equal(t, "People who can **sign in**", *users.Description)

	want := []struct {
		name     string
		dataType string
		required bool
		always   bool
	}{
		{"id", "integer", false, true},
		{"name", "text", true, false},
		{"email", "character varying(255)", false, false},
		{"active", "boolean", false, false},
		{"created_at", "timestamp with time zone", false, false},
		{"label", "text", false, true},
	}
	require.Len(t, users.Columns, len(want))
	for i, w := range want {
		col := users.Columns[i]
		assert.Equal(t, w.name, col.Name)
		assert.Equal(t, w.dataType, col.DataType)
		assert.Equal(t, w.required, col.Required(), w.name)
		assert.Equal(t, w.always, col.AlwaysGenerated(), w.name)
	}

	email, _ := users.Column("email")
	require.NotNil(t, email.Description)
	assert.Equal(t, "Contact address", *email.Description)

	p := catalog.Partition(users.ConstraintSets)
	assert.Len(t, p.ByColumn[1], 1)
	assert.Len(t, p.ByColumn[2], 1)
	assert.Len(t, p.ByColumn[3], 1)

	orders, err := c.Table("public.orders")
	require.NoError(t, err)
	op := catalog.Partition(orders.ConstraintSets)
	require.Len(t, op.ByColumns["2,3"], 1)
	assert.Equal(t, catalog.ConstraintUnique, op.ByColumns["2,3"][0].Kind)

	require.Len(t, op.ByColumn[2], 1)
	fk := op.ByColumn[2][0]
	require.NotNil(t, fk.ForeignRef)
	assert.Equal(t, users.OID, fk.ForeignRef.TableOID)
	assert.Equal(t, catalog.MatchFull, fk.ForeignRef.MatchType)

	id, _ := orders.Column("id")
	assert.Equal(t, catalog.IdentityGeneratedByDefault, id.Identity)
}
