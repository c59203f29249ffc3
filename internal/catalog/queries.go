package catalog

// Introspection queries. Each returns rows for every visible table at once;
// the loader joins them in memory by table oid.

// tablesQuery lists ordinary and partitioned tables outside the system
// schemas. Partitions are reached through their parent.
const tablesQuery = `
	SELECT c.oid,
	       n.nspname,
	       c.relname,
	       obj_description(c.oid, 'pg_class')
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p')
	  AND NOT c.relispartition
	  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	  AND n.nspname NOT LIKE 'pg\_toast%'
	  AND n.nspname NOT LIKE 'pg\_temp\_%'
	ORDER BY n.nspname, c.relname`

// columnsQuery uses format_type so the data type can be used verbatim as a
// cast target (e.g. "character varying(80)", "timestamp with time zone").
const columnsQuery = `
	SELECT a.attrelid,
	       a.attname,
	       a.attnum,
	       format_type(a.atttypid, a.atttypmod),
	       NOT a.attnotnull,
	       pg_get_expr(d.adbin, d.adrelid),
	       a.attidentity::text,
	       a.attgenerated::text,
	       col_description(a.attrelid, a.attnum)
	FROM pg_catalog.pg_attribute a
	LEFT JOIN pg_catalog.pg_attrdef d
	       ON d.adrelid = a.attrelid
	      AND d.adnum   = a.attnum
	WHERE a.attrelid = ANY($1::oid[])
	  AND a.attnum > 0
	  AND NOT a.attisdropped
	ORDER BY a.attrelid, a.attnum`

// constraintsQuery skips not-null constraints ('n', PostgreSQL 18+), which
// the column's nullability already describes.
const constraintsQuery = `
	SELECT con.conrelid,
	       con.conname,
	       con.contype::text,
	       COALESCE(con.conkey, '{}'::int2[]),
	       pg_get_constraintdef(con.oid),
	       con.confrelid,
	       con.confmatchtype::text
	FROM pg_catalog.pg_constraint con
	WHERE con.conrelid = ANY($1::oid[])
	  AND con.contype IN ('c', 'f', 'p', 't', 'u', 'x')
	ORDER BY con.conrelid, con.conname`
