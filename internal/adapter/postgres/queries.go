package postgres

// Every catalog query has one %s placeholder for the schema filter clause,
// with filter parameters starting at $1.

const querySchemas = `
	SELECT n.nspname
	FROM pg_catalog.pg_namespace n
	WHERE %s
	ORDER BY n.nspname`

// queryTables lists tables, partitioned tables, views and materialized views.
// Partitions are skipped; their parent carries the keys.
const queryTables = `
	SELECT
		n.nspname,
		c.relname,
		c.relkind IN ('v', 'm') AS is_view,
		COALESCE(pg_catalog.obj_description(c.oid, 'pg_class'), '')
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p', 'v', 'm')
		AND NOT c.relispartition
		AND %s
	ORDER BY n.nspname, c.relname`

const queryColumns = `
	SELECT
		n.nspname,
		c.relname,
		a.attname,
		pg_catalog.format_type(a.atttypid, a.atttypmod),
		NOT a.attnotnull,
		COALESCE(pg_catalog.pg_get_expr(d.adbin, d.adrelid), ''),
		COALESCE(pg_catalog.col_description(c.oid, a.attnum), ''),
		a.attnum::int
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	WHERE a.attnum > 0
		AND NOT a.attisdropped
		AND c.relkind IN ('r', 'p', 'v', 'm')
		AND NOT c.relispartition
		AND %s
	ORDER BY n.nspname, c.relname, a.attnum`

// queryKeyConstraints returns primary key and unique constraints with their
// columns in constraint order.
const queryKeyConstraints = `
	SELECT
		n.nspname,
		c.relname,
		con.conname,
		con.contype = 'p' AS is_primary,
		array_agg(a.attname::text ORDER BY k.ord)
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
	WHERE con.contype IN ('p', 'u')
		AND %s
	GROUP BY n.nspname, c.relname, con.conname, con.contype
	ORDER BY n.nspname, c.relname, con.contype, con.conname`

// queryUniqueIndexes returns unique indexes that back no constraint. Partial
// and expression indexes do not identify rows and are skipped.
const queryUniqueIndexes = `
	SELECT
		n.nspname,
		c.relname,
		ic.relname,
		array_agg(a.attname::text ORDER BY k.ord)
	FROM pg_catalog.pg_index i
	JOIN pg_catalog.pg_class c ON c.oid = i.indrelid
	JOIN pg_catalog.pg_class ic ON ic.oid = i.indexrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	CROSS JOIN LATERAL unnest(i.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_catalog.pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum
	WHERE i.indisunique
		AND NOT i.indisprimary
		AND i.indpred IS NULL
		AND i.indexprs IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM pg_catalog.pg_constraint con WHERE con.conindid = i.indexrelid
		)
		AND %s
	GROUP BY n.nspname, c.relname, ic.relname
	ORDER BY n.nspname, c.relname, ic.relname`

// queryForeignKeys returns declared foreign keys with local and referenced
// columns paired by position.
const queryForeignKeys = `
	SELECT
		n.nspname,
		c.relname,
		con.conname,
		rn.nspname,
		rc.relname,
		array_agg(a.attname::text ORDER BY k.ord),
		array_agg(ra.attname::text ORDER BY k.ord)
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
	JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
	JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
	JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
	WHERE con.contype = 'f'
		AND con.conparentid = 0
		AND %s
	GROUP BY n.nspname, c.relname, con.conname, rn.nspname, rc.relname
	ORDER BY n.nspname, c.relname, con.conname`
