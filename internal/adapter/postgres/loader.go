package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relscope/relscope/internal/core/domain"
)

// Loader reads a catalog snapshot from a live database through pg_catalog.
type Loader struct {
	pool    *pgxpool.Pool
	schemas []string // empty means all non-system schemas
}

func NewLoader(pool *pgxpool.Pool, schemas []string) *Loader {
	return &Loader{pool: pool, schemas: schemas}
}

func (l *Loader) Source() string {
	return "postgres"
}

// LoadCatalog runs every catalog query inside one repeatable-read
// transaction so the snapshot is consistent across queries.
func (l *Loader) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("starting catalog transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dbName string
	if err := tx.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return nil, fmt.Errorf("reading database name: %w", err)
	}
	b := newCatalogBuilder(dbName)

	steps := []struct {
		what  string
		query string
		scan  func(pgx.Rows) error
	}{
		{"schemas", querySchemas, func(rows pgx.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			b.addSchema(name)
			return nil
		}},
		{"tables", queryTables, func(rows pgx.Rows) error {
			var schema, name, comment string
			var isView bool
			if err := rows.Scan(&schema, &name, &isView, &comment); err != nil {
				return err
			}
			b.addTable(schema, name, isView, comment)
			return nil
		}},
		{"columns", queryColumns, func(rows pgx.Rows) error {
			var schema, table string
			var col domain.Column
			if err := rows.Scan(&schema, &table, &col.Name, &col.DataType, &col.Nullable, &col.Default, &col.Comment, &col.Ordinal); err != nil {
				return err
			}
			b.addColumn(schema, table, col)
			return nil
		}},
		{"key constraints", queryKeyConstraints, func(rows pgx.Rows) error {
			var schema, table string
			var key domain.Key
			var primary bool
			if err := rows.Scan(&schema, &table, &key.Name, &primary, &key.Columns); err != nil {
				return err
			}
			b.addKey(schema, table, key, primary)
			return nil
		}},
		{"unique indexes", queryUniqueIndexes, func(rows pgx.Rows) error {
			var schema, table string
			var key domain.Key
			if err := rows.Scan(&schema, &table, &key.Name, &key.Columns); err != nil {
				return err
			}
			b.addKey(schema, table, key, false)
			return nil
		}},
		{"foreign keys", queryForeignKeys, func(rows pgx.Rows) error {
			var schema, table string
			var fk domain.ForeignKey
			if err := rows.Scan(&schema, &table, &fk.Name,
				&fk.ReferencedTable.Schema, &fk.ReferencedTable.Name,
				&fk.Columns, &fk.ReferencedColumns); err != nil {
				return err
			}
			b.addForeignKey(schema, table, fk)
			return nil
		}},
	}

	for _, step := range steps {
		if err := l.each(ctx, tx, step.query, step.scan); err != nil {
			return nil, fmt.Errorf("loading %s: %w", step.what, err)
		}
	}
	return b.build(), nil
}

func (l *Loader) each(ctx context.Context, tx pgx.Tx, query string, scan func(pgx.Rows) error) error {
	filter, args := schemaFilter(l.schemas, "n.nspname", 1)
	rows, err := tx.Query(ctx, fmt.Sprintf(query, filter), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
	}
	return rows.Err()
}
