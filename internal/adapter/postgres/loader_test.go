package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relscope/relscope/internal/adapter/postgres"
	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE SCHEMA sales;

	CREATE TABLE categories (
		id   SERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE
	);
	COMMENT ON TABLE categories IS 'Product categories';

	CREATE TABLE products (
		id          SERIAL PRIMARY KEY,
		category_id INTEGER NOT NULL REFERENCES categories(id),
		sku         VARCHAR(32) NOT NULL,
		title       TEXT NOT NULL,
		price       NUMERIC(10,2) NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX products_sku_idx ON products(sku);
	CREATE UNIQUE INDEX products_title_lower_idx ON products(lower(title));
	COMMENT ON COLUMN products.sku IS 'Stock keeping unit';

	-- product_id has no declared constraint.
	CREATE TABLE reviews (
		id         SERIAL PRIMARY KEY,
		product_id INTEGER NOT NULL,
		rating     SMALLINT NOT NULL
	);

	CREATE TABLE sales.order_lines (
		order_id    INTEGER NOT NULL,
		line_no     INTEGER NOT NULL,
		product_sku TEXT NOT NULL,
		PRIMARY KEY (order_id, line_no)
	);

	CREATE VIEW product_titles AS SELECT id, title FROM products;
`

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	setup, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	_, err = setup.Exec(ctx, testSchema)
	setup.Close()
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, connStr, postgres.PoolOptions{MaxConns: 2, MaxConnLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestLoader_LoadCatalog(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	loader := postgres.NewLoader(pool, nil)
	assert.Equal(t, "postgres", loader.Source())

	cat, err := loader.LoadCatalog(ctx)
	require.NoError(t, err)
	require.NoError(t, cat.Validate())
	assert.Equal(t, "shop", cat.Name)

	var schemas []string
	for _, s := range cat.Schemas {
		schemas = append(schemas, s.Name)
	}
	assert.Equal(t, []string{"public", "sales"}, schemas)

	categories, err := cat.FindTable("public", "categories")
	require.NoError(t, err)
	assert.Equal(t, "Product categories", categories.Comment)
	require.NotNil(t, categories.PrimaryKey)
	assert.Equal(t, []string{"id"}, categories.PrimaryKey.Columns)
	require.Len(t, categories.AlternateKeys, 1)
	assert.Equal(t, []string{"slug"}, categories.AlternateKeys[0].Columns)

	products, err := cat.FindTable("public", "products")
	require.NoError(t, err)
	require.Len(t, products.AlternateKeys, 1, "expression indexes are not keys")
	assert.Equal(t, "products_sku_idx", products.AlternateKeys[0].Name)
	require.Len(t, products.ForeignKeys, 1)
	assert.Equal(t, domain.ForeignKey{
		Name:              "products_category_id_fkey",
		Columns:           []string{"category_id"},
		ReferencedTable:   domain.TableRef{Schema: "public", Name: "categories"},
		ReferencedColumns: []string{"id"},
	}, products.ForeignKeys[0])

	sku := products.Column("sku")
	require.NotNil(t, sku)
	assert.Equal(t, "character varying(32)", sku.DataType)
	assert.Equal(t, "Stock keeping unit", sku.Comment)
	assert.False(t, sku.Nullable)
	price := products.Column("price")
	require.NotNil(t, price)
	assert.NotEmpty(t, price.Default)
	assert.Equal(t, 5, price.Ordinal)

	lines, err := cat.FindTable("sales", "order_lines")
	require.NoError(t, err)
	require.NotNil(t, lines.PrimaryKey)
	assert.Equal(t, []string{"order_id", "line_no"}, lines.PrimaryKey.Columns)

	view, err := cat.FindTable("", "product_titles")
	require.NoError(t, err)
	assert.True(t, view.IsView)
	assert.Len(t, view.Columns, 2)
}

func TestLoader_SchemaFilter(t *testing.T) {
	pool := setupDB(t)

	cat, err := postgres.NewLoader(pool, []string{"sales"}).LoadCatalog(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Schemas, 1)
	assert.Equal(t, "sales", cat.Schemas[0].Name)
	require.Len(t, cat.Tables(), 1)
	assert.Equal(t, "order_lines", cat.Tables()[0].Name)
}

func TestLoader_Analyze(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	cat, err := postgres.NewLoader(pool, nil).LoadCatalog(ctx)
	require.NoError(t, err)

	a, err := association.NewAnalyzer(association.Options{TypesCompatible: postgres.TypesCompatible})
	require.NoError(t, err)
	res, err := a.Analyze(ctx, cat)
	require.NoError(t, err)

	ref := func(schema, table, column string) domain.ColumnRef {
		return domain.ColumnRef{Table: domain.TableRef{Schema: schema, Name: table}, Column: column}
	}
	assert.Contains(t, res.Associations, association.WeakAssociation{
		Source: ref("public", "reviews", "product_id"),
		Target: ref("public", "products", "id"),
		Kind:   association.KindExactKey,
	})
	assert.Contains(t, res.Associations, association.WeakAssociation{
		Source: ref("sales", "order_lines", "product_sku"),
		Target: ref("public", "products", "sku"),
		Kind:   association.KindPrefixedKey,
	})
	assert.Contains(t, res.Excluded, association.WeakAssociation{
		Source: ref("public", "products", "category_id"),
		Target: ref("public", "categories", "id"),
		Kind:   association.KindExactKey,
	})
}
