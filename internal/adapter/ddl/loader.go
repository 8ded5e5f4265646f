// Package ddl builds a catalog offline from a PostgreSQL schema dump, using
// the Postgres parser to read CREATE TABLE, ALTER TABLE, CREATE INDEX,
// CREATE VIEW and COMMENT ON statements. Other statements are ignored.
package ddl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/relscope/relscope/internal/core/domain"
)

// ErrParseFailed wraps parser errors.
var ErrParseFailed = errors.New("failed to parse DDL")

// DefaultSchema is assigned to unqualified object names.
const DefaultSchema = "public"

// Loader reads a catalog from a DDL file on every load.
type Loader struct {
	path    string
	schemas []string
}

// NewLoader returns a loader for the file at path. When schemas is not
// empty, tables outside of them are dropped.
func NewLoader(path string, schemas []string) *Loader {
	return &Loader{path: path, schemas: schemas}
}

func (l *Loader) Source() string {
	return "ddl:" + l.path
}

func (l *Loader) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading DDL file: %w", err)
	}
	cat, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	return filterSchemas(cat, l.schemas), nil
}

// Parse builds a catalog from DDL text.
func Parse(sql string) (*domain.Catalog, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	b := newBuilder()
	for _, raw := range tree.GetStmts() {
		if err := b.apply(raw.GetStmt()); err != nil {
			return nil, err
		}
	}
	return b.build()
}

func filterSchemas(cat *domain.Catalog, schemas []string) *domain.Catalog {
	if len(schemas) == 0 {
		return cat
	}
	out := &domain.Catalog{Name: cat.Name}
	for _, s := range cat.Schemas {
		if slices.Contains(schemas, s.Name) {
			out.Schemas = append(out.Schemas, s)
		}
	}
	return out
}
