package port

import (
	"context"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
)

// CatalogLoader retrieves a complete catalog snapshot from one source.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*domain.Catalog, error)
	// Source names where the catalog comes from, e.g. "postgres" or "ddl:schema.sql".
	Source() string
}

type SchemaInfo struct {
	Name       string `json:"name"`
	TableCount int    `json:"table_count"`
}

type TableInfo struct {
	Schema       string `json:"schema"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	ColumnCount  int    `json:"column_count"`
	Associations int    `json:"weak_associations"`
	Comment      string `json:"comment,omitempty"`
}

// TableDetail is a table together with the weak associations that touch it.
type TableDetail struct {
	domain.Table
	WeakAssociations []association.WeakAssociation `json:"weak_associations"`
}
