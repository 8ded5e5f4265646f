package rules

import (
	"context"

	"github.com/relscope/relscope/internal/core/domain"
	"github.com/relscope/relscope/internal/core/port"
)

// MergeCatalog fills empty table and column comments with descriptions from
// the context section, so database COMMENT ON values always take precedence.
func MergeCatalog(cat *domain.Catalog, ctx ContextConfig) {
	if len(ctx.Tables) == 0 {
		return
	}
	for _, t := range cat.Tables() {
		tc, ok := ctx.Tables[t.Schema+"."+t.Name]
		if !ok {
			continue
		}
		if t.Comment == "" && tc.Description != "" {
			t.Comment = tc.Description
		}
		for i, col := range t.Columns {
			if cc, ok := tc.Columns[col.Name]; ok && col.Comment == "" && cc.Description != "" {
				t.Columns[i].Comment = cc.Description
			}
		}
	}
}

// ContextLoader decorates a CatalogLoader with rules-based documentation.
type ContextLoader struct {
	inner port.CatalogLoader
	rules *Rules
}

func NewContextLoader(inner port.CatalogLoader, r *Rules) *ContextLoader {
	return &ContextLoader{inner: inner, rules: r}
}

func (l *ContextLoader) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	cat, err := l.inner.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	MergeCatalog(cat, l.rules.Context)
	return cat, nil
}

func (l *ContextLoader) Source() string {
	return l.inner.Source()
}
