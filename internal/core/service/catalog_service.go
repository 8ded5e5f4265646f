package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
	"github.com/relscope/relscope/internal/core/port"
)

// ErrNoSnapshot is returned before the first successful refresh.
var ErrNoSnapshot = errors.New("no catalog snapshot loaded")

// Runner produces a fresh snapshot. *AnalysisService implements it.
type Runner interface {
	Run(ctx context.Context) (*Snapshot, error)
}

// CatalogService serves reads from the current snapshot. A refresh swaps in
// a complete new snapshot or leaves the old one in place.
type CatalogService struct {
	runner Runner

	refreshMu sync.Mutex
	mu        sync.RWMutex
	current   *Snapshot
}

func NewCatalogService(runner Runner) *CatalogService {
	return &CatalogService{runner: runner}
}

// Refresh reloads and reanalyzes the catalog. Concurrent refreshes run one
// at a time.
func (s *CatalogService) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	return snap, nil
}

// Current returns the snapshot reads are served from.
func (s *CatalogService) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

func (s *CatalogService) ListSchemas(_ context.Context) ([]port.SchemaInfo, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	out := make([]port.SchemaInfo, 0, len(snap.Catalog.Schemas))
	for _, sc := range snap.Catalog.Schemas {
		out = append(out, port.SchemaInfo{Name: sc.Name, TableCount: len(sc.Tables)})
	}
	return out, nil
}

// ListTables lists the tables of one schema, or of all schemas when schema
// is empty.
func (s *CatalogService) ListTables(_ context.Context, schema string) ([]port.TableInfo, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	if schema != "" && !hasSchema(snap.Catalog, schema) {
		return nil, fmt.Errorf("schema %q %w", schema, domain.ErrNotFound)
	}

	out := []port.TableInfo{}
	for _, t := range snap.Catalog.Tables() {
		if schema != "" && t.Schema != schema {
			continue
		}
		typ := "table"
		if t.IsView {
			typ = "view"
		}
		out = append(out, port.TableInfo{
			Schema:       t.Schema,
			Name:         t.Name,
			Type:         typ,
			ColumnCount:  len(t.Columns),
			Associations: len(snap.Result.For(t.Ref())),
			Comment:      t.Comment,
		})
	}
	return out, nil
}

func (s *CatalogService) DescribeTable(_ context.Context, schema, name string) (*port.TableDetail, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	t, err := snap.Catalog.FindTable(schema, name)
	if err != nil {
		return nil, err
	}
	assocs := snap.Result.For(t.Ref())
	if assocs == nil {
		assocs = []association.WeakAssociation{}
	}
	return &port.TableDetail{Table: *t, WeakAssociations: assocs}, nil
}

// WeakAssociations returns the associations touching one table, or all of
// them when table is empty.
func (s *CatalogService) WeakAssociations(_ context.Context, schema, table string) ([]association.WeakAssociation, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	if table == "" {
		out := make([]association.WeakAssociation, 0, len(snap.Result.Associations))
		for _, wa := range snap.Result.Associations {
			if schema == "" || wa.Source.Table.Schema == schema || wa.Target.Table.Schema == schema {
				out = append(out, wa)
			}
		}
		return out, nil
	}
	t, err := snap.Catalog.FindTable(schema, table)
	if err != nil {
		return nil, err
	}
	out := snap.Result.For(t.Ref())
	if out == nil {
		out = []association.WeakAssociation{}
	}
	return out, nil
}

func hasSchema(cat *domain.Catalog, name string) bool {
	for _, sc := range cat.Schemas {
		if sc.Name == name {
			return true
		}
	}
	return false
}
