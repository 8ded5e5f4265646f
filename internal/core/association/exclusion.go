package association

import "github.com/relscope/relscope/internal/core/domain"

// ExcludeDeclared drops every proposal whose columns are already related by
// a declared foreign key, in either direction. Multi-column foreign keys
// contribute each of their positional column pairs.
func ExcludeDeclared(tables []*domain.Table, resolved []Proposal) (kept, excluded []Proposal) {
	declared := make(map[[2]domain.ColumnRef]bool)
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			for i := range min(len(fk.Columns), len(fk.ReferencedColumns)) {
				local := domain.ColumnRef{Table: t.Ref(), Column: fk.Columns[i]}
				remote := domain.ColumnRef{Table: fk.ReferencedTable, Column: fk.ReferencedColumns[i]}
				declared[orderedColumns(local, remote)] = true
			}
		}
	}

	for _, p := range resolved {
		if declared[p.columnPair()] {
			excluded = append(excluded, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, excluded
}
