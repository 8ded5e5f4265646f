package association

import (
	"cmp"
	"slices"

	"github.com/relscope/relscope/internal/core/domain"
)

const testSchema = "public"

type tableBuilder struct {
	t domain.Table
}

func newTable(name string, cols ...string) *tableBuilder {
	b := &tableBuilder{t: domain.Table{Schema: testSchema, Name: name}}
	for i, c := range cols {
		b.t.Columns = append(b.t.Columns, domain.Column{Name: c, DataType: "integer", Ordinal: i + 1})
	}
	return b
}

func (b *tableBuilder) pk(cols ...string) *tableBuilder {
	b.t.PrimaryKey = &domain.Key{Name: b.t.Name + "_pkey", Columns: cols}
	return b
}

func (b *tableBuilder) unique(cols ...string) *tableBuilder {
	b.t.AlternateKeys = append(b.t.AlternateKeys, domain.Key{Columns: cols})
	return b
}

func (b *tableBuilder) fk(cols []string, refTable string, refCols []string) *tableBuilder {
	b.t.ForeignKeys = append(b.t.ForeignKeys, domain.ForeignKey{
		Columns:           cols,
		ReferencedTable:   domain.TableRef{Schema: testSchema, Name: refTable},
		ReferencedColumns: refCols,
	})
	return b
}

func (b *tableBuilder) typed(col, dataType string) *tableBuilder {
	for i := range b.t.Columns {
		if b.t.Columns[i].Name == col {
			b.t.Columns[i].DataType = dataType
		}
	}
	return b
}

func catalogOf(tables ...*tableBuilder) *domain.Catalog {
	s := domain.Schema{Name: testSchema}
	for _, b := range tables {
		s.Tables = append(s.Tables, b.t)
	}
	return &domain.Catalog{Schemas: []domain.Schema{s}}
}

func col(table, column string) domain.ColumnRef {
	return domain.ColumnRef{Table: domain.TableRef{Schema: testSchema, Name: table}, Column: column}
}

func tbl(name string) domain.TableRef {
	return domain.TableRef{Schema: testSchema, Name: name}
}

// canonical orients every association lowest endpoint first and sorts them,
// so results can be compared regardless of orientation.
func canonical(as []WeakAssociation) []WeakAssociation {
	out := make([]WeakAssociation, 0, len(as))
	for _, a := range as {
		if a.Target.Compare(a.Source) < 0 {
			a.Source, a.Target = a.Target, a.Source
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b WeakAssociation) int {
		if c := a.Source.Compare(b.Source); c != 0 {
			return c
		}
		if c := a.Target.Compare(b.Target); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return out
}
