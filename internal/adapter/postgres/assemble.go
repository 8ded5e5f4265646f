package postgres

import "github.com/relscope/relscope/internal/core/domain"

// catalogBuilder assembles a catalog from the flat rows of the catalog
// queries. Rows for tables that were not listed, such as partitions, are
// dropped.
type catalogBuilder struct {
	cat     *domain.Catalog
	schemas map[string]int
	tables  map[domain.TableRef]*tableSlot
	order   []domain.TableRef
}

type tableSlot struct {
	table domain.Table
}

func newCatalogBuilder(name string) *catalogBuilder {
	return &catalogBuilder{
		cat:     &domain.Catalog{Name: name},
		schemas: make(map[string]int),
		tables:  make(map[domain.TableRef]*tableSlot),
	}
}

func (b *catalogBuilder) addSchema(name string) {
	if _, ok := b.schemas[name]; ok {
		return
	}
	b.schemas[name] = len(b.cat.Schemas)
	b.cat.Schemas = append(b.cat.Schemas, domain.Schema{Name: name})
}

func (b *catalogBuilder) addTable(schema, name string, isView bool, comment string) {
	b.addSchema(schema)
	ref := domain.TableRef{Schema: schema, Name: name}
	if _, ok := b.tables[ref]; ok {
		return
	}
	b.tables[ref] = &tableSlot{table: domain.Table{
		Schema:  schema,
		Name:    name,
		IsView:  isView,
		Comment: comment,
	}}
	b.order = append(b.order, ref)
}

func (b *catalogBuilder) slot(schema, table string) *tableSlot {
	return b.tables[domain.TableRef{Schema: schema, Name: table}]
}

func (b *catalogBuilder) addColumn(schema, table string, col domain.Column) {
	if s := b.slot(schema, table); s != nil {
		s.table.Columns = append(s.table.Columns, col)
	}
}

func (b *catalogBuilder) addKey(schema, table string, key domain.Key, primary bool) {
	s := b.slot(schema, table)
	if s == nil {
		return
	}
	if primary {
		s.table.PrimaryKey = &key
		return
	}
	s.table.AlternateKeys = append(s.table.AlternateKeys, key)
}

func (b *catalogBuilder) addForeignKey(schema, table string, fk domain.ForeignKey) {
	if s := b.slot(schema, table); s != nil {
		s.table.ForeignKeys = append(s.table.ForeignKeys, fk)
	}
}

// build moves the tables into their schemas in insertion order.
func (b *catalogBuilder) build() *domain.Catalog {
	for _, ref := range b.order {
		i := b.schemas[ref.Schema]
		b.cat.Schemas[i].Tables = append(b.cat.Schemas[i].Tables, b.tables[ref].table)
	}
	return b.cat
}
