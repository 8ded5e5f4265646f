package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/relscope/relscope/internal/core/domain"
)

type builder struct {
	schemas []string
	tables  map[domain.TableRef]*domain.Table
	order   []domain.TableRef
}

func newBuilder() *builder {
	return &builder{tables: make(map[domain.TableRef]*domain.Table)}
}

func (b *builder) addSchema(name string) {
	for _, s := range b.schemas {
		if s == name {
			return
		}
	}
	b.schemas = append(b.schemas, name)
}

func (b *builder) table(ref domain.TableRef) *domain.Table {
	return b.tables[ref]
}

func (b *builder) apply(stmt *pg_query.Node) error {
	switch {
	case stmt.GetCreateSchemaStmt() != nil:
		b.addSchema(stmt.GetCreateSchemaStmt().GetSchemaname())
	case stmt.GetCreateStmt() != nil:
		return b.createTable(stmt.GetCreateStmt())
	case stmt.GetAlterTableStmt() != nil:
		return b.alterTable(stmt.GetAlterTableStmt())
	case stmt.GetIndexStmt() != nil:
		b.createIndex(stmt.GetIndexStmt())
	case stmt.GetViewStmt() != nil:
		return b.createView(stmt.GetViewStmt())
	case stmt.GetCreateTableAsStmt() != nil:
		return b.createMatView(stmt.GetCreateTableAsStmt())
	case stmt.GetCommentStmt() != nil:
		b.comment(stmt.GetCommentStmt())
	}
	return nil
}

func rangeRef(rv *pg_query.RangeVar) domain.TableRef {
	schema := rv.GetSchemaname()
	if schema == "" {
		schema = DefaultSchema
	}
	return domain.TableRef{Schema: schema, Name: rv.GetRelname()}
}

func (b *builder) addTable(ref domain.TableRef, isView bool) (*domain.Table, error) {
	if _, dup := b.tables[ref]; dup {
		return nil, fmt.Errorf("%w: table %s is created twice", domain.ErrMalformedCatalog, ref)
	}
	b.addSchema(ref.Schema)
	t := &domain.Table{Schema: ref.Schema, Name: ref.Name, IsView: isView}
	b.tables[ref] = t
	b.order = append(b.order, ref)
	return t, nil
}

func (b *builder) createTable(cs *pg_query.CreateStmt) error {
	t, err := b.addTable(rangeRef(cs.GetRelation()), false)
	if err != nil {
		return err
	}
	for _, elt := range cs.GetTableElts() {
		switch {
		case elt.GetColumnDef() != nil:
			addColumn(t, elt.GetColumnDef())
		case elt.GetConstraint() != nil:
			addConstraint(t, elt.GetConstraint(), nil)
		}
	}
	for _, c := range cs.GetConstraints() {
		addConstraint(t, c.GetConstraint(), nil)
	}
	return nil
}

func (b *builder) alterTable(as *pg_query.AlterTableStmt) error {
	t := b.table(rangeRef(as.GetRelation()))
	if t == nil {
		return nil
	}
	for _, c := range as.GetCmds() {
		cmd := c.GetAlterTableCmd()
		switch cmd.GetSubtype() {
		case pg_query.AlterTableType_AT_AddColumn:
			if def := cmd.GetDef().GetColumnDef(); def != nil {
				addColumn(t, def)
			}
		case pg_query.AlterTableType_AT_AddConstraint:
			addConstraint(t, cmd.GetDef().GetConstraint(), nil)
		}
	}
	return nil
}

// createIndex records plain unique indexes as alternate keys. Partial and
// expression indexes do not identify rows.
func (b *builder) createIndex(is *pg_query.IndexStmt) {
	if !is.GetUnique() || is.GetWhereClause() != nil {
		return
	}
	t := b.table(rangeRef(is.GetRelation()))
	if t == nil {
		return
	}
	var cols []string
	for _, p := range is.GetIndexParams() {
		name := p.GetIndexElem().GetName()
		if name == "" {
			return
		}
		cols = append(cols, name)
	}
	if len(cols) > 0 {
		t.AlternateKeys = append(t.AlternateKeys, domain.Key{Name: is.GetIdxname(), Columns: cols})
	}
}

func (b *builder) createView(vs *pg_query.ViewStmt) error {
	t, err := b.addTable(rangeRef(vs.GetView()), true)
	if err != nil {
		return err
	}
	names := stringList(vs.GetAliases())
	if len(names) == 0 {
		names = selectColumns(vs.GetQuery())
	}
	for _, n := range names {
		t.Columns = append(t.Columns, domain.Column{Name: n, Nullable: true, Ordinal: len(t.Columns) + 1})
	}
	return nil
}

func (b *builder) createMatView(cs *pg_query.CreateTableAsStmt) error {
	if cs.GetObjtype() != pg_query.ObjectType_OBJECT_MATVIEW {
		return nil
	}
	into := cs.GetInto()
	t, err := b.addTable(rangeRef(into.GetRel()), true)
	if err != nil {
		return err
	}
	names := stringList(into.GetColNames())
	if len(names) == 0 {
		names = selectColumns(cs.GetQuery())
	}
	for _, n := range names {
		t.Columns = append(t.Columns, domain.Column{Name: n, Nullable: true, Ordinal: len(t.Columns) + 1})
	}
	return nil
}

func (b *builder) comment(cs *pg_query.CommentStmt) {
	parts := stringList(cs.GetObject().GetList().GetItems())
	switch cs.GetObjtype() {
	case pg_query.ObjectType_OBJECT_TABLE, pg_query.ObjectType_OBJECT_VIEW, pg_query.ObjectType_OBJECT_MATVIEW:
		if t := b.table(qualified(parts)); t != nil {
			t.Comment = cs.GetComment()
		}
	case pg_query.ObjectType_OBJECT_COLUMN:
		if len(parts) < 2 {
			return
		}
		t := b.table(qualified(parts[:len(parts)-1]))
		if t == nil {
			return
		}
		if col := t.Column(parts[len(parts)-1]); col != nil {
			col.Comment = cs.GetComment()
		}
	}
}

func qualified(parts []string) domain.TableRef {
	switch len(parts) {
	case 1:
		return domain.TableRef{Schema: DefaultSchema, Name: parts[0]}
	case 0:
		return domain.TableRef{}
	default:
		return domain.TableRef{Schema: parts[len(parts)-2], Name: parts[len(parts)-1]}
	}
}

func addColumn(t *domain.Table, def *pg_query.ColumnDef) {
	name := def.GetColname()
	col := domain.Column{
		Name:     name,
		DataType: typeName(def.GetTypeName()),
		Nullable: !def.GetIsNotNull(),
		Ordinal:  len(t.Columns) + 1,
	}
	t.Columns = append(t.Columns, col)
	for _, c := range def.GetConstraints() {
		con := c.GetConstraint()
		switch con.GetContype() {
		case pg_query.ConstrType_CONSTR_NOTNULL, pg_query.ConstrType_CONSTR_PRIMARY:
			t.Column(name).Nullable = false
		}
		addConstraint(t, con, []string{name})
	}
}

// addConstraint applies a key or foreign key constraint. Column-level
// constraints pass their column as implicit.
func addConstraint(t *domain.Table, con *pg_query.Constraint, implicit []string) {
	if con == nil {
		return
	}
	switch con.GetContype() {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		cols := orDefault(stringList(con.GetKeys()), implicit)
		if len(cols) > 0 {
			t.PrimaryKey = &domain.Key{Name: con.GetConname(), Columns: cols}
		}
	case pg_query.ConstrType_CONSTR_UNIQUE:
		cols := orDefault(stringList(con.GetKeys()), implicit)
		if len(cols) > 0 {
			t.AlternateKeys = append(t.AlternateKeys, domain.Key{Name: con.GetConname(), Columns: cols})
		}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		cols := orDefault(stringList(con.GetFkAttrs()), implicit)
		if len(cols) == 0 {
			return
		}
		t.ForeignKeys = append(t.ForeignKeys, domain.ForeignKey{
			Name:              con.GetConname(),
			Columns:           cols,
			ReferencedTable:   rangeRef(con.GetPktable()),
			ReferencedColumns: stringList(con.GetPkAttrs()),
		})
	}
}

func orDefault(cols, implicit []string) []string {
	if len(cols) > 0 {
		return cols
	}
	return implicit
}

// build resolves foreign keys that reference a primary key implicitly and
// returns the catalog.
func (b *builder) build() (*domain.Catalog, error) {
	cat := &domain.Catalog{}
	index := make(map[string]int, len(b.schemas))
	for _, s := range b.schemas {
		index[s] = len(cat.Schemas)
		cat.Schemas = append(cat.Schemas, domain.Schema{Name: s})
	}

	for _, ref := range b.order {
		t := b.tables[ref]
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if len(fk.ReferencedColumns) > 0 {
				continue
			}
			target := b.tables[fk.ReferencedTable]
			if target == nil || target.PrimaryKey == nil {
				return nil, fmt.Errorf("%w: foreign key on %s references %s without columns and no primary key is known",
					domain.ErrMalformedCatalog, ref, fk.ReferencedTable)
			}
			fk.ReferencedColumns = append([]string(nil), target.PrimaryKey.Columns...)
		}
		cat.Schemas[index[ref.Schema]].Tables = append(cat.Schemas[index[ref.Schema]].Tables, *t)
	}
	return cat, nil
}

func stringList(nodes []*pg_query.Node) []string {
	var out []string
	for _, n := range nodes {
		if s := n.GetString_(); s != nil {
			out = append(out, s.GetSval())
		}
	}
	return out
}

// selectColumns names the output columns of a simple SELECT: explicit
// aliases and plain column references. Other targets are unnamed and skipped.
func selectColumns(query *pg_query.Node) []string {
	var out []string
	for _, target := range query.GetSelectStmt().GetTargetList() {
		rt := target.GetResTarget()
		if name := rt.GetName(); name != "" {
			out = append(out, name)
			continue
		}
		fields := rt.GetVal().GetColumnRef().GetFields()
		if len(fields) == 0 {
			continue
		}
		if s := fields[len(fields)-1].GetString_(); s != nil {
			out = append(out, s.GetSval())
		}
	}
	return out
}

var internalTypeNames = map[string]string{
	"int2":        "smallint",
	"int4":        "integer",
	"int8":        "bigint",
	"serial":      "integer",
	"serial4":     "integer",
	"bigserial":   "bigint",
	"serial8":     "bigint",
	"smallserial": "smallint",
	"serial2":     "smallint",
	"float4":      "real",
	"float8":      "double precision",
	"bool":        "boolean",
	"varchar":     "character varying",
	"bpchar":      "character",
	"timestamptz": "timestamp with time zone",
	"timestamp":   "timestamp without time zone",
	"timetz":      "time with time zone",
	"time":        "time without time zone",
}

// typeName renders a parsed type the way format_type would for the common
// cases, e.g. varchar(32) as "character varying(32)".
func typeName(tn *pg_query.TypeName) string {
	var names []string
	for _, n := range tn.GetNames() {
		if s := n.GetString_(); s != nil {
			names = append(names, s.GetSval())
		}
	}
	if len(names) == 0 {
		return ""
	}
	name := names[len(names)-1]
	if pretty, ok := internalTypeNames[name]; ok {
		name = pretty
	} else if len(names) > 1 && names[0] != "pg_catalog" {
		name = strings.Join(names, ".")
	}

	var mods []string
	for _, m := range tn.GetTypmods() {
		if c := m.GetAConst(); c != nil && c.GetIval() != nil {
			mods = append(mods, fmt.Sprint(c.GetIval().GetIval()))
		}
	}
	if len(mods) > 0 {
		if i := strings.Index(name, " with"); i >= 0 {
			name = name[:i] + "(" + strings.Join(mods, ",") + ")" + name[i:]
		} else {
			name += "(" + strings.Join(mods, ",") + ")"
		}
	}
	for range tn.GetArrayBounds() {
		name += "[]"
	}
	return name
}
