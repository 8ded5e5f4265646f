package domain

import (
	"fmt"
	"strings"
)

// TableRef identifies a table within a catalog.
type TableRef struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

func (r TableRef) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// Compare orders table refs by schema, then name.
func (r TableRef) Compare(o TableRef) int {
	if c := strings.Compare(r.Schema, o.Schema); c != 0 {
		return c
	}
	return strings.Compare(r.Name, o.Name)
}

// ColumnRef identifies a column within a catalog.
type ColumnRef struct {
	Table  TableRef `json:"table"`
	Column string   `json:"column"`
}

func (r ColumnRef) String() string {
	return r.Table.String() + "." + r.Column
}

// Compare orders column refs by table, then column name.
func (r ColumnRef) Compare(o ColumnRef) int {
	if c := r.Table.Compare(o.Table); c != 0 {
		return c
	}
	return strings.Compare(r.Column, o.Column)
}

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Ordinal  int    `json:"ordinal"`
}

// Key is a primary or unique constraint. Columns are in constraint order.
type Key struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ForeignKey is a declared constraint. Columns[i] references ReferencedColumns[i].
type ForeignKey struct {
	Name              string   `json:"name,omitempty"`
	Columns           []string `json:"columns"`
	ReferencedTable   TableRef `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

type Table struct {
	Schema        string       `json:"schema"`
	Name          string       `json:"name"`
	Comment       string       `json:"comment,omitempty"`
	IsView        bool         `json:"is_view,omitempty"`
	Columns       []Column     `json:"columns"`
	PrimaryKey    *Key         `json:"primary_key,omitempty"`
	AlternateKeys []Key        `json:"alternate_keys,omitempty"`
	ForeignKeys   []ForeignKey `json:"foreign_keys,omitempty"`
}

func (t *Table) Ref() TableRef {
	return TableRef{Schema: t.Schema, Name: t.Name}
}

// Column returns the named column, or nil when the table has no such column.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// Catalog is the root of one database's introspected model. It is treated as
// immutable once loaded; derived data is kept outside of it.
type Catalog struct {
	Name    string   `json:"name,omitempty"`
	Schemas []Schema `json:"schemas"`
}

// Tables returns pointers to every table in schema order.
func (c *Catalog) Tables() []*Table {
	if c == nil {
		return nil
	}
	var out []*Table
	for i := range c.Schemas {
		for j := range c.Schemas[i].Tables {
			out = append(out, &c.Schemas[i].Tables[j])
		}
	}
	return out
}

// Table looks up a table by reference.
func (c *Catalog) Table(ref TableRef) (*Table, error) {
	if c != nil {
		for i := range c.Schemas {
			if c.Schemas[i].Name != ref.Schema {
				continue
			}
			for j := range c.Schemas[i].Tables {
				if c.Schemas[i].Tables[j].Name == ref.Name {
					return &c.Schemas[i].Tables[j], nil
				}
			}
		}
	}
	return nil, fmt.Errorf("table %q %w", ref.String(), ErrNotFound)
}

// FindTable resolves a table by name, optionally restricted to one schema.
// An empty schema matches the first table with that name in schema order.
func (c *Catalog) FindTable(schema, name string) (*Table, error) {
	if schema != "" {
		return c.Table(TableRef{Schema: schema, Name: name})
	}
	for _, t := range c.Tables() {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %q %w", name, ErrNotFound)
}

// Validate checks the preconditions the retrieval pipeline is expected to
// guarantee. Violations wrap ErrMalformedCatalog.
func (c *Catalog) Validate() error {
	if c == nil {
		return nil
	}
	for _, s := range c.Schemas {
		for _, t := range s.Tables {
			if t.Schema != s.Name {
				return fmt.Errorf("%w: table %q lists schema %q but is stored under schema %q",
					ErrMalformedCatalog, t.Name, t.Schema, s.Name)
			}
		}
	}

	seen := make(map[TableRef]*Table)
	for _, t := range c.Tables() {
		if t.Name == "" {
			return fmt.Errorf("%w: table with empty name in schema %q", ErrMalformedCatalog, t.Schema)
		}
		ref := t.Ref()
		if _, dup := seen[ref]; dup {
			return fmt.Errorf("%w: duplicate table %s", ErrMalformedCatalog, ref)
		}
		seen[ref] = t
		if err := validateColumns(t); err != nil {
			return err
		}
	}

	for _, t := range c.Tables() {
		if err := validateKeys(t); err != nil {
			return err
		}
		for _, fk := range t.ForeignKeys {
			if err := validateForeignKey(t, fk, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateColumns(t *Table) error {
	names := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: table %s has a column with an empty name", ErrMalformedCatalog, t.Ref())
		}
		if names[col.Name] {
			return fmt.Errorf("%w: table %s has duplicate column %q", ErrMalformedCatalog, t.Ref(), col.Name)
		}
		names[col.Name] = true
	}
	return nil
}

func validateKeys(t *Table) error {
	if t.PrimaryKey != nil {
		if err := keyColumnsExist(t, "primary key", *t.PrimaryKey); err != nil {
			return err
		}
	}
	for _, ak := range t.AlternateKeys {
		if err := keyColumnsExist(t, "alternate key", ak); err != nil {
			return err
		}
	}
	return nil
}

func keyColumnsExist(t *Table, kind string, k Key) error {
	if len(k.Columns) == 0 {
		return fmt.Errorf("%w: %s %q on %s has no columns", ErrMalformedCatalog, kind, k.Name, t.Ref())
	}
	for _, name := range k.Columns {
		if t.Column(name) == nil {
			return fmt.Errorf("%w: %s %q on %s references unknown column %q", ErrMalformedCatalog, kind, k.Name, t.Ref(), name)
		}
	}
	return nil
}

// validateForeignKey requires the local columns to exist. Referenced columns
// are only checked when the referenced table was loaded; schema filtering can
// legitimately leave it out of the catalog.
func validateForeignKey(t *Table, fk ForeignKey, tables map[TableRef]*Table) error {
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.ReferencedColumns) {
		return fmt.Errorf("%w: foreign key %q on %s maps %d columns to %d",
			ErrMalformedCatalog, fk.Name, t.Ref(), len(fk.Columns), len(fk.ReferencedColumns))
	}
	for _, name := range fk.Columns {
		if t.Column(name) == nil {
			return fmt.Errorf("%w: foreign key %q on %s references unknown column %q", ErrMalformedCatalog, fk.Name, t.Ref(), name)
		}
	}
	target, ok := tables[fk.ReferencedTable]
	if !ok {
		return nil
	}
	for _, name := range fk.ReferencedColumns {
		if target.Column(name) == nil {
			return fmt.Errorf("%w: foreign key %q on %s references unknown column %s.%s",
				ErrMalformedCatalog, fk.Name, t.Ref(), fk.ReferencedTable, name)
		}
	}
	return nil
}
