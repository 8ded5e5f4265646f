package postgres

import (
	"fmt"
	"strings"
)

// schemaFilter returns a SQL WHERE clause fragment and args for filtering by schema.
// paramOffset is the starting $N parameter index (1-based).
// When schemas is empty, it excludes system schemas.
func schemaFilter(schemas []string, column string, paramOffset int) (clause string, args []any) {
	if len(schemas) == 0 {
		return fmt.Sprintf("%s NOT IN ('pg_catalog', 'information_schema') AND %s NOT LIKE 'pg\\_toast%%' AND %s NOT LIKE 'pg\\_temp\\_%%'",
			column, column, column), nil
	}
	placeholders := make([]string, len(schemas))
	args = make([]any, len(schemas))
	for i, s := range schemas {
		placeholders[i] = fmt.Sprintf("$%d", paramOffset+i)
		args[i] = s
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

var typeFamilies = map[string]string{
	"integer": "int", "bigint": "int", "smallint": "int", "int": "int",
	"int4": "int", "int8": "int", "int2": "int", "serial": "int",
	"bigserial": "int", "smallserial": "int",
	"uuid": "uuid",
	"text": "text", "character varying": "text", "varchar": "text",
	"character": "text", "char": "text", "bpchar": "text", "citext": "text",
	"numeric": "numeric", "decimal": "numeric",
}

// TypesCompatible reports whether two Postgres column types can hold the
// same key values. Integer widths, text types and type modifiers such as
// varchar(64) are not distinguished.
func TypesCompatible(a, b string) bool {
	a, b = baseType(a), baseType(b)
	fa, oka := typeFamilies[a]
	fb, okb := typeFamilies[b]
	if oka && okb {
		return fa == fb
	}
	return a == b
}

func baseType(t string) string {
	t = strings.ToLower(t)
	if i := strings.IndexByte(t, '('); i >= 0 {
		if j := strings.IndexByte(t[i:], ')'); j >= 0 {
			t = t[:i] + " " + t[i+j+1:]
		}
	}
	return strings.TrimPrefix(strings.Join(strings.Fields(t), " "), "pg_catalog.")
}
