// Package introspect reads the catalog of a live PostgreSQL or MySQL
// database and replays it into the metadata store through the services.
package introspect

import (
	"strings"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Column is a column as read from the catalog.
type Column struct {
	Name          string
	DataType      string
	Length        *int
	Precision     *int
	Scale         *int
	NotNull       bool
	AutoIncrement bool
	Default       string
	Charset       string
	Collation     string
	Comment       string
}

// Constraint is a table constraint. Expr holds a CHECK or DEFAULT expression.
type Constraint struct {
	Name    string
	Kind    types.ConstraintKind
	Columns []string
	Expr    string
}

// ForeignKey is a foreign key constraint. Columns and ParentColumns are
// matched by position.
type ForeignKey struct {
	Name          string
	ParentTable   string
	Columns       []string
	ParentColumns []string
}

// Index is a secondary index not backing a constraint.
type Index struct {
	Name    string
	Method  string
	Columns []IndexColumn
}

// IndexColumn is one key column of an index.
type IndexColumn struct {
	Name string
	Desc bool
}

// Table holds everything read for one table.
type Table struct {
	Name        string
	Charset     string
	Collation   string
	Comment     string
	Columns     []Column
	Constraints []Constraint
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Catalog is one database schema read in table order.
type Catalog struct {
	Schema    string
	Encoding  string
	Collation string
	Tables    []*Table
}

// Table returns the table named name, or nil.
func (c *Catalog) Table(name string) *Table {
	for _, t := range c.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// PrimaryKey returns the table's primary key constraint, or nil.
func (t *Table) PrimaryKey() *Constraint {
	for i := range t.Constraints {
		if t.Constraints[i].Kind == types.ConstraintPrimaryKey {
			return &t.Constraints[i]
		}
	}
	return nil
}

// Identifying reports whether every column of fk is part of the table's
// primary key.
func (t *Table) Identifying(fk ForeignKey) bool {
	pk := t.PrimaryKey()
	if pk == nil || len(fk.Columns) == 0 {
		return false
	}
	members := make(map[string]bool, len(pk.Columns))
	for _, c := range pk.Columns {
		members[c] = true
	}
	for _, c := range fk.Columns {
		if !members[c] {
			return false
		}
	}
	return true
}

var pgTypeNames = map[string]string{
	"int2":        "SMALLINT",
	"int4":        "INTEGER",
	"int8":        "BIGINT",
	"float4":      "REAL",
	"float8":      "DOUBLE PRECISION",
	"bool":        "BOOLEAN",
	"bpchar":      "CHAR",
	"varchar":     "VARCHAR",
	"timestamp":   "TIMESTAMP",
	"timestamptz": "TIMESTAMPTZ",
	"timetz":      "TIMETZ",
}

// TypeName maps a pg_type name to the SQL spelling stored in the catalog.
// Array types keep their element name with a [] suffix.
func TypeName(typname string) string {
	if elem, ok := strings.CutPrefix(typname, "_"); ok {
		return TypeName(elem) + "[]"
	}
	if name, ok := pgTypeNames[typname]; ok {
		return name
	}
	return strings.ToUpper(typname)
}

var indexMethods = map[string]types.IndexType{
	"btree":    types.IndexBTree,
	"hash":     types.IndexHash,
	"gin":      types.IndexGIN,
	"gist":     types.IndexGiST,
	"fulltext": types.IndexFullText,
	"spatial":  types.IndexSpatial,
}

// IndexType maps a PostgreSQL access method or a MySQL index type to an
// index type.
func IndexType(method string) (types.IndexType, bool) {
	t, ok := indexMethods[strings.ToLower(method)]
	return t, ok
}
