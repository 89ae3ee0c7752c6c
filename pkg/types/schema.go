package types

// Schema owns tables. Constraint, index, and relationship names are unique
// within a schema.
type Schema struct {
	SchemaID  string `json:"schema_id"`
	Name      string `json:"name"`
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`
}

// Table is a relational table inside a schema. Columns, constraints, and
// indexes reference it by TableID; relationships reference it as parent
// (PkTableID) or child (FkTableID).
type Table struct {
	TableID   string `json:"table_id"`
	SchemaID  string `json:"schema_id"`
	Name      string `json:"name"`
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`
	Comment   string `json:"comment,omitempty"`
}
