package sqlite

import "strings"

// Schema DDL for the metadata tables. Optional text attributes are stored
// as empty strings rather than NULL; only numeric type modifiers are
// nullable.
const (
	createSchemas = `CREATE TABLE schemas (
    schema_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    charset TEXT NOT NULL DEFAULT '',
    collation TEXT NOT NULL DEFAULT ''
);`

	createTables = `CREATE TABLE tables (
    table_id TEXT PRIMARY KEY,
    schema_id TEXT NOT NULL,
    name TEXT NOT NULL,
    charset TEXT NOT NULL DEFAULT '',
    collation TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT ''
);`

	createColumns = `CREATE TABLE columns (
    column_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    data_type TEXT NOT NULL,
    length INTEGER,
    precision INTEGER,
    scale INTEGER,
    seq_no INTEGER NOT NULL,
    auto_increment INTEGER NOT NULL DEFAULT 0,
    charset TEXT NOT NULL DEFAULT '',
    collation TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT ''
);`

	createConstraints = `CREATE TABLE constraints (
    constraint_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    check_expr TEXT NOT NULL DEFAULT '',
    default_expr TEXT NOT NULL DEFAULT ''
);`

	createConstraintColumns = `CREATE TABLE constraint_columns (
    constraint_column_id TEXT PRIMARY KEY,
    constraint_id TEXT NOT NULL,
    column_id TEXT NOT NULL,
    seq_no INTEGER NOT NULL
);`

	createRelationships = `CREATE TABLE relationships (
    relationship_id TEXT PRIMARY KEY,
    schema_id TEXT NOT NULL,
    fk_table_id TEXT NOT NULL,
    pk_table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    cardinality TEXT NOT NULL
);`

	createRelationshipColumns = `CREATE TABLE relationship_columns (
    relationship_column_id TEXT PRIMARY KEY,
    relationship_id TEXT NOT NULL,
    pk_column_id TEXT NOT NULL,
    fk_column_id TEXT NOT NULL,
    seq_no INTEGER NOT NULL
);`

	createIndexes = `CREATE TABLE indexes (
    index_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL
);`

	createIndexColumns = `CREATE TABLE index_columns (
    index_column_id TEXT PRIMARY KEY,
    index_id TEXT NOT NULL,
    column_id TEXT NOT NULL,
    seq_no INTEGER NOT NULL,
    sort_dir TEXT NOT NULL
);`
)

// Index DDL for the lookups the engine performs on every cascade hop.
const (
	idxTablesSchema           = `CREATE INDEX idx_tables_schema ON tables(schema_id);`
	idxColumnsTable           = `CREATE INDEX idx_columns_table ON columns(table_id, seq_no);`
	idxConstraintsTable       = `CREATE INDEX idx_constraints_table ON constraints(table_id);`
	idxConstraintColumnsOwner = `CREATE INDEX idx_constraint_columns_owner ON constraint_columns(constraint_id, seq_no);`
	idxConstraintColumnsCol   = `CREATE INDEX idx_constraint_columns_column ON constraint_columns(column_id);`
	idxRelationshipsParent    = `CREATE INDEX idx_relationships_parent ON relationships(pk_table_id);`
	idxRelationshipsChild     = `CREATE INDEX idx_relationships_child ON relationships(fk_table_id);`
	idxRelColumnsOwner        = `CREATE INDEX idx_relationship_columns_owner ON relationship_columns(relationship_id, seq_no);`
	idxRelColumnsPk           = `CREATE INDEX idx_relationship_columns_pk ON relationship_columns(pk_column_id);`
	idxRelColumnsFk           = `CREATE INDEX idx_relationship_columns_fk ON relationship_columns(fk_column_id);`
	idxIndexesTable           = `CREATE INDEX idx_indexes_table ON indexes(table_id);`
	idxIndexColumnsOwner      = `CREATE INDEX idx_index_columns_owner ON index_columns(index_id, seq_no);`
	idxIndexColumnsCol        = `CREATE INDEX idx_index_columns_column ON index_columns(column_id);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createSchemas,
	createTables,
	createColumns,
	createConstraints,
	createConstraintColumns,
	createRelationships,
	createRelationshipColumns,
	createIndexes,
	createIndexColumns,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxTablesSchema,
	idxColumnsTable,
	idxConstraintsTable,
	idxConstraintColumnsOwner,
	idxConstraintColumnsCol,
	idxRelationshipsParent,
	idxRelationshipsChild,
	idxRelColumnsOwner,
	idxRelColumnsPk,
	idxRelColumnsFk,
	idxIndexesTable,
	idxIndexColumnsOwner,
	idxIndexColumnsCol,
}

// schemaSQL is the full DDL script executed on Attach.
func schemaSQL() string {
	return strings.Join(append(append([]string{}, schemaDDL...), indexDDL...), "\n")
}
