package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

type schemasTable struct{ t *txn }

type tablesTable struct{ t *txn }

const schemaCols = "schema_id, name, charset, collation"

func scanSchema(row interface{ Scan(...any) error }) (*types.Schema, error) {
	var s types.Schema
	if err := row.Scan(&s.SchemaID, &s.Name, &s.Charset, &s.Collation); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByID retrieves a schema by ID.
func (st schemasTable) FindByID(id string) (*types.Schema, error) {
	s, err := scanSchema(st.t.queryRow("SELECT "+schemaCols+" FROM schemas WHERE schema_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrSchemaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting schema %s: %w", id, err)
	}
	return s, nil
}

// FindAll returns every schema ordered by name.
func (st schemasTable) FindAll() ([]*types.Schema, error) {
	rows, err := st.t.query("SELECT " + schemaCols + " FROM schemas ORDER BY name, schema_id")
	if err != nil {
		return nil, fmt.Errorf("querying schemas: %w", err)
	}
	defer rows.Close()

	var out []*types.Schema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schema: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a schema. An empty SchemaID is filled from the generator.
func (st schemasTable) Create(s *types.Schema) error {
	if s.SchemaID == "" {
		s.SchemaID = st.t.ids.NewID()
	}
	_, err := st.t.exec(
		"INSERT INTO schemas ("+schemaCols+") VALUES (?, ?, ?, ?)",
		s.SchemaID, s.Name, s.Charset, s.Collation,
	)
	if err != nil {
		return fmt.Errorf("inserting schema: %w", err)
	}
	return nil
}

// ExistsByName reports whether a schema with the given name exists,
// ignoring ASCII case.
func (st schemasTable) ExistsByName(name string) (bool, error) {
	return st.t.exists("SELECT 1 FROM schemas WHERE name = ? COLLATE NOCASE LIMIT 1", name)
}

const tableCols = "table_id, schema_id, name, charset, collation, comment"

func scanTable(row interface{ Scan(...any) error }) (*types.Table, error) {
	var tb types.Table
	if err := row.Scan(&tb.TableID, &tb.SchemaID, &tb.Name, &tb.Charset, &tb.Collation, &tb.Comment); err != nil {
		return nil, err
	}
	return &tb, nil
}

// FindByID retrieves a table by ID.
func (tt tablesTable) FindByID(id string) (*types.Table, error) {
	tb, err := scanTable(tt.t.queryRow("SELECT "+tableCols+" FROM tables WHERE table_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting table %s: %w", id, err)
	}
	return tb, nil
}

// FindAllBySchemaID returns the tables of a schema ordered by name.
func (tt tablesTable) FindAllBySchemaID(schemaID string) ([]*types.Table, error) {
	rows, err := tt.t.query("SELECT "+tableCols+" FROM tables WHERE schema_id = ? ORDER BY name, table_id", schemaID)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	var out []*types.Table
	for rows.Next() {
		tb, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

// Create inserts a table. An empty TableID is filled from the generator.
func (tt tablesTable) Create(tb *types.Table) error {
	if tb.TableID == "" {
		tb.TableID = tt.t.ids.NewID()
	}
	_, err := tt.t.exec(
		"INSERT INTO tables ("+tableCols+") VALUES (?, ?, ?, ?, ?, ?)",
		tb.TableID, tb.SchemaID, tb.Name, tb.Charset, tb.Collation, tb.Comment,
	)
	if err != nil {
		return fmt.Errorf("inserting table: %w", err)
	}
	return nil
}

// ExistsByNameInSchema reports whether the schema has a table with the
// given name, ignoring ASCII case.
func (tt tablesTable) ExistsByNameInSchema(schemaID, name string) (bool, error) {
	return tt.t.exists("SELECT 1 FROM tables WHERE schema_id = ? AND name = ? COLLATE NOCASE LIMIT 1", schemaID, name)
}
