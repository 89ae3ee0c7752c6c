// This file loads JSONL files into SQLite on Attach.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. The same list drives persistence, so the files are written in
// this order too.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{"schemas.jsonl", "schemas", []string{"schema_id", "name", "charset", "collation"}},
	{"tables.jsonl", "tables", []string{"table_id", "schema_id", "name", "charset", "collation", "comment"}},
	{"columns.jsonl", "columns", []string{"column_id", "table_id", "name", "data_type", "length", "precision", "scale", "seq_no", "auto_increment", "charset", "collation", "comment"}},
	{"constraints.jsonl", "constraints", []string{"constraint_id", "table_id", "name", "kind", "check_expr", "default_expr"}},
	{"constraint_columns.jsonl", "constraint_columns", []string{"constraint_column_id", "constraint_id", "column_id", "seq_no"}},
	{"relationships.jsonl", "relationships", []string{"relationship_id", "schema_id", "fk_table_id", "pk_table_id", "name", "kind", "cardinality"}},
	{"relationship_columns.jsonl", "relationship_columns", []string{"relationship_column_id", "relationship_id", "pk_column_id", "fk_column_id", "seq_no"}},
	{"indexes.jsonl", "indexes", []string{"index_id", "table_id", "name", "type"}},
	{"index_columns.jsonl", "index_columns", []string{"index_column_id", "index_id", "column_id", "seq_no", "sort_dir"}},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts records into
// the corresponding SQLite tables. Loading is transactional: all succeed or
// the database remains empty. Malformed lines are skipped and unknown
// fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mapping := range jsonlTableMapping {
		path := filepath.Join(dataDir, mapping.file)
		records, err := readJSONL(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", mapping.file, err)
		}

		if len(records) == 0 {
			continue
		}

		if err := insertRecords(tx, mapping.table, mapping.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}

	return nil
}

// insertRecords inserts parsed JSONL records into a SQLite table. Only the
// mapped columns are extracted and unknown fields are ignored. A missing
// field inserts NULL, so a record lacking a required attribute fails the
// whole load rather than leaving a half-connected graph.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			val, ok := obj[col]
			if !ok {
				args[i] = nil
				continue
			}
			switch v := val.(type) {
			case float64:
				// Every numeric attribute in the model is an integer.
				args[i] = int64(v)
			case bool:
				if v {
					args[i] = int64(1)
				} else {
					args[i] = int64(0)
				}
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting %s record: %w", table, err)
		}
	}

	return nil
}
