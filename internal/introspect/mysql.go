package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// ConnectMySQL opens a MySQL handle for dsn and pings it. The returned name
// is the database named in the DSN, if any.
func ConnectMySQL(ctx context.Context, dsn string) (*sql.DB, string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("parsing DSN: %w", err)
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("creating connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("pinging database: %w", err)
	}
	return db, cfg.DBName, nil
}

// FetchMySQL reads one MySQL database from information_schema. An empty
// schema reads the connection's current database.
func FetchMySQL(ctx context.Context, db *sql.DB, schema string) (*Catalog, error) {
	if schema == "" {
		var current sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
			return nil, fmt.Errorf("querying current database: %w", err)
		}
		if !current.Valid {
			return nil, errors.New("no database selected and none named")
		}
		schema = current.String
	}

	cat := &Catalog{Schema: schema}
	if err := db.QueryRowContext(ctx, `
		SELECT default_character_set_name, default_collation_name
		FROM information_schema.schemata WHERE schema_name = ?
	`, schema).Scan(&cat.Encoding, &cat.Collation); err != nil {
		return nil, fmt.Errorf("querying database defaults: %w", err)
	}

	byName, err := mysqlTablesAndColumns(ctx, db, cat)
	if err != nil {
		return nil, fmt.Errorf("querying tables and columns: %w", err)
	}
	if len(cat.Tables) == 0 {
		return cat, nil
	}

	backing, err := mysqlConstraints(ctx, db, schema, byName)
	if err != nil {
		return nil, fmt.Errorf("querying constraints: %w", err)
	}

	if err := mysqlChecks(ctx, db, schema, byName); err != nil {
		return nil, fmt.Errorf("querying check constraints: %w", err)
	}

	if err := mysqlForeignKeys(ctx, db, schema, byName); err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}

	if err := mysqlIndexes(ctx, db, schema, byName, backing); err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}

	return cat, nil
}

// mysqlSized lists the types whose character_maximum_length is a declared
// length rather than a storage limit.
var mysqlSized = map[string]bool{
	"char": true, "varchar": true, "binary": true, "varbinary": true,
}

// mysqlTextual lists the types whose literal defaults need quoting.
var mysqlTextual = map[string]bool{
	"char": true, "varchar": true, "tinytext": true, "text": true,
	"mediumtext": true, "longtext": true, "enum": true, "set": true,
}

func mysqlTablesAndColumns(ctx context.Context, db *sql.DB, cat *Catalog) (map[string]*Table, error) {
	query := `
		SELECT
			t.table_name,
			COALESCE(t.table_comment, ''),
			COALESCE(t.table_collation, ''),
			COALESCE(cs.character_set_name, ''),
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable,
			c.column_default,
			c.extra,
			COALESCE(c.character_set_name, ''),
			COALESCE(c.collation_name, ''),
			COALESCE(c.column_comment, '')
		FROM information_schema.tables t
		JOIN information_schema.columns c
			ON c.table_schema = t.table_schema AND c.table_name = t.table_name
		LEFT JOIN information_schema.collations cs ON cs.collation_name = t.table_collation
		WHERE t.table_schema = ?
			AND t.table_type = 'BASE TABLE'
		ORDER BY t.table_name, c.ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, cat.Schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]*Table)
	for rows.Next() {
		var tableName, tableComment, tableCollation, tableCharset string
		var dataType, nullable, extra string
		var length, precision, scale sql.NullInt64
		var def sql.NullString
		var col Column
		if err := rows.Scan(&tableName, &tableComment, &tableCollation, &tableCharset,
			&col.Name, &dataType, &length, &precision, &scale, &nullable, &def, &extra,
			&col.Charset, &col.Collation, &col.Comment); err != nil {
			return nil, err
		}

		dataType = strings.ToLower(dataType)
		col.DataType = strings.ToUpper(dataType)
		col.NotNull = nullable == "NO"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if mysqlSized[dataType] && length.Valid {
			col.Length = intPtr(length.Int64)
		}
		if (dataType == "decimal" || dataType == "numeric") && precision.Valid {
			col.Precision = intPtr(precision.Int64)
			if scale.Valid {
				col.Scale = intPtr(scale.Int64)
			}
		}
		if def.Valid {
			col.Default = mysqlDefault(dataType, extra, def.String)
		}

		tbl, ok := tables[tableName]
		if !ok {
			tbl = &Table{Name: tableName, Comment: tableComment, Charset: tableCharset, Collation: tableCollation}
			tables[tableName] = tbl
			cat.Tables = append(cat.Tables, tbl)
		}
		tbl.Columns = append(tbl.Columns, col)
	}

	return tables, rows.Err()
}

// mysqlDefault turns column_default into an expression. Literal defaults of
// textual columns come back unquoted; DEFAULT_GENERATED marks an expression.
func mysqlDefault(dataType, extra, def string) string {
	if !mysqlTextual[dataType] || strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED") {
		return def
	}
	return "'" + strings.ReplaceAll(def, "'", "''") + "'"
}

func intPtr(v int64) *int {
	n := int(v)
	return &n
}

// mysqlConstraints reads primary key and unique constraints. It returns the
// names of the indexes backing them, per table.
func mysqlConstraints(ctx context.Context, db *sql.DB, schema string, tables map[string]*Table) (map[string]map[string]bool, error) {
	query := `
		SELECT tc.table_name, tc.constraint_name, tc.constraint_type, k.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage k
			ON k.constraint_schema = tc.constraint_schema
			AND k.constraint_name = tc.constraint_name
			AND k.table_name = tc.table_name
		WHERE tc.table_schema = ?
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		ORDER BY tc.table_name,
			CASE tc.constraint_type WHEN 'PRIMARY KEY' THEN 0 ELSE 1 END,
			tc.constraint_name, k.ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backing := make(map[string]map[string]bool)
	for rows.Next() {
		var tableName, name, kind, colName string
		if err := rows.Scan(&tableName, &name, &kind, &colName); err != nil {
			return nil, err
		}
		tbl, ok := tables[tableName]
		if !ok {
			continue
		}
		if backing[tableName] == nil {
			backing[tableName] = make(map[string]bool)
		}
		backing[tableName][name] = true

		con := Constraint{Name: name, Kind: types.ConstraintUnique}
		// Every MySQL primary key is named PRIMARY.
		if kind == "PRIMARY KEY" {
			con.Kind = types.ConstraintPrimaryKey
			con.Name = tableName + "_pkey"
		}
		n := len(tbl.Constraints)
		if n == 0 || tbl.Constraints[n-1].Name != con.Name {
			tbl.Constraints = append(tbl.Constraints, con)
			n++
		}
		tbl.Constraints[n-1].Columns = append(tbl.Constraints[n-1].Columns, colName)
	}

	return backing, rows.Err()
}

// mysqlChecks reads CHECK constraints. information_schema.check_constraints
// exists from MySQL 8.0.16; older servers have none to read.
func mysqlChecks(ctx context.Context, db *sql.DB, schema string, tables map[string]*Table) error {
	var present int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'information_schema' AND table_name = 'CHECK_CONSTRAINTS'
	`).Scan(&present); err != nil {
		return err
	}
	if present == 0 {
		return nil
	}

	query := `
		SELECT tc.table_name, cc.constraint_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON tc.constraint_schema = cc.constraint_schema
			AND tc.constraint_name = cc.constraint_name
		WHERE cc.constraint_schema = ?
			AND tc.constraint_type = 'CHECK'
		ORDER BY tc.table_name, cc.constraint_name
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, clause string
		if err := rows.Scan(&tableName, &name, &clause); err != nil {
			return err
		}
		if tbl, ok := tables[tableName]; ok {
			tbl.Constraints = append(tbl.Constraints, Constraint{Name: name, Kind: types.ConstraintCheck, Expr: clause})
		}
	}

	return rows.Err()
}

func mysqlForeignKeys(ctx context.Context, db *sql.DB, schema string, tables map[string]*Table) error {
	query := `
		SELECT table_name, constraint_name, column_name,
			referenced_table_schema, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND referenced_table_name IS NOT NULL
		ORDER BY table_name, constraint_name, ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, colName, parentSchema, parentTable, parentCol string
		if err := rows.Scan(&tableName, &name, &colName, &parentSchema, &parentTable, &parentCol); err != nil {
			return err
		}
		if parentSchema != schema {
			continue
		}
		tbl, ok := tables[tableName]
		if !ok {
			continue
		}
		n := len(tbl.ForeignKeys)
		if n == 0 || tbl.ForeignKeys[n-1].Name != name {
			tbl.ForeignKeys = append(tbl.ForeignKeys, ForeignKey{Name: name, ParentTable: parentTable})
			n++
		}
		tbl.ForeignKeys[n-1].Columns = append(tbl.ForeignKeys[n-1].Columns, colName)
		tbl.ForeignKeys[n-1].ParentColumns = append(tbl.ForeignKeys[n-1].ParentColumns, parentCol)
	}

	return rows.Err()
}

// mysqlIndexes reads indexes that do not back a primary key or unique
// constraint. Functional key parts have no column name and drop the index.
func mysqlIndexes(ctx context.Context, db *sql.DB, schema string, tables map[string]*Table, backing map[string]map[string]bool) error {
	query := `
		SELECT s.table_name, s.index_name, s.index_type, s.column_name, COALESCE(s.collation, 'A')
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
		ORDER BY s.table_name, s.index_name, s.seq_in_index
	`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	type ixKey struct{ table, name string }
	var order []ixKey
	found := make(map[ixKey]*Index)
	functional := make(map[ixKey]bool)

	for rows.Next() {
		var tableName, name, method, collation string
		var colName sql.NullString
		if err := rows.Scan(&tableName, &name, &method, &colName, &collation); err != nil {
			return err
		}
		if name == "PRIMARY" || backing[tableName][name] {
			continue
		}
		k := ixKey{tableName, name}
		if !colName.Valid {
			functional[k] = true
			continue
		}
		ix, ok := found[k]
		if !ok {
			ix = &Index{Name: name, Method: method}
			found[k] = ix
			order = append(order, k)
		}
		ix.Columns = append(ix.Columns, IndexColumn{Name: colName.String, Desc: collation == "D"})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if functional[k] {
			continue
		}
		if tbl, ok := tables[k.table]; ok {
			tbl.Indexes = append(tbl.Indexes, *found[k])
		}
	}
	return nil
}
