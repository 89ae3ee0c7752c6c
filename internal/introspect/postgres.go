package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Connect opens a pgx pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Fetch reads one PostgreSQL schema from the system catalogs. It only runs
// SELECT statements.
func Fetch(ctx context.Context, pool *pgxpool.Pool, schema string) (*Catalog, error) {
	cat := &Catalog{Schema: schema}
	if err := pool.QueryRow(ctx, `
		SELECT pg_encoding_to_char(encoding), datcollate
		FROM pg_database WHERE datname = current_database()
	`).Scan(&cat.Encoding, &cat.Collation); err != nil {
		return nil, fmt.Errorf("querying database defaults: %w", err)
	}

	byName, err := queryTablesAndColumns(ctx, pool, cat)
	if err != nil {
		return nil, fmt.Errorf("querying tables and columns: %w", err)
	}
	if len(cat.Tables) == 0 {
		return cat, nil
	}

	if err := queryConstraints(ctx, pool, schema, byName); err != nil {
		return nil, fmt.Errorf("querying constraints: %w", err)
	}

	if err := queryForeignKeys(ctx, pool, schema, byName); err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}

	if err := queryIndexes(ctx, pool, schema, byName); err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}

	return cat, nil
}

func queryTablesAndColumns(ctx context.Context, pool *pgxpool.Pool, cat *Catalog) (map[string]*Table, error) {
	query := `
		SELECT
			c.relname AS table_name,
			COALESCE(obj_description(c.oid, 'pg_class'), '') AS table_comment,
			a.attname AS column_name,
			t.typname AS data_type,
			CASE WHEN t.typname IN ('varchar', 'bpchar') AND a.atttypmod > 0
				THEN a.atttypmod - 4 END AS char_length,
			CASE WHEN t.typname = 'numeric' AND a.atttypmod > 0
				THEN ((a.atttypmod - 4) >> 16) & 65535 END AS num_precision,
			CASE WHEN t.typname = 'numeric' AND a.atttypmod > 0
				THEN (a.atttypmod - 4) & 65535 END AS num_scale,
			a.attnotnull AS not_null,
			a.attidentity <> '' OR COALESCE(pg_get_expr(d.adbin, d.adrelid), '') LIKE 'nextval(%' AS auto_increment,
			COALESCE(pg_get_expr(d.adbin, d.adrelid), '') AS default_expr,
			COALESCE(CASE WHEN co.collname <> 'default' THEN co.collname END, '') AS collation,
			COALESCE(col_description(c.oid, a.attnum), '') AS column_comment
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		JOIN pg_type t ON t.oid = a.atttypid
		LEFT JOIN pg_attrdef d ON d.adrelid = c.oid AND d.adnum = a.attnum
		LEFT JOIN pg_collation co ON co.oid = a.attcollation
		WHERE c.relkind IN ('r', 'p')
			AND a.attnum > 0
			AND NOT a.attisdropped
			AND n.nspname = $1
		ORDER BY c.relname, a.attnum
	`

	rows, err := pool.Query(ctx, query, cat.Schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]*Table)
	for rows.Next() {
		var tableName, tableComment, typname string
		var col Column
		if err := rows.Scan(&tableName, &tableComment, &col.Name, &typname,
			&col.Length, &col.Precision, &col.Scale, &col.NotNull, &col.AutoIncrement,
			&col.Default, &col.Collation, &col.Comment); err != nil {
			return nil, err
		}
		col.DataType = TypeName(typname)

		tbl, ok := tables[tableName]
		if !ok {
			tbl = &Table{Name: tableName, Comment: tableComment}
			tables[tableName] = tbl
			cat.Tables = append(cat.Tables, tbl)
		}
		tbl.Columns = append(tbl.Columns, col)
	}

	return tables, rows.Err()
}

// queryConstraints reads primary key, unique and check constraints.
func queryConstraints(ctx context.Context, pool *pgxpool.Pool, schema string, tables map[string]*Table) error {
	query := `
		SELECT
			c.relname AS table_name,
			con.conname AS constraint_name,
			con.contype::text AS constraint_type,
			CASE WHEN con.contype = 'c' THEN pg_get_expr(con.conbin, con.conrelid) ELSE '' END AS check_expr,
			COALESCE(array_agg(a.attname ORDER BY u.ord) FILTER (WHERE a.attname IS NOT NULL), '{}') AS columns
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord) ON true
		LEFT JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum
		WHERE con.contype IN ('p', 'u', 'c')
			AND n.nspname = $1
		GROUP BY c.relname, con.conname, con.contype, con.conbin, con.conrelid
		ORDER BY c.relname, CASE con.contype WHEN 'p' THEN 0 WHEN 'u' THEN 1 ELSE 2 END, con.conname
	`

	rows, err := pool.Query(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, contype, check string
		var cols []string
		if err := rows.Scan(&tableName, &name, &contype, &check, &cols); err != nil {
			return err
		}

		tbl, ok := tables[tableName]
		if !ok {
			continue
		}
		con := Constraint{Name: name, Columns: cols}
		switch contype {
		case "p":
			con.Kind = types.ConstraintPrimaryKey
		case "u":
			con.Kind = types.ConstraintUnique
		case "c":
			con.Kind = types.ConstraintCheck
			con.Expr = check
			con.Columns = nil
		}
		tbl.Constraints = append(tbl.Constraints, con)
	}

	return rows.Err()
}

func queryForeignKeys(ctx context.Context, pool *pgxpool.Pool, schema string, tables map[string]*Table) error {
	query := `
		SELECT
			con.conname AS fk_name,
			cc.relname AS child_table,
			ca.attname AS child_column,
			pn.nspname AS parent_schema,
			pc.relname AS parent_table,
			pa.attname AS parent_column,
			u.ord AS key_position
		FROM pg_constraint con
		JOIN pg_class cc ON cc.oid = con.conrelid
		JOIN pg_namespace cn ON cn.oid = cc.relnamespace
		JOIN pg_class pc ON pc.oid = con.confrelid
		JOIN pg_namespace pn ON pn.oid = pc.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS u(child_attnum, parent_attnum, ord)
		JOIN pg_attribute ca ON ca.attrelid = cc.oid AND ca.attnum = u.child_attnum
		JOIN pg_attribute pa ON pa.attrelid = pc.oid AND pa.attnum = u.parent_attnum
		WHERE con.contype = 'f'
			AND cn.nspname = $1
		ORDER BY cc.relname, con.conname, u.ord
	`

	rows, err := pool.Query(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	type fkKey struct{ table, name string }
	fks := make(map[fkKey]*ForeignKey)
	var order []fkKey

	for rows.Next() {
		var name, childTable, childCol, parentSchema, parentTable, parentCol string
		var keyPos int
		if err := rows.Scan(&name, &childTable, &childCol, &parentSchema, &parentTable, &parentCol, &keyPos); err != nil {
			return err
		}
		// Relationships never cross schemas.
		if parentSchema != schema {
			continue
		}
		k := fkKey{childTable, name}
		fk, ok := fks[k]
		if !ok {
			fk = &ForeignKey{Name: name, ParentTable: parentTable}
			fks[k] = fk
			order = append(order, k)
		}
		fk.Columns = append(fk.Columns, childCol)
		fk.ParentColumns = append(fk.ParentColumns, parentCol)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if tbl, ok := tables[k.table]; ok {
			tbl.ForeignKeys = append(tbl.ForeignKeys, *fks[k])
		}
	}
	return nil
}

// queryIndexes reads plain column indexes. Indexes backing a constraint and
// expression indexes are skipped.
func queryIndexes(ctx context.Context, pool *pgxpool.Pool, schema string, tables map[string]*Table) error {
	query := `
		SELECT
			c.relname AS table_name,
			ic.relname AS index_name,
			am.amname AS method,
			a.attname AS column_name,
			(i.indoption[u.ord - 1] & 1) = 1 AS descending
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_class ic ON ic.oid = i.indexrelid
		JOIN pg_am am ON am.oid = ic.relam
		CROSS JOIN LATERAL unnest(i.indkey::int2[]) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum
		WHERE n.nspname = $1
			AND u.ord <= i.indnkeyatts
			AND i.indexprs IS NULL
			AND NOT EXISTS (SELECT 1 FROM pg_constraint con WHERE con.conindid = i.indexrelid)
		ORDER BY c.relname, ic.relname, u.ord
	`

	rows, err := pool.Query(ctx, query, schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, indexName, method, colName string
		var desc bool
		if err := rows.Scan(&tableName, &indexName, &method, &colName, &desc); err != nil {
			return err
		}

		tbl, ok := tables[tableName]
		if !ok {
			continue
		}
		n := len(tbl.Indexes)
		if n == 0 || tbl.Indexes[n-1].Name != indexName {
			tbl.Indexes = append(tbl.Indexes, Index{Name: indexName, Method: method})
			n++
		}
		tbl.Indexes[n-1].Columns = append(tbl.Indexes[n-1].Columns, IndexColumn{Name: colName, Desc: desc})
	}

	return rows.Err()
}
