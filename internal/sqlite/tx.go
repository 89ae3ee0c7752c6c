package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

var _ types.Tx = (*txn)(nil)

// txn binds the per-entity stores to one database transaction.
type txn struct {
	ctx context.Context
	tx  *sql.Tx
	ids types.IDGenerator
}

func (t *txn) Schemas() types.SchemaStore                         { return schemasTable{t} }
func (t *txn) Tables() types.TableStore                           { return tablesTable{t} }
func (t *txn) Columns() types.ColumnStore                         { return columnsTable{t} }
func (t *txn) Constraints() types.ConstraintStore                 { return constraintsTable{t} }
func (t *txn) ConstraintColumns() types.ConstraintColumnStore     { return constraintColumnsTable{t} }
func (t *txn) Relationships() types.RelationshipStore             { return relationshipsTable{t} }
func (t *txn) RelationshipColumns() types.RelationshipColumnStore { return relationshipColumnsTable{t} }
func (t *txn) Indexes() types.IndexStore                          { return indexesTable{t} }
func (t *txn) IndexColumns() types.IndexColumnStore               { return indexColumnsTable{t} }
func (t *txn) IDs() types.IDGenerator                             { return t.ids }

func (t *txn) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

func (t *txn) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

func (t *txn) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

// update runs an UPDATE or DELETE that must touch exactly one row; zero rows
// means the entity does not exist.
func (t *txn) update(notFound error, id string, query string, args ...any) error {
	res, err := t.exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	return nil
}

// exists reports whether query returns at least one row.
func (t *txn) exists(query string, args ...any) (bool, error) {
	var one int
	err := t.queryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// reorder sets seq_no = position for each id, in order.
func (t *txn) reorder(table, idColumn string, ids []string) error {
	query := fmt.Sprintf("UPDATE %s SET seq_no = ? WHERE %s = ?", table, idColumn)
	for i, id := range ids {
		if _, err := t.exec(query, i, id); err != nil {
			return fmt.Errorf("reordering %s: %w", table, err)
		}
	}
	return nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
