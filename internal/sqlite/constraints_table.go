package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

type constraintsTable struct{ t *txn }

type constraintColumnsTable struct{ t *txn }

const constraintCols = "constraint_id, table_id, name, kind, check_expr, default_expr"

func scanConstraint(row interface{ Scan(...any) error }) (*types.Constraint, error) {
	var (
		c    types.Constraint
		kind string
	)
	if err := row.Scan(&c.ConstraintID, &c.TableID, &c.Name, &kind, &c.CheckExpr, &c.DefaultExpr); err != nil {
		return nil, err
	}
	c.Kind = types.ConstraintKind(kind)
	return &c, nil
}

// FindByID retrieves a constraint by ID.
func (ct constraintsTable) FindByID(id string) (*types.Constraint, error) {
	c, err := scanConstraint(ct.t.queryRow("SELECT "+constraintCols+" FROM constraints WHERE constraint_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrConstraintNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting constraint %s: %w", id, err)
	}
	return c, nil
}

// FindAllByTableID returns the constraints of a table ordered by name.
func (ct constraintsTable) FindAllByTableID(tableID string) ([]*types.Constraint, error) {
	rows, err := ct.t.query("SELECT "+constraintCols+" FROM constraints WHERE table_id = ? ORDER BY name, constraint_id", tableID)
	if err != nil {
		return nil, fmt.Errorf("querying constraints: %w", err)
	}
	defer rows.Close()

	var out []*types.Constraint
	for rows.Next() {
		c, err := scanConstraint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning constraint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a constraint. An empty ConstraintID is filled from the
// generator.
func (ct constraintsTable) Create(c *types.Constraint) error {
	if c.ConstraintID == "" {
		c.ConstraintID = ct.t.ids.NewID()
	}
	_, err := ct.t.exec(
		"INSERT INTO constraints ("+constraintCols+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ConstraintID, c.TableID, c.Name, string(c.Kind), c.CheckExpr, c.DefaultExpr,
	)
	if err != nil {
		return fmt.Errorf("inserting constraint: %w", err)
	}
	return nil
}

// Delete removes a constraint and its constraint columns.
func (ct constraintsTable) Delete(id string) error {
	if _, err := ct.t.exec("DELETE FROM constraint_columns WHERE constraint_id = ?", id); err != nil {
		return fmt.Errorf("deleting constraint columns of %s: %w", id, err)
	}
	return ct.t.update(types.ErrConstraintNotFound, id, "DELETE FROM constraints WHERE constraint_id = ?", id)
}

// ChangeName renames a constraint.
func (ct constraintsTable) ChangeName(id, name string) error {
	return ct.t.update(types.ErrConstraintNotFound, id, "UPDATE constraints SET name = ? WHERE constraint_id = ?", name, id)
}

// ChangeExpressions sets the non-nil expressions.
func (ct constraintsTable) ChangeExpressions(id string, check, def *string) error {
	if _, err := ct.FindByID(id); err != nil {
		return err
	}
	if check != nil {
		if _, err := ct.t.exec("UPDATE constraints SET check_expr = ? WHERE constraint_id = ?", *check, id); err != nil {
			return fmt.Errorf("updating constraint %s: %w", id, err)
		}
	}
	if def != nil {
		if _, err := ct.t.exec("UPDATE constraints SET default_expr = ? WHERE constraint_id = ?", *def, id); err != nil {
			return fmt.Errorf("updating constraint %s: %w", id, err)
		}
	}
	return nil
}

// ExistsByNameInSchema reports whether any table of the schema owns a
// constraint with the given name, ignoring ASCII case.
func (ct constraintsTable) ExistsByNameInSchema(schemaID, name string) (bool, error) {
	return ct.t.exists(`SELECT 1 FROM constraints c
        JOIN tables t ON t.table_id = c.table_id
        WHERE t.schema_id = ? AND c.name = ? COLLATE NOCASE LIMIT 1`, schemaID, name)
}

const constraintColumnCols = "constraint_column_id, constraint_id, column_id, seq_no"

func scanConstraintColumn(row interface{ Scan(...any) error }) (*types.ConstraintColumn, error) {
	var cc types.ConstraintColumn
	if err := row.Scan(&cc.ConstraintColumnID, &cc.ConstraintID, &cc.ColumnID, &cc.SeqNo); err != nil {
		return nil, err
	}
	return &cc, nil
}

func (cct constraintColumnsTable) list(where string, arg any) ([]*types.ConstraintColumn, error) {
	rows, err := cct.t.query("SELECT "+constraintColumnCols+" FROM constraint_columns WHERE "+where+" ORDER BY seq_no, constraint_column_id", arg)
	if err != nil {
		return nil, fmt.Errorf("querying constraint columns: %w", err)
	}
	defer rows.Close()

	var out []*types.ConstraintColumn
	for rows.Next() {
		cc, err := scanConstraintColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning constraint column: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// FindByID retrieves a constraint column by ID.
func (cct constraintColumnsTable) FindByID(id string) (*types.ConstraintColumn, error) {
	cc, err := scanConstraintColumn(cct.t.queryRow("SELECT "+constraintColumnCols+" FROM constraint_columns WHERE constraint_column_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrConstraintColumnNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting constraint column %s: %w", id, err)
	}
	return cc, nil
}

// FindAllByConstraintID returns the columns of a constraint in order.
func (cct constraintColumnsTable) FindAllByConstraintID(constraintID string) ([]*types.ConstraintColumn, error) {
	return cct.list("constraint_id = ?", constraintID)
}

// FindAllByColumnID returns every constraint membership of a column.
func (cct constraintColumnsTable) FindAllByColumnID(columnID string) ([]*types.ConstraintColumn, error) {
	return cct.list("column_id = ?", columnID)
}

// Create inserts a constraint column. An empty ConstraintColumnID is filled
// from the generator.
func (cct constraintColumnsTable) Create(cc *types.ConstraintColumn) error {
	if cc.ConstraintColumnID == "" {
		cc.ConstraintColumnID = cct.t.ids.NewID()
	}
	_, err := cct.t.exec(
		"INSERT INTO constraint_columns ("+constraintColumnCols+") VALUES (?, ?, ?, ?)",
		cc.ConstraintColumnID, cc.ConstraintID, cc.ColumnID, cc.SeqNo,
	)
	if err != nil {
		return fmt.Errorf("inserting constraint column: %w", err)
	}
	return nil
}

// Delete removes a constraint column. It does not re-pack its siblings.
func (cct constraintColumnsTable) Delete(id string) error {
	return cct.t.update(types.ErrConstraintColumnNotFound, id, "DELETE FROM constraint_columns WHERE constraint_column_id = ?", id)
}

// Reorder assigns SeqNo = position to each entry of ordered and updates the
// entries in place.
func (cct constraintColumnsTable) Reorder(constraintID string, ordered []*types.ConstraintColumn) error {
	ids := make([]string, len(ordered))
	for i, cc := range ordered {
		if cc.ConstraintID != constraintID {
			return fmt.Errorf("constraint column %s belongs to %s, not %s: %w", cc.ConstraintColumnID, cc.ConstraintID, constraintID, types.ErrInvalidPosition)
		}
		ids[i] = cc.ConstraintColumnID
		cc.SeqNo = i
	}
	return cct.t.reorder("constraint_columns", "constraint_column_id", ids)
}
