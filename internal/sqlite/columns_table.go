package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

type columnsTable struct{ t *txn }

const columnCols = "column_id, table_id, name, data_type, length, precision, scale, seq_no, auto_increment, charset, collation, comment"

func scanColumn(row interface{ Scan(...any) error }) (*types.Column, error) {
	var (
		c                        types.Column
		length, precision, scale sql.NullInt64
		autoInc                  int
	)
	err := row.Scan(&c.ColumnID, &c.TableID, &c.Name, &c.DataType, &length, &precision, &scale,
		&c.SeqNo, &autoInc, &c.Charset, &c.Collation, &c.Comment)
	if err != nil {
		return nil, err
	}
	c.Length = intPtr(length)
	c.Precision = intPtr(precision)
	c.Scale = intPtr(scale)
	c.AutoIncrement = autoInc != 0
	return &c, nil
}

// FindByID retrieves a column by ID.
func (ct columnsTable) FindByID(id string) (*types.Column, error) {
	c, err := scanColumn(ct.t.queryRow("SELECT "+columnCols+" FROM columns WHERE column_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrColumnNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting column %s: %w", id, err)
	}
	return c, nil
}

// FindAllByTableID returns the columns of a table in sequence order.
func (ct columnsTable) FindAllByTableID(tableID string) ([]*types.Column, error) {
	rows, err := ct.t.query("SELECT "+columnCols+" FROM columns WHERE table_id = ? ORDER BY seq_no, column_id", tableID)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var out []*types.Column
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a column. An empty ColumnID is filled from the generator.
func (ct columnsTable) Create(c *types.Column) error {
	if c.ColumnID == "" {
		c.ColumnID = ct.t.ids.NewID()
	}
	_, err := ct.t.exec(
		"INSERT INTO columns ("+columnCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ColumnID, c.TableID, c.Name, c.DataType, nullInt(c.Length), nullInt(c.Precision), nullInt(c.Scale),
		c.SeqNo, boolInt(c.AutoIncrement), c.Charset, c.Collation, c.Comment,
	)
	if err != nil {
		return fmt.Errorf("inserting column: %w", err)
	}
	return nil
}

// ChangeName renames a column.
func (ct columnsTable) ChangeName(id, name string) error {
	return ct.t.update(types.ErrColumnNotFound, id, "UPDATE columns SET name = ? WHERE column_id = ?", name, id)
}

// ChangeType sets the data type and its length, precision, and scale.
func (ct columnsTable) ChangeType(id string, typ types.ColumnType) error {
	return ct.t.update(types.ErrColumnNotFound, id,
		"UPDATE columns SET data_type = ?, length = ?, precision = ?, scale = ? WHERE column_id = ?",
		typ.DataType, nullInt(typ.Length), nullInt(typ.Precision), nullInt(typ.Scale), id,
	)
}

// ChangeMeta applies the non-nil fields of meta.
func (ct columnsTable) ChangeMeta(id string, meta types.ColumnMeta) error {
	if _, err := ct.FindByID(id); err != nil {
		return err
	}
	if meta.AutoIncrement != nil {
		if _, err := ct.t.exec("UPDATE columns SET auto_increment = ? WHERE column_id = ?", boolInt(*meta.AutoIncrement), id); err != nil {
			return fmt.Errorf("updating column %s: %w", id, err)
		}
	}
	if meta.Charset != nil {
		if _, err := ct.t.exec("UPDATE columns SET charset = ? WHERE column_id = ?", *meta.Charset, id); err != nil {
			return fmt.Errorf("updating column %s: %w", id, err)
		}
	}
	if meta.Collation != nil {
		if _, err := ct.t.exec("UPDATE columns SET collation = ? WHERE column_id = ?", *meta.Collation, id); err != nil {
			return fmt.Errorf("updating column %s: %w", id, err)
		}
	}
	if meta.Comment != nil {
		if _, err := ct.t.exec("UPDATE columns SET comment = ? WHERE column_id = ?", *meta.Comment, id); err != nil {
			return fmt.Errorf("updating column %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes a column together with every constraint, index, and
// relationship column that references it. Owners that lose a member are
// re-packed; relationships, indexes, and column-bound constraints left
// empty are deleted. The table's remaining columns are re-packed last.
func (ct columnsTable) Delete(id string) error {
	col, err := ct.FindByID(id)
	if err != nil {
		return err
	}

	if err := ct.detachFromConstraints(id); err != nil {
		return err
	}
	if err := ct.detachFromIndexes(id); err != nil {
		return err
	}
	if err := ct.detachFromRelationships(id); err != nil {
		return err
	}

	if _, err := ct.t.exec("DELETE FROM columns WHERE column_id = ?", id); err != nil {
		return fmt.Errorf("deleting column %s: %w", id, err)
	}

	remaining, err := ct.FindAllByTableID(col.TableID)
	if err != nil {
		return err
	}
	ids := make([]string, len(remaining))
	for i, c := range remaining {
		ids[i] = c.ColumnID
	}
	return ct.t.reorder("columns", "column_id", ids)
}

func (ct columnsTable) detachFromConstraints(columnID string) error {
	ccs := constraintColumnsTable{ct.t}
	members, err := ccs.FindAllByColumnID(columnID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := ccs.Delete(m.ConstraintColumnID); err != nil {
			return err
		}
		rest, err := ccs.FindAllByConstraintID(m.ConstraintID)
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			if err := ccs.Reorder(m.ConstraintID, rest); err != nil {
				return err
			}
			continue
		}
		con, err := constraintsTable{ct.t}.FindByID(m.ConstraintID)
		if err != nil {
			return err
		}
		if con.Kind.RequiresColumns() {
			if err := (constraintsTable{ct.t}).Delete(con.ConstraintID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ct columnsTable) detachFromIndexes(columnID string) error {
	ics := indexColumnsTable{ct.t}
	members, err := ics.findAllByColumnID(columnID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := ics.Delete(m.IndexColumnID); err != nil {
			return err
		}
		rest, err := ics.FindAllByIndexID(m.IndexID)
		if err != nil {
			return err
		}
		if len(rest) == 0 {
			if err := (indexesTable{ct.t}).Delete(m.IndexID); err != nil {
				return err
			}
			continue
		}
		if err := ics.Reorder(m.IndexID, rest); err != nil {
			return err
		}
	}
	return nil
}

func (ct columnsTable) detachFromRelationships(columnID string) error {
	rcs := relationshipColumnsTable{ct.t}
	members, err := rcs.findAllReferencing(columnID)
	if err != nil {
		return err
	}
	// A self-referencing relationship can reference the column twice.
	deleted := make(map[string]bool)
	for _, m := range members {
		if deleted[m.RelationshipID] {
			continue
		}
		if err := rcs.Delete(m.RelationshipColumnID); err != nil {
			return err
		}
		rest, err := rcs.FindAllByRelationshipID(m.RelationshipID)
		if err != nil {
			return err
		}
		if len(rest) == 0 {
			if err := (relationshipsTable{ct.t}).Delete(m.RelationshipID); err != nil {
				return err
			}
			deleted[m.RelationshipID] = true
			continue
		}
		if err := rcs.Reorder(m.RelationshipID, rest); err != nil {
			return err
		}
	}
	return nil
}
