package cascade

import (
	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// PrimaryKey returns the primary key constraint of tableID, or nil when the
// table has none.
func (w *Walker) PrimaryKey(tableID string) (*types.Constraint, error) {
	cons, err := w.tx.Constraints().FindAllByTableID(tableID)
	if err != nil {
		return nil, err
	}
	for _, c := range cons {
		if c.Kind == types.ConstraintPrimaryKey {
			return c, nil
		}
	}
	return nil, nil
}

// EnsurePrimaryKey returns the primary key of tableID, creating an empty
// one named pk_<table> when the table has none. The name takes a numeric
// suffix if another constraint in the schema already uses it.
func (w *Walker) EnsurePrimaryKey(tableID string) (*types.Constraint, error) {
	pk, err := w.PrimaryKey(tableID)
	if err != nil || pk != nil {
		return pk, err
	}
	table, err := w.tx.Tables().FindByID(tableID)
	if err != nil {
		return nil, err
	}
	name, err := naming.Unique("pk_"+table.Name, func(n string) (bool, error) {
		return w.tx.Constraints().ExistsByNameInSchema(table.SchemaID, n)
	})
	if err != nil {
		return nil, err
	}
	pk = &types.Constraint{TableID: tableID, Name: name, Kind: types.ConstraintPrimaryKey}
	if err := w.tx.Constraints().Create(pk); err != nil {
		return nil, err
	}
	w.log.Debug("created primary key", "table", table.Name, "constraint", name)
	return pk, nil
}

// AddToPrimaryKey appends columnID to pk. When the column is already a
// member its existing constraint column is returned and added is false.
func (w *Walker) AddToPrimaryKey(pk *types.Constraint, columnID string) (cc *types.ConstraintColumn, added bool, err error) {
	members, err := w.tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
	if err != nil {
		return nil, false, err
	}
	for _, m := range members {
		if m.ColumnID == columnID {
			return m, false, nil
		}
	}
	cc = &types.ConstraintColumn{ConstraintID: pk.ConstraintID, ColumnID: columnID, SeqNo: len(members)}
	if err := w.tx.ConstraintColumns().Create(cc); err != nil {
		return nil, false, err
	}
	return cc, true, nil
}

// RemoveFromPrimaryKey drops columnID from tableID's primary key. The
// primary key is deleted when it loses its last column; otherwise the
// remaining members are re-packed.
func (w *Walker) RemoveFromPrimaryKey(tableID, columnID string) (removed, pkDeleted bool, err error) {
	pk, err := w.PrimaryKey(tableID)
	if err != nil || pk == nil {
		return false, false, err
	}
	members, err := w.tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
	if err != nil {
		return false, false, err
	}
	var rest []*types.ConstraintColumn
	for _, m := range members {
		if m.ColumnID != columnID {
			rest = append(rest, m)
			continue
		}
		if err := w.tx.ConstraintColumns().Delete(m.ConstraintColumnID); err != nil {
			return false, false, err
		}
		removed = true
	}
	if !removed {
		return false, false, nil
	}
	if len(rest) == 0 {
		if err := w.tx.Constraints().Delete(pk.ConstraintID); err != nil {
			return true, false, err
		}
		return true, true, nil
	}
	if err := w.tx.ConstraintColumns().Reorder(pk.ConstraintID, rest); err != nil {
		return true, false, err
	}
	return true, false, nil
}

// IsPrimaryKeyMember reports whether columnID belongs to tableID's primary
// key.
func (w *Walker) IsPrimaryKeyMember(tableID, columnID string) (bool, error) {
	pk, err := w.PrimaryKey(tableID)
	if err != nil || pk == nil {
		return false, err
	}
	members, err := w.tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.ColumnID == columnID {
			return true, nil
		}
	}
	return false, nil
}
