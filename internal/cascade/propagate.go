package cascade

import (
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// PropagateType copies typ onto every child column that mirrors column
// through a relationship, recursively. Nothing happens unless column is a
// member of its table's primary key. When typ is not a text type the child
// columns lose their charset and collation.
func (w *Walker) PropagateType(column *types.Column, typ types.ColumnType, visited Visited) ([]types.CascadeTypeChangedInfo, error) {
	if !visited.mark(column.TableID, column.ColumnID) {
		return nil, nil
	}
	member, err := w.IsPrimaryKeyMember(column.TableID, column.ColumnID)
	if err != nil || !member {
		return nil, err
	}
	rels, err := w.tx.Relationships().FindAllByParentTableID(column.TableID)
	if err != nil {
		return nil, err
	}
	var out []types.CascadeTypeChangedInfo
	for _, rel := range rels {
		rcs, err := w.tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
		if err != nil {
			return nil, err
		}
		for _, rc := range rcs {
			if rc.PkColumnID != column.ColumnID {
				continue
			}
			child, err := w.tx.Columns().FindByID(rc.FkColumnID)
			if err != nil {
				return nil, err
			}
			if err := w.ApplyType(child.ColumnID, typ); err != nil {
				return nil, err
			}
			out = append(out, types.CascadeTypeChangedInfo{
				ColumnID:       child.ColumnID,
				TableID:        child.TableID,
				RelationshipID: rel.RelationshipID,
			})
			w.log.Debug("cascade type", "relationship", rel.Name, "column", child.Name, "type", typ.DataType)
			deeper, err := w.PropagateType(child, typ, visited)
			if err != nil {
				return nil, err
			}
			out = append(out, deeper...)
		}
	}
	return out, nil
}

// ApplyType sets the type of one column and clears its charset and
// collation when the type is not textual.
func (w *Walker) ApplyType(columnID string, typ types.ColumnType) error {
	if err := w.tx.Columns().ChangeType(columnID, typ); err != nil {
		return err
	}
	if types.IsTextType(typ.DataType) {
		return nil
	}
	empty := ""
	return w.tx.Columns().ChangeMeta(columnID, types.ColumnMeta{Charset: &empty, Collation: &empty})
}
