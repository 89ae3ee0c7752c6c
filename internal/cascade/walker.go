// Package cascade propagates primary key changes across the relationship
// graph. A Walker is bound to one unit of work; every method reads and
// writes through that transaction so a failure anywhere in a cascade leaves
// nothing behind once the caller's Update returns the error.
package cascade

import (
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Walker walks the relationship graph inside one transaction.
type Walker struct {
	tx  types.Tx
	log *slog.Logger
}

// New returns a Walker bound to tx. A nil logger discards output.
func New(tx types.Tx, log *slog.Logger) *Walker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Walker{tx: tx, log: log}
}

type visitKey struct {
	tableID  string
	columnID string
}

// Visited is the set of (table, column) pairs a single cascade has already
// processed. One Visited is shared by all recursive calls of one top-level
// cascade.
type Visited map[visitKey]struct{}

// NewVisited returns an empty visited set.
func NewVisited() Visited {
	return make(Visited)
}

// mark records the pair and reports whether it was new.
func (v Visited) mark(tableID, columnID string) bool {
	k := visitKey{tableID, columnID}
	if _, ok := v[k]; ok {
		return false
	}
	v[k] = struct{}{}
	return true
}

// AddColumn propagates a column that has just joined parentTableID's
// primary key into every child table of every relationship in which
// parentTableID is the parent. For identifying relationships the generated
// child column joins the child's primary key and the cascade recurses.
func (w *Walker) AddColumn(parentTableID string, parent *types.Column, visited Visited) ([]types.CascadeCreatedInfo, error) {
	if !visited.mark(parentTableID, parent.ColumnID) {
		return nil, nil
	}
	rels, err := w.tx.Relationships().FindAllByParentTableID(parentTableID)
	if err != nil {
		return nil, err
	}
	var out []types.CascadeCreatedInfo
	for _, rel := range rels {
		created, err := w.AddToRelationship(rel, parent, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, created...)
	}
	return out, nil
}

// AddToRelationship creates the child column mirroring parent in rel's
// child table, links it with a new relationship column, and, when rel is
// identifying, adds it to the child's primary key and recurses.
func (w *Walker) AddToRelationship(rel *types.Relationship, parent *types.Column, visited Visited) ([]types.CascadeCreatedInfo, error) {
	childCols, err := w.tx.Columns().FindAllByTableID(rel.FkTableID)
	if err != nil {
		return nil, err
	}
	rcs, err := w.tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
	if err != nil {
		return nil, err
	}

	taken := naming.NewSet()
	for _, c := range childCols {
		taken.Add(c.Name)
	}
	child := MirrorColumn(parent, rel.FkTableID, naming.UniqueIn(parent.Name, taken), len(childCols))
	if err := w.tx.Columns().Create(child); err != nil {
		return nil, err
	}
	rc := &types.RelationshipColumn{
		RelationshipID: rel.RelationshipID,
		PkColumnID:     parent.ColumnID,
		FkColumnID:     child.ColumnID,
		SeqNo:          len(rcs),
	}
	if err := w.tx.RelationshipColumns().Create(rc); err != nil {
		return nil, err
	}

	info := types.CascadeCreatedInfo{
		ColumnID:             child.ColumnID,
		ColumnName:           child.Name,
		TableID:              rel.FkTableID,
		RelationshipColumnID: rc.RelationshipColumnID,
		RelationshipID:       rel.RelationshipID,
	}
	w.log.Debug("cascade add",
		"relationship", rel.Name, "table", rel.FkTableID, "column", child.Name, "identifying", rel.Identifying())

	if !rel.Identifying() {
		return []types.CascadeCreatedInfo{info}, nil
	}

	pk, err := w.EnsurePrimaryKey(rel.FkTableID)
	if err != nil {
		return nil, err
	}
	cc, _, err := w.AddToPrimaryKey(pk, child.ColumnID)
	if err != nil {
		return nil, err
	}
	info.ConstraintID = pk.ConstraintID
	info.ConstraintColumnID = cc.ConstraintColumnID

	deeper, err := w.AddColumn(rel.FkTableID, child, visited)
	if err != nil {
		return nil, err
	}
	return append([]types.CascadeCreatedInfo{info}, deeper...), nil
}

// MirrorColumn returns a new, unsaved child column that copies parent's
// type and text metadata. Auto increment is never copied.
func MirrorColumn(parent *types.Column, tableID, name string, seqNo int) *types.Column {
	return &types.Column{
		TableID:   tableID,
		Name:      name,
		DataType:  parent.DataType,
		Length:    copyInt(parent.Length),
		Precision: copyInt(parent.Precision),
		Scale:     copyInt(parent.Scale),
		SeqNo:     seqNo,
		Charset:   parent.Charset,
		Collation: parent.Collation,
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RemoveColumn is the inverse of AddColumn: for every relationship in which
// parentTableID is the parent, it deletes the child columns mapped to
// parentColumnID. Children of identifying relationships are removed from
// the child's primary key and the cascade recurses before the relationship
// columns are deleted.
func (w *Walker) RemoveColumn(parentTableID, parentColumnID string, visited Visited) ([]types.CascadeRemovedInfo, error) {
	if !visited.mark(parentTableID, parentColumnID) {
		return nil, nil
	}
	rels, err := w.tx.Relationships().FindAllByParentTableID(parentTableID)
	if err != nil {
		return nil, err
	}
	var out []types.CascadeRemovedInfo
	for _, rel := range rels {
		removed, err := w.RemoveFromRelationship(rel, func(rc *types.RelationshipColumn) bool {
			return rc.PkColumnID == parentColumnID
		}, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, removed...)
	}
	return out, nil
}

// RemoveFromRelationship deletes the relationship columns of rel selected
// by match together with their child columns. The relationship itself is
// deleted when no relationship column remains; otherwise the survivors are
// re-packed.
func (w *Walker) RemoveFromRelationship(rel *types.Relationship, match func(*types.RelationshipColumn) bool, visited Visited) ([]types.CascadeRemovedInfo, error) {
	rcs, err := w.tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
	if err != nil {
		return nil, err
	}
	var matched, rest []*types.RelationshipColumn
	for _, rc := range rcs {
		if match(rc) {
			matched = append(matched, rc)
		} else {
			rest = append(rest, rc)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	own := make([]types.CascadeRemovedInfo, len(matched))
	for i, rc := range matched {
		own[i] = types.CascadeRemovedInfo{
			ColumnID:       rc.FkColumnID,
			TableID:        rel.FkTableID,
			RelationshipID: rel.RelationshipID,
		}
	}

	var deeper []types.CascadeRemovedInfo
	if rel.Identifying() {
		for i, rc := range matched {
			removed, pkDeleted, err := w.RemoveFromPrimaryKey(rel.FkTableID, rc.FkColumnID)
			if err != nil {
				return nil, err
			}
			own[i].RemovedFromPrimaryKey = removed
			own[i].PrimaryKeyDeleted = pkDeleted
			more, err := w.RemoveColumn(rel.FkTableID, rc.FkColumnID, visited)
			if err != nil {
				return nil, err
			}
			deeper = append(deeper, more...)
		}
	}

	for _, rc := range matched {
		if err := w.tx.RelationshipColumns().Delete(rc.RelationshipColumnID); err != nil {
			return nil, err
		}
	}
	if len(rest) == 0 {
		if err := w.tx.Relationships().Delete(rel.RelationshipID); err != nil {
			return nil, err
		}
		for i := range own {
			own[i].RelationshipDeleted = true
		}
	} else if err := w.tx.RelationshipColumns().Reorder(rel.RelationshipID, rest); err != nil {
		return nil, err
	}

	for _, rc := range matched {
		if err := w.deleteColumnIfPresent(rc.FkColumnID); err != nil {
			return nil, err
		}
		w.log.Debug("cascade remove",
			"relationship", rel.Name, "table", rel.FkTableID, "column", rc.FkColumnID, "identifying", rel.Identifying())
	}
	return append(own, deeper...), nil
}

// deleteColumnIfPresent tolerates a child column shared by two mappings
// that an earlier step already removed.
func (w *Walker) deleteColumnIfPresent(columnID string) error {
	if _, err := w.tx.Columns().FindByID(columnID); err != nil {
		if types.KindOf(err) == types.KindNotFound {
			return nil
		}
		return err
	}
	if err := w.tx.Columns().Delete(columnID); err != nil {
		return fmt.Errorf("deleting child column %s: %w", columnID, err)
	}
	return nil
}
