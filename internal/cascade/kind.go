package cascade

import (
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// KindChange reports what a relationship kind change did to the graph.
type KindChange struct {
	// KeyColumns are the constraint columns added to the child primary key
	// when the relationship became identifying.
	KeyColumns []*types.ConstraintColumn  `json:"key_columns,omitempty"`
	Created    []types.CascadeCreatedInfo `json:"created,omitempty"`
	Removed    []types.CascadeRemovedInfo `json:"removed,omitempty"`
	// KeyRemoved lists child columns dropped from the child primary key
	// when the relationship became non-identifying.
	KeyRemoved []string `json:"key_removed,omitempty"`
	// PrimaryKeyDeleted is set when the child primary key lost its last
	// column.
	PrimaryKeyDeleted bool `json:"primary_key_deleted"`
}

// Tables returns every table id the change touched.
func (kc *KindChange) Tables(rel *types.Relationship) types.TableSet {
	set := types.NewTableSet()
	if len(kc.KeyColumns) > 0 || len(kc.KeyRemoved) > 0 {
		set.Add(rel.FkTableID)
	}
	set.Add(types.CreatedTables(kc.Created)...)
	set.Add(types.RemovedTables(kc.Removed)...)
	return set
}

// SyncKind switches rel to kind and brings the child primary key and every
// downstream table in line. It is a no-op when the kind is unchanged.
func (w *Walker) SyncKind(rel *types.Relationship, kind types.RelationshipKind) (*KindChange, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("relationship kind %q: %w", kind, types.ErrInvalidKind)
	}
	kc := &KindChange{}
	if rel.Kind == kind {
		return kc, nil
	}
	if kind == types.RelationshipIdentifying {
		if err := w.CheckIdentifyingCycle(rel.PkTableID, rel.FkTableID); err != nil {
			return nil, err
		}
	}
	if err := w.tx.Relationships().ChangeKind(rel.RelationshipID, kind); err != nil {
		return nil, err
	}
	rel.Kind = kind

	rcs, err := w.tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
	if err != nil {
		return nil, err
	}
	visited := NewVisited()

	if kind == types.RelationshipIdentifying {
		pk, err := w.EnsurePrimaryKey(rel.FkTableID)
		if err != nil {
			return nil, err
		}
		for _, rc := range rcs {
			cc, added, err := w.AddToPrimaryKey(pk, rc.FkColumnID)
			if err != nil {
				return nil, err
			}
			if !added {
				// Already a key member, so it has already been propagated.
				continue
			}
			kc.KeyColumns = append(kc.KeyColumns, cc)
			child, err := w.tx.Columns().FindByID(rc.FkColumnID)
			if err != nil {
				return nil, err
			}
			created, err := w.AddColumn(rel.FkTableID, child, visited)
			if err != nil {
				return nil, err
			}
			kc.Created = append(kc.Created, created...)
		}
		w.log.Debug("relationship now identifying", "relationship", rel.Name, "key_columns", len(kc.KeyColumns))
		return kc, nil
	}

	for _, rc := range rcs {
		removed, pkDeleted, err := w.RemoveFromPrimaryKey(rel.FkTableID, rc.FkColumnID)
		if err != nil {
			return nil, err
		}
		if !removed {
			continue
		}
		kc.KeyRemoved = append(kc.KeyRemoved, rc.FkColumnID)
		kc.PrimaryKeyDeleted = kc.PrimaryKeyDeleted || pkDeleted
		gone, err := w.RemoveColumn(rel.FkTableID, rc.FkColumnID, visited)
		if err != nil {
			return nil, err
		}
		kc.Removed = append(kc.Removed, gone...)
	}
	w.log.Debug("relationship now non-identifying", "relationship", rel.Name, "key_columns", len(kc.KeyRemoved))
	return kc, nil
}

// CheckIdentifyingCycle fails with ErrIdentifyingCycle when an identifying
// edge from parentTableID to childTableID would close a cycle of
// identifying relationships, including a self reference.
func (w *Walker) CheckIdentifyingCycle(parentTableID, childTableID string) error {
	if parentTableID == childTableID {
		return fmt.Errorf("table %s references itself: %w", parentTableID, types.ErrIdentifyingCycle)
	}
	seen := map[string]bool{childTableID: true}
	stack := []string{childTableID}
	for len(stack) > 0 {
		tableID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rels, err := w.tx.Relationships().FindAllByParentTableID(tableID)
		if err != nil {
			return err
		}
		for _, r := range rels {
			if !r.Identifying() {
				continue
			}
			if r.FkTableID == parentTableID {
				return fmt.Errorf("table %s already identifies %s: %w", childTableID, parentTableID, types.ErrIdentifyingCycle)
			}
			if !seen[r.FkTableID] {
				seen[r.FkTableID] = true
				stack = append(stack, r.FkTableID)
			}
		}
	}
	return nil
}
