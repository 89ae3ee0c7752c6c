package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/schemata/internal/cascade"
	"github.com/mesh-intelligence/schemata/internal/validate"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// RelationshipService creates relationships, switches their kind, and
// deletes them, keeping child keys and downstream tables in line.
type RelationshipService struct {
	base
}

// ColumnPair maps one parent key column to an existing child column.
type ColumnPair struct {
	ParentColumnID string
	ChildColumnID  string
}

// CreateRelationshipRequest describes a new relationship. When Columns is
// empty one child column is generated per parent key column; otherwise
// Columns must map every parent key column exactly once.
type CreateRelationshipRequest struct {
	ParentTableID string
	ChildTableID  string
	Name          string
	Kind          types.RelationshipKind
	Cardinality   types.Cardinality
	Columns       []ColumnPair
}

// RelationshipCreated is the payload of CreateRelationship.
type RelationshipCreated struct {
	Relationship *types.Relationship         `json:"relationship"`
	Columns      []*types.RelationshipColumn `json:"columns"`
	Cascade      []types.CascadeCreatedInfo  `json:"cascade,omitempty"`
}

// CreateRelationship links a child table to a parent table's primary key.
func (s *RelationshipService) CreateRelationship(ctx context.Context, req CreateRelationshipRequest) (types.Result[*RelationshipCreated], error) {
	res := types.Result[*RelationshipCreated]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	if !req.Kind.Valid() {
		return res, fmt.Errorf("relationship kind %q: %w", req.Kind, types.ErrInvalidKind)
	}
	if req.Cardinality == "" {
		req.Cardinality = types.CardinalityOneToMany
	}
	if !req.Cardinality.Valid() {
		return res, fmt.Errorf("%q: %w", req.Cardinality, types.ErrInvalidCardinality)
	}

	err = s.update(ctx, "create relationship", res.AffectedTableIDs, func(tx types.Tx) error {
		parent, err := tx.Tables().FindByID(req.ParentTableID)
		if err != nil {
			return err
		}
		child, err := tx.Tables().FindByID(req.ChildTableID)
		if err != nil {
			return err
		}
		if parent.SchemaID != child.SchemaID {
			return fmt.Errorf("tables %s and %s are in different schemas: %w", parent.Name, child.Name, types.ErrTableMismatch)
		}
		w := s.walker(tx)
		if req.Kind == types.RelationshipIdentifying {
			if err := w.CheckIdentifyingCycle(parent.TableID, child.TableID); err != nil {
				return err
			}
		}
		taken, err := tx.Relationships().ExistsByNameInSchema(parent.SchemaID, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("relationship %q: %w", name, types.ErrDuplicateName)
		}
		keyCols, err := keyColumns(tx, w, parent.TableID)
		if err != nil {
			return err
		}
		if len(keyCols) == 0 {
			return fmt.Errorf("table %s: %w", parent.Name, types.ErrPrimaryKeyRequired)
		}
		var pairs []ColumnPair
		if len(req.Columns) > 0 {
			if pairs, err = checkPairs(tx, keyCols, child.TableID, req.Columns); err != nil {
				return err
			}
		}

		rel := &types.Relationship{
			SchemaID:    parent.SchemaID,
			FkTableID:   child.TableID,
			PkTableID:   parent.TableID,
			Name:        name,
			Kind:        req.Kind,
			Cardinality: req.Cardinality,
		}
		if err := tx.Relationships().Create(rel); err != nil {
			return err
		}
		out := &RelationshipCreated{Relationship: rel}
		visited := cascade.NewVisited()

		if pairs == nil {
			for _, pc := range keyCols {
				created, err := w.AddToRelationship(rel, pc, visited)
				if err != nil {
					return err
				}
				out.Cascade = append(out.Cascade, created...)
			}
		} else {
			if out.Cascade, err = s.linkPairs(tx, w, rel, pairs, visited); err != nil {
				return err
			}
		}
		if out.Columns, err = tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(parent.TableID, child.TableID)
		res.AffectedTableIDs.Add(types.CreatedTables(out.Cascade)...)
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = out
		return nil
	})
	return res, err
}

// keyColumns returns the primary key columns of tableID in key order.
func keyColumns(tx types.Tx, w *cascade.Walker, tableID string) ([]*types.Column, error) {
	pk, err := w.PrimaryKey(tableID)
	if err != nil || pk == nil {
		return nil, err
	}
	ccs, err := tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Column, len(ccs))
	for i, cc := range ccs {
		if out[i], err = tx.Columns().FindByID(cc.ColumnID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkPairs verifies that pairs map every parent key column exactly once
// onto distinct columns of the child table, and returns them in key order.
func checkPairs(tx types.Tx, keyCols []*types.Column, childTableID string, pairs []ColumnPair) ([]ColumnPair, error) {
	byParent := make(map[string]ColumnPair, len(pairs))
	children := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if _, dup := byParent[p.ParentColumnID]; dup {
			return nil, fmt.Errorf("parent column %s: %w", p.ParentColumnID, types.ErrDuplicateColumn)
		}
		byParent[p.ParentColumnID] = p
		children = append(children, p.ChildColumnID)
	}
	if len(pairs) != len(keyCols) {
		return nil, fmt.Errorf("%d pairs for %d key columns: %w", len(pairs), len(keyCols), types.ErrKeyMismatch)
	}
	if err := validate.ColumnUniqueness(children); err != nil {
		return nil, err
	}
	ordered := make([]ColumnPair, 0, len(pairs))
	for _, kc := range keyCols {
		p, ok := byParent[kc.ColumnID]
		if !ok {
			return nil, fmt.Errorf("key column %s unmapped: %w", kc.Name, types.ErrKeyMismatch)
		}
		col, err := tx.Columns().FindByID(p.ChildColumnID)
		if err != nil {
			return nil, err
		}
		if col.TableID != childTableID {
			return nil, fmt.Errorf("column %s: %w", col.Name, types.ErrTableMismatch)
		}
		ordered = append(ordered, p)
	}
	return ordered, nil
}

// linkPairs records caller-selected column pairs. For an identifying
// relationship each child column joins the child key and propagates on.
func (s *RelationshipService) linkPairs(tx types.Tx, w *cascade.Walker, rel *types.Relationship, pairs []ColumnPair, visited cascade.Visited) ([]types.CascadeCreatedInfo, error) {
	var pk *types.Constraint
	if rel.Identifying() {
		var err error
		if pk, err = w.EnsurePrimaryKey(rel.FkTableID); err != nil {
			return nil, err
		}
	}
	var created []types.CascadeCreatedInfo
	for i, p := range pairs {
		rc := &types.RelationshipColumn{
			RelationshipID: rel.RelationshipID,
			PkColumnID:     p.ParentColumnID,
			FkColumnID:     p.ChildColumnID,
			SeqNo:          i,
		}
		if err := tx.RelationshipColumns().Create(rc); err != nil {
			return nil, err
		}
		if pk == nil {
			continue
		}
		_, added, err := w.AddToPrimaryKey(pk, p.ChildColumnID)
		if err != nil {
			return nil, err
		}
		if !added {
			continue
		}
		col, err := tx.Columns().FindByID(p.ChildColumnID)
		if err != nil {
			return nil, err
		}
		more, err := w.AddColumn(rel.FkTableID, col, visited)
		if err != nil {
			return nil, err
		}
		created = append(created, more...)
	}
	return created, nil
}

// ChangeRelationshipKindRequest switches a relationship's kind.
type ChangeRelationshipKindRequest struct {
	RelationshipID string
	Kind           types.RelationshipKind
}

// RelationshipKindChanged is the payload of ChangeRelationshipKind.
type RelationshipKindChanged struct {
	Relationship *types.Relationship `json:"relationship"`
	Change       *cascade.KindChange `json:"change"`
}

// ChangeRelationshipKind switches between identifying and non-identifying.
// Becoming identifying adds the child columns to the child key and
// propagates them; becoming non-identifying reverses that.
func (s *RelationshipService) ChangeRelationshipKind(ctx context.Context, req ChangeRelationshipKindRequest) (types.Result[*RelationshipKindChanged], error) {
	res := types.Result[*RelationshipKindChanged]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "change relationship kind", res.AffectedTableIDs, func(tx types.Tx) error {
		rel, err := tx.Relationships().FindByID(req.RelationshipID)
		if err != nil {
			return err
		}
		kc, err := s.walker(tx).SyncKind(rel, req.Kind)
		if err != nil {
			return err
		}
		for id := range kc.Tables(rel) {
			res.AffectedTableIDs.Add(id)
		}
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = &RelationshipKindChanged{Relationship: rel, Change: kc}
		return nil
	})
	return res, err
}

// RelationshipDeleted is the payload of DeleteRelationship.
type RelationshipDeleted struct {
	RelationshipID string                     `json:"relationship_id"`
	Cascade        []types.CascadeRemovedInfo `json:"cascade,omitempty"`
}

// DeleteRelationship deletes a relationship together with its child
// columns. Child columns held in the child key leave it first, and the
// removal propagates to the child's own children.
func (s *RelationshipService) DeleteRelationship(ctx context.Context, relationshipID string) (types.Result[*RelationshipDeleted], error) {
	res := types.Result[*RelationshipDeleted]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "delete relationship", res.AffectedTableIDs, func(tx types.Tx) error {
		rel, err := tx.Relationships().FindByID(relationshipID)
		if err != nil {
			return err
		}
		removed, err := s.walker(tx).RemoveFromRelationship(rel, func(*types.RelationshipColumn) bool { return true }, cascade.NewVisited())
		if err != nil {
			return err
		}
		res.AffectedTableIDs.Add(rel.PkTableID, rel.FkTableID)
		res.AffectedTableIDs.Add(types.RemovedTables(removed)...)
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = &RelationshipDeleted{RelationshipID: rel.RelationshipID, Cascade: removed}
		return nil
	})
	return res, err
}
