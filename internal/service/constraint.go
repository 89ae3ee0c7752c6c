package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/schemata/internal/cascade"
	"github.com/mesh-intelligence/schemata/internal/validate"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// ConstraintService edits constraints and their ordered column lists.
// Primary key edits cascade through the relationship graph.
type ConstraintService struct {
	base
}

// CreateConstraintRequest describes a new constraint.
type CreateConstraintRequest struct {
	TableID     string
	Name        string
	Kind        types.ConstraintKind
	ColumnIDs   []string
	CheckExpr   string
	DefaultExpr string
}

// ConstraintCreated is the payload of CreateConstraint.
type ConstraintCreated struct {
	Constraint *types.Constraint          `json:"constraint"`
	Columns    []*types.ConstraintColumn  `json:"columns"`
	Cascade    []types.CascadeCreatedInfo `json:"cascade,omitempty"`
}

// CreateConstraint creates a constraint over ColumnIDs in the given order.
// A new primary key propagates each of its columns into child tables.
func (s *ConstraintService) CreateConstraint(ctx context.Context, req CreateConstraintRequest) (types.Result[*ConstraintCreated], error) {
	res := types.Result[*ConstraintCreated]{AffectedTableIDs: types.NewTableSet()}

	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	if err := validate.Kind(req.Kind); err != nil {
		return res, err
	}
	if err := validate.ExpressionAllowed(req.Kind, req.CheckExpr, req.DefaultExpr); err != nil {
		return res, err
	}
	if err := validate.ExpressionRequired(req.Kind, req.CheckExpr, req.DefaultExpr); err != nil {
		return res, err
	}
	if err := validate.ColumnsRequired(req.Kind, len(req.ColumnIDs)); err != nil {
		return res, err
	}
	if err := validate.ColumnUniqueness(req.ColumnIDs); err != nil {
		return res, err
	}

	err = s.update(ctx, "create constraint", res.AffectedTableIDs, func(tx types.Tx) error {
		table, err := tx.Tables().FindByID(req.TableID)
		if err != nil {
			return err
		}
		tc, err := validate.Load(tx, table.TableID)
		if err != nil {
			return err
		}
		if err := tc.ColumnExistence(req.ColumnIDs); err != nil {
			return err
		}
		if req.Kind == types.ConstraintPrimaryKey {
			if err := tc.PrimaryKeySingle(""); err != nil {
				return err
			}
		}
		expr := req.CheckExpr + req.DefaultExpr
		if err := tc.DefinitionUniqueness("", req.Kind, req.ColumnIDs, expr); err != nil {
			return err
		}
		if err := tc.UniqueSameAsPrimaryKey("", req.Kind, req.ColumnIDs); err != nil {
			return err
		}
		if err := constraintNameFree(tx, table.SchemaID, name, ""); err != nil {
			return err
		}

		con := &types.Constraint{
			TableID:     table.TableID,
			Name:        name,
			Kind:        req.Kind,
			CheckExpr:   req.CheckExpr,
			DefaultExpr: req.DefaultExpr,
		}
		if err := tx.Constraints().Create(con); err != nil {
			return err
		}
		out := &ConstraintCreated{Constraint: con}
		for i, colID := range req.ColumnIDs {
			cc := &types.ConstraintColumn{ConstraintID: con.ConstraintID, ColumnID: colID, SeqNo: i}
			if err := tx.ConstraintColumns().Create(cc); err != nil {
				return err
			}
			out.Columns = append(out.Columns, cc)
		}
		res.AffectedTableIDs.Add(table.TableID)

		if con.Kind == types.ConstraintPrimaryKey {
			w := s.walker(tx)
			visited := cascade.NewVisited()
			for _, colID := range req.ColumnIDs {
				created, err := w.AddColumn(table.TableID, tc.Column(colID), visited)
				if err != nil {
					return err
				}
				out.Cascade = append(out.Cascade, created...)
			}
			res.AffectedTableIDs.Add(types.CreatedTables(out.Cascade)...)
		}
		res.Payload = out
		return nil
	})
	return res, err
}

// constraintNameFree fails with ErrDuplicateName when another constraint in
// the schema already uses name.
func constraintNameFree(tx types.Tx, schemaID, name, selfID string) error {
	if selfID != "" {
		self, err := tx.Constraints().FindByID(selfID)
		if err != nil {
			return err
		}
		if self.Name == name {
			return nil
		}
	}
	taken, err := tx.Constraints().ExistsByNameInSchema(schemaID, name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("constraint %q: %w", name, types.ErrDuplicateName)
	}
	return nil
}

// loadConstraint reads a constraint, its table, and the table context.
func loadConstraint(tx types.Tx, constraintID string) (*types.Constraint, *types.Table, *validate.TableContext, error) {
	con, err := tx.Constraints().FindByID(constraintID)
	if err != nil {
		return nil, nil, nil, err
	}
	table, err := tx.Tables().FindByID(con.TableID)
	if err != nil {
		return nil, nil, nil, err
	}
	tc, err := validate.Load(tx, table.TableID)
	if err != nil {
		return nil, nil, nil, err
	}
	return con, table, tc, nil
}

// AddConstraintColumnRequest adds ColumnID to a constraint. A nil SeqNo
// appends; otherwise the column is inserted at SeqNo and later members
// shift right.
type AddConstraintColumnRequest struct {
	ConstraintID string
	ColumnID     string
	SeqNo        *int
}

// ConstraintColumnAdded is the payload of AddConstraintColumn.
type ConstraintColumnAdded struct {
	ConstraintColumn *types.ConstraintColumn    `json:"constraint_column"`
	Cascade          []types.CascadeCreatedInfo `json:"cascade,omitempty"`
}

// AddConstraintColumn adds a column to a constraint. A column added to a
// primary key is propagated into every child table.
func (s *ConstraintService) AddConstraintColumn(ctx context.Context, req AddConstraintColumnRequest) (types.Result[*ConstraintColumnAdded], error) {
	res := types.Result[*ConstraintColumnAdded]{AffectedTableIDs: types.NewTableSet()}
	if req.SeqNo != nil {
		if err := validate.Position(*req.SeqNo); err != nil {
			return res, err
		}
	}

	err := s.update(ctx, "add constraint column", res.AffectedTableIDs, func(tx types.Tx) error {
		con, table, tc, err := loadConstraint(tx, req.ConstraintID)
		if err != nil {
			return err
		}
		if err := tc.ColumnExistence([]string{req.ColumnID}); err != nil {
			return err
		}
		members := tc.ColumnsByConstraint[con.ConstraintID]
		ids := append(tc.ColumnIDs(con.ConstraintID), req.ColumnID)
		if err := validate.ColumnUniqueness(ids); err != nil {
			return fmt.Errorf("constraint %s: %w", con.Name, err)
		}
		if err := tc.DefinitionUniqueness(con.ConstraintID, con.Kind, ids, con.Expression()); err != nil {
			return err
		}
		if err := tc.UniqueSameAsPrimaryKey(con.ConstraintID, con.Kind, ids); err != nil {
			return err
		}
		pos, err := position(req.SeqNo, len(members))
		if err != nil {
			return err
		}

		cc := &types.ConstraintColumn{ConstraintID: con.ConstraintID, ColumnID: req.ColumnID, SeqNo: pos}
		if err := tx.ConstraintColumns().Create(cc); err != nil {
			return err
		}
		if pos < len(members) {
			if err := tx.ConstraintColumns().Reorder(con.ConstraintID, insertAt(members, pos, cc)); err != nil {
				return err
			}
		}
		out := &ConstraintColumnAdded{ConstraintColumn: cc}
		res.AffectedTableIDs.Add(table.TableID)

		if con.Kind == types.ConstraintPrimaryKey {
			created, err := s.walker(tx).AddColumn(table.TableID, tc.Column(req.ColumnID), cascade.NewVisited())
			if err != nil {
				return err
			}
			out.Cascade = created
			res.AffectedTableIDs.Add(types.CreatedTables(created)...)
			if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
				return err
			}
		}
		res.Payload = out
		return nil
	})
	return res, err
}

// ConstraintColumnRemoved is the payload of RemoveConstraintColumn.
type ConstraintColumnRemoved struct {
	ConstraintColumnID string                     `json:"constraint_column_id"`
	ConstraintID       string                     `json:"constraint_id"`
	ConstraintDeleted  bool                       `json:"constraint_deleted"`
	Cascade            []types.CascadeRemovedInfo `json:"cascade,omitempty"`
}

// RemoveConstraintColumn removes one member from a constraint and re-packs
// the rest. A constraint that needs columns is deleted with its last one.
// Removing a primary key column removes the columns it propagated into
// child tables; a column placed in the key by an identifying relationship
// cannot be removed this way.
func (s *ConstraintService) RemoveConstraintColumn(ctx context.Context, constraintColumnID string) (types.Result[*ConstraintColumnRemoved], error) {
	res := types.Result[*ConstraintColumnRemoved]{AffectedTableIDs: types.NewTableSet()}

	err := s.update(ctx, "remove constraint column", res.AffectedTableIDs, func(tx types.Tx) error {
		cc, err := tx.ConstraintColumns().FindByID(constraintColumnID)
		if err != nil {
			return err
		}
		con, table, tc, err := loadConstraint(tx, cc.ConstraintID)
		if err != nil {
			return err
		}
		if con.Kind == types.ConstraintPrimaryKey {
			locked, err := identifyingMembers(tx, table.TableID)
			if err != nil {
				return err
			}
			if rel, ok := locked[cc.ColumnID]; ok {
				return fmt.Errorf("column %s is held by relationship %s: %w", cc.ColumnID, rel.Name, types.ErrIdentifyingKeyMember)
			}
		}

		var rest []*types.ConstraintColumn
		var restIDs []string
		for _, m := range tc.ColumnsByConstraint[con.ConstraintID] {
			if m.ConstraintColumnID != cc.ConstraintColumnID {
				rest = append(rest, m)
				restIDs = append(restIDs, m.ColumnID)
			}
		}
		deleteConstraint := len(rest) == 0 && con.Kind.RequiresColumns()
		if !deleteConstraint {
			if err := tc.DefinitionUniqueness(con.ConstraintID, con.Kind, restIDs, con.Expression()); err != nil {
				return err
			}
			if err := tc.UniqueSameAsPrimaryKey(con.ConstraintID, con.Kind, restIDs); err != nil {
				return err
			}
		}

		out := &ConstraintColumnRemoved{ConstraintColumnID: cc.ConstraintColumnID, ConstraintID: con.ConstraintID}
		if con.Kind == types.ConstraintPrimaryKey {
			removed, err := s.walker(tx).RemoveColumn(table.TableID, cc.ColumnID, cascade.NewVisited())
			if err != nil {
				return err
			}
			out.Cascade = removed
			res.AffectedTableIDs.Add(types.RemovedTables(removed)...)
		}

		if err := tx.ConstraintColumns().Delete(cc.ConstraintColumnID); err != nil {
			return err
		}
		if deleteConstraint {
			if err := tx.Constraints().Delete(con.ConstraintID); err != nil {
				return err
			}
			out.ConstraintDeleted = true
		} else if err := tx.ConstraintColumns().Reorder(con.ConstraintID, rest); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(table.TableID)
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = out
		return nil
	})
	return res, err
}

// ChangeConstraintColumnPositionRequest moves a member to SeqNo.
type ChangeConstraintColumnPositionRequest struct {
	ConstraintColumnID string
	SeqNo              int
}

// ChangeConstraintColumnPosition moves one member of a constraint to a new
// position, shifting the members in between. Column order never cascades.
func (s *ConstraintService) ChangeConstraintColumnPosition(ctx context.Context, req ChangeConstraintColumnPositionRequest) (types.Result[[]*types.ConstraintColumn], error) {
	res := types.Result[[]*types.ConstraintColumn]{AffectedTableIDs: types.NewTableSet()}
	if err := validate.Position(req.SeqNo); err != nil {
		return res, err
	}

	err := s.update(ctx, "change constraint column position", res.AffectedTableIDs, func(tx types.Tx) error {
		cc, err := tx.ConstraintColumns().FindByID(req.ConstraintColumnID)
		if err != nil {
			return err
		}
		con, table, tc, err := loadConstraint(tx, cc.ConstraintID)
		if err != nil {
			return err
		}
		members := tc.ColumnsByConstraint[con.ConstraintID]
		seqNos := make([]int, len(members))
		from := -1
		for i, m := range members {
			seqNos[i] = m.SeqNo
			if m.ConstraintColumnID == cc.ConstraintColumnID {
				from = i
			}
		}
		if err := validate.SeqNoIntegrity(seqNos); err != nil {
			return fmt.Errorf("constraint %s: %w", con.Name, err)
		}
		if req.SeqNo >= len(members) {
			return fmt.Errorf("position %d beyond %d members: %w", req.SeqNo, len(members), types.ErrInvalidPosition)
		}
		ordered := moveTo(members, from, req.SeqNo)
		if err := tx.ConstraintColumns().Reorder(con.ConstraintID, ordered); err != nil {
			return err
		}
		for i, m := range ordered {
			m.SeqNo = i
		}
		res.AffectedTableIDs.Add(table.TableID)
		res.Payload = ordered
		return nil
	})
	return res, err
}

// ChangeConstraintExpressionRequest replaces the expressions of a CHECK or
// DEFAULT constraint. A nil field is left unchanged.
type ChangeConstraintExpressionRequest struct {
	ConstraintID string
	CheckExpr    *string
	DefaultExpr  *string
}

// ChangeConstraintExpression updates a constraint's check or default
// expression.
func (s *ConstraintService) ChangeConstraintExpression(ctx context.Context, req ChangeConstraintExpressionRequest) (types.Result[*types.Constraint], error) {
	res := types.Result[*types.Constraint]{AffectedTableIDs: types.NewTableSet()}

	err := s.update(ctx, "change constraint expression", res.AffectedTableIDs, func(tx types.Tx) error {
		con, table, tc, err := loadConstraint(tx, req.ConstraintID)
		if err != nil {
			return err
		}
		check, def := con.CheckExpr, con.DefaultExpr
		if req.CheckExpr != nil {
			check = *req.CheckExpr
		}
		if req.DefaultExpr != nil {
			def = *req.DefaultExpr
		}
		if err := validate.ExpressionAllowed(con.Kind, check, def); err != nil {
			return err
		}
		if err := validate.ExpressionRequired(con.Kind, check, def); err != nil {
			return err
		}
		if err := tc.DefinitionUniqueness(con.ConstraintID, con.Kind, tc.ColumnIDs(con.ConstraintID), check+def); err != nil {
			return err
		}
		if err := tx.Constraints().ChangeExpressions(con.ConstraintID, req.CheckExpr, req.DefaultExpr); err != nil {
			return err
		}
		con.CheckExpr, con.DefaultExpr = check, def
		res.AffectedTableIDs.Add(table.TableID)
		res.Payload = con
		return nil
	})
	return res, err
}

// ChangeConstraintNameRequest renames a constraint.
type ChangeConstraintNameRequest struct {
	ConstraintID string
	Name         string
}

// ChangeConstraintName renames a constraint. Names are unique per schema.
func (s *ConstraintService) ChangeConstraintName(ctx context.Context, req ChangeConstraintNameRequest) (types.Result[*types.Constraint], error) {
	res := types.Result[*types.Constraint]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}

	err = s.update(ctx, "change constraint name", res.AffectedTableIDs, func(tx types.Tx) error {
		con, err := tx.Constraints().FindByID(req.ConstraintID)
		if err != nil {
			return err
		}
		table, err := tx.Tables().FindByID(con.TableID)
		if err != nil {
			return err
		}
		if err := constraintNameFree(tx, table.SchemaID, name, con.ConstraintID); err != nil {
			return err
		}
		if err := tx.Constraints().ChangeName(con.ConstraintID, name); err != nil {
			return err
		}
		con.Name = name
		res.AffectedTableIDs.Add(table.TableID)
		res.Payload = con
		return nil
	})
	return res, err
}

// ConstraintDeleted is the payload of DeleteConstraint.
type ConstraintDeleted struct {
	ConstraintID string                     `json:"constraint_id"`
	Cascade      []types.CascadeRemovedInfo `json:"cascade,omitempty"`
}

// DeleteConstraint deletes a constraint. Deleting a primary key first
// removes every column it propagated into child tables. A primary key that
// holds identifying relationship columns cannot be deleted.
func (s *ConstraintService) DeleteConstraint(ctx context.Context, constraintID string) (types.Result[*ConstraintDeleted], error) {
	res := types.Result[*ConstraintDeleted]{AffectedTableIDs: types.NewTableSet()}

	err := s.update(ctx, "delete constraint", res.AffectedTableIDs, func(tx types.Tx) error {
		con, table, tc, err := loadConstraint(tx, constraintID)
		if err != nil {
			return err
		}
		out := &ConstraintDeleted{ConstraintID: con.ConstraintID}
		if con.Kind == types.ConstraintPrimaryKey {
			locked, err := identifyingMembers(tx, table.TableID)
			if err != nil {
				return err
			}
			keyIDs := tc.ColumnIDs(con.ConstraintID)
			for _, colID := range keyIDs {
				if rel, ok := locked[colID]; ok {
					return fmt.Errorf("column %s is held by relationship %s: %w", colID, rel.Name, types.ErrIdentifyingKeyMember)
				}
			}
			w := s.walker(tx)
			visited := cascade.NewVisited()
			for _, colID := range keyIDs {
				removed, err := w.RemoveColumn(table.TableID, colID, visited)
				if err != nil {
					return err
				}
				out.Cascade = append(out.Cascade, removed...)
			}
			res.AffectedTableIDs.Add(types.RemovedTables(out.Cascade)...)
		}
		if err := tx.Constraints().Delete(con.ConstraintID); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(table.TableID)
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = out
		return nil
	})
	return res, err
}
