package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/schemata/internal/cascade"
	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// ColumnService creates, retypes, and deletes columns.
type ColumnService struct {
	base
}

// CreateColumnRequest describes a new column. It is appended to the table.
type CreateColumnRequest struct {
	TableID       string
	Name          string
	Type          types.ColumnType
	AutoIncrement bool
	Charset       string
	Collation     string
	Comment       string
}

// cleanType trims the data type name and rejects blanks and negative sizes.
func cleanType(t types.ColumnType) (types.ColumnType, error) {
	t.DataType = strings.TrimSpace(t.DataType)
	if t.DataType == "" {
		return t, fmt.Errorf("empty data type: %w", types.ErrInvalidDataType)
	}
	for _, p := range []*int{t.Length, t.Precision, t.Scale} {
		if p != nil && *p < 0 {
			return t, fmt.Errorf("%s size %d: %w", t.DataType, *p, types.ErrInvalidDataType)
		}
	}
	return t, nil
}

// columnNameFree fails with ErrDuplicateName when a column of tableID
// other than selfID folds to the same name.
func columnNameFree(tx types.Tx, tableID, name, selfID string) error {
	cols, err := tx.Columns().FindAllByTableID(tableID)
	if err != nil {
		return err
	}
	want := naming.Fold(name)
	for _, c := range cols {
		if c.ColumnID != selfID && naming.Fold(c.Name) == want {
			return fmt.Errorf("column %q: %w", name, types.ErrDuplicateName)
		}
	}
	return nil
}

// CreateColumn appends a column to a table. Text columns inherit the
// table's charset and collation when none is given.
func (s *ColumnService) CreateColumn(ctx context.Context, req CreateColumnRequest) (types.Result[*types.Column], error) {
	res := types.Result[*types.Column]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	typ, err := cleanType(req.Type)
	if err != nil {
		return res, err
	}

	err = s.update(ctx, "create column", res.AffectedTableIDs, func(tx types.Tx) error {
		table, err := tx.Tables().FindByID(req.TableID)
		if err != nil {
			return err
		}
		if err := columnNameFree(tx, table.TableID, name, ""); err != nil {
			return err
		}
		cols, err := tx.Columns().FindAllByTableID(table.TableID)
		if err != nil {
			return err
		}
		col := &types.Column{
			TableID:       table.TableID,
			Name:          name,
			DataType:      typ.DataType,
			Length:        typ.Length,
			Precision:     typ.Precision,
			Scale:         typ.Scale,
			SeqNo:         len(cols),
			AutoIncrement: req.AutoIncrement,
			Charset:       req.Charset,
			Collation:     req.Collation,
			Comment:       req.Comment,
		}
		if types.IsTextType(typ.DataType) {
			col.Charset = orDefault(col.Charset, table.Charset)
			col.Collation = orDefault(col.Collation, table.Collation)
		} else {
			col.Charset, col.Collation = "", ""
		}
		if err := tx.Columns().Create(col); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(table.TableID)
		res.Payload = col
		return nil
	})
	return res, err
}

// ChangeColumnNameRequest renames a column.
type ChangeColumnNameRequest struct {
	ColumnID string
	Name     string
}

// ChangeColumnName renames a column. Names compare case-insensitively
// within a table.
func (s *ColumnService) ChangeColumnName(ctx context.Context, req ChangeColumnNameRequest) (types.Result[*types.Column], error) {
	res := types.Result[*types.Column]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	err = s.update(ctx, "change column name", res.AffectedTableIDs, func(tx types.Tx) error {
		col, err := tx.Columns().FindByID(req.ColumnID)
		if err != nil {
			return err
		}
		if err := columnNameFree(tx, col.TableID, name, col.ColumnID); err != nil {
			return err
		}
		if err := tx.Columns().ChangeName(col.ColumnID, name); err != nil {
			return err
		}
		col.Name = name
		res.AffectedTableIDs.Add(col.TableID)
		res.Payload = col
		return nil
	})
	return res, err
}

// ChangeColumnMetaRequest updates column metadata. Nil fields are left
// unchanged.
type ChangeColumnMetaRequest struct {
	ColumnID string
	Meta     types.ColumnMeta
}

// ChangeColumnMeta updates auto increment, charset, collation, or comment.
// Charset and collation are only kept on text columns.
func (s *ColumnService) ChangeColumnMeta(ctx context.Context, req ChangeColumnMetaRequest) (types.Result[*types.Column], error) {
	res := types.Result[*types.Column]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "change column meta", res.AffectedTableIDs, func(tx types.Tx) error {
		col, err := tx.Columns().FindByID(req.ColumnID)
		if err != nil {
			return err
		}
		meta := req.Meta
		if !types.IsTextType(col.DataType) {
			if (meta.Charset != nil && *meta.Charset != "") || (meta.Collation != nil && *meta.Collation != "") {
				return fmt.Errorf("charset on %s column %s: %w", col.DataType, col.Name, types.ErrInvalidDataType)
			}
		}
		if err := tx.Columns().ChangeMeta(col.ColumnID, meta); err != nil {
			return err
		}
		updated, err := tx.Columns().FindByID(col.ColumnID)
		if err != nil {
			return err
		}
		res.AffectedTableIDs.Add(col.TableID)
		res.Payload = updated
		return nil
	})
	return res, err
}

// ChangeColumnTypeRequest retypes a column.
type ChangeColumnTypeRequest struct {
	ColumnID string
	Type     types.ColumnType
}

// ColumnTypeChanged is the payload of ChangeColumnType.
type ColumnTypeChanged struct {
	Column  *types.Column                  `json:"column"`
	Cascade []types.CascadeTypeChangedInfo `json:"cascade,omitempty"`
}

// ChangeColumnType sets a column's type. When the column belongs to its
// table's primary key the new type is copied to every foreign key column
// derived from it, recursively.
func (s *ColumnService) ChangeColumnType(ctx context.Context, req ChangeColumnTypeRequest) (types.Result[*ColumnTypeChanged], error) {
	res := types.Result[*ColumnTypeChanged]{AffectedTableIDs: types.NewTableSet()}
	typ, err := cleanType(req.Type)
	if err != nil {
		return res, err
	}
	err = s.update(ctx, "change column type", res.AffectedTableIDs, func(tx types.Tx) error {
		col, err := tx.Columns().FindByID(req.ColumnID)
		if err != nil {
			return err
		}
		w := s.walker(tx)
		if err := w.ApplyType(col.ColumnID, typ); err != nil {
			return err
		}
		changed, err := w.PropagateType(col, typ, cascade.NewVisited())
		if err != nil {
			return err
		}
		updated, err := tx.Columns().FindByID(col.ColumnID)
		if err != nil {
			return err
		}
		res.AffectedTableIDs.Add(col.TableID)
		for _, c := range changed {
			res.AffectedTableIDs.Add(c.TableID)
		}
		res.Payload = &ColumnTypeChanged{Column: updated, Cascade: changed}
		return nil
	})
	return res, err
}

// ColumnDeleted is the payload of DeleteColumn.
type ColumnDeleted struct {
	ColumnID string                     `json:"column_id"`
	Cascade  []types.CascadeRemovedInfo `json:"cascade,omitempty"`
}

// DeleteColumn deletes a column. A primary key column first takes the
// columns it propagated into child tables with it. Constraints, indexes,
// and relationships left without columns are deleted.
func (s *ColumnService) DeleteColumn(ctx context.Context, columnID string) (types.Result[*ColumnDeleted], error) {
	res := types.Result[*ColumnDeleted]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "delete column", res.AffectedTableIDs, func(tx types.Tx) error {
		col, err := tx.Columns().FindByID(columnID)
		if err != nil {
			return err
		}
		out := &ColumnDeleted{ColumnID: col.ColumnID}
		w := s.walker(tx)
		member, err := w.IsPrimaryKeyMember(col.TableID, col.ColumnID)
		if err != nil {
			return err
		}
		if member {
			if _, _, err := w.RemoveFromPrimaryKey(col.TableID, col.ColumnID); err != nil {
				return err
			}
			removed, err := w.RemoveColumn(col.TableID, col.ColumnID, cascade.NewVisited())
			if err != nil {
				return err
			}
			out.Cascade = removed
			res.AffectedTableIDs.Add(types.RemovedTables(removed)...)
		}
		// Relationships this column belongs to as a child column shrink too.
		links, err := tx.RelationshipColumns().FindAllByChildColumnID(col.ColumnID)
		if err != nil {
			return err
		}
		for _, rc := range links {
			rel, err := tx.Relationships().FindByID(rc.RelationshipID)
			if err != nil {
				return err
			}
			res.AffectedTableIDs.Add(rel.PkTableID)
		}
		if err := tx.Columns().Delete(col.ColumnID); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(col.TableID)
		if err := checkKeys(tx, res.AffectedTableIDs); err != nil {
			return err
		}
		res.Payload = out
		return nil
	})
	return res, err
}
