package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/schemata/internal/validate"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// IndexService edits indexes. Index columns follow the same packing rules
// as constraint columns but never cascade.
type IndexService struct {
	base
}

// IndexColumnSpec is one column of a new index. An empty SortDir means ASC.
type IndexColumnSpec struct {
	ColumnID string
	SortDir  types.SortDir
}

// CreateIndexRequest describes a new index. An empty Type means BTREE.
type CreateIndexRequest struct {
	TableID string
	Name    string
	Type    types.IndexType
	Columns []IndexColumnSpec
}

// IndexCreated is the payload of CreateIndex.
type IndexCreated struct {
	Index   *types.Index         `json:"index"`
	Columns []*types.IndexColumn `json:"columns"`
}

func sortDir(d types.SortDir) (types.SortDir, error) {
	if d == "" {
		return types.SortAsc, nil
	}
	if !d.Valid() {
		return "", fmt.Errorf("%q: %w", d, types.ErrInvalidSortDir)
	}
	return d, nil
}

// CreateIndex creates an index over at least one column of a table.
func (s *IndexService) CreateIndex(ctx context.Context, req CreateIndexRequest) (types.Result[*IndexCreated], error) {
	res := types.Result[*IndexCreated]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	if req.Type == "" {
		req.Type = types.IndexBTree
	}
	if !req.Type.Valid() {
		return res, fmt.Errorf("%q: %w", req.Type, types.ErrInvalidIndexType)
	}
	if len(req.Columns) == 0 {
		return res, fmt.Errorf("index %s: %w", name, types.ErrColumnsRequired)
	}
	ids := make([]string, len(req.Columns))
	for i, c := range req.Columns {
		ids[i] = c.ColumnID
		if req.Columns[i].SortDir, err = sortDir(c.SortDir); err != nil {
			return res, err
		}
	}
	if err := validate.ColumnUniqueness(ids); err != nil {
		return res, err
	}

	err = s.update(ctx, "create index", res.AffectedTableIDs, func(tx types.Tx) error {
		table, err := tx.Tables().FindByID(req.TableID)
		if err != nil {
			return err
		}
		tc, err := validate.Load(tx, table.TableID)
		if err != nil {
			return err
		}
		if err := tc.ColumnExistence(ids); err != nil {
			return err
		}
		taken, err := tx.Indexes().ExistsByNameInSchema(table.SchemaID, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("index %q: %w", name, types.ErrDuplicateName)
		}
		ix := &types.Index{TableID: table.TableID, Name: name, Type: req.Type}
		if err := tx.Indexes().Create(ix); err != nil {
			return err
		}
		out := &IndexCreated{Index: ix}
		for i, c := range req.Columns {
			ic := &types.IndexColumn{IndexID: ix.IndexID, ColumnID: c.ColumnID, SeqNo: i, SortDir: c.SortDir}
			if err := tx.IndexColumns().Create(ic); err != nil {
				return err
			}
			out.Columns = append(out.Columns, ic)
		}
		res.AffectedTableIDs.Add(table.TableID)
		res.Payload = out
		return nil
	})
	return res, err
}

// AddIndexColumnRequest adds a column to an index. A nil SeqNo appends.
type AddIndexColumnRequest struct {
	IndexID  string
	ColumnID string
	SeqNo    *int
	SortDir  types.SortDir
}

// AddIndexColumn adds one column to an index.
func (s *IndexService) AddIndexColumn(ctx context.Context, req AddIndexColumnRequest) (types.Result[*types.IndexColumn], error) {
	res := types.Result[*types.IndexColumn]{AffectedTableIDs: types.NewTableSet()}
	dir, err := sortDir(req.SortDir)
	if err != nil {
		return res, err
	}
	if req.SeqNo != nil {
		if err := validate.Position(*req.SeqNo); err != nil {
			return res, err
		}
	}
	err = s.update(ctx, "add index column", res.AffectedTableIDs, func(tx types.Tx) error {
		ix, err := tx.Indexes().FindByID(req.IndexID)
		if err != nil {
			return err
		}
		tc, err := validate.Load(tx, ix.TableID)
		if err != nil {
			return err
		}
		if err := tc.ColumnExistence([]string{req.ColumnID}); err != nil {
			return err
		}
		members, err := tx.IndexColumns().FindAllByIndexID(ix.IndexID)
		if err != nil {
			return err
		}
		ids := []string{req.ColumnID}
		for _, m := range members {
			ids = append(ids, m.ColumnID)
		}
		if err := validate.ColumnUniqueness(ids); err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		pos, err := position(req.SeqNo, len(members))
		if err != nil {
			return err
		}
		ic := &types.IndexColumn{IndexID: ix.IndexID, ColumnID: req.ColumnID, SeqNo: pos, SortDir: dir}
		if err := tx.IndexColumns().Create(ic); err != nil {
			return err
		}
		if pos < len(members) {
			if err := tx.IndexColumns().Reorder(ix.IndexID, insertAt(members, pos, ic)); err != nil {
				return err
			}
		}
		res.AffectedTableIDs.Add(ix.TableID)
		res.Payload = ic
		return nil
	})
	return res, err
}

// IndexColumnRemoved is the payload of RemoveIndexColumn.
type IndexColumnRemoved struct {
	IndexColumnID string `json:"index_column_id"`
	IndexID       string `json:"index_id"`
	IndexDeleted  bool   `json:"index_deleted"`
}

// RemoveIndexColumn removes one column from an index and re-packs the
// rest. The index is deleted with its last column.
func (s *IndexService) RemoveIndexColumn(ctx context.Context, indexColumnID string) (types.Result[*IndexColumnRemoved], error) {
	res := types.Result[*IndexColumnRemoved]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "remove index column", res.AffectedTableIDs, func(tx types.Tx) error {
		ic, err := tx.IndexColumns().FindByID(indexColumnID)
		if err != nil {
			return err
		}
		ix, err := tx.Indexes().FindByID(ic.IndexID)
		if err != nil {
			return err
		}
		members, err := tx.IndexColumns().FindAllByIndexID(ix.IndexID)
		if err != nil {
			return err
		}
		var rest []*types.IndexColumn
		for _, m := range members {
			if m.IndexColumnID != ic.IndexColumnID {
				rest = append(rest, m)
			}
		}
		if err := tx.IndexColumns().Delete(ic.IndexColumnID); err != nil {
			return err
		}
		out := &IndexColumnRemoved{IndexColumnID: ic.IndexColumnID, IndexID: ix.IndexID}
		if len(rest) == 0 {
			if err := tx.Indexes().Delete(ix.IndexID); err != nil {
				return err
			}
			out.IndexDeleted = true
		} else if err := tx.IndexColumns().Reorder(ix.IndexID, rest); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(ix.TableID)
		res.Payload = out
		return nil
	})
	return res, err
}

// ChangeIndexColumnPositionRequest moves an index column to SeqNo.
type ChangeIndexColumnPositionRequest struct {
	IndexColumnID string
	SeqNo         int
}

// ChangeIndexColumnPosition moves one index column, shifting the columns
// in between.
func (s *IndexService) ChangeIndexColumnPosition(ctx context.Context, req ChangeIndexColumnPositionRequest) (types.Result[[]*types.IndexColumn], error) {
	res := types.Result[[]*types.IndexColumn]{AffectedTableIDs: types.NewTableSet()}
	if err := validate.Position(req.SeqNo); err != nil {
		return res, err
	}
	err := s.update(ctx, "change index column position", res.AffectedTableIDs, func(tx types.Tx) error {
		ic, err := tx.IndexColumns().FindByID(req.IndexColumnID)
		if err != nil {
			return err
		}
		ix, err := tx.Indexes().FindByID(ic.IndexID)
		if err != nil {
			return err
		}
		members, err := tx.IndexColumns().FindAllByIndexID(ix.IndexID)
		if err != nil {
			return err
		}
		seqNos := make([]int, len(members))
		from := 0
		for i, m := range members {
			seqNos[i] = m.SeqNo
			if m.IndexColumnID == ic.IndexColumnID {
				from = i
			}
		}
		if err := validate.SeqNoIntegrity(seqNos); err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		if req.SeqNo >= len(members) {
			return fmt.Errorf("position %d beyond %d members: %w", req.SeqNo, len(members), types.ErrInvalidPosition)
		}
		ordered := moveTo(members, from, req.SeqNo)
		if err := tx.IndexColumns().Reorder(ix.IndexID, ordered); err != nil {
			return err
		}
		for i, m := range ordered {
			m.SeqNo = i
		}
		res.AffectedTableIDs.Add(ix.TableID)
		res.Payload = ordered
		return nil
	})
	return res, err
}

// DeleteIndex deletes an index and its columns.
func (s *IndexService) DeleteIndex(ctx context.Context, indexID string) (types.Result[string], error) {
	res := types.Result[string]{AffectedTableIDs: types.NewTableSet()}
	err := s.update(ctx, "delete index", res.AffectedTableIDs, func(tx types.Tx) error {
		ix, err := tx.Indexes().FindByID(indexID)
		if err != nil {
			return err
		}
		if err := tx.Indexes().Delete(ix.IndexID); err != nil {
			return err
		}
		res.AffectedTableIDs.Add(ix.TableID)
		res.Payload = ix.IndexID
		return nil
	})
	return res, err
}
