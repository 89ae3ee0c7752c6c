package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

type indexesTable struct{ t *txn }

type indexColumnsTable struct{ t *txn }

const indexCols = "index_id, table_id, name, type"

func scanIndex(row interface{ Scan(...any) error }) (*types.Index, error) {
	var (
		ix  types.Index
		typ string
	)
	if err := row.Scan(&ix.IndexID, &ix.TableID, &ix.Name, &typ); err != nil {
		return nil, err
	}
	ix.Type = types.IndexType(typ)
	return &ix, nil
}

// FindByID retrieves an index by ID.
func (it indexesTable) FindByID(id string) (*types.Index, error) {
	ix, err := scanIndex(it.t.queryRow("SELECT "+indexCols+" FROM indexes WHERE index_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting index %s: %w", id, err)
	}
	return ix, nil
}

// FindAllByTableID returns the indexes of a table ordered by name.
func (it indexesTable) FindAllByTableID(tableID string) ([]*types.Index, error) {
	rows, err := it.t.query("SELECT "+indexCols+" FROM indexes WHERE table_id = ? ORDER BY name, index_id", tableID)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var out []*types.Index
	for rows.Next() {
		ix, err := scanIndex(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

// Create inserts an index. An empty IndexID is filled from the generator.
func (it indexesTable) Create(ix *types.Index) error {
	if ix.IndexID == "" {
		ix.IndexID = it.t.ids.NewID()
	}
	_, err := it.t.exec(
		"INSERT INTO indexes ("+indexCols+") VALUES (?, ?, ?, ?)",
		ix.IndexID, ix.TableID, ix.Name, string(ix.Type),
	)
	if err != nil {
		return fmt.Errorf("inserting index: %w", err)
	}
	return nil
}

// Delete removes an index and its index columns.
func (it indexesTable) Delete(id string) error {
	if _, err := it.t.exec("DELETE FROM index_columns WHERE index_id = ?", id); err != nil {
		return fmt.Errorf("deleting index columns of %s: %w", id, err)
	}
	return it.t.update(types.ErrIndexNotFound, id, "DELETE FROM indexes WHERE index_id = ?", id)
}

// ExistsByNameInSchema reports whether any table of the schema owns an
// index with the given name, ignoring ASCII case.
func (it indexesTable) ExistsByNameInSchema(schemaID, name string) (bool, error) {
	return it.t.exists(`SELECT 1 FROM indexes i
        JOIN tables t ON t.table_id = i.table_id
        WHERE t.schema_id = ? AND i.name = ? COLLATE NOCASE LIMIT 1`, schemaID, name)
}

const indexColumnCols = "index_column_id, index_id, column_id, seq_no, sort_dir"

func scanIndexColumn(row interface{ Scan(...any) error }) (*types.IndexColumn, error) {
	var (
		ic  types.IndexColumn
		dir string
	)
	if err := row.Scan(&ic.IndexColumnID, &ic.IndexID, &ic.ColumnID, &ic.SeqNo, &dir); err != nil {
		return nil, err
	}
	ic.SortDir = types.SortDir(dir)
	return &ic, nil
}

func (ict indexColumnsTable) list(where string, arg any) ([]*types.IndexColumn, error) {
	rows, err := ict.t.query("SELECT "+indexColumnCols+" FROM index_columns WHERE "+where+" ORDER BY seq_no, index_column_id", arg)
	if err != nil {
		return nil, fmt.Errorf("querying index columns: %w", err)
	}
	defer rows.Close()

	var out []*types.IndexColumn
	for rows.Next() {
		ic, err := scanIndexColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning index column: %w", err)
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

// FindByID retrieves an index column by ID.
func (ict indexColumnsTable) FindByID(id string) (*types.IndexColumn, error) {
	ic, err := scanIndexColumn(ict.t.queryRow("SELECT "+indexColumnCols+" FROM index_columns WHERE index_column_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrIndexColumnNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting index column %s: %w", id, err)
	}
	return ic, nil
}

// FindAllByIndexID returns the columns of an index in order.
func (ict indexColumnsTable) FindAllByIndexID(indexID string) ([]*types.IndexColumn, error) {
	return ict.list("index_id = ?", indexID)
}

func (ict indexColumnsTable) findAllByColumnID(columnID string) ([]*types.IndexColumn, error) {
	return ict.list("column_id = ?", columnID)
}

// Create inserts an index column. An empty IndexColumnID is filled from the
// generator.
func (ict indexColumnsTable) Create(ic *types.IndexColumn) error {
	if ic.IndexColumnID == "" {
		ic.IndexColumnID = ict.t.ids.NewID()
	}
	_, err := ict.t.exec(
		"INSERT INTO index_columns ("+indexColumnCols+") VALUES (?, ?, ?, ?, ?)",
		ic.IndexColumnID, ic.IndexID, ic.ColumnID, ic.SeqNo, string(ic.SortDir),
	)
	if err != nil {
		return fmt.Errorf("inserting index column: %w", err)
	}
	return nil
}

// Delete removes an index column. It does not re-pack its siblings.
func (ict indexColumnsTable) Delete(id string) error {
	return ict.t.update(types.ErrIndexColumnNotFound, id, "DELETE FROM index_columns WHERE index_column_id = ?", id)
}

// Reorder assigns SeqNo = position to each entry of ordered.
func (ict indexColumnsTable) Reorder(indexID string, ordered []*types.IndexColumn) error {
	ids := make([]string, len(ordered))
	for i, ic := range ordered {
		if ic.IndexID != indexID {
			return fmt.Errorf("index column %s belongs to %s, not %s: %w", ic.IndexColumnID, ic.IndexID, indexID, types.ErrInvalidPosition)
		}
		ids[i] = ic.IndexColumnID
		ic.SeqNo = i
	}
	return ict.t.reorder("index_columns", "index_column_id", ids)
}
