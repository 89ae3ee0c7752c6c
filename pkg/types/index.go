package types

// IndexType is the access method of an index.
type IndexType string

// Index types.
const (
	IndexBTree    IndexType = "BTREE"
	IndexHash     IndexType = "HASH"
	IndexGIN      IndexType = "GIN"
	IndexGiST     IndexType = "GIST"
	IndexFullText IndexType = "FULLTEXT"
	IndexSpatial  IndexType = "SPATIAL"
)

var validIndexTypes = map[IndexType]bool{
	IndexBTree:    true,
	IndexHash:     true,
	IndexGIN:      true,
	IndexGiST:     true,
	IndexFullText: true,
	IndexSpatial:  true,
}

// Valid reports whether t is a known index type.
func (t IndexType) Valid() bool {
	return validIndexTypes[t]
}

// SortDir is the sort direction of an index column.
type SortDir string

// Sort directions.
const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// Valid reports whether d is ASC or DESC.
func (d SortDir) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Index is a named index on a table.
type Index struct {
	IndexID string    `json:"index_id"`
	TableID string    `json:"table_id"`
	Name    string    `json:"name"`
	Type    IndexType `json:"type"`
}

// IndexColumn places a column at a position inside an index.
type IndexColumn struct {
	IndexColumnID string  `json:"index_column_id"`
	IndexID       string  `json:"index_id"`
	ColumnID      string  `json:"column_id"`
	SeqNo         int     `json:"seq_no"`
	SortDir       SortDir `json:"sort_dir"`
}
