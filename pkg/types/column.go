package types

// Column is a single column of a table. SeqNo values are contiguous from 0
// within a table. Empty Charset, Collation, and Comment mean absent.
type Column struct {
	ColumnID      string `json:"column_id"`
	TableID       string `json:"table_id"`
	Name          string `json:"name"`
	DataType      string `json:"data_type"`
	Length        *int   `json:"length,omitempty"`
	Precision     *int   `json:"precision,omitempty"`
	Scale         *int   `json:"scale,omitempty"`
	SeqNo         int    `json:"seq_no"`
	AutoIncrement bool   `json:"auto_increment"`
	Charset       string `json:"charset,omitempty"`
	Collation     string `json:"collation,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

// ColumnType is the type portion of a column that propagates from a primary
// key column to the foreign key columns generated from it.
type ColumnType struct {
	DataType  string
	Length    *int
	Precision *int
	Scale     *int
}

// Type returns the column's type portion.
func (c *Column) Type() ColumnType {
	return ColumnType{
		DataType:  c.DataType,
		Length:    c.Length,
		Precision: c.Precision,
		Scale:     c.Scale,
	}
}

// ColumnMeta carries optional column metadata updates. A nil field is left
// unchanged; a pointer to the zero value clears the field.
type ColumnMeta struct {
	AutoIncrement *bool
	Charset       *string
	Collation     *string
	Comment       *string
}
