package types

// RelationshipKind distinguishes identifying from non-identifying
// relationships.
type RelationshipKind string

// Relationship kinds.
const (
	RelationshipIdentifying    RelationshipKind = "IDENTIFYING"
	RelationshipNonIdentifying RelationshipKind = "NON_IDENTIFYING"
)

// Valid reports whether k is a known relationship kind.
func (k RelationshipKind) Valid() bool {
	return k == RelationshipIdentifying || k == RelationshipNonIdentifying
}

// Cardinality describes how many child rows may reference one parent row.
type Cardinality string

// Cardinalities.
const (
	CardinalityOneToOne   Cardinality = "ONE_TO_ONE"
	CardinalityOneToMany  Cardinality = "ONE_TO_MANY"
	CardinalityZeroOrOne  Cardinality = "ZERO_OR_ONE"
	CardinalityZeroOrMany Cardinality = "ZERO_OR_MANY"
)

// Valid reports whether c is a known cardinality.
func (c Cardinality) Valid() bool {
	switch c {
	case CardinalityOneToOne, CardinalityOneToMany, CardinalityZeroOrOne, CardinalityZeroOrMany:
		return true
	default:
		return false
	}
}

// Relationship is a foreign key link from a child table (FkTableID) to a
// parent table (PkTableID). A relationship always has at least one
// RelationshipColumn.
type Relationship struct {
	RelationshipID string           `json:"relationship_id"`
	SchemaID       string           `json:"schema_id"`
	FkTableID      string           `json:"fk_table_id"`
	PkTableID      string           `json:"pk_table_id"`
	Name           string           `json:"name"`
	Kind           RelationshipKind `json:"kind"`
	Cardinality    Cardinality      `json:"cardinality"`
}

// Identifying reports whether the relationship's child columns belong to
// the child table's primary key.
func (r *Relationship) Identifying() bool {
	return r.Kind == RelationshipIdentifying
}

// RelationshipColumn links one parent key column to one child column.
type RelationshipColumn struct {
	RelationshipColumnID string `json:"relationship_column_id"`
	RelationshipID       string `json:"relationship_id"`
	PkColumnID           string `json:"pk_column_id"`
	FkColumnID           string `json:"fk_column_id"`
	SeqNo                int    `json:"seq_no"`
}
