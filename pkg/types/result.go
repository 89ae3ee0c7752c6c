package types

import "sort"

// TableSet is a set of table ids.
type TableSet map[string]struct{}

// NewTableSet returns a set holding ids.
func NewTableSet(ids ...string) TableSet {
	s := make(TableSet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids into the set, ignoring empty strings.
func (s TableSet) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

// Has reports whether id is in the set.
func (s TableSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the ids in ascending order.
func (s TableSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Result is the envelope every mutation returns: the operation-specific
// payload plus every table whose columns, constraints, or relationships the
// mutation touched directly or through a cascade.
type Result[T any] struct {
	Payload          T        `json:"payload"`
	AffectedTableIDs TableSet `json:"-"`
}

// Affected returns the affected table ids in ascending order.
func (r Result[T]) Affected() []string {
	return r.AffectedTableIDs.IDs()
}

// CascadeCreatedInfo records one column created by the add cascade. The
// constraint fields are set only when the relationship is identifying and
// the new column joined the child table's primary key.
type CascadeCreatedInfo struct {
	ColumnID             string `json:"column_id"`
	ColumnName           string `json:"column_name"`
	TableID              string `json:"table_id"`
	RelationshipColumnID string `json:"relationship_column_id"`
	RelationshipID       string `json:"relationship_id"`
	ConstraintColumnID   string `json:"constraint_column_id,omitempty"`
	ConstraintID         string `json:"constraint_id,omitempty"`
}

// CascadeRemovedInfo records one child column removed by the remove
// cascade.
type CascadeRemovedInfo struct {
	ColumnID              string `json:"column_id"`
	TableID               string `json:"table_id"`
	RelationshipID        string `json:"relationship_id"`
	RelationshipDeleted   bool   `json:"relationship_deleted"`
	PrimaryKeyDeleted     bool   `json:"primary_key_deleted"`
	RemovedFromPrimaryKey bool   `json:"removed_from_primary_key"`
}

// CreatedTables returns the table ids touched by the given add cascade.
func CreatedTables(infos []CascadeCreatedInfo) []string {
	ids := make([]string, 0, len(infos))
	for _, in := range infos {
		ids = append(ids, in.TableID)
	}
	return ids
}

// RemovedTables returns the table ids touched by the given remove cascade.
func RemovedTables(infos []CascadeRemovedInfo) []string {
	ids := make([]string, 0, len(infos))
	for _, in := range infos {
		ids = append(ids, in.TableID)
	}
	return ids
}

// CascadeTypeChangedInfo records one child column whose type was rewritten
// by type propagation.
type CascadeTypeChangedInfo struct {
	ColumnID       string `json:"column_id"`
	TableID        string `json:"table_id"`
	RelationshipID string `json:"relationship_id"`
}
