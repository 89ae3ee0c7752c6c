package types

import "context"

// Store is the metadata store the engine runs against. Update runs fn inside
// one all-or-nothing unit of work: when fn returns an error nothing it wrote
// is kept. View runs fn against a consistent read-only snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Backend is a Store with a lifecycle. Attach loads the store from
// Config.DataDir; Detach flushes pending writes and releases it. Update and
// View fail with ErrStoreDetached outside Attach/Detach.
type Backend interface {
	Store
	Attach(config Config) error
	Detach() error
}

// Tx exposes the per-entity ports of one unit of work.
type Tx interface {
	Schemas() SchemaStore
	Tables() TableStore
	Columns() ColumnStore
	Constraints() ConstraintStore
	ConstraintColumns() ConstraintColumnStore
	Relationships() RelationshipStore
	RelationshipColumns() RelationshipColumnStore
	Indexes() IndexStore
	IndexColumns() IndexColumnStore
	IDs() IDGenerator
}

// IDGenerator produces a new globally unique id per created entity.
type IDGenerator interface {
	NewID() string
}

// SchemaStore reads and writes schemas.
type SchemaStore interface {
	FindByID(id string) (*Schema, error)
	FindAll() ([]*Schema, error)
	Create(s *Schema) error
	ExistsByName(name string) (bool, error)
}

// TableStore reads and writes tables.
type TableStore interface {
	FindByID(id string) (*Table, error)
	FindAllBySchemaID(schemaID string) ([]*Table, error)
	Create(t *Table) error
	ExistsByNameInSchema(schemaID, name string) (bool, error)
}

// ColumnStore reads and writes columns. FindAllByTableID returns columns in
// SeqNo order. Delete also deletes every constraint, index, and relationship
// column that references the column, re-packs the sequence numbers it
// disturbed, and deletes relationships, indexes, and column-bound
// constraints that were left empty.
type ColumnStore interface {
	FindByID(id string) (*Column, error)
	FindAllByTableID(tableID string) ([]*Column, error)
	Create(c *Column) error
	ChangeName(id, name string) error
	ChangeType(id string, t ColumnType) error
	ChangeMeta(id string, meta ColumnMeta) error
	Delete(id string) error
}

// ConstraintStore reads and writes constraints.
type ConstraintStore interface {
	FindByID(id string) (*Constraint, error)
	FindAllByTableID(tableID string) ([]*Constraint, error)
	Create(c *Constraint) error
	Delete(id string) error
	ChangeName(id, name string) error
	ChangeExpressions(id string, check, def *string) error
	ExistsByNameInSchema(schemaID, name string) (bool, error)
}

// ConstraintColumnStore reads and writes constraint columns. Lists are
// returned in SeqNo order. Reorder assigns SeqNo = slice index.
type ConstraintColumnStore interface {
	FindByID(id string) (*ConstraintColumn, error)
	FindAllByConstraintID(constraintID string) ([]*ConstraintColumn, error)
	FindAllByColumnID(columnID string) ([]*ConstraintColumn, error)
	Create(cc *ConstraintColumn) error
	Delete(id string) error
	Reorder(constraintID string, ordered []*ConstraintColumn) error
}

// RelationshipStore reads and writes relationships. Lists are returned in
// name order, then id.
type RelationshipStore interface {
	FindByID(id string) (*Relationship, error)
	FindAllByParentTableID(tableID string) ([]*Relationship, error)
	FindAllByChildTableID(tableID string) ([]*Relationship, error)
	FindAllBySchemaID(schemaID string) ([]*Relationship, error)
	Create(r *Relationship) error
	ChangeKind(id string, kind RelationshipKind) error
	Delete(id string) error
	ExistsByNameInSchema(schemaID, name string) (bool, error)
}

// RelationshipColumnStore reads and writes relationship columns. Lists are
// returned in SeqNo order. Reorder assigns SeqNo = slice index.
type RelationshipColumnStore interface {
	FindAllByRelationshipID(relationshipID string) ([]*RelationshipColumn, error)
	FindAllByChildColumnID(columnID string) ([]*RelationshipColumn, error)
	Create(rc *RelationshipColumn) error
	Delete(id string) error
	DeleteAllByRelationshipID(relationshipID string) error
	Reorder(relationshipID string, ordered []*RelationshipColumn) error
}

// IndexStore reads and writes indexes.
type IndexStore interface {
	FindByID(id string) (*Index, error)
	FindAllByTableID(tableID string) ([]*Index, error)
	Create(ix *Index) error
	Delete(id string) error
	ExistsByNameInSchema(schemaID, name string) (bool, error)
}

// IndexColumnStore reads and writes index columns. Lists are returned in
// SeqNo order. Reorder assigns SeqNo = slice index.
type IndexColumnStore interface {
	FindByID(id string) (*IndexColumn, error)
	FindAllByIndexID(indexID string) ([]*IndexColumn, error)
	Create(ic *IndexColumn) error
	Delete(id string) error
	Reorder(indexID string, ordered []*IndexColumn) error
}
