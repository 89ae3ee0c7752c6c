package service

import (
	"context"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Snapshot is a read-only copy of every entity in one schema.
type Snapshot struct {
	Schema        *types.Schema          `json:"schema"`
	Tables        []TableSnapshot        `json:"tables"`
	Relationships []RelationshipSnapshot `json:"relationships"`
}

// TableSnapshot is one table with its columns, constraints, and indexes.
type TableSnapshot struct {
	Table       *types.Table         `json:"table"`
	Columns     []*types.Column      `json:"columns"`
	Constraints []ConstraintSnapshot `json:"constraints"`
	Indexes     []IndexSnapshot      `json:"indexes"`
}

// ConstraintSnapshot is a constraint with its ordered columns.
type ConstraintSnapshot struct {
	Constraint *types.Constraint         `json:"constraint"`
	Columns    []*types.ConstraintColumn `json:"columns"`
}

// IndexSnapshot is an index with its ordered columns.
type IndexSnapshot struct {
	Index   *types.Index         `json:"index"`
	Columns []*types.IndexColumn `json:"columns"`
}

// RelationshipSnapshot is a relationship with its ordered column pairs.
type RelationshipSnapshot struct {
	Relationship *types.Relationship         `json:"relationship"`
	Columns      []*types.RelationshipColumn `json:"columns"`
}

// Table returns the snapshot of the table with the given id or name.
func (s *Snapshot) Table(ref string) *TableSnapshot {
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Table.TableID == ref || t.Table.Name == ref {
			return t
		}
	}
	return nil
}

// Column returns the column with the given id or name.
func (t *TableSnapshot) Column(ref string) *types.Column {
	for _, c := range t.Columns {
		if c.ColumnID == ref || c.Name == ref {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the table's primary key, or nil.
func (t *TableSnapshot) PrimaryKey() *ConstraintSnapshot {
	for i := range t.Constraints {
		if t.Constraints[i].Constraint.Kind == types.ConstraintPrimaryKey {
			return &t.Constraints[i]
		}
	}
	return nil
}

// Snapshot reads schemaRef (an id or a name) and everything it owns in one
// consistent view.
func (s *SchemaService) Snapshot(ctx context.Context, schemaRef string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.store.View(ctx, func(tx types.Tx) error {
		schema, err := resolveSchema(tx, schemaRef)
		if err != nil {
			return err
		}
		snap = &Snapshot{Schema: schema}
		tables, err := tx.Tables().FindAllBySchemaID(schema.SchemaID)
		if err != nil {
			return err
		}
		for _, tb := range tables {
			ts, err := snapshotTable(tx, tb)
			if err != nil {
				return err
			}
			snap.Tables = append(snap.Tables, ts)
		}
		rels, err := tx.Relationships().FindAllBySchemaID(schema.SchemaID)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			rcs, err := tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
			if err != nil {
				return err
			}
			snap.Relationships = append(snap.Relationships, RelationshipSnapshot{Relationship: rel, Columns: rcs})
		}
		return nil
	})
	return snap, err
}

func snapshotTable(tx types.Tx, tb *types.Table) (TableSnapshot, error) {
	ts := TableSnapshot{Table: tb}
	var err error
	if ts.Columns, err = tx.Columns().FindAllByTableID(tb.TableID); err != nil {
		return ts, err
	}
	cons, err := tx.Constraints().FindAllByTableID(tb.TableID)
	if err != nil {
		return ts, err
	}
	for _, c := range cons {
		ccs, err := tx.ConstraintColumns().FindAllByConstraintID(c.ConstraintID)
		if err != nil {
			return ts, err
		}
		ts.Constraints = append(ts.Constraints, ConstraintSnapshot{Constraint: c, Columns: ccs})
	}
	ixs, err := tx.Indexes().FindAllByTableID(tb.TableID)
	if err != nil {
		return ts, err
	}
	for _, ix := range ixs {
		ics, err := tx.IndexColumns().FindAllByIndexID(ix.IndexID)
		if err != nil {
			return ts, err
		}
		ts.Indexes = append(ts.Indexes, IndexSnapshot{Index: ix, Columns: ics})
	}
	return ts, nil
}
