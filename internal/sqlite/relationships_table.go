package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

type relationshipsTable struct{ t *txn }

type relationshipColumnsTable struct{ t *txn }

const relationshipCols = "relationship_id, schema_id, fk_table_id, pk_table_id, name, kind, cardinality"

func scanRelationship(row interface{ Scan(...any) error }) (*types.Relationship, error) {
	var (
		r                 types.Relationship
		kind, cardinality string
	)
	if err := row.Scan(&r.RelationshipID, &r.SchemaID, &r.FkTableID, &r.PkTableID, &r.Name, &kind, &cardinality); err != nil {
		return nil, err
	}
	r.Kind = types.RelationshipKind(kind)
	r.Cardinality = types.Cardinality(cardinality)
	return &r, nil
}

func (rt relationshipsTable) list(where string, arg any) ([]*types.Relationship, error) {
	rows, err := rt.t.query("SELECT "+relationshipCols+" FROM relationships WHERE "+where+" ORDER BY name, relationship_id", arg)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var out []*types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindByID retrieves a relationship by ID.
func (rt relationshipsTable) FindByID(id string) (*types.Relationship, error) {
	r, err := scanRelationship(rt.t.queryRow("SELECT "+relationshipCols+" FROM relationships WHERE relationship_id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, types.ErrRelationshipNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting relationship %s: %w", id, err)
	}
	return r, nil
}

// FindAllByParentTableID returns the relationships whose parent is tableID.
func (rt relationshipsTable) FindAllByParentTableID(tableID string) ([]*types.Relationship, error) {
	return rt.list("pk_table_id = ?", tableID)
}

// FindAllByChildTableID returns the relationships whose child is tableID.
func (rt relationshipsTable) FindAllByChildTableID(tableID string) ([]*types.Relationship, error) {
	return rt.list("fk_table_id = ?", tableID)
}

// FindAllBySchemaID returns every relationship of a schema.
func (rt relationshipsTable) FindAllBySchemaID(schemaID string) ([]*types.Relationship, error) {
	return rt.list("schema_id = ?", schemaID)
}

// Create inserts a relationship. An empty RelationshipID is filled from the
// generator.
func (rt relationshipsTable) Create(r *types.Relationship) error {
	if r.RelationshipID == "" {
		r.RelationshipID = rt.t.ids.NewID()
	}
	_, err := rt.t.exec(
		"INSERT INTO relationships ("+relationshipCols+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.RelationshipID, r.SchemaID, r.FkTableID, r.PkTableID, r.Name, string(r.Kind), string(r.Cardinality),
	)
	if err != nil {
		return fmt.Errorf("inserting relationship: %w", err)
	}
	return nil
}

// ChangeKind sets the relationship kind.
func (rt relationshipsTable) ChangeKind(id string, kind types.RelationshipKind) error {
	return rt.t.update(types.ErrRelationshipNotFound, id, "UPDATE relationships SET kind = ? WHERE relationship_id = ?", string(kind), id)
}

// Delete removes a relationship and its relationship columns. Child columns
// are left in place.
func (rt relationshipsTable) Delete(id string) error {
	if err := (relationshipColumnsTable{rt.t}).DeleteAllByRelationshipID(id); err != nil {
		return err
	}
	return rt.t.update(types.ErrRelationshipNotFound, id, "DELETE FROM relationships WHERE relationship_id = ?", id)
}

// ExistsByNameInSchema reports whether the schema has a relationship with
// the given name, ignoring ASCII case.
func (rt relationshipsTable) ExistsByNameInSchema(schemaID, name string) (bool, error) {
	return rt.t.exists("SELECT 1 FROM relationships WHERE schema_id = ? AND name = ? COLLATE NOCASE LIMIT 1", schemaID, name)
}

const relationshipColumnCols = "relationship_column_id, relationship_id, pk_column_id, fk_column_id, seq_no"

func scanRelationshipColumn(row interface{ Scan(...any) error }) (*types.RelationshipColumn, error) {
	var rc types.RelationshipColumn
	if err := row.Scan(&rc.RelationshipColumnID, &rc.RelationshipID, &rc.PkColumnID, &rc.FkColumnID, &rc.SeqNo); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (rct relationshipColumnsTable) list(where string, args ...any) ([]*types.RelationshipColumn, error) {
	rows, err := rct.t.query("SELECT "+relationshipColumnCols+" FROM relationship_columns WHERE "+where+" ORDER BY seq_no, relationship_column_id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying relationship columns: %w", err)
	}
	defer rows.Close()

	var out []*types.RelationshipColumn
	for rows.Next() {
		rc, err := scanRelationshipColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relationship column: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// FindAllByRelationshipID returns the columns of a relationship in order.
func (rct relationshipColumnsTable) FindAllByRelationshipID(relationshipID string) ([]*types.RelationshipColumn, error) {
	return rct.list("relationship_id = ?", relationshipID)
}

// FindAllByChildColumnID returns every relationship column whose child
// column is columnID.
func (rct relationshipColumnsTable) FindAllByChildColumnID(columnID string) ([]*types.RelationshipColumn, error) {
	return rct.list("fk_column_id = ?", columnID)
}

// findAllReferencing returns every relationship column that references
// columnID on either side.
func (rct relationshipColumnsTable) findAllReferencing(columnID string) ([]*types.RelationshipColumn, error) {
	return rct.list("pk_column_id = ? OR fk_column_id = ?", columnID, columnID)
}

// Create inserts a relationship column. An empty RelationshipColumnID is
// filled from the generator.
func (rct relationshipColumnsTable) Create(rc *types.RelationshipColumn) error {
	if rc.RelationshipColumnID == "" {
		rc.RelationshipColumnID = rct.t.ids.NewID()
	}
	_, err := rct.t.exec(
		"INSERT INTO relationship_columns ("+relationshipColumnCols+") VALUES (?, ?, ?, ?, ?)",
		rc.RelationshipColumnID, rc.RelationshipID, rc.PkColumnID, rc.FkColumnID, rc.SeqNo,
	)
	if err != nil {
		return fmt.Errorf("inserting relationship column: %w", err)
	}
	return nil
}

// Delete removes a relationship column. It does not re-pack its siblings.
func (rct relationshipColumnsTable) Delete(id string) error {
	return rct.t.update(types.ErrRelationshipColumnNotFound, id, "DELETE FROM relationship_columns WHERE relationship_column_id = ?", id)
}

// DeleteAllByRelationshipID removes every column of a relationship.
func (rct relationshipColumnsTable) DeleteAllByRelationshipID(relationshipID string) error {
	if _, err := rct.t.exec("DELETE FROM relationship_columns WHERE relationship_id = ?", relationshipID); err != nil {
		return fmt.Errorf("deleting relationship columns of %s: %w", relationshipID, err)
	}
	return nil
}

// Reorder assigns SeqNo = position to each entry of ordered.
func (rct relationshipColumnsTable) Reorder(relationshipID string, ordered []*types.RelationshipColumn) error {
	ids := make([]string, len(ordered))
	for i, rc := range ordered {
		if rc.RelationshipID != relationshipID {
			return fmt.Errorf("relationship column %s belongs to %s, not %s: %w", rc.RelationshipColumnID, rc.RelationshipID, relationshipID, types.ErrInvalidPosition)
		}
		ids[i] = rc.RelationshipColumnID
		rc.SeqNo = i
	}
	return rct.t.reorder("relationship_columns", "relationship_column_id", ids)
}
