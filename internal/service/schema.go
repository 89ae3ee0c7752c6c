package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// SchemaService creates schemas and tables and reads whole schemas back.
type SchemaService struct {
	base
}

// CreateSchemaRequest describes a new schema.
type CreateSchemaRequest struct {
	Name      string
	Charset   string
	Collation string
}

// CreateSchema creates an empty schema. Schema names are unique.
func (s *SchemaService) CreateSchema(ctx context.Context, req CreateSchemaRequest) (types.Result[*types.Schema], error) {
	res := types.Result[*types.Schema]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	err = s.update(ctx, "create schema", res.AffectedTableIDs, func(tx types.Tx) error {
		taken, err := tx.Schemas().ExistsByName(name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("schema %q: %w", name, types.ErrDuplicateName)
		}
		schema := &types.Schema{
			Name:      name,
			Charset:   naming.Normalize(req.Charset),
			Collation: naming.Normalize(req.Collation),
		}
		if err := tx.Schemas().Create(schema); err != nil {
			return err
		}
		res.Payload = schema
		return nil
	})
	return res, err
}

// CreateTableRequest describes a new table.
type CreateTableRequest struct {
	SchemaID  string
	Name      string
	Charset   string
	Collation string
	Comment   string
}

// CreateTable creates an empty table. Table names are unique within a
// schema. Charset and collation default to the schema's.
func (s *SchemaService) CreateTable(ctx context.Context, req CreateTableRequest) (types.Result[*types.Table], error) {
	res := types.Result[*types.Table]{AffectedTableIDs: types.NewTableSet()}
	name, err := cleanName(req.Name)
	if err != nil {
		return res, err
	}
	err = s.update(ctx, "create table", res.AffectedTableIDs, func(tx types.Tx) error {
		schema, err := tx.Schemas().FindByID(req.SchemaID)
		if err != nil {
			return err
		}
		taken, err := tx.Tables().ExistsByNameInSchema(schema.SchemaID, name)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("table %q in schema %s: %w", name, schema.Name, types.ErrDuplicateName)
		}
		table := &types.Table{
			SchemaID:  schema.SchemaID,
			Name:      name,
			Charset:   orDefault(naming.Normalize(req.Charset), schema.Charset),
			Collation: orDefault(naming.Normalize(req.Collation), schema.Collation),
			Comment:   req.Comment,
		}
		if err := tx.Tables().Create(table); err != nil {
			return err
		}
		res.Payload = table
		res.AffectedTableIDs.Add(table.TableID)
		return nil
	})
	return res, err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ListSchemas returns every schema ordered by name.
func (s *SchemaService) ListSchemas(ctx context.Context) ([]*types.Schema, error) {
	var out []*types.Schema
	err := s.store.View(ctx, func(tx types.Tx) error {
		var err error
		out, err = tx.Schemas().FindAll()
		return err
	})
	return out, err
}

// FindSchema resolves a schema by id or, failing that, by name.
func (s *SchemaService) FindSchema(ctx context.Context, ref string) (*types.Schema, error) {
	var out *types.Schema
	err := s.store.View(ctx, func(tx types.Tx) error {
		var err error
		out, err = resolveSchema(tx, ref)
		return err
	})
	return out, err
}

func resolveSchema(tx types.Tx, ref string) (*types.Schema, error) {
	schema, err := tx.Schemas().FindByID(ref)
	if err == nil || types.KindOf(err) != types.KindNotFound {
		return schema, err
	}
	all, err := tx.Schemas().FindAll()
	if err != nil {
		return nil, err
	}
	want := naming.Fold(ref)
	for _, sc := range all {
		if naming.Fold(sc.Name) == want {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, types.ErrSchemaNotFound)
}
