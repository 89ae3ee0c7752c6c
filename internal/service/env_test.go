package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/internal/sqlite"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// env is a fresh store with one schema and the services over it.
type env struct {
	t      *testing.T
	ctx    context.Context
	svc    *Services
	schema *types.Schema
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })

	e := &env{t: t, ctx: context.Background(), svc: New(b, nil)}
	res, err := e.svc.Schemas.CreateSchema(e.ctx, CreateSchemaRequest{Name: "shop", Charset: "utf8mb4", Collation: "utf8mb4_general_ci"})
	require.NoError(t, err)
	e.schema = res.Payload
	return e
}

func (e *env) table(name string) *types.Table {
	e.t.Helper()
	res, err := e.svc.Schemas.CreateTable(e.ctx, CreateTableRequest{SchemaID: e.schema.SchemaID, Name: name})
	require.NoError(e.t, err)
	return res.Payload
}

func (e *env) column(tb *types.Table, name, dataType string) *types.Column {
	e.t.Helper()
	res, err := e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{TableID: tb.TableID, Name: name, Type: types.ColumnType{DataType: dataType}})
	require.NoError(e.t, err)
	return res.Payload
}

func (e *env) constraint(tb *types.Table, name string, kind types.ConstraintKind, cols ...*types.Column) *ConstraintCreated {
	e.t.Helper()
	res, err := e.svc.Constraints.CreateConstraint(e.ctx, CreateConstraintRequest{
		TableID: tb.TableID, Name: name, Kind: kind, ColumnIDs: ids(cols...),
	})
	require.NoError(e.t, err)
	return res.Payload
}

func (e *env) relate(name string, parent, child *types.Table, kind types.RelationshipKind) *RelationshipCreated {
	e.t.Helper()
	res, err := e.svc.Relationships.CreateRelationship(e.ctx, CreateRelationshipRequest{
		ParentTableID: parent.TableID, ChildTableID: child.TableID, Name: name, Kind: kind,
	})
	require.NoError(e.t, err)
	return res.Payload
}

func (e *env) snapshot() *Snapshot {
	e.t.Helper()
	snap, err := e.svc.Schemas.Snapshot(e.ctx, e.schema.SchemaID)
	require.NoError(e.t, err)
	return snap
}

// columnNames lists a table's columns in order.
func (e *env) columnNames(tb *types.Table) []string {
	e.t.Helper()
	ts := e.snapshot().Table(tb.TableID)
	require.NotNil(e.t, ts)
	var names []string
	for i, c := range ts.Columns {
		require.Equal(e.t, i, c.SeqNo)
		names = append(names, c.Name)
	}
	return names
}

// keyNames lists a table's primary key columns in key order.
func (e *env) keyNames(tb *types.Table) []string {
	e.t.Helper()
	ts := e.snapshot().Table(tb.TableID)
	require.NotNil(e.t, ts)
	pk := ts.PrimaryKey()
	if pk == nil {
		return nil
	}
	var names []string
	for i, cc := range pk.Columns {
		require.Equal(e.t, i, cc.SeqNo)
		names = append(names, ts.Column(cc.ColumnID).Name)
	}
	return names
}

func ids(cols ...*types.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ColumnID
	}
	return out
}

func intp(n int) *int { return &n }
