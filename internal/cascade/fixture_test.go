package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/internal/sqlite"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// fixture builds schema graphs inside one open unit of work.
type fixture struct {
	t        *testing.T
	tx       types.Tx
	w        *Walker
	schemaID string
}

// inTx runs fn inside a single Update against a fresh store.
func inTx(t *testing.T, fn func(f *fixture)) {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = b.Detach() })

	err := b.Update(context.Background(), func(tx types.Tx) error {
		s := &types.Schema{Name: "shop"}
		require.NoError(t, tx.Schemas().Create(s))
		fn(&fixture{t: t, tx: tx, w: New(tx, nil), schemaID: s.SchemaID})
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) table(name string) *types.Table {
	tb := &types.Table{SchemaID: f.schemaID, Name: name}
	require.NoError(f.t, f.tx.Tables().Create(tb))
	return tb
}

func (f *fixture) column(tb *types.Table, name, dataType string) *types.Column {
	cols, err := f.tx.Columns().FindAllByTableID(tb.TableID)
	require.NoError(f.t, err)
	c := &types.Column{TableID: tb.TableID, Name: name, DataType: dataType, SeqNo: len(cols)}
	require.NoError(f.t, f.tx.Columns().Create(c))
	return c
}

// primaryKey makes cols the key of tb, creating the constraint if needed.
func (f *fixture) primaryKey(tb *types.Table, cols ...*types.Column) *types.Constraint {
	pk, err := f.w.EnsurePrimaryKey(tb.TableID)
	require.NoError(f.t, err)
	for _, c := range cols {
		_, _, err := f.w.AddToPrimaryKey(pk, c.ColumnID)
		require.NoError(f.t, err)
	}
	return pk
}

// relate links parent to child and generates one child column per parent
// key column, the way relationship creation does.
func (f *fixture) relate(name string, parent, child *types.Table, kind types.RelationshipKind) *types.Relationship {
	rel := &types.Relationship{
		SchemaID:    f.schemaID,
		PkTableID:   parent.TableID,
		FkTableID:   child.TableID,
		Name:        name,
		Kind:        kind,
		Cardinality: types.CardinalityOneToMany,
	}
	require.NoError(f.t, f.tx.Relationships().Create(rel))
	for _, c := range f.keyColumns(parent) {
		_, err := f.w.AddToRelationship(rel, c, NewVisited())
		require.NoError(f.t, err)
	}
	return rel
}

func (f *fixture) keyColumns(tb *types.Table) []*types.Column {
	pk, err := f.w.PrimaryKey(tb.TableID)
	require.NoError(f.t, err)
	if pk == nil {
		return nil
	}
	ccs, err := f.tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
	require.NoError(f.t, err)
	out := make([]*types.Column, len(ccs))
	for i, cc := range ccs {
		c, err := f.tx.Columns().FindByID(cc.ColumnID)
		require.NoError(f.t, err)
		out[i] = c
	}
	return out
}

func (f *fixture) keyNames(tb *types.Table) []string {
	var names []string
	for _, c := range f.keyColumns(tb) {
		names = append(names, c.Name)
	}
	return names
}

// columnNames returns the table's column names and checks the sequence
// numbers are packed.
func (f *fixture) columnNames(tb *types.Table) []string {
	cols, err := f.tx.Columns().FindAllByTableID(tb.TableID)
	require.NoError(f.t, err)
	var names []string
	for i, c := range cols {
		require.Equal(f.t, i, c.SeqNo, "column %s", c.Name)
		names = append(names, c.Name)
	}
	return names
}

func (f *fixture) findColumn(tb *types.Table, name string) *types.Column {
	cols, err := f.tx.Columns().FindAllByTableID(tb.TableID)
	require.NoError(f.t, err)
	for _, c := range cols {
		if c.Name == name {
			return c
		}
	}
	f.t.Fatalf("table %s has no column %s", tb.Name, name)
	return nil
}
