package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// seed creates schema "shop" with table orders(a, b, c) and returns the
// table and its columns.
func seed(t *testing.T, b *Backend) (*types.Table, []*types.Column) {
	t.Helper()
	table := &types.Table{Name: "orders"}
	var cols []*types.Column
	update(t, b, func(tx types.Tx) error {
		s := &types.Schema{Name: "shop"}
		require.NoError(t, tx.Schemas().Create(s))
		table.SchemaID = s.SchemaID
		require.NoError(t, tx.Tables().Create(table))
		for i, name := range []string{"a", "b", "c"} {
			c := &types.Column{TableID: table.TableID, Name: name, DataType: "INT", SeqNo: i}
			require.NoError(t, tx.Columns().Create(c))
			cols = append(cols, c)
		}
		return nil
	})
	return table, cols
}

func TestExistsByNameIgnoresCase(t *testing.T) {
	b := attach(t, t.TempDir())
	table, _ := seed(t, b)

	update(t, b, func(tx types.Tx) error {
		con := &types.Constraint{TableID: table.TableID, Name: "pk_orders", Kind: types.ConstraintPrimaryKey}
		require.NoError(t, tx.Constraints().Create(con))
		require.NoError(t, tx.Indexes().Create(&types.Index{TableID: table.TableID, Name: "ix_orders_a", Type: types.IndexBTree}))
		require.NoError(t, tx.Relationships().Create(&types.Relationship{
			SchemaID: table.SchemaID, FkTableID: table.TableID, PkTableID: table.TableID,
			Name: "orders_self", Kind: types.RelationshipNonIdentifying, Cardinality: types.CardinalityOneToMany,
		}))
		return nil
	})

	require.NoError(t, b.View(t.Context(), func(tx types.Tx) error {
		checks := []struct {
			name   string
			exists func() (bool, error)
		}{
			{"schema", func() (bool, error) { return tx.Schemas().ExistsByName("SHOP") }},
			{"table", func() (bool, error) { return tx.Tables().ExistsByNameInSchema(table.SchemaID, "Orders") }},
			{"constraint", func() (bool, error) { return tx.Constraints().ExistsByNameInSchema(table.SchemaID, "PK_ORDERS") }},
			{"index", func() (bool, error) { return tx.Indexes().ExistsByNameInSchema(table.SchemaID, "IX_Orders_A") }},
			{"relationship", func() (bool, error) { return tx.Relationships().ExistsByNameInSchema(table.SchemaID, "Orders_Self") }},
		}
		for _, c := range checks {
			ok, err := c.exists()
			require.NoError(t, err, c.name)
			assert.True(t, ok, c.name)
		}
		ok, err := tx.Tables().ExistsByNameInSchema("other-schema", "orders")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestFindByIDNotFound(t *testing.T) {
	b := attach(t, t.TempDir())
	require.NoError(t, b.View(t.Context(), func(tx types.Tx) error {
		_, err := tx.Schemas().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrSchemaNotFound)
		_, err = tx.Tables().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrTableNotFound)
		_, err = tx.Columns().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrColumnNotFound)
		_, err = tx.Constraints().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrConstraintNotFound)
		_, err = tx.Relationships().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrRelationshipNotFound)
		_, err = tx.Indexes().FindByID("nope")
		assert.ErrorIs(t, err, types.ErrIndexNotFound)
		return nil
	}))
}

func TestColumnDeleteDetachesReferences(t *testing.T) {
	b := attach(t, t.TempDir())
	table, cols := seed(t, b)
	a, bCol, c := cols[0], cols[1], cols[2]

	var unique, notNull, check *types.Constraint
	var wide, narrow *types.Index
	var rel *types.Relationship
	update(t, b, func(tx types.Tx) error {
		unique = &types.Constraint{TableID: table.TableID, Name: "uq_ab", Kind: types.ConstraintUnique}
		notNull = &types.Constraint{TableID: table.TableID, Name: "nn_a", Kind: types.ConstraintNotNull}
		check = &types.Constraint{TableID: table.TableID, Name: "ck_a", Kind: types.ConstraintCheck, CheckExpr: "a > 0"}
		for _, con := range []*types.Constraint{unique, notNull, check} {
			require.NoError(t, tx.Constraints().Create(con))
		}
		require.NoError(t, tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: unique.ConstraintID, ColumnID: a.ColumnID, SeqNo: 0}))
		require.NoError(t, tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: unique.ConstraintID, ColumnID: bCol.ColumnID, SeqNo: 1}))
		require.NoError(t, tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: notNull.ConstraintID, ColumnID: a.ColumnID, SeqNo: 0}))
		require.NoError(t, tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: check.ConstraintID, ColumnID: a.ColumnID, SeqNo: 0}))

		wide = &types.Index{TableID: table.TableID, Name: "ix_ab", Type: types.IndexBTree}
		narrow = &types.Index{TableID: table.TableID, Name: "ix_a", Type: types.IndexHash}
		require.NoError(t, tx.Indexes().Create(wide))
		require.NoError(t, tx.Indexes().Create(narrow))
		require.NoError(t, tx.IndexColumns().Create(&types.IndexColumn{IndexID: wide.IndexID, ColumnID: a.ColumnID, SeqNo: 0, SortDir: types.SortAsc}))
		require.NoError(t, tx.IndexColumns().Create(&types.IndexColumn{IndexID: wide.IndexID, ColumnID: bCol.ColumnID, SeqNo: 1, SortDir: types.SortDesc}))
		require.NoError(t, tx.IndexColumns().Create(&types.IndexColumn{IndexID: narrow.IndexID, ColumnID: a.ColumnID, SeqNo: 0, SortDir: types.SortAsc}))

		rel = &types.Relationship{
			SchemaID: table.SchemaID, FkTableID: table.TableID, PkTableID: table.TableID,
			Name: "orders_self", Kind: types.RelationshipNonIdentifying, Cardinality: types.CardinalityOneToMany,
		}
		require.NoError(t, tx.Relationships().Create(rel))
		require.NoError(t, tx.RelationshipColumns().Create(&types.RelationshipColumn{
			RelationshipID: rel.RelationshipID, PkColumnID: c.ColumnID, FkColumnID: a.ColumnID, SeqNo: 0,
		}))

		return tx.Columns().Delete(a.ColumnID)
	})

	require.NoError(t, b.View(t.Context(), func(tx types.Tx) error {
		remaining, err := tx.Columns().FindAllByTableID(table.TableID)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, "b", remaining[0].Name)
		assert.Equal(t, 0, remaining[0].SeqNo)
		assert.Equal(t, "c", remaining[1].Name)
		assert.Equal(t, 1, remaining[1].SeqNo)

		ccs, err := tx.ConstraintColumns().FindAllByConstraintID(unique.ConstraintID)
		require.NoError(t, err)
		require.Len(t, ccs, 1)
		assert.Equal(t, bCol.ColumnID, ccs[0].ColumnID)
		assert.Equal(t, 0, ccs[0].SeqNo)

		_, err = tx.Constraints().FindByID(notNull.ConstraintID)
		assert.ErrorIs(t, err, types.ErrConstraintNotFound, "column-bound constraint left empty is deleted")
		_, err = tx.Constraints().FindByID(check.ConstraintID)
		assert.NoError(t, err, "expression constraints survive without columns")

		ics, err := tx.IndexColumns().FindAllByIndexID(wide.IndexID)
		require.NoError(t, err)
		require.Len(t, ics, 1)
		assert.Equal(t, 0, ics[0].SeqNo)
		_, err = tx.Indexes().FindByID(narrow.IndexID)
		assert.ErrorIs(t, err, types.ErrIndexNotFound)

		_, err = tx.Relationships().FindByID(rel.RelationshipID)
		assert.ErrorIs(t, err, types.ErrRelationshipNotFound)
		return nil
	}))
}

func TestReorderAssignsSliceIndex(t *testing.T) {
	b := attach(t, t.TempDir())
	table, cols := seed(t, b)

	var con *types.Constraint
	update(t, b, func(tx types.Tx) error {
		con = &types.Constraint{TableID: table.TableID, Name: "uq_abc", Kind: types.ConstraintUnique}
		require.NoError(t, tx.Constraints().Create(con))
		for i, c := range cols {
			require.NoError(t, tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: con.ConstraintID, ColumnID: c.ColumnID, SeqNo: i}))
		}
		ccs, err := tx.ConstraintColumns().FindAllByConstraintID(con.ConstraintID)
		require.NoError(t, err)
		reversed := []*types.ConstraintColumn{ccs[2], ccs[1], ccs[0]}
		return tx.ConstraintColumns().Reorder(con.ConstraintID, reversed)
	})

	require.NoError(t, b.View(t.Context(), func(tx types.Tx) error {
		ccs, err := tx.ConstraintColumns().FindAllByConstraintID(con.ConstraintID)
		require.NoError(t, err)
		require.Len(t, ccs, 3)
		for i, want := range []string{cols[2].ColumnID, cols[1].ColumnID, cols[0].ColumnID} {
			assert.Equal(t, want, ccs[i].ColumnID)
			assert.Equal(t, i, ccs[i].SeqNo)
		}
		return nil
	}))
}
