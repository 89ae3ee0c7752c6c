package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// chain builds orders(id) -identifying-> lines(line_no, id) -non-identifying-> notes(note_no).
func chain(f *fixture) (a, b, c *types.Table) {
	a = f.table("orders")
	f.primaryKey(a, f.column(a, "id", "BIGINT"))
	b = f.table("lines")
	f.primaryKey(b, f.column(b, "line_no", "INT"))
	f.relate("fk_lines_orders", a, b, types.RelationshipIdentifying)
	c = f.table("notes")
	f.primaryKey(c, f.column(c, "note_no", "INT"))
	f.relate("fk_notes_lines", b, c, types.RelationshipNonIdentifying)
	return a, b, c
}

func TestAddColumn_PropagatesThroughChain(t *testing.T) {
	inTx(t, func(f *fixture) {
		a, b, c := chain(f)
		require.Equal(t, []string{"line_no", "id"}, f.keyNames(b))
		require.Equal(t, []string{"note_no", "line_no", "id"}, f.columnNames(c))

		tenant := f.column(a, "tenant_id", "INT")
		pkA := f.primaryKey(a, tenant)
		require.NotNil(t, pkA)

		created, err := f.w.AddColumn(a.TableID, tenant, NewVisited())
		require.NoError(t, err)
		require.Len(t, created, 2)

		assert.Equal(t, b.TableID, created[0].TableID)
		assert.Equal(t, "tenant_id", created[0].ColumnName)
		assert.NotEmpty(t, created[0].ConstraintID)
		assert.NotEmpty(t, created[0].ConstraintColumnID)

		assert.Equal(t, c.TableID, created[1].TableID)
		assert.Equal(t, "tenant_id", created[1].ColumnName)
		assert.Empty(t, created[1].ConstraintID, "non-identifying child must not join the key")

		assert.Equal(t, []string{"line_no", "id", "tenant_id"}, f.keyNames(b))
		assert.Equal(t, []string{"note_no", "line_no", "id", "tenant_id"}, f.columnNames(c))
		assert.Equal(t, []string{"note_no"}, f.keyNames(c))
		assert.ElementsMatch(t, []string{b.TableID, c.TableID}, types.NewTableSet(types.CreatedTables(created)...).IDs())
	})
}

func TestRemoveColumn_UndoesAddColumn(t *testing.T) {
	inTx(t, func(f *fixture) {
		a, b, c := chain(f)
		tenant := f.column(a, "tenant_id", "INT")
		f.primaryKey(a, tenant)
		_, err := f.w.AddColumn(a.TableID, tenant, NewVisited())
		require.NoError(t, err)

		_, _, err = f.w.RemoveFromPrimaryKey(a.TableID, tenant.ColumnID)
		require.NoError(t, err)
		removed, err := f.w.RemoveColumn(a.TableID, tenant.ColumnID, NewVisited())
		require.NoError(t, err)
		require.NoError(t, f.tx.Columns().Delete(tenant.ColumnID))

		require.Len(t, removed, 2)
		assert.Equal(t, b.TableID, removed[0].TableID)
		assert.True(t, removed[0].RemovedFromPrimaryKey)
		assert.False(t, removed[0].PrimaryKeyDeleted)
		assert.False(t, removed[0].RelationshipDeleted)
		assert.Equal(t, c.TableID, removed[1].TableID)

		assert.Equal(t, []string{"id"}, f.keyNames(a))
		assert.Equal(t, []string{"line_no", "id"}, f.keyNames(b))
		assert.Equal(t, []string{"line_no", "id"}, f.columnNames(b))
		assert.Equal(t, []string{"note_no", "line_no", "id"}, f.columnNames(c))

		// Relationship columns stay packed.
		rels, err := f.tx.Relationships().FindAllByParentTableID(b.TableID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		rcs, err := f.tx.RelationshipColumns().FindAllByRelationshipID(rels[0].RelationshipID)
		require.NoError(t, err)
		for i, rc := range rcs {
			assert.Equal(t, i, rc.SeqNo)
		}
	})
}

func TestRemoveColumn_DeletesEmptyKeyAndRelationship(t *testing.T) {
	inTx(t, func(f *fixture) {
		a := f.table("accounts")
		id := f.column(a, "id", "BIGINT")
		f.primaryKey(a, id)
		b := f.table("profiles")
		rel := f.relate("fk_profiles_accounts", a, b, types.RelationshipIdentifying)

		pkB, err := f.w.PrimaryKey(b.TableID)
		require.NoError(t, err)
		require.NotNil(t, pkB)
		assert.Equal(t, "pk_profiles", pkB.Name)

		_, _, err = f.w.RemoveFromPrimaryKey(a.TableID, id.ColumnID)
		require.NoError(t, err)
		removed, err := f.w.RemoveColumn(a.TableID, id.ColumnID, NewVisited())
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.True(t, removed[0].PrimaryKeyDeleted)
		assert.True(t, removed[0].RelationshipDeleted)

		pkB, err = f.w.PrimaryKey(b.TableID)
		require.NoError(t, err)
		assert.Nil(t, pkB)
		assert.Empty(t, f.columnNames(b))
		_, err = f.tx.Relationships().FindByID(rel.RelationshipID)
		assert.ErrorIs(t, err, types.ErrRelationshipNotFound)
	})
}

func TestAddToRelationship_NameCollision(t *testing.T) {
	inTx(t, func(f *fixture) {
		a := f.table("users")
		f.primaryKey(a, f.column(a, "id", "BIGINT"))
		b := f.table("sessions")
		f.primaryKey(b, f.column(b, "ID", "BIGINT"))
		f.column(b, "id_1", "INT")
		f.relate("fk_sessions_users", a, b, types.RelationshipNonIdentifying)

		assert.Equal(t, []string{"ID", "id_1", "id_2"}, f.columnNames(b))
		assert.Equal(t, []string{"ID"}, f.keyNames(b))
	})
}

func TestMirrorColumn(t *testing.T) {
	n := 64
	parent := &types.Column{
		ColumnID: "p", TableID: "t", Name: "code", DataType: "VARCHAR", Length: &n,
		AutoIncrement: true, Charset: "utf8mb4", Collation: "utf8mb4_bin", Comment: "natural key",
	}
	child := MirrorColumn(parent, "c", "code_1", 3)
	assert.Equal(t, "c", child.TableID)
	assert.Equal(t, "code_1", child.Name)
	assert.Equal(t, 3, child.SeqNo)
	assert.Equal(t, "VARCHAR", child.DataType)
	require.NotNil(t, child.Length)
	assert.Equal(t, 64, *child.Length)
	assert.NotSame(t, parent.Length, child.Length)
	assert.False(t, child.AutoIncrement)
	assert.Equal(t, "utf8mb4", child.Charset)
	assert.Equal(t, "utf8mb4_bin", child.Collation)
	assert.Empty(t, child.Comment)
	assert.Empty(t, child.ColumnID)
}

func TestAddColumn_CycleSafety(t *testing.T) {
	t.Run("visited pair is skipped", func(t *testing.T) {
		inTx(t, func(f *fixture) {
			a, _, _ := chain(f)
			extra := f.column(a, "extra", "INT")
			f.primaryKey(a, extra)
			visited := NewVisited()
			first, err := f.w.AddColumn(a.TableID, extra, visited)
			require.NoError(t, err)
			assert.NotEmpty(t, first)
			again, err := f.w.AddColumn(a.TableID, extra, visited)
			require.NoError(t, err)
			assert.Empty(t, again)
		})
	})

	t.Run("non-identifying back edge", func(t *testing.T) {
		inTx(t, func(f *fixture) {
			a := f.table("a")
			f.primaryKey(a, f.column(a, "id", "INT"))
			b := f.table("b")
			f.relate("a_b", a, b, types.RelationshipIdentifying)
			f.relate("b_a", b, a, types.RelationshipNonIdentifying)
			require.Equal(t, []string{"id", "id_1"}, f.columnNames(a))

			k := f.column(a, "k", "INT")
			f.primaryKey(a, k)
			created, err := f.w.AddColumn(a.TableID, k, NewVisited())
			require.NoError(t, err)
			require.Len(t, created, 2)
			assert.Equal(t, []string{"id", "k"}, f.keyNames(b))
			assert.Equal(t, []string{"id", "id_1", "k", "k_1"}, f.columnNames(a))
			assert.Equal(t, []string{"id", "k"}, f.keyNames(a))
		})
	})

	t.Run("self reference", func(t *testing.T) {
		inTx(t, func(f *fixture) {
			a := f.table("employees")
			f.primaryKey(a, f.column(a, "id", "INT"))
			f.relate("manager", a, a, types.RelationshipNonIdentifying)
			require.Equal(t, []string{"id", "id_1"}, f.columnNames(a))

			k := f.column(a, "org", "INT")
			f.primaryKey(a, k)
			created, err := f.w.AddColumn(a.TableID, k, NewVisited())
			require.NoError(t, err)
			require.Len(t, created, 1)
			assert.Equal(t, []string{"id", "id_1", "org", "org_1"}, f.columnNames(a))
		})
	})

	t.Run("diamond", func(t *testing.T) {
		inTx(t, func(f *fixture) {
			a := f.table("a")
			f.primaryKey(a, f.column(a, "id", "INT"))
			b := f.table("b")
			c := f.table("c")
			d := f.table("d")
			f.relate("a_b", a, b, types.RelationshipIdentifying)
			f.relate("a_c", a, c, types.RelationshipIdentifying)
			f.relate("b_d", b, d, types.RelationshipIdentifying)
			f.relate("c_d", c, d, types.RelationshipIdentifying)
			require.Equal(t, []string{"id", "id_1"}, f.keyNames(d))

			k := f.column(a, "k", "INT")
			f.primaryKey(a, k)
			created, err := f.w.AddColumn(a.TableID, k, NewVisited())
			require.NoError(t, err)
			// b, d via b, c, d via c.
			assert.Len(t, created, 4)
			assert.Equal(t, []string{"id", "id_1", "k", "k_1"}, f.keyNames(d))

			_, _, err = f.w.RemoveFromPrimaryKey(a.TableID, k.ColumnID)
			require.NoError(t, err)
			removed, err := f.w.RemoveColumn(a.TableID, k.ColumnID, NewVisited())
			require.NoError(t, err)
			assert.Len(t, removed, 4)
			assert.Equal(t, []string{"id", "id_1"}, f.keyNames(d))
		})
	})
}

func TestEnsurePrimaryKey(t *testing.T) {
	inTx(t, func(f *fixture) {
		other := f.table("other")
		col := f.column(other, "x", "INT")
		uq := &types.Constraint{TableID: other.TableID, Name: "PK_ITEMS", Kind: types.ConstraintUnique}
		require.NoError(t, f.tx.Constraints().Create(uq))
		require.NoError(t, f.tx.ConstraintColumns().Create(&types.ConstraintColumn{ConstraintID: uq.ConstraintID, ColumnID: col.ColumnID}))

		items := f.table("items")
		pk, err := f.w.EnsurePrimaryKey(items.TableID)
		require.NoError(t, err)
		assert.Equal(t, "pk_items_1", pk.Name)
		assert.Equal(t, types.ConstraintPrimaryKey, pk.Kind)

		again, err := f.w.EnsurePrimaryKey(items.TableID)
		require.NoError(t, err)
		assert.Equal(t, pk.ConstraintID, again.ConstraintID)
	})
}

func TestPrimaryKeyMembership(t *testing.T) {
	inTx(t, func(f *fixture) {
		tb := f.table("t")
		a := f.column(tb, "a", "INT")
		b := f.column(tb, "b", "INT")
		c := f.column(tb, "c", "INT")
		pk := f.primaryKey(tb, a, b, c)

		_, added, err := f.w.AddToPrimaryKey(pk, b.ColumnID)
		require.NoError(t, err)
		assert.False(t, added)

		removed, pkDeleted, err := f.w.RemoveFromPrimaryKey(tb.TableID, b.ColumnID)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.False(t, pkDeleted)

		ccs, err := f.tx.ConstraintColumns().FindAllByConstraintID(pk.ConstraintID)
		require.NoError(t, err)
		require.Len(t, ccs, 2)
		assert.Equal(t, a.ColumnID, ccs[0].ColumnID)
		assert.Equal(t, 0, ccs[0].SeqNo)
		assert.Equal(t, c.ColumnID, ccs[1].ColumnID)
		assert.Equal(t, 1, ccs[1].SeqNo)

		member, err := f.w.IsPrimaryKeyMember(tb.TableID, b.ColumnID)
		require.NoError(t, err)
		assert.False(t, member)

		removed, _, err = f.w.RemoveFromPrimaryKey(tb.TableID, b.ColumnID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
