package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

func TestCreateConstraint_Validation(t *testing.T) {
	e := newEnv(t)
	users := e.table("users")
	id := e.column(users, "id", "BIGINT")
	email := e.column(users, "email", "VARCHAR")
	handle := e.column(users, "handle", "VARCHAR")
	e.constraint(users, "pk_users", types.ConstraintPrimaryKey, id)
	e.constraint(users, "uq_users_email_handle", types.ConstraintUnique, email, handle)
	_, err := e.svc.Constraints.CreateConstraint(e.ctx, CreateConstraintRequest{
		TableID: users.TableID, Name: "ck_users_id", Kind: types.ConstraintCheck, CheckExpr: "id > 0",
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  CreateConstraintRequest
		want error
	}{
		{"blank name", CreateConstraintRequest{Name: "  ", Kind: types.ConstraintUnique, ColumnIDs: ids(email)}, types.ErrInvalidName},
		{"unknown kind", CreateConstraintRequest{Name: "x", Kind: "FOREIGN"}, types.ErrInvalidKind},
		{"check without expression", CreateConstraintRequest{Name: "x", Kind: types.ConstraintCheck}, types.ErrExpressionRequired},
		{"default without expression", CreateConstraintRequest{Name: "x", Kind: types.ConstraintDefault}, types.ErrExpressionRequired},
		{"expression on unique", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique, ColumnIDs: ids(email), CheckExpr: "1"}, types.ErrExpressionNotAllowed},
		{"unique without columns", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique}, types.ErrColumnsRequired},
		{"column twice", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique, ColumnIDs: ids(email, email)}, types.ErrDuplicateColumn},
		{"missing column", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique, ColumnIDs: []string{"nope"}}, types.ErrColumnNotFound},
		{"second primary key", CreateConstraintRequest{Name: "x", Kind: types.ConstraintPrimaryKey, ColumnIDs: ids(email)}, types.ErrDuplicatePrimaryKey},
		{"same unique reordered", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique, ColumnIDs: ids(handle, email)}, types.ErrDuplicateDefinition},
		{"unique equals key", CreateConstraintRequest{Name: "x", Kind: types.ConstraintUnique, ColumnIDs: ids(id)}, types.ErrDuplicatesPrimaryKey},
		{"same check", CreateConstraintRequest{Name: "x", Kind: types.ConstraintCheck, CheckExpr: "id  >  0"}, types.ErrDuplicateDefinition},
		{"name taken", CreateConstraintRequest{Name: "PK_USERS", Kind: types.ConstraintUnique, ColumnIDs: ids(email)}, types.ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.TableID = users.TableID
			_, err := e.svc.Constraints.CreateConstraint(e.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = e.svc.Constraints.CreateConstraint(e.ctx, CreateConstraintRequest{TableID: "missing", Name: "x", Kind: types.ConstraintNotNull, ColumnIDs: ids(email)})
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

// chain builds orders(id) -identifying-> lines(line_no, id) -non-identifying-> notes(note_no, line_no, id).
func chain(e *env) (orders, lines, notes *types.Table) {
	orders = e.table("orders")
	e.constraint(orders, "pk_orders", types.ConstraintPrimaryKey, e.column(orders, "id", "BIGINT"))
	lines = e.table("lines")
	e.constraint(lines, "pk_lines", types.ConstraintPrimaryKey, e.column(lines, "line_no", "INT"))
	e.relate("fk_lines_orders", orders, lines, types.RelationshipIdentifying)
	notes = e.table("notes")
	e.constraint(notes, "pk_notes", types.ConstraintPrimaryKey, e.column(notes, "note_no", "INT"))
	e.relate("fk_notes_lines", lines, notes, types.RelationshipNonIdentifying)
	return orders, lines, notes
}

func TestAddConstraintColumn_PrimaryKeyPropagates(t *testing.T) {
	e := newEnv(t)
	orders, lines, notes := chain(e)
	tenant := e.column(orders, "tenant_id", "INT")
	pk := e.snapshot().Table(orders.TableID).PrimaryKey()

	res, err := e.svc.Constraints.AddConstraintColumn(e.ctx, AddConstraintColumnRequest{
		ConstraintID: pk.Constraint.ConstraintID, ColumnID: tenant.ColumnID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Payload.ConstraintColumn.SeqNo)
	assert.Len(t, res.Payload.Cascade, 2)
	assert.ElementsMatch(t, []string{orders.TableID, lines.TableID, notes.TableID}, res.Affected())

	assert.Equal(t, []string{"id", "tenant_id"}, e.keyNames(orders))
	assert.Equal(t, []string{"line_no", "id", "tenant_id"}, e.keyNames(lines))
	assert.Equal(t, []string{"note_no", "line_no", "id", "tenant_id"}, e.columnNames(notes))
	assert.Equal(t, []string{"note_no"}, e.keyNames(notes))

	// Symmetry: removing it again restores every table.
	var ccID string
	for _, cc := range e.snapshot().Table(orders.TableID).PrimaryKey().Columns {
		if cc.ColumnID == tenant.ColumnID {
			ccID = cc.ConstraintColumnID
		}
	}
	removed, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, ccID)
	require.NoError(t, err)
	assert.Len(t, removed.Payload.Cascade, 2)
	assert.False(t, removed.Payload.ConstraintDeleted)
	assert.ElementsMatch(t, []string{orders.TableID, lines.TableID, notes.TableID}, removed.Affected())
	assert.Equal(t, []string{"id"}, e.keyNames(orders))
	assert.Equal(t, []string{"line_no", "id"}, e.keyNames(lines))
	assert.Equal(t, []string{"line_no", "id"}, e.columnNames(lines))
	assert.Equal(t, []string{"note_no", "line_no", "id"}, e.columnNames(notes))
}

func TestAddConstraintColumn_AtPosition(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a, b, c := e.column(tb, "a", "INT"), e.column(tb, "b", "INT"), e.column(tb, "c", "INT")
	created := e.constraint(tb, "uq_t", types.ConstraintUnique, a, b)

	_, err := e.svc.Constraints.AddConstraintColumn(e.ctx, AddConstraintColumnRequest{
		ConstraintID: created.Constraint.ConstraintID, ColumnID: c.ColumnID, SeqNo: intp(0),
	})
	require.NoError(t, err)
	cs := e.snapshot().Table(tb.TableID).Constraints[0]
	require.Len(t, cs.Columns, 3)
	assert.Equal(t, []string{c.ColumnID, a.ColumnID, b.ColumnID}, []string{cs.Columns[0].ColumnID, cs.Columns[1].ColumnID, cs.Columns[2].ColumnID})

	_, err = e.svc.Constraints.AddConstraintColumn(e.ctx, AddConstraintColumnRequest{
		ConstraintID: created.Constraint.ConstraintID, ColumnID: a.ColumnID,
	})
	assert.ErrorIs(t, err, types.ErrDuplicateColumn)

	d := e.column(tb, "d", "INT")
	_, err = e.svc.Constraints.AddConstraintColumn(e.ctx, AddConstraintColumnRequest{
		ConstraintID: created.Constraint.ConstraintID, ColumnID: d.ColumnID, SeqNo: intp(9),
	})
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
	_, err = e.svc.Constraints.AddConstraintColumn(e.ctx, AddConstraintColumnRequest{
		ConstraintID: created.Constraint.ConstraintID, ColumnID: d.ColumnID, SeqNo: intp(-1),
	})
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
}

func TestRemoveConstraintColumn_Repacks(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a, b, c := e.column(tb, "a", "INT"), e.column(tb, "b", "INT"), e.column(tb, "c", "INT")
	created := e.constraint(tb, "uq_t", types.ConstraintUnique, a, b, c)

	_, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, created.Columns[1].ConstraintColumnID)
	require.NoError(t, err)
	cs := e.snapshot().Table(tb.TableID).Constraints[0]
	require.Len(t, cs.Columns, 2)
	assert.Equal(t, a.ColumnID, cs.Columns[0].ColumnID)
	assert.Equal(t, 0, cs.Columns[0].SeqNo)
	assert.Equal(t, c.ColumnID, cs.Columns[1].ColumnID)
	assert.Equal(t, 1, cs.Columns[1].SeqNo)

	_, err = e.svc.Constraints.RemoveConstraintColumn(e.ctx, created.Columns[0].ConstraintColumnID)
	require.NoError(t, err)
	res, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, created.Columns[2].ConstraintColumnID)
	require.NoError(t, err)
	assert.True(t, res.Payload.ConstraintDeleted)
	assert.Empty(t, e.snapshot().Table(tb.TableID).Constraints)

	_, err = e.svc.Constraints.RemoveConstraintColumn(e.ctx, created.Columns[2].ConstraintColumnID)
	assert.ErrorIs(t, err, types.ErrConstraintColumnNotFound)
}

func TestRemoveConstraintColumn_RejectsShrinkToDuplicate(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a, b := e.column(tb, "a", "INT"), e.column(tb, "b", "INT")
	e.constraint(tb, "uq_a", types.ConstraintUnique, a)
	wide := e.constraint(tb, "uq_ab", types.ConstraintUnique, a, b)

	_, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, wide.Columns[1].ConstraintColumnID)
	assert.ErrorIs(t, err, types.ErrDuplicateDefinition)
}

func TestRemoveConstraintColumn_IdentifyingKeyMember(t *testing.T) {
	e := newEnv(t)
	_, lines, _ := chain(e)
	pk := e.snapshot().Table(lines.TableID).PrimaryKey()
	require.Len(t, pk.Columns, 2)

	_, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, pk.Columns[1].ConstraintColumnID)
	assert.ErrorIs(t, err, types.ErrIdentifyingKeyMember)
	assert.Equal(t, types.KindConflict, types.KindOf(err))

	_, err = e.svc.Constraints.DeleteConstraint(e.ctx, pk.Constraint.ConstraintID)
	assert.ErrorIs(t, err, types.ErrIdentifyingKeyMember)
}

func TestRemoveConstraintColumn_FailedCascadeRollsBack(t *testing.T) {
	e := newEnv(t)
	parent := e.table("parent")
	id := e.column(parent, "id", "INT")
	k := e.column(parent, "k", "INT")
	e.constraint(parent, "pk_parent", types.ConstraintPrimaryKey, id, k)
	child := e.table("child")
	e.relate("fk_child_parent", parent, child, types.RelationshipIdentifying)
	childTS := e.snapshot().Table(child.TableID)
	e.constraint(child, "uq_child_id", types.ConstraintUnique, childTS.Column("id"))

	// Dropping k from the parent key shrinks the child key to (id), which
	// would equal uq_child_id.
	var ccID string
	for _, cc := range e.snapshot().Table(parent.TableID).PrimaryKey().Columns {
		if cc.ColumnID == k.ColumnID {
			ccID = cc.ConstraintColumnID
		}
	}
	_, err := e.svc.Constraints.RemoveConstraintColumn(e.ctx, ccID)
	assert.ErrorIs(t, err, types.ErrDuplicatesPrimaryKey)

	assert.Equal(t, []string{"id", "k"}, e.keyNames(parent))
	assert.Equal(t, []string{"id", "k"}, e.keyNames(child))
	assert.Equal(t, []string{"id", "k"}, e.columnNames(child))
}

func TestChangeConstraintColumnPosition(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a, b, c := e.column(tb, "a", "INT"), e.column(tb, "b", "INT"), e.column(tb, "c", "INT")
	created := e.constraint(tb, "uq_t", types.ConstraintUnique, a, b, c)

	res, err := e.svc.Constraints.ChangeConstraintColumnPosition(e.ctx, ChangeConstraintColumnPositionRequest{
		ConstraintColumnID: created.Columns[2].ConstraintColumnID, SeqNo: 0,
	})
	require.NoError(t, err)
	require.Len(t, res.Payload, 3)
	assert.Equal(t, []string{c.ColumnID, a.ColumnID, b.ColumnID}, []string{res.Payload[0].ColumnID, res.Payload[1].ColumnID, res.Payload[2].ColumnID})
	assert.Equal(t, []string{tb.TableID}, res.Affected())

	cs := e.snapshot().Table(tb.TableID).Constraints[0]
	for i, cc := range cs.Columns {
		assert.Equal(t, i, cc.SeqNo)
		assert.Equal(t, res.Payload[i].ColumnID, cc.ColumnID)
	}

	_, err = e.svc.Constraints.ChangeConstraintColumnPosition(e.ctx, ChangeConstraintColumnPositionRequest{
		ConstraintColumnID: created.Columns[0].ConstraintColumnID, SeqNo: 3,
	})
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
	_, err = e.svc.Constraints.ChangeConstraintColumnPosition(e.ctx, ChangeConstraintColumnPositionRequest{
		ConstraintColumnID: created.Columns[0].ConstraintColumnID, SeqNo: -1,
	})
	assert.ErrorIs(t, err, types.ErrInvalidPosition)
}

func TestChangeConstraintExpression(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a := e.column(tb, "a", "INT")
	mk := func(name, expr string) *types.Constraint {
		res, err := e.svc.Constraints.CreateConstraint(e.ctx, CreateConstraintRequest{TableID: tb.TableID, Name: name, Kind: types.ConstraintCheck, CheckExpr: expr})
		require.NoError(t, err)
		return res.Payload.Constraint
	}
	positive := mk("ck_positive", "a > 0")
	small := mk("ck_small", "a < 100")
	uq := e.constraint(tb, "uq_a", types.ConstraintUnique, a)

	expr := "a >= 1"
	res, err := e.svc.Constraints.ChangeConstraintExpression(e.ctx, ChangeConstraintExpressionRequest{ConstraintID: positive.ConstraintID, CheckExpr: &expr})
	require.NoError(t, err)
	assert.Equal(t, "a >= 1", res.Payload.CheckExpr)

	dup := "a < 100"
	_, err = e.svc.Constraints.ChangeConstraintExpression(e.ctx, ChangeConstraintExpressionRequest{ConstraintID: positive.ConstraintID, CheckExpr: &dup})
	assert.ErrorIs(t, err, types.ErrDuplicateDefinition)

	blank := " "
	_, err = e.svc.Constraints.ChangeConstraintExpression(e.ctx, ChangeConstraintExpressionRequest{ConstraintID: small.ConstraintID, CheckExpr: &blank})
	assert.ErrorIs(t, err, types.ErrExpressionRequired)

	def := "0"
	_, err = e.svc.Constraints.ChangeConstraintExpression(e.ctx, ChangeConstraintExpressionRequest{ConstraintID: uq.Constraint.ConstraintID, DefaultExpr: &def})
	assert.ErrorIs(t, err, types.ErrExpressionNotAllowed)
}

func TestChangeConstraintName(t *testing.T) {
	e := newEnv(t)
	tb := e.table("t")
	a, b := e.column(tb, "a", "INT"), e.column(tb, "b", "INT")
	first := e.constraint(tb, "uq_a", types.ConstraintUnique, a)
	e.constraint(tb, "uq_b", types.ConstraintUnique, b)

	res, err := e.svc.Constraints.ChangeConstraintName(e.ctx, ChangeConstraintNameRequest{ConstraintID: first.Constraint.ConstraintID, Name: " uq_first "})
	require.NoError(t, err)
	assert.Equal(t, "uq_first", res.Payload.Name)

	_, err = e.svc.Constraints.ChangeConstraintName(e.ctx, ChangeConstraintNameRequest{ConstraintID: first.Constraint.ConstraintID, Name: "UQ_B"})
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	_, err = e.svc.Constraints.ChangeConstraintName(e.ctx, ChangeConstraintNameRequest{ConstraintID: first.Constraint.ConstraintID, Name: "uq_first"})
	assert.NoError(t, err)
}

func TestDeleteConstraint_PrimaryKeyCascades(t *testing.T) {
	e := newEnv(t)
	orders, lines, notes := chain(e)
	pk := e.snapshot().Table(orders.TableID).PrimaryKey()

	res, err := e.svc.Constraints.DeleteConstraint(e.ctx, pk.Constraint.ConstraintID)
	require.NoError(t, err)
	assert.Len(t, res.Payload.Cascade, 2)
	assert.ElementsMatch(t, []string{orders.TableID, lines.TableID, notes.TableID}, res.Affected())

	snap := e.snapshot()
	assert.Nil(t, snap.Table(orders.TableID).PrimaryKey())
	assert.Equal(t, []string{"id"}, e.columnNames(orders))
	assert.Equal(t, []string{"line_no"}, e.keyNames(lines))
	assert.Equal(t, []string{"line_no"}, e.columnNames(lines))
	assert.Equal(t, []string{"note_no", "line_no"}, e.columnNames(notes))
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, "fk_notes_lines", snap.Relationships[0].Relationship.Name)
}
