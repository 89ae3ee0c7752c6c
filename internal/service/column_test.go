package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

func TestCreateColumn(t *testing.T) {
	e := newEnv(t)
	tb := e.table("users")

	res, err := e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{
		TableID: tb.TableID, Name: "email", Type: types.ColumnType{DataType: " VARCHAR ", Length: intp(255)},
	})
	require.NoError(t, err)
	col := res.Payload
	assert.Equal(t, "VARCHAR", col.DataType)
	assert.Equal(t, 0, col.SeqNo)
	assert.Equal(t, "utf8mb4", col.Charset, "inherited from the schema through the table")
	assert.Equal(t, []string{tb.TableID}, res.Affected())

	num, err := e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{
		TableID: tb.TableID, Name: "age", Type: types.ColumnType{DataType: "INT"}, Charset: "latin1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, num.Payload.SeqNo)
	assert.Empty(t, num.Payload.Charset)

	_, err = e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{TableID: tb.TableID, Name: "EMAIL", Type: types.ColumnType{DataType: "TEXT"}})
	assert.ErrorIs(t, err, types.ErrDuplicateName)
	_, err = e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{TableID: tb.TableID, Name: "x", Type: types.ColumnType{DataType: " "}})
	assert.ErrorIs(t, err, types.ErrInvalidDataType)
	_, err = e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{TableID: tb.TableID, Name: "x", Type: types.ColumnType{DataType: "CHAR", Length: intp(-1)}})
	assert.ErrorIs(t, err, types.ErrInvalidDataType)
	_, err = e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{TableID: "nope", Name: "x", Type: types.ColumnType{DataType: "INT"}})
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestChangeColumnNameAndMeta(t *testing.T) {
	e := newEnv(t)
	tb := e.table("users")
	email := e.column(tb, "email", "VARCHAR")
	id := e.column(tb, "id", "BIGINT")

	res, err := e.svc.Columns.ChangeColumnName(e.ctx, ChangeColumnNameRequest{ColumnID: email.ColumnID, Name: "mail"})
	require.NoError(t, err)
	assert.Equal(t, "mail", res.Payload.Name)
	_, err = e.svc.Columns.ChangeColumnName(e.ctx, ChangeColumnNameRequest{ColumnID: email.ColumnID, Name: "ID"})
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	comment := "login address"
	bin := "utf8mb4_bin"
	meta, err := e.svc.Columns.ChangeColumnMeta(e.ctx, ChangeColumnMetaRequest{
		ColumnID: email.ColumnID, Meta: types.ColumnMeta{Comment: &comment, Collation: &bin},
	})
	require.NoError(t, err)
	assert.Equal(t, "login address", meta.Payload.Comment)
	assert.Equal(t, "utf8mb4_bin", meta.Payload.Collation)
	assert.Equal(t, "utf8mb4", meta.Payload.Charset)

	auto := true
	meta, err = e.svc.Columns.ChangeColumnMeta(e.ctx, ChangeColumnMetaRequest{ColumnID: id.ColumnID, Meta: types.ColumnMeta{AutoIncrement: &auto}})
	require.NoError(t, err)
	assert.True(t, meta.Payload.AutoIncrement)

	_, err = e.svc.Columns.ChangeColumnMeta(e.ctx, ChangeColumnMetaRequest{ColumnID: id.ColumnID, Meta: types.ColumnMeta{Collation: &bin}})
	assert.ErrorIs(t, err, types.ErrInvalidDataType)
}

// textChain builds countries(code) -identifying-> regions -non-identifying-> cities.
func textChain(e *env) (code *types.Column, regions, cities *types.Table) {
	countries := e.table("countries")
	res, err := e.svc.Columns.CreateColumn(e.ctx, CreateColumnRequest{
		TableID: countries.TableID, Name: "code", Type: types.ColumnType{DataType: "VARCHAR", Length: intp(2)},
		Charset: "utf8mb4", Collation: "utf8mb4_bin",
	})
	require.NoError(e.t, err)
	code = res.Payload
	e.constraint(countries, "pk_countries", types.ConstraintPrimaryKey, code)
	regions = e.table("regions")
	e.relate("fk_regions_countries", countries, regions, types.RelationshipIdentifying)
	cities = e.table("cities")
	e.relate("fk_cities_regions", regions, cities, types.RelationshipNonIdentifying)
	return code, regions, cities
}

func TestChangeColumnType_Propagation(t *testing.T) {
	tests := []struct {
		name          string
		typ           types.ColumnType
		wantCharset   string
		wantCollation string
	}{
		{"non-text clears charset", types.ColumnType{DataType: "INT"}, "", ""},
		{"text keeps charset", types.ColumnType{DataType: "TEXT"}, "utf8mb4", "utf8mb4_bin"},
		{"sized text keeps charset", types.ColumnType{DataType: "varchar", Length: intp(3)}, "utf8mb4", "utf8mb4_bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			code, regions, cities := textChain(e)

			res, err := e.svc.Columns.ChangeColumnType(e.ctx, ChangeColumnTypeRequest{ColumnID: code.ColumnID, Type: tt.typ})
			require.NoError(t, err)
			assert.Len(t, res.Payload.Cascade, 2)
			assert.ElementsMatch(t, []string{code.TableID, regions.TableID, cities.TableID}, res.Affected())
			assert.Equal(t, tt.wantCharset, res.Payload.Column.Charset)

			snap := e.snapshot()
			for _, tb := range []*types.Table{regions, cities} {
				c := snap.Table(tb.TableID).Column("code")
				require.NotNil(t, c)
				assert.Equal(t, tt.typ.DataType, c.DataType)
				assert.Equal(t, tt.wantCharset, c.Charset)
				assert.Equal(t, tt.wantCollation, c.Collation)
			}
		})
	}
}

func TestChangeColumnType_NonKeyStaysLocal(t *testing.T) {
	e := newEnv(t)
	_, regions, cities := textChain(e)
	name := e.column(regions, "name", "VARCHAR")

	res, err := e.svc.Columns.ChangeColumnType(e.ctx, ChangeColumnTypeRequest{ColumnID: name.ColumnID, Type: types.ColumnType{DataType: "TEXT"}})
	require.NoError(t, err)
	assert.Empty(t, res.Payload.Cascade)
	assert.Equal(t, []string{regions.TableID}, res.Affected())
	assert.Equal(t, "VARCHAR", e.snapshot().Table(cities.TableID).Column("code").DataType)
}

func TestDeleteColumn(t *testing.T) {
	t.Run("key column cascades", func(t *testing.T) {
		e := newEnv(t)
		orders, lines, notes := chain(e)
		id := e.snapshot().Table(orders.TableID).Column("id")

		res, err := e.svc.Columns.DeleteColumn(e.ctx, id.ColumnID)
		require.NoError(t, err)
		assert.Len(t, res.Payload.Cascade, 2)
		assert.ElementsMatch(t, []string{orders.TableID, lines.TableID, notes.TableID}, res.Affected())
		assert.Empty(t, e.columnNames(orders))
		assert.Nil(t, e.snapshot().Table(orders.TableID).PrimaryKey())
		assert.Equal(t, []string{"line_no"}, e.columnNames(lines))
		assert.Equal(t, []string{"note_no", "line_no"}, e.columnNames(notes))
	})

	t.Run("plain column repacks owners", func(t *testing.T) {
		e := newEnv(t)
		tb := e.table("t")
		a, b, c := e.column(tb, "a", "INT"), e.column(tb, "b", "INT"), e.column(tb, "c", "INT")
		e.constraint(tb, "uq_abc", types.ConstraintUnique, a, b, c)
		e.constraint(tb, "nn_b", types.ConstraintNotNull, b)
		_, err := e.svc.Indexes.CreateIndex(e.ctx, CreateIndexRequest{TableID: tb.TableID, Name: "ix_b", Columns: []IndexColumnSpec{{ColumnID: b.ColumnID}}})
		require.NoError(t, err)

		_, err = e.svc.Columns.DeleteColumn(e.ctx, b.ColumnID)
		require.NoError(t, err)

		ts := e.snapshot().Table(tb.TableID)
		assert.Equal(t, []string{"a", "c"}, e.columnNames(tb))
		require.Len(t, ts.Constraints, 1)
		uq := ts.Constraints[0]
		require.Len(t, uq.Columns, 2)
		assert.Equal(t, 0, uq.Columns[0].SeqNo)
		assert.Equal(t, 1, uq.Columns[1].SeqNo)
		assert.Empty(t, ts.Indexes)
	})

	t.Run("child column of identifying relationship", func(t *testing.T) {
		e := newEnv(t)
		orders, lines, notes := chain(e)
		fk := e.snapshot().Table(lines.TableID).Column("id")

		res, err := e.svc.Columns.DeleteColumn(e.ctx, fk.ColumnID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{orders.TableID, lines.TableID, notes.TableID}, res.Affected())
		assert.Equal(t, []string{"line_no"}, e.keyNames(lines))
		assert.Len(t, e.snapshot().Relationships, 1)
	})

	t.Run("missing", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Columns.DeleteColumn(e.ctx, "nope")
		assert.ErrorIs(t, err, types.ErrColumnNotFound)
	})
}
