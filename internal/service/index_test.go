package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

func TestIndexLifecycle(t *testing.T) {
	e := newEnv(t)
	tb := e.table("events")
	a, b, c := e.column(tb, "a", "INT"), e.column(tb, "b", "INT"), e.column(tb, "c", "INT")

	res, err := e.svc.Indexes.CreateIndex(e.ctx, CreateIndexRequest{
		TableID: tb.TableID, Name: "ix_events",
		Columns: []IndexColumnSpec{{ColumnID: a.ColumnID}, {ColumnID: b.ColumnID, SortDir: types.SortDesc}},
	})
	require.NoError(t, err)
	ix := res.Payload
	assert.Equal(t, types.IndexBTree, ix.Index.Type)
	require.Len(t, ix.Columns, 2)
	assert.Equal(t, types.SortAsc, ix.Columns[0].SortDir)
	assert.Equal(t, types.SortDesc, ix.Columns[1].SortDir)

	added, err := e.svc.Indexes.AddIndexColumn(e.ctx, AddIndexColumnRequest{IndexID: ix.Index.IndexID, ColumnID: c.ColumnID, SeqNo: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, added.Payload.SeqNo)
	order := func() []string {
		cols := e.snapshot().Table(tb.TableID).Indexes[0].Columns
		out := make([]string, len(cols))
		for i, ic := range cols {
			require.Equal(t, i, ic.SeqNo)
			out[i] = ic.ColumnID
		}
		return out
	}
	assert.Equal(t, ids(a, c, b), order())

	moved, err := e.svc.Indexes.ChangeIndexColumnPosition(e.ctx, ChangeIndexColumnPositionRequest{IndexColumnID: ix.Columns[0].IndexColumnID, SeqNo: 2})
	require.NoError(t, err)
	assert.Len(t, moved.Payload, 3)
	assert.Equal(t, ids(c, b, a), order())

	_, err = e.svc.Indexes.RemoveIndexColumn(e.ctx, ix.Columns[1].IndexColumnID)
	require.NoError(t, err)
	assert.Equal(t, ids(c, a), order())

	_, err = e.svc.Indexes.RemoveIndexColumn(e.ctx, ix.Columns[0].IndexColumnID)
	require.NoError(t, err)
	removed, err := e.svc.Indexes.RemoveIndexColumn(e.ctx, added.Payload.IndexColumnID)
	require.NoError(t, err)
	assert.True(t, removed.Payload.IndexDeleted)
	assert.Empty(t, e.snapshot().Table(tb.TableID).Indexes)
}

func TestIndexErrors(t *testing.T) {
	e := newEnv(t)
	tb := e.table("events")
	a := e.column(tb, "a", "INT")
	res, err := e.svc.Indexes.CreateIndex(e.ctx, CreateIndexRequest{TableID: tb.TableID, Name: "ix_a", Type: types.IndexHash, Columns: []IndexColumnSpec{{ColumnID: a.ColumnID}}})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  CreateIndexRequest
		want error
	}{
		{"no columns", CreateIndexRequest{Name: "x"}, types.ErrColumnsRequired},
		{"bad type", CreateIndexRequest{Name: "x", Type: "RTREE", Columns: []IndexColumnSpec{{ColumnID: a.ColumnID}}}, types.ErrInvalidIndexType},
		{"bad sort", CreateIndexRequest{Name: "x", Columns: []IndexColumnSpec{{ColumnID: a.ColumnID, SortDir: "UP"}}}, types.ErrInvalidSortDir},
		{"column twice", CreateIndexRequest{Name: "x", Columns: []IndexColumnSpec{{ColumnID: a.ColumnID}, {ColumnID: a.ColumnID}}}, types.ErrDuplicateColumn},
		{"missing column", CreateIndexRequest{Name: "x", Columns: []IndexColumnSpec{{ColumnID: "nope"}}}, types.ErrColumnNotFound},
		{"name taken", CreateIndexRequest{Name: "IX_A", Columns: []IndexColumnSpec{{ColumnID: a.ColumnID}}}, types.ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.TableID = tb.TableID
			_, err := e.svc.Indexes.CreateIndex(e.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = e.svc.Indexes.AddIndexColumn(e.ctx, AddIndexColumnRequest{IndexID: res.Payload.Index.IndexID, ColumnID: a.ColumnID})
	assert.ErrorIs(t, err, types.ErrDuplicateColumn)
	_, err = e.svc.Indexes.ChangeIndexColumnPosition(e.ctx, ChangeIndexColumnPositionRequest{IndexColumnID: res.Payload.Columns[0].IndexColumnID, SeqNo: 1})
	assert.ErrorIs(t, err, types.ErrInvalidPosition)

	deleted, err := e.svc.Indexes.DeleteIndex(e.ctx, res.Payload.Index.IndexID)
	require.NoError(t, err)
	assert.Equal(t, res.Payload.Index.IndexID, deleted.Payload)
	_, err = e.svc.Indexes.DeleteIndex(e.ctx, res.Payload.Index.IndexID)
	assert.ErrorIs(t, err, types.ErrIndexNotFound)
}
