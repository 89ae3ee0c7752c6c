package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

func TestLoadToleratesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file  string
		jsonl string
	}{
		{"schemas.jsonl", `{"schema_id":"s1","name":"shop","charset":"","collation":"","owner":"ops"}` + "\n"},
		{"tables.jsonl", `{"table_id":"t1","schema_id":"s1","name":"orders","charset":"","collation":"","comment":"","engine":"InnoDB"}` + "\n"},
		{"columns.jsonl", `{"column_id":"c1","table_id":"t1","name":"id","data_type":"INT","length":null,"precision":null,"scale":null,"seq_no":0,"auto_increment":1,"charset":"","collation":"","comment":"","generated":false}` + "\ngarbage\n"},
	}
	for _, tt := range tests {
		require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.jsonl), 0o644))
	}

	b := attach(t, dir)
	require.NoError(t, b.View(t.Context(), func(tx types.Tx) error {
		s, err := tx.Schemas().FindByID("s1")
		require.NoError(t, err)
		assert.Equal(t, "shop", s.Name)

		cols, err := tx.Columns().FindAllByTableID("t1")
		require.NoError(t, err)
		require.Len(t, cols, 1)
		assert.True(t, cols[0].AutoIncrement)
		assert.Nil(t, cols[0].Length)
		return nil
	}))
}

func TestLoadRejectsRecordMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	rec := `{"column_id":"c1","table_id":"t1","data_type":"INT","seq_no":0}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columns.jsonl"), []byte(rec), 0o644))

	err := NewBackend().Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns.jsonl")
}
