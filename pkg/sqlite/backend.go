// Package sqlite exposes the SQLite metadata store while keeping its
// implementation internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/schemata/internal/sqlite"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// NewBackend creates a detached SQLite store. A nil logger discards store
// diagnostics.
//
// Example:
//
//	store := sqlite.NewBackend(nil)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".schemata",
//	})
//	defer store.Detach()
func NewBackend(log *slog.Logger) types.Backend {
	return sqlite.NewBackend(sqlite.WithLogger(log))
}
