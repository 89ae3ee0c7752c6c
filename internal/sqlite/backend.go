// Package sqlite implements the metadata store for schemata. SQLite is the
// query engine; one JSONL file per entity table is the source of truth.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

const dbFileName = "schemata.db"

var _ types.Backend = (*Backend)(nil)

// Backend implements types.Backend on SQLite. Units of work are serialized:
// the backend holds a single connection and a mutex around every Update
// and View.
type Backend struct {
	mu       sync.Mutex
	attached bool
	config   types.Config
	db       *sql.DB
	log      *slog.Logger
	ids      types.IDGenerator

	// dirty is set when a unit of work committed but JSONL files were not
	// rewritten yet (on_close sync strategy).
	dirty bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.log = l
		}
	}
}

// WithIDGenerator replaces the UUID v7 generator.
func WithIDGenerator(g types.IDGenerator) Option {
	return func(b *Backend) {
		if g != nil {
			b.ids = g
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids: uuidGenerator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, rebuilds the SQLite database from
// the JSONL files found there, and makes the store usable.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	config.DataDir = dataDir

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL()); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dirty = false
	b.attached = true

	b.log.Debug("store attached", "data_dir", dataDir, "sync", config.EffectiveSyncStrategy())
	return nil
}

// Detach releases all resources held by the backend. With the on_close
// sync strategy, pending changes are written to JSONL first.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.dirty {
		if err := persistAllJSONL(b.db, b.config.DataDir); err != nil {
			return fmt.Errorf("flush pending writes: %w", err)
		}
		b.dirty = false
	}

	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false

	b.log.Debug("store detached")
	return nil
}

// Update runs fn inside one database transaction. Any error from fn, or from
// committing, rolls back every write fn made. After a successful commit the
// JSONL files are rewritten (immediate sync) or marked dirty (on_close).
func (b *Backend) Update(ctx context.Context, fn func(tx types.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	if err := b.runTx(ctx, fn, true); err != nil {
		return err
	}

	if b.config.EffectiveSyncStrategy() == types.SyncOnClose {
		b.dirty = true
		return nil
	}
	if err := persistAllJSONL(b.db, b.config.DataDir); err != nil {
		return fmt.Errorf("persisting JSONL: %w", err)
	}
	return nil
}

// View runs fn against a consistent snapshot. Writes made by fn are
// discarded.
func (b *Backend) View(ctx context.Context, fn func(tx types.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return b.runTx(ctx, fn, false)
}

func (b *Backend) runTx(ctx context.Context, fn func(tx types.Tx) error, commit bool) error {
	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txn{ctx: ctx, tx: sqlTx, ids: b.ids}); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// uuidGenerator generates UUID v7 entity ids.
type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
