package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/internal/sqlite"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// app is one attached store and the services over it.
type app struct {
	cmd *cobra.Command
	cfg *settings
	log *slog.Logger
	svc *service.Services
}

// newLogger writes text records to w at the configured level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := types.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// withApp attaches the store, runs fn and detaches. A Detach failure is
// reported only when fn succeeded.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	cfg, err := resolveSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.store.LogLevel)
	if err != nil {
		return err
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(log))
	if err := backend.Attach(cfg.store); err != nil {
		return fmt.Errorf("attach store: %w", err)
	}
	defer func() {
		if derr := backend.Detach(); derr != nil && err == nil {
			err = fmt.Errorf("detach store: %w", derr)
		}
	}()

	return fn(&app{cmd: cmd, cfg: cfg, log: log, svc: service.New(backend, log)})
}

// emit prints v as indented JSON in --json mode, or calls human otherwise.
func (a *app) emit(v any, human func(w io.Writer)) error {
	out := a.cmd.OutOrStdout()
	if flags.jsonMode {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	human(out)
	return nil
}

// mutation is the JSON shape of a mutation result.
type mutation[T any] struct {
	Payload          T        `json:"payload"`
	AffectedTableIDs []string `json:"affected_table_ids"`
}

// emitResult prints a mutation result followed by the affected tables.
func emitResult[T any](a *app, res types.Result[T], human func(w io.Writer)) error {
	affected := res.Affected()
	return a.emit(mutation[T]{Payload: res.Payload, AffectedTableIDs: affected}, func(w io.Writer) {
		human(w)
		if len(affected) > 0 {
			fmt.Fprintf(w, "affected tables: %s\n", strings.Join(affected, ", "))
		}
	})
}

// tableID resolves a table id or a schema.table reference.
func (a *app) tableID(ref string) (string, error) {
	schema, table, ok := strings.Cut(ref, ".")
	if !ok {
		return ref, nil
	}
	snap, err := a.svc.Schemas.Snapshot(a.cmd.Context(), schema)
	if err != nil {
		return "", err
	}
	ts := snap.Table(table)
	if ts == nil {
		return "", fmt.Errorf("%s: %w", ref, types.ErrTableNotFound)
	}
	return ts.Table.TableID, nil
}

// columnID resolves a column id or a schema.table.column reference.
func (a *app) columnID(ref string) (string, error) {
	parts := strings.SplitN(ref, ".", 3)
	if len(parts) < 3 {
		return ref, nil
	}
	snap, err := a.svc.Schemas.Snapshot(a.cmd.Context(), parts[0])
	if err != nil {
		return "", err
	}
	ts := snap.Table(parts[1])
	if ts == nil {
		return "", fmt.Errorf("%s: %w", ref, types.ErrTableNotFound)
	}
	col := ts.Column(parts[2])
	if col == nil {
		return "", fmt.Errorf("%s: %w", ref, types.ErrColumnNotFound)
	}
	return col.ColumnID, nil
}

// columnIDs resolves each reference with columnID.
func (a *app) columnIDs(refs []string) ([]string, error) {
	ids := make([]string, len(refs))
	for i, r := range refs {
		id, err := a.columnID(r)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
