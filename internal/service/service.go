// Package service orchestrates schema mutations. Every public operation
// validates its request, loads the table context it needs, runs the
// validator and cascade walker, and returns a types.Result naming every
// table it touched. All of it happens inside one store Update, so a failure
// at any step leaves the store unchanged.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/schemata/internal/cascade"
	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/internal/validate"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Services bundles one instance of every service over a shared store.
type Services struct {
	Schemas       *SchemaService
	Columns       *ColumnService
	Constraints   *ConstraintService
	Relationships *RelationshipService
	Indexes       *IndexService
}

// New returns every service bound to store. A nil logger discards output.
func New(store types.Store, log *slog.Logger) *Services {
	b := newBase(store, log)
	return &Services{
		Schemas:       &SchemaService{b},
		Columns:       &ColumnService{b},
		Constraints:   &ConstraintService{b},
		Relationships: &RelationshipService{b},
		Indexes:       &IndexService{b},
	}
}

type base struct {
	store types.Store
	log   *slog.Logger
}

func newBase(store types.Store, log *slog.Logger) base {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return base{store: store, log: log}
}

// update runs fn in one unit of work and logs the outcome of op.
func (b base) update(ctx context.Context, op string, affected types.TableSet, fn func(tx types.Tx) error) error {
	err := b.store.Update(ctx, fn)
	if err != nil {
		b.log.Debug(op+" failed", "error", err, "kind", types.KindOf(err))
		return err
	}
	b.log.Info(op, "affected_tables", len(affected))
	return nil
}

func (b base) walker(tx types.Tx) *cascade.Walker {
	return cascade.New(tx, b.log)
}

// cleanName normalizes name and rejects blanks.
func cleanName(name string) (string, error) {
	n := naming.Normalize(name)
	if err := validate.Name(n); err != nil {
		return "", err
	}
	return n, nil
}

// checkKeys verifies that no reshaped table ended up with a UNIQUE
// constraint equal to its primary key.
func checkKeys(tx types.Tx, tables types.TableSet) error {
	for _, id := range tables.IDs() {
		tc, err := validate.Load(tx, id)
		if err != nil {
			return err
		}
		if err := tc.PrimaryKeyDistinct(); err != nil {
			return err
		}
	}
	return nil
}

// identifyingMembers returns the child column ids that identifying
// relationships place in tableID's primary key.
func identifyingMembers(tx types.Tx, tableID string) (map[string]*types.Relationship, error) {
	rels, err := tx.Relationships().FindAllByChildTableID(tableID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.Relationship)
	for _, rel := range rels {
		if !rel.Identifying() {
			continue
		}
		rcs, err := tx.RelationshipColumns().FindAllByRelationshipID(rel.RelationshipID)
		if err != nil {
			return nil, err
		}
		for _, rc := range rcs {
			out[rc.FkColumnID] = rel
		}
	}
	return out, nil
}

// insertAt returns items with v placed at pos. pos must be in [0, len].
func insertAt[T any](items []T, pos int, v T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:pos]...)
	out = append(out, v)
	return append(out, items[pos:]...)
}

// moveTo returns items with the element at from moved to to.
func moveTo[T any](items []T, from, to int) []T {
	v := items[from]
	rest := make([]T, 0, len(items)-1)
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)
	return insertAt(rest, to, v)
}

// position resolves an optional insert position against a list of n
// members. nil appends.
func position(seqNo *int, n int) (int, error) {
	if seqNo == nil {
		return n, nil
	}
	if err := validate.Position(*seqNo); err != nil {
		return 0, err
	}
	if *seqNo > n {
		return 0, fmt.Errorf("position %d beyond %d members: %w", *seqNo, n, types.ErrInvalidPosition)
	}
	return *seqNo, nil
}
