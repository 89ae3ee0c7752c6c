// Package validate holds the pure constraint invariant checks. Every
// function here is side-effect free and operates on a TableContext
// snapshot plus a candidate mutation.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// TableContext is a snapshot of one table's columns, constraints, and
// constraint columns keyed by constraint id.
type TableContext struct {
	TableID             string
	Columns             []*types.Column
	Constraints         []*types.Constraint
	ColumnsByConstraint map[string][]*types.ConstraintColumn
}

// Load reads the snapshot of tableID inside tx.
func Load(tx types.Tx, tableID string) (*TableContext, error) {
	columns, err := tx.Columns().FindAllByTableID(tableID)
	if err != nil {
		return nil, err
	}
	constraints, err := tx.Constraints().FindAllByTableID(tableID)
	if err != nil {
		return nil, err
	}
	byConstraint := make(map[string][]*types.ConstraintColumn, len(constraints))
	for _, c := range constraints {
		ccs, err := tx.ConstraintColumns().FindAllByConstraintID(c.ConstraintID)
		if err != nil {
			return nil, err
		}
		byConstraint[c.ConstraintID] = ccs
	}
	return &TableContext{
		TableID:             tableID,
		Columns:             columns,
		Constraints:         constraints,
		ColumnsByConstraint: byConstraint,
	}, nil
}

// Column returns the column with the given id, or nil.
func (tc *TableContext) Column(id string) *types.Column {
	for _, c := range tc.Columns {
		if c.ColumnID == id {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the table's primary key constraint, or nil.
func (tc *TableContext) PrimaryKey() *types.Constraint {
	for _, c := range tc.Constraints {
		if c.Kind == types.ConstraintPrimaryKey {
			return c
		}
	}
	return nil
}

// ColumnIDs returns the column ids of a constraint in sequence order.
func (tc *TableContext) ColumnIDs(constraintID string) []string {
	ccs := tc.ColumnsByConstraint[constraintID]
	ids := make([]string, len(ccs))
	for i, cc := range ccs {
		ids[i] = cc.ColumnID
	}
	return ids
}

// Name fails with ErrInvalidName if name is blank.
func Name(name string) error {
	if strings.TrimSpace(name) == "" {
		return types.ErrInvalidName
	}
	return nil
}

// Position fails with ErrInvalidPosition if seqNo is negative.
func Position(seqNo int) error {
	if seqNo < 0 {
		return fmt.Errorf("%d: %w", seqNo, types.ErrInvalidPosition)
	}
	return nil
}

// SeqNoIntegrity fails with ErrInvalidPosition unless seqNos, once sorted,
// is exactly 0..n-1.
func SeqNoIntegrity(seqNos []int) error {
	sorted := append([]int(nil), seqNos...)
	sort.Ints(sorted)
	for i, n := range sorted {
		if n != i {
			return fmt.Errorf("sequence numbers %v are not 0..%d: %w", seqNos, len(seqNos)-1, types.ErrInvalidPosition)
		}
	}
	return nil
}

// ColumnExistence fails with ErrColumnNotFound if any id is not a column of
// the table.
func (tc *TableContext) ColumnExistence(columnIDs []string) error {
	for _, id := range columnIDs {
		if tc.Column(id) == nil {
			return fmt.Errorf("table %s: column %s: %w", tc.TableID, id, types.ErrColumnNotFound)
		}
	}
	return nil
}

// ColumnUniqueness fails with ErrDuplicateColumn if an id appears twice.
func ColumnUniqueness(columnIDs []string) error {
	seen := make(map[string]bool, len(columnIDs))
	for _, id := range columnIDs {
		if seen[id] {
			return fmt.Errorf("column %s: %w", id, types.ErrDuplicateColumn)
		}
		seen[id] = true
	}
	return nil
}

// PrimaryKeySingle fails with ErrDuplicatePrimaryKey if the table already
// has a primary key other than selfID.
func (tc *TableContext) PrimaryKeySingle(selfID string) error {
	for _, c := range tc.Constraints {
		if c.Kind == types.ConstraintPrimaryKey && c.ConstraintID != selfID {
			return fmt.Errorf("table %s has %s: %w", tc.TableID, c.Name, types.ErrDuplicatePrimaryKey)
		}
	}
	return nil
}

// DefinitionUniqueness fails with ErrDuplicateDefinition if another
// constraint of the same kind has the same definition: the same expression
// for CHECK and DEFAULT, the same column set for the other kinds. Column
// order does not matter. The primary key is covered by PrimaryKeySingle.
func (tc *TableContext) DefinitionUniqueness(selfID string, kind types.ConstraintKind, columnIDs []string, expr string) error {
	if kind == types.ConstraintPrimaryKey {
		return nil
	}
	for _, c := range tc.Constraints {
		if c.ConstraintID == selfID || c.Kind != kind {
			continue
		}
		var same bool
		if kind.ComparesByExpression() {
			same = normalizeExpr(c.Expression()) == normalizeExpr(expr)
		} else {
			same = sameSet(tc.ColumnIDs(c.ConstraintID), columnIDs)
		}
		if same {
			return fmt.Errorf("%s constraint %s: %w", kind, c.Name, types.ErrDuplicateDefinition)
		}
	}
	return nil
}

// UniqueSameAsPrimaryKey fails with ErrDuplicatesPrimaryKey when a UNIQUE
// column set equals the primary key's column set. For a PRIMARY_KEY
// candidate the check runs the other way: no existing UNIQUE may equal the
// candidate key.
func (tc *TableContext) UniqueSameAsPrimaryKey(selfID string, kind types.ConstraintKind, columnIDs []string) error {
	switch kind {
	case types.ConstraintUnique:
		pk := tc.PrimaryKey()
		if pk == nil || pk.ConstraintID == selfID {
			return nil
		}
		if sameSet(tc.ColumnIDs(pk.ConstraintID), columnIDs) {
			return fmt.Errorf("unique columns equal primary key %s: %w", pk.Name, types.ErrDuplicatesPrimaryKey)
		}
	case types.ConstraintPrimaryKey:
		for _, c := range tc.Constraints {
			if c.Kind != types.ConstraintUnique || c.ConstraintID == selfID {
				continue
			}
			if sameSet(tc.ColumnIDs(c.ConstraintID), columnIDs) {
				return fmt.Errorf("primary key columns equal unique %s: %w", c.Name, types.ErrDuplicatesPrimaryKey)
			}
		}
	case types.ConstraintCheck, types.ConstraintDefault, types.ConstraintNotNull:
	}
	return nil
}

// PrimaryKeyDistinct fails with ErrDuplicatesPrimaryKey when the table's
// current primary key has the same column set as one of its UNIQUE
// constraints. Services run it on every table a cascade reshaped.
func (tc *TableContext) PrimaryKeyDistinct() error {
	pk := tc.PrimaryKey()
	if pk == nil {
		return nil
	}
	if err := tc.UniqueSameAsPrimaryKey(pk.ConstraintID, types.ConstraintPrimaryKey, tc.ColumnIDs(pk.ConstraintID)); err != nil {
		return fmt.Errorf("table %s: %w", tc.TableID, err)
	}
	return nil
}

// Kind fails with ErrInvalidKind for an unknown constraint kind.
func Kind(kind types.ConstraintKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%q: %w", kind, types.ErrInvalidKind)
	}
	return nil
}

// ExpressionRequired fails with ErrExpressionRequired when a CHECK lacks a
// check expression or a DEFAULT lacks a default expression.
func ExpressionRequired(kind types.ConstraintKind, check, def string) error {
	switch kind {
	case types.ConstraintCheck:
		if strings.TrimSpace(check) == "" {
			return fmt.Errorf("check: %w", types.ErrExpressionRequired)
		}
	case types.ConstraintDefault:
		if strings.TrimSpace(def) == "" {
			return fmt.Errorf("default: %w", types.ErrExpressionRequired)
		}
	case types.ConstraintPrimaryKey, types.ConstraintUnique, types.ConstraintNotNull:
	}
	return nil
}

// ExpressionAllowed fails with ErrExpressionNotAllowed when an expression
// is supplied for a kind that does not carry it.
func ExpressionAllowed(kind types.ConstraintKind, check, def string) error {
	if check != "" && kind != types.ConstraintCheck {
		return fmt.Errorf("check expression on %s: %w", kind, types.ErrExpressionNotAllowed)
	}
	if def != "" && kind != types.ConstraintDefault {
		return fmt.Errorf("default expression on %s: %w", kind, types.ErrExpressionNotAllowed)
	}
	return nil
}

// ColumnsRequired fails with ErrColumnsRequired when a kind that needs
// columns has none.
func ColumnsRequired(kind types.ConstraintKind, n int) error {
	if kind.RequiresColumns() && n == 0 {
		return fmt.Errorf("%s: %w", kind, types.ErrColumnsRequired)
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}

// normalizeExpr collapses whitespace so "a  >  0" and "a > 0" compare equal.
func normalizeExpr(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
