package types

// ConstraintKind is the closed set of constraint kinds.
type ConstraintKind string

// Constraint kinds.
const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY_KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintCheck      ConstraintKind = "CHECK"
	ConstraintDefault    ConstraintKind = "DEFAULT"
	ConstraintNotNull    ConstraintKind = "NOT_NULL"
)

// Valid reports whether k is one of the known constraint kinds.
func (k ConstraintKind) Valid() bool {
	switch k {
	case ConstraintPrimaryKey, ConstraintUnique, ConstraintCheck, ConstraintDefault, ConstraintNotNull:
		return true
	default:
		return false
	}
}

// RequiresColumns reports whether constraints of this kind must keep at
// least one column. Removing the last column deletes such a constraint.
func (k ConstraintKind) RequiresColumns() bool {
	switch k {
	case ConstraintPrimaryKey, ConstraintUnique, ConstraintNotNull:
		return true
	default:
		return false
	}
}

// ComparesByExpression reports whether two constraints of this kind are
// duplicates when their expressions match. The other kinds compare by
// column set.
func (k ConstraintKind) ComparesByExpression() bool {
	return k == ConstraintCheck || k == ConstraintDefault
}

// Constraint is a named constraint on a table. CheckExpr is only meaningful
// for CHECK constraints and DefaultExpr only for DEFAULT constraints.
type Constraint struct {
	ConstraintID string         `json:"constraint_id"`
	TableID      string         `json:"table_id"`
	Name         string         `json:"name"`
	Kind         ConstraintKind `json:"kind"`
	CheckExpr    string         `json:"check_expr,omitempty"`
	DefaultExpr  string         `json:"default_expr,omitempty"`
}

// Expression returns the kind-specific expression: the check expression
// for CHECK, the default expression for DEFAULT, and "" otherwise.
func (c *Constraint) Expression() string {
	switch c.Kind {
	case ConstraintCheck:
		return c.CheckExpr
	case ConstraintDefault:
		return c.DefaultExpr
	case ConstraintPrimaryKey, ConstraintUnique, ConstraintNotNull:
		return ""
	default:
		return ""
	}
}

// ConstraintColumn places a column at a position inside a constraint.
type ConstraintColumn struct {
	ConstraintColumnID string `json:"constraint_column_id"`
	ConstraintID       string `json:"constraint_id"`
	ColumnID           string `json:"column_id"`
	SeqNo              int    `json:"seq_no"`
}
