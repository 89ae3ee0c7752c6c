package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of these, so
// callers can branch on errors.Is(err, ErrNotFound) and friends.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid")
	ErrDuplicate = errors.New("duplicate")
	ErrConflict  = errors.New("structural conflict")
)

// Missing entities.
var (
	ErrSchemaNotFound             = fmt.Errorf("schema %w", ErrNotFound)
	ErrTableNotFound              = fmt.Errorf("table %w", ErrNotFound)
	ErrColumnNotFound             = fmt.Errorf("column %w", ErrNotFound)
	ErrConstraintNotFound         = fmt.Errorf("constraint %w", ErrNotFound)
	ErrConstraintColumnNotFound   = fmt.Errorf("constraint column %w", ErrNotFound)
	ErrRelationshipNotFound       = fmt.Errorf("relationship %w", ErrNotFound)
	ErrRelationshipColumnNotFound = fmt.Errorf("relationship column %w", ErrNotFound)
	ErrIndexNotFound              = fmt.Errorf("index %w", ErrNotFound)
	ErrIndexColumnNotFound        = fmt.Errorf("index column %w", ErrNotFound)
)

// Malformed input.
var (
	ErrInvalidName          = fmt.Errorf("%w name", ErrInvalid)
	ErrInvalidPosition      = fmt.Errorf("%w position", ErrInvalid)
	ErrInvalidKind          = fmt.Errorf("%w kind", ErrInvalid)
	ErrInvalidDataType      = fmt.Errorf("%w data type", ErrInvalid)
	ErrInvalidSortDir       = fmt.Errorf("%w sort direction", ErrInvalid)
	ErrInvalidCardinality   = fmt.Errorf("%w cardinality", ErrInvalid)
	ErrInvalidIndexType     = fmt.Errorf("%w index type", ErrInvalid)
	ErrExpressionRequired   = fmt.Errorf("%w: expression required", ErrInvalid)
	ErrExpressionNotAllowed = fmt.Errorf("%w: expression not allowed for kind", ErrInvalid)
	ErrColumnsRequired      = fmt.Errorf("%w: at least one column required", ErrInvalid)
	ErrTableMismatch        = fmt.Errorf("%w: column belongs to another table", ErrInvalid)
	ErrKeyMismatch          = fmt.Errorf("%w: columns must map the parent primary key", ErrInvalid)
)

// Collisions.
var (
	ErrDuplicateName        = fmt.Errorf("%w name", ErrDuplicate)
	ErrDuplicateColumn      = fmt.Errorf("%w column", ErrDuplicate)
	ErrDuplicateDefinition  = fmt.Errorf("%w constraint definition", ErrDuplicate)
	ErrDuplicatesPrimaryKey = fmt.Errorf("%w: unique constraint equals primary key", ErrDuplicate)
)

// Structural conflicts.
var (
	ErrDuplicatePrimaryKey    = fmt.Errorf("%w: table already has a primary key", ErrConflict)
	ErrPrimaryKeyRequired     = fmt.Errorf("%w: parent table has no primary key", ErrConflict)
	ErrIdentifyingCycle       = fmt.Errorf("%w: identifying relationships would form a cycle", ErrConflict)
	ErrIdentifyingKeyMember   = fmt.Errorf("%w: column is required by an identifying relationship", ErrConflict)
	ErrRelationshipKindChange = fmt.Errorf("%w: relationship kind cannot change here", ErrConflict)
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// ErrorKind classifies an error returned by the engine.
type ErrorKind string

// Error kinds reported by KindOf.
const (
	KindNone      ErrorKind = ""
	KindNotFound  ErrorKind = "not_found"
	KindInvalid   ErrorKind = "invalid"
	KindDuplicate ErrorKind = "duplicate"
	KindConflict  ErrorKind = "structural_conflict"
	KindStorage   ErrorKind = "storage"
)

// KindOf reports which error kind err belongs to. Errors that wrap none of
// the kind sentinels are storage (or otherwise external) failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindStorage
	}
}
