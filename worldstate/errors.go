package worldstate

import (
	"fmt"

	"github.com/vmoo/core/types"
)

// ErrorCode enumerates the WorldStateError variants named at the boundary
// (§6.5, §7).
type ErrorCode int

const (
	ErrObjectNotFound ErrorCode = iota
	ErrObjectPermissionDenied
	ErrVerbPermissionDenied
	ErrPropertyPermissionDenied
	ErrRecursiveMove
	ErrVerbNotFound
	ErrInvalidVerb
	ErrDuplicateVerb
	ErrDuplicateProperty
	ErrChparentPropertyNameConflict
	ErrPropertyNotFound
	ErrPropertyDefinitionNotFound
	ErrPropertyTypeMismatch
	ErrDatabaseError
	ErrFailedMatch
	ErrAmbiguousMatch
	ErrVerbDecodeError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrObjectNotFound:
		return "ObjectNotFound"
	case ErrObjectPermissionDenied:
		return "ObjectPermissionDenied"
	case ErrVerbPermissionDenied:
		return "VerbPermissionDenied"
	case ErrPropertyPermissionDenied:
		return "PropertyPermissionDenied"
	case ErrRecursiveMove:
		return "RecursiveMove"
	case ErrVerbNotFound:
		return "VerbNotFound"
	case ErrInvalidVerb:
		return "InvalidVerb"
	case ErrDuplicateVerb:
		return "DuplicateVerb"
	case ErrDuplicateProperty:
		return "DuplicateProperty"
	case ErrChparentPropertyNameConflict:
		return "ChparentPropertyNameConflict"
	case ErrPropertyNotFound:
		return "PropertyNotFound"
	case ErrPropertyDefinitionNotFound:
		return "PropertyDefinitionNotFound"
	case ErrPropertyTypeMismatch:
		return "PropertyTypeMismatch"
	case ErrDatabaseError:
		return "DatabaseError"
	case ErrFailedMatch:
		return "FailedMatch"
	case ErrAmbiguousMatch:
		return "AmbiguousMatch"
	case ErrVerbDecodeError:
		return "VerbDecodeError"
	default:
		return "Unknown"
	}
}

// WorldStateError is the error type returned by every worldstate operation
// that can fail. It carries enough structure for callers to branch on
// ErrorCode rather than string-matching, while still satisfying the error
// interface for the usual %w-wrapping idiom (teacher's db/errors.go style).
type WorldStateError struct {
	Code ErrorCode
	Msg  string
}

func (e *WorldStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newError(code ErrorCode, format string, args ...any) *WorldStateError {
	return &WorldStateError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NewError constructs a WorldStateError for callers outside this package
// (the match/command layers, fixture environments) that need to surface
// the same typed errors without reaching into unexported construction.
func NewError(code ErrorCode, format string, args ...any) *WorldStateError {
	return newError(code, format, args...)
}

// NewObjectNotFoundError is a convenience wrapper for the most common
// boundary error: a MatchEnvironment or fixture resolving an unknown id.
func NewObjectNotFoundError(o types.ObjID) *WorldStateError {
	return newError(ErrObjectNotFound, "#%v does not exist", o)
}

// ToMOOErrorCode applies the fixed mapping of §6.5 from a core
// WorldStateError to a user-visible MOO error code string. Callers outside
// the core (the eval/builtins layer) use this at the translation boundary;
// the core itself never produces MOO error codes directly.
func (e *WorldStateError) ToMOOErrorCode() string {
	switch e.Code {
	case ErrObjectNotFound:
		return "E_INVIND"
	case ErrObjectPermissionDenied, ErrVerbPermissionDenied, ErrPropertyPermissionDenied:
		return "E_PERM"
	case ErrRecursiveMove:
		return "E_RECMOVE"
	case ErrVerbNotFound, ErrInvalidVerb:
		return "E_VERBNF"
	case ErrDuplicateVerb, ErrDuplicateProperty, ErrChparentPropertyNameConflict:
		return "E_INVARG"
	case ErrPropertyNotFound, ErrPropertyDefinitionNotFound:
		return "E_PROPNF"
	case ErrPropertyTypeMismatch:
		return "E_TYPE"
	default:
		return "E_INVARG"
	}
}

// ConflictType distinguishes why a transaction's check phase rejected a
// relation entry, per the three-phase commit protocol's check phase.
type ConflictType int

const (
	ConflictInsertDuplicate ConflictType = iota
	ConflictConcurrentWrite
	ConflictStaleRead
	ConflictUpdateNonExistent
)

func (t ConflictType) String() string {
	switch t {
	case ConflictInsertDuplicate:
		return "InsertDuplicate"
	case ConflictConcurrentWrite:
		return "ConcurrentWrite"
	case ConflictStaleRead:
		return "StaleRead"
	case ConflictUpdateNonExistent:
		return "UpdateNonExistent"
	default:
		return "Unknown"
	}
}

// ConflictInfo names the specific relation entry whose timestamp check
// failed during commit.
type ConflictInfo struct {
	RelationName string
	DomainKey    string
	ConflictType ConflictType
}

// ConflictRetry is returned by Commit when the check phase detects a
// conflicting concurrent write; the caller is expected to retry the whole
// transaction from scratch.
type ConflictRetry struct {
	Conflicts []ConflictInfo
}

func (e *ConflictRetry) Error() string {
	if len(e.Conflicts) == 0 {
		return "transaction conflict: retry"
	}
	first := e.Conflicts[0]
	return fmt.Sprintf("transaction conflict on relation %q key %q (%s): retry", first.RelationName, first.DomainKey, first.ConflictType)
}
