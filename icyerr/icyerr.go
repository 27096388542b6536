// Package icyerr defines the closed error taxonomy the storage engine
// surfaces to callers. Every error the engine returns across package
// boundaries is, or wraps, an *icyerr.Error so the class and origin survive
// propagation through fmt.Errorf("...: %w", err).
package icyerr

import (
	"errors"
	"fmt"
)

// Class is the closed set of error classes. Mapping rules between failure
// sites and classes are fixed at the component that first observes the
// failure and must never drift downstream (spec §4.11/§7).
type Class uint8

const (
	// ClassCorruption marks hostile or persisted bytes that fail to decode.
	ClassCorruption Class = iota + 1
	// ClassUnsupported marks a policy fence: a feature or value the engine
	// deliberately refuses, not a caller mistake in shape.
	ClassUnsupported
	// ClassInvalidInput marks a caller-supplied value that fails validation:
	// malformed cursor tokens, ill-typed predicates, bad windows.
	ClassInvalidInput
	// ClassInvariantViolation marks an internal contract broken at runtime -
	// a planner/executor disagreement, an impossible post-marker failure.
	ClassInvariantViolation
	// ClassSystemFailure marks failures originating below the engine (host
	// map IO errors, encoder panics surfaced as errors, etc).
	ClassSystemFailure
)

func (c Class) String() string {
	switch c {
	case ClassCorruption:
		return "Corruption"
	case ClassUnsupported:
		return "Unsupported"
	case ClassInvalidInput:
		return "InvalidInput"
	case ClassInvariantViolation:
		return "InvariantViolation"
	case ClassSystemFailure:
		return "SystemFailure"
	default:
		return "UnknownClass"
	}
}

// Origin tags which subsystem first classified the error.
type Origin uint8

const (
	OriginSerialize Origin = iota + 1
	OriginStore
	OriginIndex
	OriginQuery
	OriginCursor
	OriginExecutor
	OriginInterface
	OriginRecovery
	OriginCommit
)

func (o Origin) String() string {
	switch o {
	case OriginSerialize:
		return "Serialize"
	case OriginStore:
		return "Store"
	case OriginIndex:
		return "Index"
	case OriginQuery:
		return "Query"
	case OriginCursor:
		return "Cursor"
	case OriginExecutor:
		return "Executor"
	case OriginInterface:
		return "Interface"
	case OriginRecovery:
		return "Recovery"
	case OriginCommit:
		return "Commit"
	default:
		return "UnknownOrigin"
	}
}

// Error is the structured error every boundary returns: {class, origin,
// message, detail}. Detail carries machine-oriented context (field names,
// offending keys) kept separate from the human message.
type Error struct {
	Class   Class
	Origin  Origin
	Message string
	Detail  string
	cause   error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s/%s: %s (%s)", e.Class, e.Origin, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s/%s: %s", e.Class, e.Origin, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is supports errors.Is comparisons against class/origin-only sentinels
// constructed with New (cause nil, detail empty).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && (t.Origin == 0 || e.Origin == t.Origin)
}

// New constructs a classified error with no wrapped cause.
func New(class Class, origin Origin, message string) *Error {
	return &Error{Class: class, Origin: origin, Message: message}
}

// Wrap constructs a classified error wrapping cause, preserving it for
// errors.Unwrap/errors.As while attaching the class/origin at this boundary.
func Wrap(class Class, origin Origin, message string, cause error) *Error {
	return &Error{Class: class, Origin: origin, Message: message, cause: cause}
}

// WithDetail returns a copy of e with Detail set, for adding machine context
// without losing the original class/origin/cause.
func (e *Error) WithDetail(detail string) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

// ClassOf extracts the Class of err if it is, or wraps, an *Error.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return 0, false
}

// OriginOf extracts the Origin of err if it is, or wraps, an *Error.
func OriginOf(err error) (Origin, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Origin, true
	}
	return 0, false
}

// IsClass reports whether err is, or wraps, an *Error of the given class.
func IsClass(err error, class Class) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}
