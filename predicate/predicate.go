// Package predicate implements the normalized predicate AST the planner
// and executor both evaluate against (spec C7): a closed sum type with
// strict two-valued semantics and a declarative coercion specification
// attached to every comparison.
package predicate

import "github.com/dragginzgame/icydb-core/value"

// Predicate is the closed sum type of predicate nodes. Every concrete
// type below implements the unexported marker method, the same pattern
// ha1tch-tsqlparser's ast.Expression uses to close its expression
// hierarchy against accidental external implementations.
type Predicate interface {
	predicateNode()
}

// True is the constant true predicate.
type True struct{}

// False is the constant false predicate.
type False struct{}

// And is the n-ary conjunction; an empty And is logically True but
// normalize never produces one (empty conjunctions collapse to True
// directly).
type And struct{ Children []Predicate }

// Or is the n-ary disjunction; an empty Or collapses to False.
type Or struct{ Children []Predicate }

// Not negates a single child.
type Not struct{ Child Predicate }

// CompareOp is the closed set of comparison operators.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// IsOrdering reports whether op is one of the ordering (non-equality)
// operators, the set that defaults to NumericWiden coercion (spec §4.3).
func (op CompareOp) IsOrdering() bool {
	return op == OpLt || op == OpLe || op == OpGt || op == OpGe
}

// Compare tests one field against a literal value under a declared
// coercion spec (spec §4.3 "coercion is declarative data").
type Compare struct {
	Field    string
	Op       CompareOp
	Value    value.Value
	Coercion Coercion
}

// IsNull tests whether field's stored value is the explicit null marker.
// Missing is a distinct condition from Null (spec §3 "Missing != Null").
type IsNull struct{ Field string }

// IsMissing tests whether field is absent from the row entirely.
type IsMissing struct{ Field string }

// IsEmpty tests whether field is a present, non-null, zero-length
// collection.
type IsEmpty struct{ Field string }

// IsNotEmpty is the negation of IsEmpty that still distinguishes
// missing/null from "present and non-empty" (kept as its own node rather
// than Not{IsEmpty{...}} so a missing/null field evaluates to false for
// both IsEmpty and IsNotEmpty, matching strict two-valued semantics).
type IsNotEmpty struct{ Field string }

func (True) predicateNode()       {}
func (False) predicateNode()      {}
func (And) predicateNode()        {}
func (Or) predicateNode()         {}
func (Not) predicateNode()        {}
func (Compare) predicateNode()    {}
func (IsNull) predicateNode()     {}
func (IsMissing) predicateNode()  {}
func (IsEmpty) predicateNode()    {}
func (IsNotEmpty) predicateNode() {}
