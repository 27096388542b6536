// Package planner implements the query planner (spec C8): it maps a
// normalized predicate and order/window request to an ExecutablePlan
// carrying a selected AccessPath, a lowered envelope where applicable,
// and a stable plan fingerprint used to bind continuation tokens.
package planner

import (
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// AccessKind is the closed set of physical access strategies (spec §9
// "AccessPath ... closed sum type"; spec §4.4 "AccessPath variants").
type AccessKind uint8

const (
	AccessPkPoint AccessKind = iota
	AccessPkRange
	AccessSecondaryIndex
	AccessIndexRange
	AccessCompositeUnion
	AccessCompositeIntersection
)

func (k AccessKind) String() string {
	switch k {
	case AccessPkPoint:
		return "PkPoint"
	case AccessPkRange:
		return "PkRange"
	case AccessSecondaryIndex:
		return "SecondaryIndex"
	case AccessIndexRange:
		return "IndexRange"
	case AccessCompositeUnion:
		return "CompositeUnion"
	case AccessCompositeIntersection:
		return "CompositeIntersection"
	default:
		return "Unknown"
	}
}

// AccessPath is the closed sum type of physical access strategies. Every
// concrete type below implements the unexported marker method so no type
// outside this package can extend the set (spec §9 "Executor dispatch
// over AccessPath is a static match").
type AccessPath interface {
	Kind() AccessKind
	accessPathNode()
}

// PkPointAccess fetches at most one row by direct PK (spec §4.6
// "PkPoint").
type PkPointAccess struct{ PK value.Value }

func (PkPointAccess) Kind() AccessKind { return AccessPkPoint }
func (PkPointAccess) accessPathNode()  {}

// PkRangeAccess scans the entity's PK namespace within Envelope in the
// plan's declared direction (spec §4.6 "PkRange"). An unbounded Envelope
// is also how the fallback full scan is represented (spec §4.6 "Fallback
// scan").
type PkRangeAccess struct{ Envelope indexkey.Envelope }

func (PkRangeAccess) Kind() AccessKind { return AccessPkRange }
func (PkRangeAccess) accessPathNode()  {}

// SecondaryIndexAccess is a point lookup on a non-PK index followed by a
// PK fan-out (spec §4.6 "SecondaryIndex").
type SecondaryIndexAccess struct {
	IndexID    string
	Components []value.Value
	Unique     bool
}

func (SecondaryIndexAccess) Kind() AccessKind { return AccessSecondaryIndex }
func (SecondaryIndexAccess) accessPathNode()  {}

// IndexRangeAccess is a bounded raw-key range traversal over a non-PK
// index (spec §4.6 "IndexRange").
type IndexRangeAccess struct {
	IndexID  string
	Arity    int
	Envelope indexkey.Envelope
}

func (IndexRangeAccess) Kind() AccessKind { return AccessIndexRange }
func (IndexRangeAccess) accessPathNode()  {}

// CompositeUnionAccess merges child streams, deduplicating by PK (spec
// §4.6 "CompositeUnion").
type CompositeUnionAccess struct{ Children []AccessPath }

func (CompositeUnionAccess) Kind() AccessKind { return AccessCompositeUnion }
func (CompositeUnionAccess) accessPathNode()  {}

// CompositeIntersectionAccess merges child streams, emitting only PKs
// present in every child (spec §4.6 "CompositeIntersection").
type CompositeIntersectionAccess struct{ Children []AccessPath }

func (CompositeIntersectionAccess) Kind() AccessKind { return AccessCompositeIntersection }
func (CompositeIntersectionAccess) accessPathNode()  {}
