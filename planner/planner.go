package planner

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// OrderField is one slot of a requested (or satisfied) ordering.
type OrderField struct {
	Field string
	Desc  bool
}

// Window is the requested limit/offset (spec §4.3 "limit/offset require
// explicit, total order_by").
type Window struct {
	Limit  *uint64
	Offset uint64
}

// Plan is the ExecutablePlan the planner hands to the cursor spine and
// executor (spec C8, C9).
type Plan struct {
	Entity      string
	AccessPath  AccessPath
	Residual    predicate.Predicate
	Order       []OrderField
	Direction   indexkey.Direction
	Window      Window
	PostSort    bool
	IndexID     string // non-empty iff AccessPath is IndexRange/SecondaryIndex
	IndexArity  int
	Fingerprint [16]byte
}

// Build selects an access path for pred over entity, honoring order and
// window, and computes the plan's stable fingerprint (spec §4.4).
func Build(entity schema.EntityDescriptor, pred predicate.Predicate, order []OrderField, window Window) (*Plan, error) {
	if window.Limit != nil && len(order) == 0 {
		return nil, icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery,
			"limit requires an explicit total order_by").WithDetail("entity=" + entity.Name)
	}

	norm := predicate.Normalize(pred)
	conjuncts := conjunctsOf(norm)

	direction := indexkey.Asc
	if len(order) > 0 && order[0].Desc {
		direction = indexkey.Desc
	}

	access, consumed, indexID, arity := selectAccess(entity, conjuncts, order)
	residual := residualOf(conjuncts, consumed)

	postSort := !accessSatisfiesOrder(entity, access, indexID, order)

	p := &Plan{
		Entity:     entity.Name,
		AccessPath: access,
		Residual:   residual,
		Order:      order,
		Direction:  direction,
		Window:     window,
		PostSort:   postSort,
		IndexID:    indexID,
		IndexArity: arity,
	}
	p.Fingerprint = Fingerprint(p)
	return p, nil
}

// conjunctsOf extracts top-level conjuncts from a normalized predicate: a
// top-level And's children, or the predicate itself otherwise.
func conjunctsOf(p predicate.Predicate) []predicate.Predicate {
	if and, ok := p.(predicate.And); ok {
		return and.Children
	}
	return []predicate.Predicate{p}
}

// selectAccess picks the single best access path for conjuncts: PkPoint
// for an exact PK equality, otherwise the declared index that consumes
// the longest equality prefix (optionally followed by one trailing range
// bound), otherwise a full PkRange fallback scan. It returns the chosen
// access, the set of conjuncts it consumed (so the caller can compute the
// residual filter), and the winning index's id/arity (empty/0 for
// PkPoint/PkRange).
//
// This is a single-index selector, not a general cost-based optimizer
// (out of scope per spec.md Non-goals "cost-based query optimization"):
// a composite union is produced only for a top-level Or whose branches
// each independently select a non-scan access. CompositeIntersectionAccess
// is never produced here; conjuncts spanning several indexes are served by
// the single best index plus the residual filter.
func selectAccess(entity schema.EntityDescriptor, conjuncts []predicate.Predicate, order []OrderField) (AccessPath, []predicate.Predicate, string, int) {
	if or, ok := soleOr(conjuncts); ok {
		if access, ok := buildUnion(entity, or, order); ok {
			return access, conjuncts, "", 0
		}
	}

	if pk, ok := pkPointCandidate(entity, conjuncts); ok {
		return PkPointAccess{PK: pk.value}, []predicate.Predicate{pk.node}, "", 0
	}

	bestIdx := -1
	var bestMatch indexMatch
	for i, ix := range entity.Indexes {
		m := matchIndex(ix, conjuncts)
		if m.equalCount == 0 && m.rangeNode == nil {
			continue
		}
		if bestIdx < 0 || m.score() > bestMatch.score() {
			bestIdx = i
			bestMatch = m
		}
	}
	if bestIdx >= 0 {
		ix := entity.Indexes[bestIdx]
		access := buildIndexAccess(ix, bestMatch)
		return access, bestMatch.consumed, ix.ID, ix.Arity()
	}

	return PkRangeAccess{Envelope: indexkey.Envelope{}}, nil, "", 0
}

type pkCandidate struct {
	value value.Value
	node  predicate.Predicate
}

// pkPointCandidate matches the first equality conjunct on the PK field;
// any other conjuncts are left for the residual filter.
func pkPointCandidate(entity schema.EntityDescriptor, conjuncts []predicate.Predicate) (pkCandidate, bool) {
	for _, c := range conjuncts {
		cmp, ok := c.(predicate.Compare)
		if ok && cmp.Op == predicate.OpEq && cmp.Field == entity.PK.Name {
			return pkCandidate{value: cmp.Value, node: c}, true
		}
	}
	return pkCandidate{}, false
}

// residualOf recombines the conjuncts the selected access did not
// consume into one predicate, True when none remain.
func residualOf(conjuncts, consumed []predicate.Predicate) predicate.Predicate {
	var rest []predicate.Predicate
	for _, c := range conjuncts {
		if !containsNode(consumed, c) {
			rest = append(rest, c)
		}
	}
	switch len(rest) {
	case 0:
		return predicate.True{}
	case 1:
		return rest[0]
	default:
		return predicate.And{Children: rest}
	}
}

type indexMatch struct {
	equalValues []value.Value
	equalCount  int
	rangeNode   *predicate.Compare
	consumed    []predicate.Predicate
}

func (m indexMatch) score() int {
	s := m.equalCount * 2
	if m.rangeNode != nil {
		s++
	}
	return s
}

// matchIndex finds the longest equality prefix of ix.Components present
// as Eq conjuncts, plus one optional trailing range conjunct on the next
// unmatched component.
func matchIndex(ix schema.IndexDescriptor, conjuncts []predicate.Predicate) indexMatch {
	var m indexMatch
	for _, comp := range ix.Components {
		cmp, node := findEq(conjuncts, comp.Name, m.consumed)
		if cmp == nil {
			break
		}
		m.equalValues = append(m.equalValues, cmp.Value)
		m.equalCount++
		m.consumed = append(m.consumed, node)
	}
	if m.equalCount < len(ix.Components) {
		nextComp := ix.Components[m.equalCount]
		if cmp, node := findRange(conjuncts, nextComp.Name, m.consumed); cmp != nil {
			m.rangeNode = cmp
			m.consumed = append(m.consumed, node)
		}
	}
	return m
}

func findEq(conjuncts []predicate.Predicate, field string, already []predicate.Predicate) (*predicate.Compare, predicate.Predicate) {
	for _, c := range conjuncts {
		if containsNode(already, c) {
			continue
		}
		if cmp, ok := c.(predicate.Compare); ok && cmp.Op == predicate.OpEq && cmp.Field == field {
			cc := cmp
			return &cc, c
		}
	}
	return nil, nil
}

func findRange(conjuncts []predicate.Predicate, field string, already []predicate.Predicate) (*predicate.Compare, predicate.Predicate) {
	for _, c := range conjuncts {
		if containsNode(already, c) {
			continue
		}
		if cmp, ok := c.(predicate.Compare); ok && cmp.Op.IsOrdering() && cmp.Field == field {
			cc := cmp
			return &cc, c
		}
	}
	return nil, nil
}

func containsNode(haystack []predicate.Predicate, node predicate.Predicate) bool {
	needle := predicate.StructuralKey(node)
	for _, h := range haystack {
		if predicate.StructuralKey(h) == needle {
			return true
		}
	}
	return false
}

// buildIndexAccess lowers a matched equality/range prefix into either a
// SecondaryIndexAccess (full equality match on every component, no
// trailing range) or an IndexRangeAccess (partial match and/or a
// trailing range bound). Equal-bound tightening (spec §4.4 "canonicalize
// equal-bound tightening, Included->Excluded only when stricter") falls
// out naturally here: every bound is built from the encoded prefix plus,
// for a strict bound, its PrefixUpperBound successor, rather than a
// separately-tracked inclusivity flag.
func buildIndexAccess(ix schema.IndexDescriptor, m indexMatch) AccessPath {
	if m.rangeNode == nil && m.equalCount == len(ix.Components) {
		return SecondaryIndexAccess{IndexID: ix.ID, Components: m.equalValues, Unique: ix.Unique}
	}

	lower, upper := indexkey.UnboundedBound(), indexkey.UnboundedBound()
	if m.rangeNode != nil {
		l, u, err := rangeBounds(ix, m)
		if err == nil {
			lower, upper = l, u
		}
	}
	env := confineToIndex(indexkey.Envelope{Lower: lower, Upper: upper}, ix)
	return IndexRangeAccess{IndexID: ix.ID, Arity: ix.Arity(), Envelope: env}
}

// confineToIndex fills any side of env still left Unbounded with the
// bound of ix's own id-prefix, mirroring secondaryIndexStream's envelope
// construction. All user indexes share one kv.TableIndex bucket keyed
// [kind][len-framed index_id][components][pk], so without this an open
// side of a range walks straight out of ix into the lexicographically
// adjacent index.
func confineToIndex(env indexkey.Envelope, ix schema.IndexDescriptor) indexkey.Envelope {
	prefix, err := indexkey.EncodePrefix(indexkey.KindUser, ix.ID, nil)
	if err != nil {
		return env
	}
	if env.Lower.Kind == indexkey.Unbounded {
		env.Lower = indexkey.IncludedBound(prefix)
	}
	if env.Upper.Kind == indexkey.Unbounded {
		if upper, ok := indexkey.PrefixUpperBound(prefix); ok {
			env.Upper = indexkey.ExcludedBound(upper)
		}
	}
	return env
}

// rangeBounds encodes the (lower, upper) raw-key bounds for an equality
// prefix plus one trailing ordering comparison, per spec C5's
// encode_range: Gt/Le bounds land on the successor of the exact-value
// prefix (Gt as an Included lower bound, Le as an Excluded upper bound);
// Ge/Lt bounds land on the exact-value prefix directly (every real key
// under it is strictly greater in byte order, so an Included lower bound
// there means ">=" and an Excluded upper bound means "<").
func rangeBounds(ix schema.IndexDescriptor, m indexMatch) (lower, upper indexkey.Bound, err error) {
	lower, upper = indexkey.UnboundedBound(), indexkey.UnboundedBound()
	prefixVals := append(append([]value.Value{}, m.equalValues...), m.rangeNode.Value)
	prefixBytes, err := indexkey.EncodePrefix(indexkey.KindUser, ix.ID, prefixVals)
	if err != nil {
		return lower, upper, err
	}

	switch m.rangeNode.Op {
	case predicate.OpGe:
		lower = indexkey.IncludedBound(prefixBytes)
	case predicate.OpGt:
		if succ, ok := indexkey.PrefixUpperBound(prefixBytes); ok {
			lower = indexkey.IncludedBound(succ)
		} else {
			// No representable successor: nothing can be strictly
			// greater, so the envelope is empty.
			lower = indexkey.ExcludedBound(prefixBytes)
			upper = indexkey.ExcludedBound(prefixBytes)
		}
	case predicate.OpLe:
		if succ, ok := indexkey.PrefixUpperBound(prefixBytes); ok {
			upper = indexkey.ExcludedBound(succ)
		}
	case predicate.OpLt:
		upper = indexkey.ExcludedBound(prefixBytes)
	}
	return lower, upper, nil
}

// soleOr reports whether conjuncts is exactly one top-level Or node.
func soleOr(conjuncts []predicate.Predicate) (predicate.Or, bool) {
	if len(conjuncts) != 1 {
		return predicate.Or{}, false
	}
	or, ok := conjuncts[0].(predicate.Or)
	return or, ok
}

// buildUnion builds a CompositeUnionAccess if every branch of or
// independently selects an index or PK access path (never a fallback
// PkRange, which would make the union unbounded).
func buildUnion(entity schema.EntityDescriptor, or predicate.Or, order []OrderField) (AccessPath, bool) {
	children := make([]AccessPath, 0, len(or.Children))
	for _, branch := range or.Children {
		access, _, _, _ := selectAccess(entity, conjunctsOf(predicate.Normalize(branch)), order)
		if _, ok := access.(PkRangeAccess); ok {
			return nil, false
		}
		children = append(children, access)
	}
	return CompositeUnionAccess{Children: children}, true
}

// accessSatisfiesOrder reports whether access, as selected, already
// produces rows in the requested order without a post-access sort.
func accessSatisfiesOrder(entity schema.EntityDescriptor, access AccessPath, indexID string, order []OrderField) bool {
	if len(order) == 0 {
		return true
	}
	leading := order[0].Field
	switch access.(type) {
	case PkPointAccess:
		return true // at most one row, order is moot
	case PkRangeAccess:
		return leading == entity.PK.Name
	case IndexRangeAccess:
		ix, ok := entity.Index(indexID)
		return ok && len(ix.Components) > 0 && ix.Components[0].Name == leading
	case SecondaryIndexAccess:
		return true // at most the cardinality of the matched tuple; order is moot for a point match
	default:
		return false
	}
}
