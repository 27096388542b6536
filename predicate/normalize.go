package predicate

import (
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/dragginzgame/icydb-core/value"
)

// Normalize rewrites p into its canonical normal form (spec §4.3): And/Or
// are flattened and their children sorted by a stable structural key,
// neutral constants collapse (True drops out of And, False drops out of
// Or, an empty And is True, an empty Or is False), and double negation
// is eliminated. normalize(p) must remain semantically equal to p for
// every row (spec §8 "eval(p,row) == eval(normalize(p),row)").
func Normalize(p Predicate) Predicate {
	switch n := p.(type) {
	case And:
		children := flattenAnd(n.Children)
		if children == nil {
			return False{}
		}
		switch len(children) {
		case 0:
			return True{}
		case 1:
			return children[0]
		default:
			sortChildren(children)
			return And{Children: children}
		}
	case Or:
		children := flattenOr(n.Children)
		if children == nil {
			return True{}
		}
		switch len(children) {
		case 0:
			return False{}
		case 1:
			return children[0]
		default:
			sortChildren(children)
			return Or{Children: children}
		}
	case Not:
		child := Normalize(n.Child)
		if inner, ok := child.(Not); ok {
			return inner.Child
		}
		if _, ok := child.(True); ok {
			return False{}
		}
		if _, ok := child.(False); ok {
			return True{}
		}
		return Not{Child: child}
	default:
		return p
	}
}

// flattenAnd normalizes every child, inlines nested And nodes, drops
// True children, and returns nil if any child normalizes to False
// (short-circuiting the whole conjunction).
func flattenAnd(children []Predicate) []Predicate {
	out := []Predicate{}
	for _, c := range children {
		nc := Normalize(c)
		switch v := nc.(type) {
		case True:
			continue
		case False:
			return nil
		case And:
			out = append(out, v.Children...)
		default:
			out = append(out, nc)
		}
	}
	return dedupe(out)
}

func flattenOr(children []Predicate) []Predicate {
	out := []Predicate{}
	for _, c := range children {
		nc := Normalize(c)
		switch v := nc.(type) {
		case False:
			continue
		case True:
			return nil
		case Or:
			out = append(out, v.Children...)
		default:
			out = append(out, nc)
		}
	}
	return dedupe(out)
}

// dedupe removes structurally identical children so `a AND a` normalizes
// to `a`, using the same structural key sortChildren sorts by.
func dedupe(children []Predicate) []Predicate {
	if len(children) < 2 {
		return children
	}
	seen := make(map[string]bool, len(children))
	out := children[:0]
	for _, c := range children {
		k := structuralKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// sortChildren orders children by structural key so logically-equivalent
// predicates normalize to a byte-identical tree regardless of original
// authoring order - required for plan_fingerprint stability (spec §4.4
// "stable_hash(canonical(plan))").
func sortChildren(children []Predicate) {
	slices.SortFunc(children, func(a, b Predicate) bool {
		return structuralKey(a) < structuralKey(b)
	})
}

// StructuralKey exposes structuralKey for callers (the planner's
// fingerprint computation) that need a stable string form of a predicate
// without depending on its internal node layout.
func StructuralKey(p Predicate) string { return structuralKey(p) }

// structuralKey renders a predicate node to a string that is stable
// across equal trees and distinct across unequal ones, used purely for
// sorting/dedup - never persisted, never parsed.
func structuralKey(p Predicate) string {
	switch n := p.(type) {
	case True:
		return "T"
	case False:
		return "F"
	case And:
		s := "A("
		for _, c := range n.Children {
			s += structuralKey(c) + ","
		}
		return s + ")"
	case Or:
		s := "O("
		for _, c := range n.Children {
			s += structuralKey(c) + ","
		}
		return s + ")"
	case Not:
		return "N(" + structuralKey(n.Child) + ")"
	case Compare:
		return "C(" + n.Field + "," + strconv.Itoa(int(n.Op)) + "," + strconv.Itoa(int(n.Coercion.Kind)) + "," + valueKey(n.Value) + ")"
	case IsNull:
		return "IN(" + n.Field + ")"
	case IsMissing:
		return "IM(" + n.Field + ")"
	case IsEmpty:
		return "IE(" + n.Field + ")"
	case IsNotEmpty:
		return "INE(" + n.Field + ")"
	default:
		return "?"
	}
}

// valueKey renders a value.Value to a string unique to its (family,
// payload) for structural-key purposes only.
func valueKey(v value.Value) string {
	switch v.Family {
	case value.FamilyInt:
		return "i" + strconv.FormatInt(v.I, 10)
	case value.FamilyUint, value.FamilyTimestamp, value.FamilyEnum:
		return "u" + strconv.FormatUint(v.U, 10)
	case value.FamilyDecimal:
		d := v.Dec.Normalized()
		return "d" + strconv.FormatInt(int64(d.Sign), 10) + ":" + strconv.FormatInt(int64(d.Exp), 10) + ":" + d.Mag.Dec()
	case value.FamilyText, value.FamilyIdentifier:
		return "s" + v.S
	case value.FamilyBool:
		if v.Bool {
			return "b1"
		}
		return "b0"
	default:
		return "?"
	}
}
