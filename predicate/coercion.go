package predicate

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// CoercionKind is the closed set of declared coercion strategies (spec
// §4.3). Coercion is always declared up front as data attached to a
// Compare node, never inferred at evaluation time.
type CoercionKind uint8

const (
	// Strict requires the predicate value's family to exactly match the
	// field's family; no conversion is attempted.
	Strict CoercionKind = iota
	// NumericWiden allows comparisons between Int/Uint/Decimal/Timestamp/
	// Enum families by widening to a common comparable order. This is
	// the default for ordering operators (spec §4.3).
	NumericWiden
	// IdentifierText allows a Text predicate value to compare against an
	// Identifier field and vice versa.
	IdentifierText
	// TextCasefold compares Text/Identifier fields case-insensitively.
	TextCasefold
	// CollectionElement applies the comparison to each element of a
	// collection-valued field rather than the field itself (used for
	// IsEmpty/IsNotEmpty-adjacent membership predicates).
	CollectionElement
)

// Coercion is the declarative coercion spec attached to a Compare node.
type Coercion struct {
	Kind CoercionKind
}

// DefaultCoercion returns the coercion an operator uses when the caller
// does not specify one: NumericWiden for ordering operators, Strict for
// equality (spec §4.3 "Ordering operators use NumericWiden by default").
func DefaultCoercion(op CompareOp) Coercion {
	if op.IsOrdering() {
		return Coercion{Kind: NumericWiden}
	}
	return Coercion{Kind: Strict}
}

// ValidateCoercion rejects coercion specs that cannot possibly succeed
// for the given field family, so invalid coercions fail at predicate
// validation time rather than per-row at evaluation (spec §4.3 "Invalid
// coercions are rejected at validation, never at runtime").
func ValidateCoercion(fieldFamily value.Family, c Coercion) error {
	switch c.Kind {
	case Strict:
		return nil
	case NumericWiden:
		if !isNumericFamily(fieldFamily) {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery,
				"NumericWiden coercion requires a numeric field family").
				WithDetail("family=" + fieldFamily.String())
		}
		return nil
	case IdentifierText:
		if fieldFamily != value.FamilyText && fieldFamily != value.FamilyIdentifier {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery,
				"IdentifierText coercion requires a text or identifier field").
				WithDetail("family=" + fieldFamily.String())
		}
		return nil
	case TextCasefold:
		if fieldFamily != value.FamilyText && fieldFamily != value.FamilyIdentifier {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery,
				"TextCasefold coercion requires a text or identifier field").
				WithDetail("family=" + fieldFamily.String())
		}
		return nil
	case CollectionElement:
		// Map/collection fields are rejected upstream at schema level
		// (spec §4.3 "Map-field predicates are rejected"); by the time a
		// coercion reaches here any collection typing has already been
		// resolved to an element family, so CollectionElement is always
		// structurally valid here.
		return nil
	default:
		return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "unknown coercion kind")
	}
}

func isNumericFamily(f value.Family) bool {
	switch f {
	case value.FamilyInt, value.FamilyUint, value.FamilyDecimal, value.FamilyTimestamp, value.FamilyEnum:
		return true
	default:
		return false
	}
}

// Coerce applies c to (field, literal) and returns values ready for
// value.Compare - same family, widened/casefolded as declared. An error
// here after validation passed indicates a genuine family mismatch at
// evaluation time (e.g. schema drift), reported as InvariantViolation
// rather than InvalidInput since validation should have already caught
// anything a well-formed caller could produce.
func Coerce(fieldVal, literal value.Value, c Coercion) (value.Value, value.Value, error) {
	switch c.Kind {
	case Strict, CollectionElement:
		if fieldVal.Family != literal.Family {
			return value.Value{}, value.Value{}, mismatch(fieldVal.Family, literal.Family)
		}
		return fieldVal, literal, nil
	case NumericWiden:
		return widenNumeric(fieldVal, literal)
	case IdentifierText:
		return widenIdentifierText(fieldVal, literal)
	case TextCasefold:
		return casefold(fieldVal), casefold(literal), nil
	default:
		return value.Value{}, value.Value{}, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "unknown coercion kind at eval time")
	}
}

func mismatch(a, b value.Family) error {
	return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "coercion could not reconcile value families").
		WithDetail("field=" + a.String() + " literal=" + b.String())
}

// widenNumeric converts both sides to a shared Decimal representation so
// Int/Uint/Timestamp/Enum/Decimal fields can all be compared against any
// numeric literal family.
func widenNumeric(a, b value.Value) (value.Value, value.Value, error) {
	ad, err := toDecimal(a)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	bd, err := toDecimal(b)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	return value.NewDecimal(ad), value.NewDecimal(bd), nil
}

func toDecimal(v value.Value) (value.Decimal, error) {
	switch v.Family {
	case value.FamilyDecimal:
		return v.Dec, nil
	case value.FamilyInt:
		return value.DecimalFromInt64(v.I), nil
	case value.FamilyUint, value.FamilyTimestamp, value.FamilyEnum:
		if v.U > (1<<63 - 1) {
			return value.DecimalFromInt64(0), icyerr.New(icyerr.ClassUnsupported, icyerr.OriginQuery, "uint value too large to widen through int64")
		}
		return value.DecimalFromInt64(int64(v.U)), nil
	default:
		return value.Decimal{}, mismatch(v.Family, v.Family)
	}
}

func widenIdentifierText(a, b value.Value) (value.Value, value.Value, error) {
	if a.Family != value.FamilyText && a.Family != value.FamilyIdentifier {
		return value.Value{}, value.Value{}, mismatch(a.Family, b.Family)
	}
	if b.Family != value.FamilyText && b.Family != value.FamilyIdentifier {
		return value.Value{}, value.Value{}, mismatch(a.Family, b.Family)
	}
	return value.NewText(a.S), value.NewText(b.S), nil
}

func casefold(v value.Value) value.Value {
	return value.NewText(lower(v.S))
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
