package predicate

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// Row is the narrow read surface Eval needs from a decoded entity: field
// presence, nullness, collection-emptiness, and the field's value when
// present and non-null. The executor's materialized rows implement this;
// predicate itself has no notion of entity decoding.
type Row interface {
	// Field returns (value, present). present=false means the field is
	// entirely absent from the row (spec §3 "Missing != Null").
	Field(name string) (value.Value, bool)
	// IsNull reports whether a present field's value is the explicit
	// null marker. Only meaningful when Field reported present=true.
	IsNull(name string) bool
	// IsEmptyCollection reports whether a present, non-null field is a
	// zero-length collection.
	IsEmptyCollection(name string) bool
}

// Eval evaluates p against row with strict two-valued, short-circuit
// semantics (spec §4.3).
func Eval(p Predicate, row Row) (bool, error) {
	switch n := p.(type) {
	case True:
		return true, nil
	case False:
		return false, nil
	case And:
		for _, c := range n.Children {
			ok, err := Eval(c, row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, c := range n.Children {
			ok, err := Eval(c, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Eval(n.Child, row)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case IsNull:
		v, present := row.Field(n.Field)
		_ = v
		return present && row.IsNull(n.Field), nil
	case IsMissing:
		_, present := row.Field(n.Field)
		return !present, nil
	case IsEmpty:
		_, present := row.Field(n.Field)
		if !present || row.IsNull(n.Field) {
			return false, nil
		}
		return row.IsEmptyCollection(n.Field), nil
	case IsNotEmpty:
		_, present := row.Field(n.Field)
		if !present || row.IsNull(n.Field) {
			return false, nil
		}
		return !row.IsEmptyCollection(n.Field), nil
	case Compare:
		return evalCompare(n, row)
	default:
		return false, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "unknown predicate node")
	}
}

func evalCompare(n Compare, row Row) (bool, error) {
	fv, present := row.Field(n.Field)
	if !present || row.IsNull(n.Field) {
		// Compare on a missing or null field is false, never an error;
		// missingness is observable only through IsMissing (spec §4.3).
		return false, nil
	}
	lhs, rhs, err := Coerce(fv, n.Value, n.Coercion)
	if err != nil {
		return false, err
	}
	cmp, err := value.Compare(lhs, rhs)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	default:
		return false, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "unknown comparison operator")
	}
}
