// Package value implements the canonical value model of the storage
// engine: a finite set of indexable type families with a total,
// deterministic order per family that the indexkey codec is built to
// preserve byte-for-byte (spec §3 "Indexed Value", §4.1).
//
// Null is never representable as a Value - missingness and nullness are
// modeled one level up, by predicate.IsNull/IsMissing, never here.
package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"

	"github.com/dragginzgame/icydb-core/icyerr"
)

// Family is the closed set of indexable type families (spec §3).
type Family uint8

const (
	FamilyInt Family = iota + 1
	FamilyUint
	FamilyDecimal
	FamilyText
	FamilyIdentifier
	FamilyEnum
	FamilyBool
	FamilyTimestamp
)

func (f Family) String() string {
	switch f {
	case FamilyInt:
		return "int"
	case FamilyUint:
		return "uint"
	case FamilyDecimal:
		return "decimal"
	case FamilyText:
		return "text"
	case FamilyIdentifier:
		return "identifier"
	case FamilyEnum:
		return "enum"
	case FamilyBool:
		return "bool"
	case FamilyTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Decimal is a canonical signed-exponent + magnitude form (spec §4.1):
// value == sign * Mag * 10^Exp, normalized so that Mag has no trailing
// decimal zero (except the canonical zero, Sign=0/Exp=0/Mag=0). Holding
// Mag as a uint256 keeps encode/decode branch-free and allocation-free
// for the magnitude range that matters for an embedded entity store.
type Decimal struct {
	Sign int8 // -1, 0, +1
	Exp  int32
	Mag  uint256.Int
}

// Normalized returns d with its magnitude stripped of trailing decimal
// zeros (and exponent adjusted to compensate), the canonical form the
// indexkey codec and Compare both assume.
func (d Decimal) Normalized() Decimal { return d.normalized() }

func (d Decimal) normalized() Decimal {
	if d.Mag.IsZero() {
		return Decimal{}
	}
	mag := d.Mag
	exp := d.Exp
	ten := uint256.NewInt(10)
	var q, r uint256.Int
	for {
		q.DivMod(&mag, ten, &r)
		if !r.IsZero() {
			break
		}
		mag = q
		exp++
	}
	return Decimal{Sign: d.Sign, Exp: exp, Mag: mag}
}

// DecimalFromInt64 builds a canonical Decimal from a signed integer.
func DecimalFromInt64(i int64) Decimal {
	if i == 0 {
		return Decimal{}
	}
	sign := int8(1)
	u := uint64(i)
	if i < 0 {
		sign = -1
		u = uint64(-i)
	}
	d := Decimal{Sign: sign, Exp: 0, Mag: *uint256.NewInt(u)}
	return d.normalized()
}

// DecimalFromFloat64 builds a canonical Decimal from a float64, rejecting
// NaN and +/-Inf, and collapsing -0.0/+0.0 to the single canonical zero
// (spec §4.1 "Floats: normalize NaN ... collapse +-0").
func DecimalFromFloat64(f float64) (Decimal, error) {
	if math.IsNaN(f) {
		return Decimal{}, icyerr.New(icyerr.ClassUnsupported, icyerr.OriginSerialize, "NaN is not indexable")
	}
	if math.IsInf(f, 0) {
		return Decimal{}, icyerr.New(icyerr.ClassUnsupported, icyerr.OriginSerialize, "infinite value is not indexable")
	}
	if f == 0 {
		return Decimal{}, nil
	}
	sign := int8(1)
	if f < 0 {
		sign = -1
		f = -f
	}
	// shortest round-tripping decimal representation, e.g. "1.25e+02"
	text := strings.ToLower(formatFloat(f))
	mantissa, exp, err := parseSciDecimal(text)
	if err != nil {
		return Decimal{}, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginSerialize, "float has no canonical decimal form", err)
	}
	mag, err := uint256.FromDecimal(mantissa)
	if err != nil {
		return Decimal{}, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginSerialize, "float mantissa too large to index", err)
	}
	d := Decimal{Sign: sign, Exp: exp, Mag: *mag}
	return d.normalized(), nil
}

// compareMagnitude orders two non-negative (digit-string, exponent)
// pairs the way the byte codec must: first by the magnitude's order of
// size (digit count + exponent), then by the digit sequence itself. This
// is the same rule indexkey uses to encode Decimal payloads, duplicated
// here so Compare and the codec can be tested against each other (spec §8
// "encode_cmp(A,B) == semantic_cmp(A,B)").
func compareMagnitude(a, b Decimal) int {
	aDigits, bDigits := a.Mag.Dec(), b.Mag.Dec()
	if a.Mag.IsZero() {
		aDigits = ""
	}
	if b.Mag.IsZero() {
		bDigits = ""
	}
	aOrder := int64(len(aDigits)) + int64(a.Exp)
	bOrder := int64(len(bDigits)) + int64(b.Exp)
	switch {
	case aOrder < bOrder:
		return -1
	case aOrder > bOrder:
		return 1
	}
	// Same order of magnitude: pad the shorter digit run on the right
	// (since both exponents place the decimal point the same distance
	// from the end) and compare lexicographically.
	for len(aDigits) < len(bDigits) {
		aDigits += "0"
	}
	for len(bDigits) < len(aDigits) {
		bDigits += "0"
	}
	return strings.Compare(aDigits, bDigits)
}

// Compare gives the canonical total order between two Decimals of the
// same family: negative < zero < positive, magnitude order within sign.
func (d Decimal) Compare(o Decimal) int {
	dn, on := d.normalized(), o.normalized()
	if dn.Sign != on.Sign {
		if dn.Sign < on.Sign {
			return -1
		}
		return 1
	}
	if dn.Sign == 0 {
		return 0
	}
	cmp := compareMagnitude(dn, on)
	if dn.Sign < 0 {
		return -cmp
	}
	return cmp
}

// Value is a single indexable value tagged with its Family. Exactly one
// payload field is meaningful per Family; constructors enforce this.
type Value struct {
	Family Family
	I      int64
	U      uint64
	Dec    Decimal
	S      string
	Bool   bool
}

func NewInt(i int64) Value      { return Value{Family: FamilyInt, I: i} }
func NewUint(u uint64) Value    { return Value{Family: FamilyUint, U: u} }
func NewBool(b bool) Value      { return Value{Family: FamilyBool, Bool: b} }
func NewTimestamp(u uint64) Value { return Value{Family: FamilyTimestamp, U: u} }
func NewEnum(ordinal uint64) Value { return Value{Family: FamilyEnum, U: ordinal} }
func NewText(s string) Value    { return Value{Family: FamilyText, S: s} }
func NewIdentifier(s string) Value { return Value{Family: FamilyIdentifier, S: s} }

// NewDecimal wraps a pre-built Decimal, e.g. from DecimalFromFloat64.
func NewDecimal(d Decimal) Value { return Value{Family: FamilyDecimal, Dec: d} }

// Compare returns the canonical order between two values of the same
// family. Comparing across families is an internal contract violation -
// schema-bound components must never attempt it (spec §4.1 applies
// per-family; see planner/predicate for family-agreement checks upstream).
func Compare(a, b Value) (int, error) {
	if a.Family != b.Family {
		return 0, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery,
			fmt.Sprintf("cannot compare values of different families: %s vs %s", a.Family, b.Family))
	}
	switch a.Family {
	case FamilyInt:
		switch {
		case a.I < b.I:
			return -1, nil
		case a.I > b.I:
			return 1, nil
		default:
			return 0, nil
		}
	case FamilyUint, FamilyTimestamp, FamilyEnum:
		switch {
		case a.U < b.U:
			return -1, nil
		case a.U > b.U:
			return 1, nil
		default:
			return 0, nil
		}
	case FamilyDecimal:
		return a.Dec.Compare(b.Dec), nil
	case FamilyText, FamilyIdentifier:
		return strings.Compare(a.S, b.S), nil
	case FamilyBool:
		switch {
		case a.Bool == b.Bool:
			return 0, nil
		case !a.Bool && b.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "unknown family in Compare")
	}
}

// Equal is a convenience wrapper over Compare for the same-family case.
func Equal(a, b Value) (bool, error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
