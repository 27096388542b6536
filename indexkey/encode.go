package indexkey

import (
	"encoding/binary"
	"strconv"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// decimalDigits is the fixed width, in ASCII digit bytes, reserved for a
// non-zero Decimal's magnitude payload. 78 covers the full decimal range
// of a uint256 magnitude (2^256-1 has 78 decimal digits), so every
// non-zero Decimal component encodes to exactly the same length and two
// such components can be compared purely bytewise.
const decimalDigits = 78

func errUnsupportedFamily(f value.Family) error {
	return icyerr.New(icyerr.ClassUnsupported, icyerr.OriginIndex, "value family cannot be indexed: "+f.String())
}

// EncodeKey renders an IndexKey to its canonical raw byte form.
func EncodeKey(k IndexKey) (RawKey, error) {
	var buf []byte
	buf = append(buf, byte(k.Kind))
	buf = appendLengthFramed(buf, []byte(k.IndexID))
	for i, c := range k.Components {
		b, err := encodeComponent(c)
		if err != nil {
			return nil, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginIndex, "encoding index component", err).
				WithDetail("component=" + strconv.Itoa(i))
		}
		buf = append(buf, b...)
	}
	pkBytes, err := encodeComponent(k.PK)
	if err != nil {
		return nil, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginIndex, "encoding primary key component", err)
	}
	buf = append(buf, pkBytes...)
	return RawKey(buf), nil
}

// EncodePrefix renders just the (kind, index_id, components...) prefix of
// an IndexKey, without a trailing primary-key component - used by the
// planner to build range-bound byte strings (spec C5 "encode_range").
// Because every component encoding is self-delimiting, this prefix is
// never itself a valid complete key, which is exactly the property the
// envelope math in range.go relies on: every real key under this prefix
// compares strictly greater than the prefix bytes alone.
func EncodePrefix(kind KeyKind, indexID string, components []value.Value) (RawKey, error) {
	var buf []byte
	buf = append(buf, byte(kind))
	buf = appendLengthFramed(buf, []byte(indexID))
	for i, c := range components {
		b, err := encodeComponent(c)
		if err != nil {
			return nil, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginIndex, "encoding index range prefix component", err).
				WithDetail("component=" + strconv.Itoa(i))
		}
		buf = append(buf, b...)
	}
	return RawKey(buf), nil
}

func appendLengthFramed(buf, payload []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, payload...)
	return buf
}

// EncodeComponent renders a single tagged value to its canonical bytes.
// It is exported so callers outside this package (the data store adapter
// keying rows by primary key, the planner building range-bound prefixes)
// can reuse the exact same per-family encoding IndexKey components use,
// without duplicating the family dispatch.
func EncodeComponent(v value.Value) ([]byte, error) { return encodeComponent(v) }

// encodeComponent encodes one tagged value: [tag:1][payload...].
func encodeComponent(v value.Value) ([]byte, error) {
	t, err := familyTag(v.Family)
	if err != nil {
		return nil, err
	}
	out := []byte{byte(t)}
	switch v.Family {
	case value.FamilyInt:
		out = append(out, encodeBiasedInt64(v.I)...)
	case value.FamilyUint, value.FamilyTimestamp, value.FamilyEnum:
		out = append(out, encodeUint64(v.U)...)
	case value.FamilyBool:
		if v.Bool {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	case value.FamilyText, value.FamilyIdentifier:
		out = append(out, encodeOrderedString(v.S)...)
	case value.FamilyDecimal:
		out = append(out, encodeDecimal(v.Dec)...)
	default:
		return nil, errUnsupportedFamily(v.Family)
	}
	return out, nil
}

func encodeUint64(u uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	return b[:]
}

// encodeBiasedInt64 flips the sign bit so that two's-complement ordering
// becomes unsigned big-endian byte ordering (spec §4.1 "bias to unsigned
// so that negative < zero < positive lexicographically").
func encodeBiasedInt64(i int64) []byte {
	biased := uint64(i) ^ (1 << 63)
	return encodeUint64(biased)
}

// encodeOrderedString escapes embedded 0x00 bytes (0x00 -> 0x00 0xFF) and
// terminates with 0x00 0x00, so that byte-lex order agrees with Go string
// order even when one string is a byte-prefix of another (spec §4.1 "use
// a trailing terminator such that byte-order respects string order").
func encodeOrderedString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, 0x00, 0x00)
	return out
}

// encodeDecimal encodes {sign-tag}{order, fixed 8B}{digits, fixed 78B} for
// non-zero values, or just {sign-tag} for zero. Negative values have the
// order and digit bytes bitwise-complemented so that larger magnitudes
// (more negative numbers) sort before smaller ones.
func encodeDecimal(d value.Decimal) []byte {
	d = d.Normalized()
	switch {
	case d.Mag.IsZero():
		return []byte{decimalSignZero}
	case d.Sign < 0:
		out := []byte{decimalSignNeg}
		out = append(out, complementBytes(encodeDecimalMagnitude(d))...)
		return out
	default:
		out := []byte{decimalSignPos}
		out = append(out, encodeDecimalMagnitude(d)...)
		return out
	}
}

const (
	decimalSignNeg byte = 0
	decimalSignZero byte = 1
	decimalSignPos byte = 2
)

func encodeDecimalMagnitude(d value.Decimal) []byte {
	digits := d.Mag.Dec()
	order := int64(len(digits)) + int64(d.Exp)
	out := encodeBiasedInt64(order)
	padded := make([]byte, decimalDigits)
	copy(padded, digits)
	for i := len(digits); i < decimalDigits; i++ {
		padded[i] = '0'
	}
	return append(out, padded...)
}

func complementBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = ^c
	}
	return out
}
