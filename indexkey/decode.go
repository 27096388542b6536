package indexkey

import (
	"encoding/binary"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

func corrupt(detail string) error {
	return icyerr.New(icyerr.ClassCorruption, icyerr.OriginIndex, "malformed index key bytes").WithDetail(detail)
}

// DecodeKey parses raw bytes back into an IndexKey. arity is the number of
// non-PK components the owning index declares (schema-supplied - the
// wire format is self-describing per component but does not on its own
// know where the component list ends and the PK begins).
func DecodeKey(raw RawKey, arity int) (IndexKey, error) {
	b := []byte(raw)
	if len(b) < 1 {
		return IndexKey{}, corrupt("empty key")
	}
	kind := KeyKind(b[0])
	if kind != KindUser && kind != KindSystem {
		return IndexKey{}, corrupt("unknown key kind")
	}
	b = b[1:]

	idLen, n := binary.Uvarint(b)
	if n <= 0 {
		return IndexKey{}, corrupt("index id length varint")
	}
	b = b[n:]
	if uint64(len(b)) < idLen {
		return IndexKey{}, corrupt("index id truncated")
	}
	indexID := string(b[:idLen])
	b = b[idLen:]

	components := make([]value.Value, 0, arity)
	for i := 0; i < arity; i++ {
		v, rest, err := decodeComponent(b)
		if err != nil {
			return IndexKey{}, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginIndex, "decoding index component", err).
				WithDetail("component=" + strconv.Itoa(i))
		}
		components = append(components, v)
		b = rest
	}

	pk, rest, err := decodeComponent(b)
	if err != nil {
		return IndexKey{}, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginIndex, "decoding primary key component", err)
	}
	if len(rest) != 0 {
		return IndexKey{}, corrupt("trailing bytes after primary key")
	}

	return IndexKey{Kind: kind, IndexID: indexID, Components: components, PK: pk}, nil
}

// DecodeComponent is the exported counterpart to EncodeComponent, decoding
// a single tagged value and returning the bytes remaining after it.
func DecodeComponent(b []byte) (value.Value, []byte, error) { return decodeComponent(b) }

// decodeComponent decodes one [tag][payload] component, returning the
// remaining bytes after it.
func decodeComponent(b []byte) (value.Value, []byte, error) {
	if len(b) < 1 {
		return value.Value{}, nil, corrupt("truncated component tag")
	}
	t := tag(b[0])
	fam, ok := tagFamily(t)
	if !ok {
		return value.Value{}, nil, corrupt("unknown component tag")
	}
	b = b[1:]
	switch fam {
	case value.FamilyInt:
		if len(b) < 8 {
			return value.Value{}, nil, corrupt("truncated int payload")
		}
		biased := binary.BigEndian.Uint64(b[:8])
		return value.NewInt(int64(biased ^ (1 << 63))), b[8:], nil
	case value.FamilyUint:
		if len(b) < 8 {
			return value.Value{}, nil, corrupt("truncated uint payload")
		}
		return value.NewUint(binary.BigEndian.Uint64(b[:8])), b[8:], nil
	case value.FamilyTimestamp:
		if len(b) < 8 {
			return value.Value{}, nil, corrupt("truncated timestamp payload")
		}
		return value.NewTimestamp(binary.BigEndian.Uint64(b[:8])), b[8:], nil
	case value.FamilyEnum:
		if len(b) < 8 {
			return value.Value{}, nil, corrupt("truncated enum payload")
		}
		return value.NewEnum(binary.BigEndian.Uint64(b[:8])), b[8:], nil
	case value.FamilyBool:
		if len(b) < 1 {
			return value.Value{}, nil, corrupt("truncated bool payload")
		}
		return value.NewBool(b[0] != 0), b[1:], nil
	case value.FamilyText, value.FamilyIdentifier:
		s, rest, err := decodeOrderedString(b)
		if err != nil {
			return value.Value{}, nil, err
		}
		if fam == value.FamilyText {
			return value.NewText(s), rest, nil
		}
		return value.NewIdentifier(s), rest, nil
	case value.FamilyDecimal:
		d, rest, err := decodeDecimal(b)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.NewDecimal(d), rest, nil
	default:
		return value.Value{}, nil, corrupt("unsupported component family")
	}
}

// decodeOrderedString reverses encodeOrderedString: unescape 0x00 0xFF ->
// 0x00, stop at the bare 0x00 0x00 terminator.
func decodeOrderedString(b []byte) (string, []byte, error) {
	out := make([]byte, 0, len(b))
	i := 0
	for {
		if i >= len(b) {
			return "", nil, corrupt("unterminated string payload")
		}
		if b[i] == 0x00 {
			if i+1 >= len(b) {
				return "", nil, corrupt("truncated string escape")
			}
			switch b[i+1] {
			case 0x00:
				return string(out), b[i+2:], nil
			case 0xFF:
				out = append(out, 0x00)
				i += 2
				continue
			default:
				return "", nil, corrupt("invalid string escape sequence")
			}
		}
		out = append(out, b[i])
		i++
	}
}

func decodeDecimal(b []byte) (value.Decimal, []byte, error) {
	if len(b) < 1 {
		return value.Decimal{}, nil, corrupt("truncated decimal sign")
	}
	sign := b[0]
	b = b[1:]
	switch sign {
	case decimalSignZero:
		return value.Decimal{}, b, nil
	case decimalSignPos:
		d, rest, err := decodeDecimalMagnitude(b, false)
		return d, rest, err
	case decimalSignNeg:
		d, rest, err := decodeDecimalMagnitude(b, true)
		return d, rest, err
	default:
		return value.Decimal{}, nil, corrupt("invalid decimal sign tag")
	}
}

func decodeDecimalMagnitude(b []byte, negative bool) (value.Decimal, []byte, error) {
	const width = 8 + decimalDigits
	if len(b) < width {
		return value.Decimal{}, nil, corrupt("truncated decimal magnitude")
	}
	raw := b[:width]
	if negative {
		raw = complementBytes(raw)
	}
	order := int64(binary.BigEndian.Uint64(raw[:8]) ^ (1 << 63))
	digits := raw[8:width]
	// strip trailing '0' padding back to the minimal digit run.
	end := len(digits)
	for end > 1 && digits[end-1] == '0' {
		end--
	}
	trimmed := string(digits[:end])
	exp := order - int64(len(trimmed))
	mag, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return value.Decimal{}, nil, corrupt("decimal digits not a valid magnitude")
	}
	sign := int8(1)
	if negative {
		sign = -1
	}
	return value.Decimal{Sign: sign, Exp: int32(exp), Mag: *mag}, b[width:], nil
}
