package indexkey

import "github.com/dragginzgame/icydb-core/value"

// tag is the fixed, single-byte family discriminator prepended to every
// encoded component (spec §4.1 "a fixed tag per value family"). Values are
// chosen so that tag ordering never needs to participate in cross-family
// comparisons (components are only ever compared within one schema-fixed
// family per position), but kept stable and low so the tag byte itself
// never varies within a homogeneous column.
type tag byte

const (
	tagInt        tag = 1
	tagUint       tag = 2
	tagDecimal    tag = 3
	tagText       tag = 4
	tagIdentifier tag = 5
	tagEnum       tag = 6
	tagBool       tag = 7
	tagTimestamp  tag = 8
)

func familyTag(f value.Family) (tag, error) {
	switch f {
	case value.FamilyInt:
		return tagInt, nil
	case value.FamilyUint:
		return tagUint, nil
	case value.FamilyDecimal:
		return tagDecimal, nil
	case value.FamilyText:
		return tagText, nil
	case value.FamilyIdentifier:
		return tagIdentifier, nil
	case value.FamilyEnum:
		return tagEnum, nil
	case value.FamilyBool:
		return tagBool, nil
	case value.FamilyTimestamp:
		return tagTimestamp, nil
	default:
		return 0, errUnsupportedFamily(f)
	}
}

func tagFamily(t tag) (value.Family, bool) {
	switch t {
	case tagInt:
		return value.FamilyInt, true
	case tagUint:
		return value.FamilyUint, true
	case tagDecimal:
		return value.FamilyDecimal, true
	case tagText:
		return value.FamilyText, true
	case tagIdentifier:
		return value.FamilyIdentifier, true
	case tagEnum:
		return value.FamilyEnum, true
	case tagBool:
		return value.FamilyBool, true
	case tagTimestamp:
		return value.FamilyTimestamp, true
	default:
		return 0, false
	}
}
