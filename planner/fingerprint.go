package planner

import (
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/value"
)

// Fingerprint computes the plan's canonical fingerprint (spec §4.4
// "plan_fingerprint = stable_hash(canonical(plan)) including entity,
// predicate normal form, access path, index id, order, direction,
// window"). xxhash's 64-bit sum is folded into a 16-byte digest by
// hashing the canonical string twice, the second time with a salt suffix
// appended, since the
// cursor wire format reserves a fixed 16-byte field (spec §6).
func Fingerprint(p *Plan) [16]byte {
	canon := canonicalString(p)
	var out [16]byte
	h1 := xxhash.Sum64String(canon)
	h2 := xxhash.Sum64String(canon + "\x00salt")
	putUint64(out[0:8], h1)
	putUint64(out[8:16], h2)
	return out
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

func canonicalString(p *Plan) string {
	s := "entity=" + p.Entity
	s += "|pred=" + predicate.StructuralKey(p.Residual)
	s += "|access=" + accessKey(p.AccessPath)
	s += "|index=" + p.IndexID
	s += "|order="
	for _, o := range p.Order {
		s += o.Field + ":" + strconv.FormatBool(o.Desc) + ","
	}
	s += "|dir=" + strconv.Itoa(int(p.Direction))
	s += "|limit="
	if p.Window.Limit != nil {
		s += strconv.FormatUint(*p.Window.Limit, 10)
	}
	s += "|offset=" + strconv.FormatUint(p.Window.Offset, 10)
	return s
}

// accessKey renders an AccessPath to a string stable across equal paths,
// including the raw envelope bytes so two different lowered ranges never
// collide under the same index id.
func accessKey(a AccessPath) string {
	switch v := a.(type) {
	case PkPointAccess:
		return "PkPoint(" + valueKeyFP(v.PK) + ")"
	case PkRangeAccess:
		return "PkRange(" + envelopeKey(v.Envelope) + ")"
	case SecondaryIndexAccess:
		s := "SecondaryIndex("
		for _, c := range v.Components {
			s += valueKeyFP(c) + ","
		}
		return s + ")"
	case IndexRangeAccess:
		return "IndexRange(" + envelopeKey(v.Envelope) + ")"
	case CompositeUnionAccess:
		s := "Union("
		for _, c := range v.Children {
			s += accessKey(c) + ","
		}
		return s + ")"
	case CompositeIntersectionAccess:
		s := "Intersection("
		for _, c := range v.Children {
			s += accessKey(c) + ","
		}
		return s + ")"
	default:
		return "?"
	}
}

func envelopeKey(e indexkey.Envelope) string {
	return boundKey(e.Lower) + ".." + boundKey(e.Upper)
}

func boundKey(b indexkey.Bound) string {
	switch b.Kind {
	case indexkey.Included:
		return "[" + hex.EncodeToString(b.Key)
	case indexkey.Excluded:
		return "(" + hex.EncodeToString(b.Key)
	default:
		return "u"
	}
}

func valueKeyFP(v value.Value) string {
	b, err := indexkey.EncodeComponent(v)
	if err != nil {
		return "?"
	}
	return hex.EncodeToString(b)
}
