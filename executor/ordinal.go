package executor

import (
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// ordinalSet assigns a clock-free monotonic uint32 ordinal to each
// distinct PK it sees, keyed by the PK's canonical encoded bytes. It is
// the row-ordinal allocator composite access streams use so a PK set can
// be represented as a roaring bitmap instead of repeatedly comparing
// value.Value by structural equality (spec.md §9 DOMAIN STACK "PK-dedup
// bitmaps ... keyed by the host's clock-free monotonic row ordinal").
type ordinalSet struct {
	next   uint32
	byKey  map[string]uint32
	values []value.Value
}

func newOrdinalSet() *ordinalSet {
	return &ordinalSet{byKey: make(map[string]uint32)}
}

// idFor returns the ordinal for pk, assigning a fresh one on first sight.
func (o *ordinalSet) idFor(pk value.Value) (uint32, error) {
	enc, err := indexkey.EncodeComponent(pk)
	if err != nil {
		return 0, err
	}
	key := string(enc)
	if id, ok := o.byKey[key]; ok {
		return id, nil
	}
	id := o.next
	o.next++
	o.byKey[key] = id
	o.values = append(o.values, pk)
	return id, nil
}

// value returns the PK originally assigned to ordinal id.
func (o *ordinalSet) value(id uint32) value.Value {
	return o.values[id]
}
