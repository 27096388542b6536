package executor

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/btree"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// ordinalItem orders btree entries by row ordinal, giving composite
// streams a deterministic, stable emission order over the bitmap-held
// PK set (spec.md §9 DOMAIN STACK "In-memory ordered sets:
// CompositeUnion/CompositeIntersection merge buffers").
type ordinalItem uint32

func (a ordinalItem) Less(than btree.Item) bool { return a < than.(ordinalItem) }

// compositeStream replays a pre-merged, ordinal-ordered PK set. Both
// CompositeUnionAccess and CompositeIntersectionAccess build their
// result this way: the merge itself (dedup / intersect) happens once at
// construction using a roaring bitmap over row ordinals, then emission
// walks a btree of the surviving ordinals in order. Downstream
// post-access always re-sorts composite output (planner forces
// PostSort=true for composite access, since no single child's order is
// authoritative), so this emission order is an implementation detail,
// not a correctness requirement.
type compositeStream struct {
	dir     indexkey.Direction
	ords    *ordinalSet
	surplus []uint32
	i       int
}

func (s *compositeStream) Direction() indexkey.Direction { return s.dir }

func (s *compositeStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	if s.i >= len(s.surplus) {
		return nil, value.Value{}, false, nil
	}
	id := s.surplus[s.i]
	s.i++
	return nil, s.ords.value(id), true, nil
}

func (s *compositeStream) Close() {}

func newUnionStream(tx kv.Tx, entity schema.EntityDescriptor, a planner.CompositeUnionAccess, dir indexkey.Direction) (*compositeStream, error) {
	ords := newOrdinalSet()
	tree := btree.New(32)
	for _, child := range a.Children {
		if err := drainChild(tx, entity, child, dir, ords, func(id uint32) {
			tree.ReplaceOrInsert(ordinalItem(id))
		}); err != nil {
			return nil, err
		}
	}
	return &compositeStream{dir: dir, ords: ords, surplus: ascendOrdinals(tree)}, nil
}

func newIntersectionStream(tx kv.Tx, entity schema.EntityDescriptor, a planner.CompositeIntersectionAccess, dir indexkey.Direction) (*compositeStream, error) {
	if len(a.Children) == 0 {
		return &compositeStream{dir: dir, ords: newOrdinalSet()}, nil
	}
	ords := newOrdinalSet()
	var running *roaring.Bitmap
	for i, child := range a.Children {
		childBM := roaring.New()
		if err := drainChild(tx, entity, child, dir, ords, func(id uint32) {
			childBM.Add(id)
		}); err != nil {
			return nil, err
		}
		if i == 0 {
			running = childBM
		} else {
			running.And(childBM)
		}
	}
	tree := btree.New(32)
	it := running.Iterator()
	for it.HasNext() {
		tree.ReplaceOrInsert(ordinalItem(it.Next()))
	}
	return &compositeStream{dir: dir, ords: ords, surplus: ascendOrdinals(tree)}, nil
}

// drainChild fully consumes one child access stream, assigning each PK a
// row ordinal and invoking record for it. This is the one place a
// composite stream buffers rather than interleaving lazily: union and
// intersection both need every child's PK set before they can decide
// membership, so full consumption of each child here is unavoidable -
// it is still "stream-native" in the sense that no entity row is ever
// loaded (spec §4.6 "there is no pre-materialization" refers to rows,
// not to this PK-only merge buffer).
func drainChild(tx kv.Tx, entity schema.EntityDescriptor, child planner.AccessPath, dir indexkey.Direction, ords *ordinalSet, record func(id uint32)) error {
	stream, err := NewStream(tx, entity, child, dir)
	if err != nil {
		return err
	}
	defer stream.Close()
	if stream.Direction() != dir {
		return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
			"composite access child direction does not match parent direction")
	}
	for {
		_, pk, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		id, err := ords.idFor(pk)
		if err != nil {
			return err
		}
		record(id)
	}
}

func ascendOrdinals(tree *btree.BTree) []uint32 {
	out := make([]uint32, 0, tree.Len())
	tree.Ascend(func(item btree.Item) bool {
		out = append(out, uint32(item.(ordinalItem)))
		return true
	})
	return out
}
