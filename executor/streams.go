package executor

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// NewStream builds the AccessStream a plan's AccessPath describes (spec
// §4.6): the dispatch is a static match over planner.AccessPath's closed
// sum type, one arm per concrete variant.
func NewStream(tx kv.Tx, entity schema.EntityDescriptor, access planner.AccessPath, dir indexkey.Direction) (AccessStream, error) {
	switch a := access.(type) {
	case planner.PkPointAccess:
		return newPkPointStream(tx, entity, a, dir)
	case planner.PkRangeAccess:
		return newPkRangeStream(tx, entity, a, dir)
	case planner.SecondaryIndexAccess:
		return newSecondaryIndexStream(tx, entity, a, dir)
	case planner.IndexRangeAccess:
		return newIndexRangeStream(tx, a, dir)
	case planner.CompositeUnionAccess:
		return newUnionStream(tx, entity, a, dir)
	case planner.CompositeIntersectionAccess:
		return newIntersectionStream(tx, entity, a, dir)
	default:
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor, "unknown access path variant")
	}
}

// pkPointStream emits at most one row by direct PK (spec §4.6 "PkPoint").
type pkPointStream struct {
	dir    indexkey.Direction
	pk     value.Value
	found  bool
	served bool
}

func newPkPointStream(tx kv.Tx, entity schema.EntityDescriptor, a planner.PkPointAccess, dir indexkey.Direction) (*pkPointStream, error) {
	found, err := kv.NewDataStore(tx).Has(entity.Name, a.PK)
	if err != nil {
		return nil, err
	}
	return &pkPointStream{dir: dir, pk: a.PK, found: found}, nil
}

func (s *pkPointStream) Direction() indexkey.Direction { return s.dir }

func (s *pkPointStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	if s.served || !s.found {
		return nil, value.Value{}, false, nil
	}
	s.served = true
	return nil, s.pk, true, nil
}

func (s *pkPointStream) Close() {}

// pkRangeStream scans the entity's PK namespace (spec §4.6 "PkRange").
type pkRangeStream struct {
	dir    indexkey.Direction
	rc     *rangeCursor
	entity schema.EntityDescriptor
}

func newPkRangeStream(tx kv.Tx, entity schema.EntityDescriptor, a planner.PkRangeAccess, dir indexkey.Direction) (*pkRangeStream, error) {
	env, err := namespaceEnvelope(entity.Name, a.Envelope)
	if err != nil {
		return nil, err
	}
	rc, err := newRangeCursor(tx, kv.TableData, env, dir)
	if err != nil {
		return nil, err
	}
	return &pkRangeStream{dir: dir, rc: rc, entity: entity}, nil
}

func (s *pkRangeStream) Direction() indexkey.Direction { return s.dir }

func (s *pkRangeStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	k, _, ok, err := s.rc.next()
	if err != nil || !ok {
		return nil, value.Value{}, false, err
	}
	pk, _, err := indexkey.DecodeComponent(k[1+len(s.entity.Name):])
	if err != nil {
		return nil, value.Value{}, false, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginStore, "decoding PK from data key", err)
	}
	return nil, pk, true, nil
}

func (s *pkRangeStream) Close() { s.rc.Close() }

// namespaceEnvelope confines access to one entity's rows within the
// shared TableData region, intersected with any envelope the access
// path itself already carries.
func namespaceEnvelope(namespace string, access indexkey.Envelope) (indexkey.Envelope, error) {
	prefix := kv.DataNamespacePrefix(namespace)
	env := indexkey.Envelope{Lower: indexkey.IncludedBound(prefix)}
	if upper, ok := indexkey.PrefixUpperBound(prefix); ok {
		env.Upper = indexkey.ExcludedBound(upper)
	}
	return intersectEnvelope(env, access), nil
}

// intersectEnvelope returns the tighter of each side of a and b.
func intersectEnvelope(a, b indexkey.Envelope) indexkey.Envelope {
	return indexkey.Envelope{
		Lower: tighterLowerBound(a.Lower, b.Lower),
		Upper: tighterUpperBound(a.Upper, b.Upper),
	}
}

func tighterLowerBound(a, b indexkey.Bound) indexkey.Bound {
	if a.Kind == indexkey.Unbounded {
		return b
	}
	if b.Kind == indexkey.Unbounded {
		return a
	}
	cmp := compareBytes(a.Key, b.Key)
	switch {
	case cmp > 0:
		return a
	case cmp < 0:
		return b
	default:
		if a.Kind == indexkey.Excluded {
			return a
		}
		return b
	}
}

func tighterUpperBound(a, b indexkey.Bound) indexkey.Bound {
	if a.Kind == indexkey.Unbounded {
		return b
	}
	if b.Kind == indexkey.Unbounded {
		return a
	}
	cmp := compareBytes(a.Key, b.Key)
	switch {
	case cmp < 0:
		return a
	case cmp > 0:
		return b
	default:
		if a.Kind == indexkey.Excluded {
			return a
		}
		return b
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// secondaryIndexStream performs a point lookup on a non-PK index, fanning
// out every PK sharing the matched component tuple (spec §4.6
// "SecondaryIndex"). Unique indexes fail closed on cardinality > 1.
type secondaryIndexStream struct {
	dir indexkey.Direction
	rc  *rangeCursor
}

func newSecondaryIndexStream(tx kv.Tx, entity schema.EntityDescriptor, a planner.SecondaryIndexAccess, dir indexkey.Direction) (*secondaryIndexStream, error) {
	prefix, err := indexkey.EncodePrefix(indexkey.KindUser, a.IndexID, a.Components)
	if err != nil {
		return nil, err
	}
	if a.Unique {
		count, err := kv.NewIndexStore(tx).CountPrefix(prefix, 1)
		if err != nil {
			return nil, err
		}
		if count > 1 {
			return nil, icyerr.New(icyerr.ClassCorruption, icyerr.OriginIndex, "unique index has more than one entry for matched component tuple").
				WithDetail("index=" + a.IndexID)
		}
	}
	env := indexkey.Envelope{Lower: indexkey.IncludedBound(prefix)}
	if upper, ok := indexkey.PrefixUpperBound(prefix); ok {
		env.Upper = indexkey.ExcludedBound(upper)
	}
	rc, err := newRangeCursor(tx, kv.TableIndex, env, dir)
	if err != nil {
		return nil, err
	}
	return &secondaryIndexStream{dir: dir, rc: rc}, nil
}

func (s *secondaryIndexStream) Direction() indexkey.Direction { return s.dir }

func (s *secondaryIndexStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	k, v, ok, err := s.rc.next()
	if err != nil || !ok {
		return nil, value.Value{}, false, err
	}
	entry, err := kv.DecodeIndexEntry(v)
	if err != nil {
		return nil, value.Value{}, false, err
	}
	return indexkey.RawKey(k), entry.PK, true, nil
}

func (s *secondaryIndexStream) Close() { s.rc.Close() }

// indexRangeStream performs a bounded raw-key range traversal over a
// non-PK index (spec §4.6 "IndexRange").
type indexRangeStream struct {
	dir indexkey.Direction
	rc  *rangeCursor
}

func newIndexRangeStream(tx kv.Tx, a planner.IndexRangeAccess, dir indexkey.Direction) (*indexRangeStream, error) {
	env, err := indexIDEnvelope(a.IndexID, a.Envelope)
	if err != nil {
		return nil, err
	}
	rc, err := newRangeCursor(tx, kv.TableIndex, env, dir)
	if err != nil {
		return nil, err
	}
	return &indexRangeStream{dir: dir, rc: rc}, nil
}

// indexIDEnvelope confines access to one index's own key-prefix region
// within the shared TableIndex region, intersected with any envelope the
// access path itself already carries - the same confinement
// secondaryIndexStream builds inline, factored out here because, unlike
// a point lookup's single fixed prefix, a range access may leave one
// side of its own envelope Unbounded and would otherwise walk straight
// into the lexicographically adjacent index.
func indexIDEnvelope(indexID string, access indexkey.Envelope) (indexkey.Envelope, error) {
	prefix, err := indexkey.EncodePrefix(indexkey.KindUser, indexID, nil)
	if err != nil {
		return indexkey.Envelope{}, err
	}
	env := indexkey.Envelope{Lower: indexkey.IncludedBound(prefix)}
	if upper, ok := indexkey.PrefixUpperBound(prefix); ok {
		env.Upper = indexkey.ExcludedBound(upper)
	}
	return intersectEnvelope(env, access), nil
}

func (s *indexRangeStream) Direction() indexkey.Direction { return s.dir }

func (s *indexRangeStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	k, v, ok, err := s.rc.next()
	if err != nil || !ok {
		return nil, value.Value{}, false, err
	}
	entry, err := kv.DecodeIndexEntry(v)
	if err != nil {
		return nil, value.Value{}, false, err
	}
	return indexkey.RawKey(k), entry.PK, true, nil
}

func (s *indexRangeStream) Close() { s.rc.Close() }
