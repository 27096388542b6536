package kv

import (
	"bytes"

	"github.com/dragginzgame/icydb-core/indexkey"
)

// Scan drives a Cursor over table across envelope in the given direction,
// calling visit for each (key, value) pair until visit returns false,
// envelope is exhausted, or an error occurs. It is the kv-side half of
// C5: indexkey.Envelope/Bound/ApplyAnchor define the range algebra,
// Scan is what actually walks a Cursor according to it (spec §4.2).
func Scan(tx Tx, table Table, env indexkey.Envelope, dir indexkey.Direction, visit func(k, v []byte) (more bool, err error)) error {
	if env.IsEmpty() {
		return nil
	}
	cur, err := tx.Cursor(table)
	if err != nil {
		return err
	}
	defer cur.Close()

	var k, v []byte
	if dir == indexkey.Asc {
		k, v, err = seekLower(cur, env.Lower)
	} else {
		k, v, err = seekUpper(cur, env.Upper)
	}
	if err != nil {
		return err
	}

	for k != nil {
		if !env.Contains(k) {
			break
		}
		more, err := visit(k, v)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if dir == indexkey.Asc {
			k, v, err = cur.Next()
		} else {
			k, v, err = cur.Prev()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SeekEnvelopeStart positions cur at the first key a traversal of env in
// direction dir would visit, the same entry point Scan uses internally.
// It is exported so callers that need pull-based iteration (the
// executor's AccessStream, which cannot use Scan's push-style visit
// callback) can drive a Cursor across an Envelope without re-deriving
// this positioning logic.
func SeekEnvelopeStart(cur Cursor, env indexkey.Envelope, dir indexkey.Direction) ([]byte, []byte, error) {
	if dir == indexkey.Asc {
		return seekLower(cur, env.Lower)
	}
	return seekUpper(cur, env.Upper)
}

// seekLower positions cur at the first key satisfying an ascending scan's
// lower bound.
func seekLower(cur Cursor, lower indexkey.Bound) ([]byte, []byte, error) {
	switch lower.Kind {
	case indexkey.Unbounded:
		return cur.First()
	case indexkey.Included:
		return cur.Seek(lower.Key)
	default: // Excluded
		k, v, err := cur.Seek(lower.Key)
		if err != nil || k == nil {
			return k, v, err
		}
		if bytes.Equal(k, lower.Key) {
			return cur.Next()
		}
		return k, v, nil
	}
}

// seekUpper positions cur at the first key satisfying a descending scan's
// upper bound, i.e. the last key <= (or <) the upper bound.
func seekUpper(cur Cursor, upper indexkey.Bound) ([]byte, []byte, error) {
	switch upper.Kind {
	case indexkey.Unbounded:
		return cur.Last()
	case indexkey.Included:
		return seekLastLessEqual(cur, upper.Key, true)
	default: // Excluded
		return seekLastLessEqual(cur, upper.Key, false)
	}
}

// seekLastLessEqual finds the last key <= bound (inclusive=true) or < bound
// (inclusive=false) by seeking to the first key >= bound and stepping back
// one, since Cursor has no native "seek for less-than" primitive.
func seekLastLessEqual(cur Cursor, bound []byte, inclusive bool) ([]byte, []byte, error) {
	k, v, err := cur.Seek(bound)
	if err != nil {
		return nil, nil, err
	}
	if k == nil {
		return cur.Last()
	}
	if bytes.Equal(k, bound) {
		if inclusive {
			return k, v, nil
		}
		return cur.Prev()
	}
	// Seek landed strictly after bound; step back one.
	return cur.Prev()
}
