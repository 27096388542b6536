package executor

import (
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
)

// rangeCursor is a pull-based walk of one table across an envelope,
// built on the same positioning logic kv.Scan drives (kv.SeekEnvelopeStart)
// but exposed as a Next()-at-a-time iterator rather than a push-style
// visit callback, since AccessStream.Next() is pull-based.
type rangeCursor struct {
	cur     kv.Cursor
	env     indexkey.Envelope
	dir     indexkey.Direction
	started bool
	done    bool
}

func newRangeCursor(tx kv.Tx, table kv.Table, env indexkey.Envelope, dir indexkey.Direction) (*rangeCursor, error) {
	if env.IsEmpty() {
		return &rangeCursor{done: true}, nil
	}
	cur, err := tx.Cursor(table)
	if err != nil {
		return nil, err
	}
	return &rangeCursor{cur: cur, env: env, dir: dir}, nil
}

func (r *rangeCursor) next() (k, v []byte, ok bool, err error) {
	if r.done {
		return nil, nil, false, nil
	}
	if !r.started {
		r.started = true
		k, v, err = kv.SeekEnvelopeStart(r.cur, r.env, r.dir)
	} else if r.dir == indexkey.Asc {
		k, v, err = r.cur.Next()
	} else {
		k, v, err = r.cur.Prev()
	}
	if err != nil {
		return nil, nil, false, err
	}
	if k == nil || !r.env.Contains(k) {
		r.done = true
		return nil, nil, false, nil
	}
	return k, v, true, nil
}

func (r *rangeCursor) Close() {
	if r.cur != nil {
		r.cur.Close()
	}
}
