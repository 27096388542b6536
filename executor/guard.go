package executor

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// guardedStream wraps an AccessStream so it can be asserted consumed
// exactly once per execution (spec §4.6 "Every lowered index spec must
// be consumed exactly once per execution; a validator asserts this at
// end of stream"): calling Next again after exhaustion is an executor
// contract violation rather than a silently-tolerated re-read, and
// Execute reports a stream that did not reach exhaustion unless its
// budget-capped scan stopped early on purpose.
type guardedStream struct {
	inner     AccessStream
	exhausted bool
	closed    bool
}

func guard(s AccessStream) *guardedStream { return &guardedStream{inner: s} }

func (g *guardedStream) Direction() indexkey.Direction { return g.inner.Direction() }

func (g *guardedStream) Next() (indexkey.RawKey, value.Value, bool, error) {
	if g.exhausted {
		return nil, value.Value{}, false, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
			"access stream consumed past exhaustion")
	}
	k, pk, ok, err := g.inner.Next()
	if err != nil {
		return nil, value.Value{}, false, err
	}
	if !ok {
		g.exhausted = true
	}
	return k, pk, ok, nil
}

// assertConsumed reports an error unless the stream reached exhaustion
// through normal iteration. Execute skips this check when a budget-capped
// scan deliberately stops short.
func (g *guardedStream) assertConsumed() error {
	if !g.exhausted {
		return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
			"access stream not fully consumed at end of execution")
	}
	return nil
}

func (g *guardedStream) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.inner.Close()
}
