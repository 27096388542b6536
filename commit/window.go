package commit

import (
	"github.com/anacrolix/sync"
	"github.com/ledgerwatch/log/v3"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/kv"
)

// Window serializes every commit through a single logical mutex (spec
// §11 "commit window": at most one prepare/begin_commit/apply/
// finish_commit cycle is ever in flight, matching the engine's
// single-threaded, cooperative execution model). The mutex exists to
// catch a reentrant Commit call as a programming error rather than to
// arbitrate real concurrency.
type Window struct {
	store kv.Store
	mu    sync.Mutex
}

// NewWindow wraps store for commit execution.
func NewWindow(store kv.Store) *Window {
	return &Window{store: store}
}

// Commit persists ops as a marker, applies them per lane, and clears the
// marker (spec §11 "begin_commit -> apply -> finish_commit"). Single and
// BatchAtomic persist one marker spanning every op and apply them inside
// one host transaction, giving the batch all-or-nothing recovery.
// BatchNonAtomic is explicitly not transactional (spec.md "batch-non-
// atomic uses per-row markers and is explicitly not transactional"): it
// persists and clears one marker per op, so a crash mid-batch leaves
// recovery exactly one row to replay, never the rows already finished
// and never the rows not yet begun.
func (w *Window) Commit(lane Lane, ops []RowOp) error {
	if !w.mu.TryLock() {
		return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginCommit, "commit window re-entered")
	}
	defer w.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	switch lane {
	case Single, BatchAtomic:
		if err := w.beginCommit(ops); err != nil {
			return err
		}
		log.Info("[commit] applying batch", "lane", lane, "ops", len(ops))
		if err := w.store.Update(func(tx kv.RwTx) error {
			return Apply(tx, ops)
		}); err != nil {
			return icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginCommit, "applying commit batch", err)
		}
		return w.finishCommit()
	case BatchNonAtomic:
		for i, op := range ops {
			if err := w.beginCommit([]RowOp{op}); err != nil {
				return err
			}
			log.Info("[commit] applying row-op", "lane", lane, "index", i, "entity", op.Entity)
			if err := w.store.Update(func(tx kv.RwTx) error {
				return applyOp(tx, op)
			}); err != nil {
				return icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginCommit, "applying commit row-op", err)
			}
			if err := w.finishCommit(); err != nil {
				return err
			}
		}
		return nil
	default:
		return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginCommit, "unknown commit lane")
	}
}

func (w *Window) beginCommit(ops []RowOp) error {
	raw, err := EncodeMarker(Marker{Ops: ops})
	if err != nil {
		return err
	}
	if err := w.store.Update(func(tx kv.RwTx) error {
		return tx.Put(kv.TableMeta, kv.MarkerKey, raw)
	}); err != nil {
		return icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginCommit, "persisting commit marker", err)
	}
	return nil
}

func (w *Window) finishCommit() error {
	if err := w.store.Update(func(tx kv.RwTx) error {
		return tx.Delete(kv.TableMeta, kv.MarkerKey)
	}); err != nil {
		return icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginCommit, "clearing commit marker", err)
	}
	return nil
}
