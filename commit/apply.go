package commit

import (
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/reverseindex"
)

// Apply performs the mechanical apply phase for ops: each op's forward-
// index deletes/puts, then its reverse-index deletes/puts, then the
// data-row mutation, in that order (spec §11 "mechanical apply"). Every
// step here is idempotent (Put overwrites, Delete is a no-op if already
// absent), which is what lets recovery safely replay a marker's full op
// list without knowing how far apply had gotten before the crash.
func Apply(tx kv.RwTx, ops []RowOp) error {
	for _, op := range ops {
		if err := applyOp(tx, op); err != nil {
			return err
		}
	}
	return nil
}

// applyOp mutates index entries before the data row (spec §11 "Apply:
// index mutations first (create/remove/move), then data store write or
// delete"), so a crash between the two always leaves the data row as
// the authoritative pre-mutation state for recovery's re-derivation.
func applyOp(tx kv.RwTx, op RowOp) error {
	idx := kv.NewRwIndexStore(tx)
	for _, d := range op.IndexDeletes {
		if err := idx.Delete(d); err != nil {
			return err
		}
	}
	for _, p := range op.IndexPuts {
		if err := idx.Put(p.Key, p.Entry); err != nil {
			return err
		}
	}
	for _, e := range op.ReverseDeletes {
		if err := reverseindex.Remove(idx, e); err != nil {
			return err
		}
	}
	for _, e := range op.ReversePuts {
		if err := reverseindex.Put(idx, e); err != nil {
			return err
		}
	}

	data := kv.NewRwDataStore(tx)
	if op.After == nil {
		return data.Delete(op.Entity, op.PK)
	}
	return data.Put(op.Entity, op.PK, op.After)
}

// Invert returns the row-op that undoes op: a put's reverse is a
// delete at the same key and vice versa, with the before/after row
// bytes swapped. It is used only by recovery to roll back the ops it
// has already re-applied this attempt when a later op in the same
// marker fails to re-prepare (spec §4.9 step 3 "on prepare failure
// mid-replay, roll back in reverse order").
func Invert(op RowOp) RowOp {
	inv := RowOp{Entity: op.Entity, PK: op.PK, Before: op.After, After: op.Before}
	for _, p := range op.IndexPuts {
		inv.IndexDeletes = append(inv.IndexDeletes, p.Key)
	}
	for _, k := range op.IndexDeletes {
		inv.IndexPuts = append(inv.IndexPuts, IndexPut{Key: k, Entry: kv.RawIndexEntry{PK: op.PK}})
	}
	inv.ReverseDeletes = append(inv.ReverseDeletes, op.ReversePuts...)
	inv.ReversePuts = append(inv.ReversePuts, op.ReverseDeletes...)
	return inv
}
