package commit

import (
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/reverseindex"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// PreparePut builds the prepared row-op for saving rec under mode,
// running every preflight check before any mutation is applied (spec
// §11 "preflight prepare": identity discipline, unique-constraint
// cardinality, and every derived index op are all validated before a
// marker is ever written).
func PreparePut(tx kv.Tx, entity schema.EntityDescriptor, codec executor.Codec, rec executor.Record, mode SaveMode) (RowOp, error) {
	pk := rec.PK()
	beforeRow, found, err := kv.NewDataStore(tx).Get(entity.Name, pk)
	if err != nil {
		return RowOp{}, err
	}
	if mode == Insert && found {
		return RowOp{}, icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginCommit, "insert target already exists").
			WithDetail("entity=" + entity.Name)
	}
	if mode == Update && !found {
		return RowOp{}, icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginCommit, "update target does not exist").
			WithDetail("entity=" + entity.Name)
	}

	var before executor.Record
	if found {
		before, err = codec.Decode(beforeRow)
		if err != nil {
			return RowOp{}, err
		}
	}

	after, err := codec.Encode(rec)
	if err != nil {
		return RowOp{}, err
	}

	op := RowOp{Entity: entity.Name, PK: pk, After: after}
	if found {
		op.Before = beforeRow
	}

	if err := deriveIndexOps(tx, entity, before, rec, &op, true); err != nil {
		return RowOp{}, err
	}

	adds, removes, err := reverseindex.Deltas(entity, before, rec)
	if err != nil {
		return RowOp{}, err
	}
	op.ReversePuts = adds
	op.ReverseDeletes = removes

	return op, nil
}

// PrepareDelete builds the prepared row-op for deleting the row at pk,
// or reports ok=false if there is nothing to delete. It enforces the
// strong-relation delete-block gate (spec C14): a row with live
// incoming strong references cannot be deleted.
func PrepareDelete(tx kv.Tx, entity schema.EntityDescriptor, codec executor.Codec, pk value.Value) (op RowOp, ok bool, err error) {
	beforeRow, found, err := kv.NewDataStore(tx).Get(entity.Name, pk)
	if err != nil || !found {
		return RowOp{}, false, err
	}
	before, err := codec.Decode(beforeRow)
	if err != nil {
		return RowOp{}, false, err
	}

	blocked, err := reverseindex.HasReferences(tx, entity.Name, pk)
	if err != nil {
		return RowOp{}, false, err
	}
	if blocked {
		return RowOp{}, false, icyerr.New(icyerr.ClassUnsupported, icyerr.OriginCommit, "delete target has live strong references").
			WithDetail("entity=" + entity.Name)
	}

	op = RowOp{Entity: entity.Name, PK: pk, Before: beforeRow}
	if err := deriveIndexOps(tx, entity, before, nil, &op, true); err != nil {
		return RowOp{}, false, err
	}
	adds, removes, err := reverseindex.Deltas(entity, before, nil)
	if err != nil {
		return RowOp{}, false, err
	}
	op.ReversePuts = adds
	op.ReverseDeletes = removes

	return op, true, nil
}

// Rederive rebuilds the prepared row-op for a marker entry during
// recovery replay, from the entity's declared shape and the marker's
// own before/after row bytes (spec §4.9 step 2: "re-prepare each row-op
// through the same prepare path used by normal execution"). Unlike
// PreparePut/PrepareDelete it performs no identity-mode check and no
// unique-constraint cardinality check: both would spuriously fail
// against a partially-applied crash state (a unique index's new entry
// may already be live from the attempt that crashed), and neither check
// is a structural part of deriving which index keys a given before/after
// pair implies - cardinality was already enforced once, at the original
// commit's preflight.
func Rederive(entity schema.EntityDescriptor, codec executor.Codec, pk value.Value, beforeBytes, afterBytes []byte) (RowOp, error) {
	var before, after executor.Record
	var err error
	if beforeBytes != nil {
		before, err = codec.Decode(beforeBytes)
		if err != nil {
			return RowOp{}, err
		}
	}
	if afterBytes != nil {
		after, err = codec.Decode(afterBytes)
		if err != nil {
			return RowOp{}, err
		}
	}

	op := RowOp{Entity: entity.Name, PK: pk, Before: beforeBytes, After: afterBytes}
	if err := deriveIndexOps(nil, entity, before, after, &op, false); err != nil {
		return RowOp{}, err
	}
	adds, removes, err := reverseindex.Deltas(entity, before, after)
	if err != nil {
		return RowOp{}, err
	}
	op.ReversePuts = adds
	op.ReverseDeletes = removes

	return op, nil
}

// deriveIndexOps computes the forward index-key deletes/puts a mutation
// from before to after implies, checking unique-index cardinality for
// every new component tuple before admitting it (spec.md §3.1 "unique
// violation" is rejected at preflight, never discovered at apply time).
// after is nil on delete; before is nil on insert.
func deriveIndexOps(tx kv.Tx, entity schema.EntityDescriptor, before, after executor.Record, op *RowOp, checkUnique bool) error {
	for _, ix := range entity.Indexes {
		var oldKey indexkey.RawKey
		var haveOld bool
		if before != nil {
			k, ok, err := indexKeyFor(ix, before, op.PK)
			if err != nil {
				return err
			}
			oldKey, haveOld = k, ok
		}

		var newKey indexkey.RawKey
		var haveNew bool
		if after != nil {
			k, ok, err := indexKeyFor(ix, after, op.PK)
			if err != nil {
				return err
			}
			newKey, haveNew = k, ok
		}

		if haveOld && haveNew && string(oldKey) == string(newKey) {
			continue
		}
		if haveOld {
			op.IndexDeletes = append(op.IndexDeletes, oldKey)
		}
		if haveNew {
			if ix.Unique && checkUnique {
				prefix, err := indexComponentPrefix(ix, after)
				if err != nil {
					return err
				}
				// Any entry already under this prefix belongs to a
				// different row: this row's own prior entry, if one
				// exists, sits under oldKey's prefix, which was just
				// handled above and would have short-circuited via the
				// oldKey == newKey check if it were the same prefix.
				count, err := kv.NewIndexStore(tx).CountPrefix(prefix, 1)
				if err != nil {
					return err
				}
				if count > 0 {
					return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginCommit, "unique index violation").
						WithDetail("entity=" + entity.Name + " index=" + ix.ID)
				}
			}
			op.IndexPuts = append(op.IndexPuts, IndexPut{Key: newKey, Entry: kv.RawIndexEntry{PK: op.PK}})
		}
	}
	return nil
}

func indexKind(k schema.IndexKind) indexkey.KeyKind {
	if k == schema.IndexSystem {
		return indexkey.KindSystem
	}
	return indexkey.KindUser
}

func indexComponents(ix schema.IndexDescriptor, rec executor.Record) ([]value.Value, bool, error) {
	comps := make([]value.Value, len(ix.Components))
	for i, f := range ix.Components {
		v, ok := rec.Field(f.Name)
		if !ok {
			return nil, false, nil
		}
		comps[i] = v
	}
	return comps, true, nil
}

func indexKeyFor(ix schema.IndexDescriptor, rec executor.Record, pk value.Value) (indexkey.RawKey, bool, error) {
	comps, ok, err := indexComponents(ix, rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	k, err := indexkey.EncodeKey(indexkey.IndexKey{Kind: indexKind(ix.Kind), IndexID: ix.ID, Components: comps, PK: pk})
	if err != nil {
		return nil, false, err
	}
	return k, true, nil
}

func indexComponentPrefix(ix schema.IndexDescriptor, rec executor.Record) ([]byte, error) {
	comps, ok, err := indexComponents(ix, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginCommit, "index component missing during unique preflight").
			WithDetail("index=" + ix.ID)
	}
	return indexkey.EncodePrefix(indexKind(ix.Kind), ix.ID, comps)
}
