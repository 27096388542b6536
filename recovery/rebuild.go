package recovery

import (
	"github.com/ledgerwatch/log/v3"

	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type indexSnapshotEntry struct {
	Key   indexkey.RawKey
	Entry kv.RawIndexEntry
}

func indexKindFor(k schema.IndexKind) indexkey.KeyKind {
	if k == schema.IndexSystem {
		return indexkey.KindSystem
	}
	return indexkey.KindUser
}

func bytesHasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Rebuild recomputes entity's declared secondary indexes from its
// authoritative rows (spec §4.9 "Startup rebuild (optional maintenance).
// Rebuild secondary indexes from authoritative rows with a snapshot/
// restore discipline: on rebuild failure, snapshots are restored exactly
// (fail-closed)."). It never touches the reverse-relation index or any
// other entity's rows.
func Rebuild(store kv.Store, entity schema.EntityDescriptor, codec executor.Codec) error {
	snapshot, err := snapshotIndexes(store, entity)
	if err != nil {
		return err
	}

	log.Info("[recovery] rebuilding indexes", "entity", entity.Name, "snapshot_entries", len(snapshot))

	if rebuildErr := store.Update(func(tx kv.RwTx) error {
		return rebuildIndexes(tx, entity, codec, snapshot)
	}); rebuildErr != nil {
		if restoreErr := restoreSnapshot(store, entity, snapshot); restoreErr != nil {
			return icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginRecovery,
				"restoring index snapshot after failed rebuild", restoreErr)
		}
		return icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginRecovery,
			"index rebuild failed, snapshot restored", rebuildErr)
	}

	return nil
}

func snapshotIndexes(store kv.Store, entity schema.EntityDescriptor) ([]indexSnapshotEntry, error) {
	var snapshot []indexSnapshotEntry
	err := store.View(func(tx kv.Tx) error {
		for _, ix := range entity.Indexes {
			prefix, err := indexkey.EncodePrefix(indexKindFor(ix.Kind), ix.ID, nil)
			if err != nil {
				return err
			}
			entries, err := scanIndexPrefix(tx, prefix)
			if err != nil {
				return err
			}
			snapshot = append(snapshot, entries...)
		}
		return nil
	})
	return snapshot, err
}

func scanIndexPrefix(tx kv.Tx, prefix []byte) ([]indexSnapshotEntry, error) {
	cur, err := tx.Cursor(kv.TableIndex)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []indexSnapshotEntry
	k, v, err := cur.Seek(prefix)
	for err == nil && k != nil && bytesHasPrefix(k, prefix) {
		entry, derr := kv.DecodeIndexEntry(v)
		if derr != nil {
			return nil, derr
		}
		out = append(out, indexSnapshotEntry{Key: append(indexkey.RawKey(nil), k...), Entry: entry})
		k, v, err = cur.Next()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rebuildIndexes clears every entry under entity's declared index ids
// and repopulates them by scanning entity's data rows.
func rebuildIndexes(tx kv.RwTx, entity schema.EntityDescriptor, codec executor.Codec, snapshot []indexSnapshotEntry) error {
	idx := kv.NewRwIndexStore(tx)
	for _, se := range snapshot {
		if err := idx.Delete(se.Key); err != nil {
			return err
		}
	}

	cur, err := tx.Cursor(kv.TableData)
	if err != nil {
		return err
	}
	defer cur.Close()

	prefix := kv.DataNamespacePrefix(entity.Name)
	k, v, err := cur.Seek(prefix)
	for err == nil && k != nil && bytesHasPrefix(k, prefix) {
		rec, derr := codec.Decode(v)
		if derr != nil {
			return derr
		}
		for _, ix := range entity.Indexes {
			raw, ok, cerr := rowIndexKey(ix, rec)
			if cerr != nil {
				return cerr
			}
			if !ok {
				continue
			}
			if err := idx.Put(raw, kv.RawIndexEntry{PK: rec.PK()}); err != nil {
				return err
			}
		}
		k, v, err = cur.Next()
	}
	return err
}

func rowIndexKey(ix schema.IndexDescriptor, rec executor.Record) (indexkey.RawKey, bool, error) {
	comps := make([]value.Value, len(ix.Components))
	for i, f := range ix.Components {
		v, ok := rec.Field(f.Name)
		if !ok {
			return nil, false, nil
		}
		comps[i] = v
	}
	k, err := indexkey.EncodeKey(indexkey.IndexKey{Kind: indexKindFor(ix.Kind), IndexID: ix.ID, Components: comps, PK: rec.PK()})
	if err != nil {
		return nil, false, err
	}
	return k, true, nil
}

// restoreSnapshot clears every entry currently under entity's declared
// index ids and puts back exactly what snapshotIndexes observed,
// restoring the pre-rebuild state byte-for-byte.
func restoreSnapshot(store kv.Store, entity schema.EntityDescriptor, snapshot []indexSnapshotEntry) error {
	return store.Update(func(tx kv.RwTx) error {
		idx := kv.NewRwIndexStore(tx)
		for _, ix := range entity.Indexes {
			prefix, err := indexkey.EncodePrefix(indexKindFor(ix.Kind), ix.ID, nil)
			if err != nil {
				return err
			}
			current, err := scanIndexPrefix(tx, prefix)
			if err != nil {
				return err
			}
			for _, se := range current {
				if err := idx.Delete(se.Key); err != nil {
					return err
				}
			}
		}
		for _, se := range snapshot {
			if err := idx.Put(se.Key, se.Entry); err != nil {
				return err
			}
		}
		return nil
	})
}
