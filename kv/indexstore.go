package kv

import (
	"github.com/dragginzgame/icydb-core/indexkey"
)

// IndexStore adapts a Tx to raw index-key lookups (spec C4): raw
// IndexKey bytes -> RawIndexEntry bytes, scoped to the single shared
// TableIndex region (index_id is embedded in every raw key's prefix, so
// one table region serves every declared index).
type IndexStore struct {
	tx Tx
}

// NewIndexStore wraps tx for index-key access.
func NewIndexStore(tx Tx) IndexStore { return IndexStore{tx: tx} }

// Get looks up the entry stored at raw, decoding it via DecodeIndexEntry.
func (s IndexStore) Get(raw indexkey.RawKey) (RawIndexEntry, bool, error) {
	val, found, err := s.tx.Get(TableIndex, raw)
	if err != nil || !found {
		return RawIndexEntry{}, found, err
	}
	entry, err := DecodeIndexEntry(val)
	if err != nil {
		return RawIndexEntry{}, false, err
	}
	return entry, true, nil
}

// CountPrefix counts entries whose raw key starts with prefix, stopping
// as soon as it has counted limit+1 of them. It is the cardinality guard
// behind unique-index enforcement (spec C4 "unique-entry cardinality
// guard", spec.md §3.1 "fail-closed on cardinality > 1"): the preflight
// prepare phase calls this with the component-tuple prefix (everything
// but the trailing PK) and limit=1 before admitting a write to a unique
// index, and the SecondaryIndex access stream calls it the same way at
// read time to fail closed on corruption instead of silently returning
// the first match.
func (s IndexStore) CountPrefix(prefix []byte, limit int) (int, error) {
	cur, err := s.tx.Cursor(TableIndex)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	count := 0
	k, _, err := cur.Seek(prefix)
	for err == nil && k != nil && hasPrefix(k, prefix) {
		count++
		if count > limit {
			break
		}
		k, _, err = cur.Next()
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func hasPrefix(b, prefix []byte) bool {
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

// PrefixUpperBound is re-exported from indexkey for callers that only
// import kv (spec C5 "strict excluded resume" needs this at both the
// planner/lowering layer and the cardinality-guard layer in this file).
func PrefixUpperBound(prefix []byte) ([]byte, bool) {
	return indexkey.PrefixUpperBound(prefix)
}

// RwIndexStore is the mutable counterpart of IndexStore, used only by the
// commit package's apply phase.
type RwIndexStore struct {
	IndexStore
	rw RwTx
}

// NewRwIndexStore wraps an RwTx for index-key mutation.
func NewRwIndexStore(rw RwTx) RwIndexStore {
	return RwIndexStore{IndexStore: NewIndexStore(rw), rw: rw}
}

// Put writes entry at raw, overwriting any existing entry.
func (s RwIndexStore) Put(raw indexkey.RawKey, entry RawIndexEntry) error {
	val, err := EncodeIndexEntry(entry)
	if err != nil {
		return err
	}
	return s.rw.Put(TableIndex, raw, val)
}

// Delete removes the entry at raw, a no-op if absent.
func (s RwIndexStore) Delete(raw indexkey.RawKey) error {
	return s.rw.Delete(TableIndex, raw)
}
