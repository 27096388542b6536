package kv

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// DataNamespacePrefix returns the fixed-length namespace tag that leads
// every DataKey for namespace, with no PK component following it. It is
// the PkRange access stream's envelope prefix (spec C10 "PkRange: range
// scan on the entity's PK namespace"): bounding a scan to
// [prefix, PrefixUpperBound(prefix)) confines it to one entity's rows
// without ever touching another entity's data-table keys.
func DataNamespacePrefix(namespace string) []byte {
	out := make([]byte, 0, len(namespace)+1)
	out = append(out, byte(len(namespace)))
	return append(out, namespace...)
}

// DataStore adapts a Tx/RwTx to entity row storage: namespace-tagged
// primary key -> opaque row bytes (spec C3, spec.md §3.1 "Entity"). The
// row's content is never interpreted here; decoding and the identity
// invariant (decoded PK == storage key) are the caller's (session's)
// responsibility.
type DataStore struct {
	tx Tx
}

// NewDataStore wraps tx for entity-row access.
func NewDataStore(tx Tx) DataStore { return DataStore{tx: tx} }

// DataKey builds the canonical data-table key for (namespace, pk): the
// namespace tag length-framed, followed by pk's canonical component
// encoding, so that a PkRange access stream can scan this table in PK
// order without re-deriving a separate ordering scheme.
func DataKey(namespace string, pk value.Value) ([]byte, error) {
	pkBytes, err := indexkey.EncodeComponent(pk)
	if err != nil {
		return nil, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginStore, "encoding primary key for data row", err)
	}
	out := make([]byte, 0, len(namespace)+1+len(pkBytes))
	out = append(out, byte(len(namespace)))
	out = append(out, namespace...)
	out = append(out, pkBytes...)
	return out, nil
}

// Get reads the opaque row stored at (namespace, pk).
func (d DataStore) Get(namespace string, pk value.Value) (row []byte, found bool, err error) {
	key, err := DataKey(namespace, pk)
	if err != nil {
		return nil, false, err
	}
	return d.tx.Get(TableData, key)
}

// Has reports whether an entity row exists at (namespace, pk).
func (d DataStore) Has(namespace string, pk value.Value) (bool, error) {
	key, err := DataKey(namespace, pk)
	if err != nil {
		return false, err
	}
	return d.tx.Has(TableData, key)
}

// maxRowBytes bounds the size of one entity row's encoded bytes (spec
// §5 "Configurable bounds: max row bytes"). Configurable, see
// SetRowLimit.
var maxRowBytes = 1 << 20

// SetRowLimit overrides the max row byte bound. Callers apply this once
// at startup, before any row is written (config.Apply).
func SetRowLimit(n int) {
	maxRowBytes = n
}

// RwDataStore is the mutable counterpart of DataStore, used only inside
// the commit package's apply phase (spec §11) - never directly by
// session, which must always go through the commit protocol.
type RwDataStore struct {
	DataStore
	rw RwTx
}

// NewRwDataStore wraps an RwTx for entity-row mutation.
func NewRwDataStore(rw RwTx) RwDataStore {
	return RwDataStore{DataStore: NewDataStore(rw), rw: rw}
}

// Put writes row at (namespace, pk), overwriting any existing row.
// Exceeding the configured row-byte bound is a classified error, never
// a silent truncation (spec §5).
func (d RwDataStore) Put(namespace string, pk value.Value, row []byte) error {
	if len(row) > maxRowBytes {
		return icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginStore, "encoded row exceeds size bound").
			WithDetail("entity=" + namespace)
	}
	key, err := DataKey(namespace, pk)
	if err != nil {
		return err
	}
	return d.rw.Put(TableData, key, row)
}

// Delete removes the row at (namespace, pk), a no-op if absent.
func (d RwDataStore) Delete(namespace string, pk value.Value) error {
	key, err := DataKey(namespace, pk)
	if err != nil {
		return err
	}
	return d.rw.Delete(TableData, key)
}
