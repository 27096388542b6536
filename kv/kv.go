// Package kv defines the host stable-memory map contract the storage
// engine is built against (spec §2 "Host stable-memory map"), plus the
// Data and Index store adapters layered on top of it (spec C3, C4).
//
// The engine never talks to a concrete backend directly: every package
// above this one depends only on Getter/Putter/Deleter/Cursor, the same
// narrow surface erigon-lib's kv package exposes over mdbx. Swapping the
// backing map (in-memory for tests, something durable in production)
// never touches engine code.
package kv

// Table names the three stable-memory regions the engine owns: data,
// index (spec §2) and the engine's own meta table. All three are
// namespaced maps of []byte -> []byte; the engine imposes all
// further structure (row vs. index-key framing) on top.
type Table string

const (
	// TableData holds primary-key -> encoded-entity rows (spec C3).
	TableData Table = "data"
	// TableIndex holds index-key -> primary-key (or postings) entries
	// (spec C4).
	TableIndex Table = "index"
	// TableMeta holds the engine's own bookkeeping keys, currently just
	// the commit marker (spec §11 "a single well-known key -> bounded
	// CBOR-like binary"). It is never exposed to query/planner code.
	TableMeta Table = "meta"
)

// MarkerKey is the single well-known key the commit package's marker
// lives at within TableMeta.
var MarkerKey = []byte("commit_marker")

// Getter is the read-only half of the host map contract.
type Getter interface {
	// Has reports whether key exists in table.
	Has(table Table, key []byte) (bool, error)
	// Get returns the value stored at key, and false if absent. The
	// returned slice must not be retained past the enclosing Tx.
	Get(table Table, key []byte) (val []byte, found bool, err error)
}

// Putter is the write half of the host map contract.
type Putter interface {
	Put(table Table, key, val []byte) error
}

// Deleter removes entries from the host map.
type Deleter interface {
	Delete(table Table, key []byte) error
}

// Cursor walks one table in key order (spec §2 "ordered iteration"),
// mirroring erigon-lib's kv.Cursor shape: Seek positions at the first key
// >= seek, Next/Prev step in key order, Current rereads without moving.
type Cursor interface {
	Seek(seek []byte) (k, v []byte, err error)
	SeekExact(key []byte) (k, v []byte, found bool, err error)
	Next() (k, v []byte, err error)
	Prev() (k, v []byte, err error)
	First() (k, v []byte, err error)
	Last() (k, v []byte, err error)
	Current() (k, v []byte, err error)
	Close()
}

// Tx is a read-only view over the host map, scoped to one logical
// traversal (spec §2). The engine is single-threaded and cooperative: at
// most one Tx (Ro or Rw) is ever open at a time, so Tx carries no
// isolation guarantees of its own - it is a narrow handle, not an MVCC
// snapshot.
type Tx interface {
	Getter
	Cursor(table Table) (Cursor, error)
}

// RwTx is a read-write Tx (spec §2, §11 "commit window"). Mutations made
// through it are only durable once the caller has driven them through the
// commit package's prepare/begin_commit/apply/finish_commit protocol -
// RwTx itself does not know about markers or crash safety.
type RwTx interface {
	Tx
	Putter
	Deleter
}

// Store is the host map entry point: it hands out transactions, the same
// role erigon-lib's RoDB/RwDB split plays, collapsed into one interface
// since this engine never needs concurrent readers.
type Store interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx RwTx) error) error
}
