package commit

import (
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/reverseindex"
	"github.com/dragginzgame/icydb-core/value"
)

// SaveMode selects the identity discipline PreparePut enforces against
// any row already at the PK (spec.md §3.1 "save modes").
type SaveMode uint8

const (
	// Insert fails if a row already exists at the PK.
	Insert SaveMode = iota
	// Update fails if no row exists at the PK yet.
	Update
	// Replace accepts either case.
	Replace
)

// Lane selects how a batch of row-ops reaches the host map (spec.md
// §3.1 "lanes").
type Lane uint8

const (
	// Single commits exactly one row-op as its own marker.
	Single Lane = iota
	// BatchAtomic commits every row-op in the batch under one marker and
	// applies them within a single host transaction: either all of them
	// land, or (on a crash before that transaction commits) none do and
	// recovery replays the whole batch from the marker.
	BatchAtomic
	// BatchNonAtomic commits the row-ops in the batch one at a time, each
	// under its own marker and host transaction: a crash mid-batch leaves
	// the already-committed prefix in place, and recovery replays only the
	// marker of the op that was in flight.
	BatchNonAtomic
)

// IndexPut pairs a raw index key with the entry to store at it.
type IndexPut struct {
	Key   indexkey.RawKey
	Entry kv.RawIndexEntry
}

// RowOp is one prepared row mutation: the data-row change plus every
// forward-index and reverse-index side effect it implies (spec §3
// "Commit marker: ordered list of row-ops, each {entity, key, before,
// after}"). Before and After are the encoded row bytes; at most one may
// be nil (insert has no Before, delete has no After, update has both -
// never neither).
type RowOp struct {
	Entity string
	PK     value.Value
	Before []byte
	After  []byte

	IndexDeletes []indexkey.RawKey
	IndexPuts    []IndexPut

	ReverseDeletes []reverseindex.Edge
	ReversePuts    []reverseindex.Edge
}
