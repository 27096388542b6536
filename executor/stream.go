package executor

import (
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// AccessStream produces a lazy, finite sequence of (raw_index_key,
// primary_key) pairs in a declared direction (spec §4.6). rawKey is nil
// for PK-namespace producers (PkPoint, PkRange, and composite merges),
// which have no single raw index key to anchor a continuation on.
type AccessStream interface {
	Direction() indexkey.Direction
	// Next advances the stream. ok=false with err=nil means the stream
	// is exhausted.
	Next() (rawKey indexkey.RawKey, pk value.Value, ok bool, err error)
	Close()
}
