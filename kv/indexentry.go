package kv

import (
	"github.com/ugorji/go/codec"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

// maxIndexEntryBytes bounds how large a decoded index entry value is
// allowed to be. The primary key component dominates this (a Decimal PK
// alone can run to ~90 bytes); the default leaves generous headroom for
// that plus the fingerprint without letting a corrupted length-prefixed
// Tag run an unbounded allocation. Configurable (spec §5 "Configurable
// bounds: max index entry bytes"), see SetIndexEntryLimit.
var maxIndexEntryBytes = 4096

// SetIndexEntryLimit overrides the max index entry byte bound. Callers
// apply this once at startup, before any index entry is encoded or
// decoded (config.Apply).
func SetIndexEntryLimit(n int) {
	maxIndexEntryBytes = n
}

var cborHandle = &codec.CborHandle{}

// RawIndexEntry is the value stored at a raw IndexKey (spec §9 "Indexes:
// raw IndexKey bytes -> RawIndexEntry bytes"). PK echoes the key's own
// trailing PK component as a decode-time sanity check; Fingerprint is a
// diagnostic tag over the source row, carried for observability only -
// correctness of lookups never depends on it (spec.md §9).
type RawIndexEntry struct {
	PK          value.Value
	Fingerprint [16]byte
}

// wireIndexEntry is the CBOR-friendly projection of RawIndexEntry: the PK
// is stored pre-encoded to its canonical component bytes so decode can
// validate it against the key without re-threading family information
// through the codec.
type wireIndexEntry struct {
	PK          []byte
	Fingerprint []byte
}

// EncodeIndexEntry renders entry to bytes for storage.
func EncodeIndexEntry(entry RawIndexEntry) ([]byte, error) {
	pkBytes, err := indexkey.EncodeComponent(entry.PK)
	if err != nil {
		return nil, icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginIndex, "encoding index entry PK", err)
	}
	w := wireIndexEntry{PK: pkBytes, Fingerprint: entry.Fingerprint[:]}
	var out []byte
	if err := codec.NewEncoderBytes(&out, cborHandle).Encode(w); err != nil {
		return nil, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginIndex, "cbor-encoding index entry", err)
	}
	if len(out) > maxIndexEntryBytes {
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginIndex, "encoded index entry exceeds size bound")
	}
	return out, nil
}

// DecodeIndexEntry reverses EncodeIndexEntry, rejecting any payload past
// the size bound before it is handed to the CBOR decoder (spec C4
// "bounded-size decode") - an oversized or corrupted length prefix must
// fail fast rather than attempt an unbounded allocation.
func DecodeIndexEntry(raw []byte) (RawIndexEntry, error) {
	if len(raw) > maxIndexEntryBytes {
		return RawIndexEntry{}, icyerr.New(icyerr.ClassCorruption, icyerr.OriginIndex, "index entry exceeds size bound")
	}
	var w wireIndexEntry
	if err := codec.NewDecoderBytes(raw, cborHandle).Decode(&w); err != nil {
		return RawIndexEntry{}, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginIndex, "cbor-decoding index entry", err)
	}
	pk, rest, err := indexkey.DecodeComponent(w.PK)
	if err != nil {
		return RawIndexEntry{}, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginIndex, "decoding index entry PK", err)
	}
	if len(rest) != 0 {
		return RawIndexEntry{}, icyerr.New(icyerr.ClassCorruption, icyerr.OriginIndex, "trailing bytes after index entry PK")
	}
	var fp [16]byte
	copy(fp[:], w.Fingerprint)
	return RawIndexEntry{PK: pk, Fingerprint: fp}, nil
}
