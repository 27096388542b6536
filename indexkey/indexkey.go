// Package indexkey implements the canonical IndexKey codec (spec §3, §4.1):
// a bijection between (kind, index_id, components..., primary_key) tuples
// and raw bytes, built so that byte-lexicographic order of the encoded
// bytes always equals the tuple order of canonical component values, with
// the primary key as the final tie-break.
package indexkey

import (
	"strconv"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// KeyKind distinguishes user-visible indexes from system-namespace ones
// (the reverse-relation index lives in System; spec §3 "Index").
type KeyKind uint8

const (
	KindUser KeyKind = iota
	KindSystem
)

func (k KeyKind) String() string {
	if k == KindSystem {
		return "System"
	}
	return "User"
}

// IndexKey is the logical tuple (kind, index_id, components, primary_key).
// Arity is len(Components); it must equal the owning index's declared
// arity (spec §3 "Index").
type IndexKey struct {
	Kind       KeyKind
	IndexID    string
	Components []value.Value
	PK         value.Value
}

// RawKey is the encoded byte form of an IndexKey (GLOSSARY "Raw key").
// Its only contract is that bytes.Compare on two RawKeys equals the
// tuple-order comparison of the IndexKeys they were encoded from.
type RawKey []byte

// Arity reports the number of non-PK components.
func (k IndexKey) Arity() int { return len(k.Components) }

func familyMismatch(pos int, want, got value.Family) error {
	return icyerr.New(icyerr.ClassCorruption, icyerr.OriginIndex,
		"decoded value family does not match expected position").
		WithDetail(posDetail(pos, want, got))
}

func posDetail(pos int, want, got value.Family) string {
	return "position=" + strconv.Itoa(pos) + " want=" + want.String() + " got=" + got.String()
}
