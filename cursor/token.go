// Package cursor implements the continuation-token wire format and the
// cursor spine's compatibility gates (spec C9, §6): a versioned,
// signature-bound (via plan fingerprint) opaque token that resumes a
// paged query strictly after its anchor.
package cursor

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

const (
	VersionV1 uint8 = 1
	VersionV2 uint8 = 2
)

// BoundarySlot is one ordered order-spec value from the last emitted row
// (spec §6 "boundary_arity ... for each slot: [type_tag][length-framed
// bytes]").
type BoundarySlot struct {
	Value value.Value
}

// Anchor is the raw index-key resume point for index-range access (spec
// §6 "has_anchor ... index_id, key_kind, component_arity, raw_key").
type Anchor struct {
	IndexID        string
	KeyKind        indexkey.KeyKind
	ComponentArity int
	RawKey         indexkey.RawKey
}

// Token is the decoded continuation token payload.
type Token struct {
	Version       uint8
	Fingerprint   [16]byte
	Direction     indexkey.Direction
	InitialOffset uint64
	Boundary      []BoundarySlot
	Anchor        *Anchor
}

func invalidInput(msg string) error {
	return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginCursor, msg)
}

// Encode renders t to its opaque hex wire form (spec §6 "version ||
// payload", "Opaque hex string").
func Encode(t Token) (string, error) {
	var buf []byte
	buf = append(buf, t.Version)
	buf = append(buf, t.Fingerprint[:]...)
	buf = append(buf, byte(t.Direction))

	var offBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(offBuf[:], t.InitialOffset)
	buf = append(buf, offBuf[:n]...)

	if len(t.Boundary) > 255 {
		return "", icyerr.New(icyerr.ClassUnsupported, icyerr.OriginCursor, "boundary arity exceeds wire limit")
	}
	buf = append(buf, byte(len(t.Boundary)))
	for _, slot := range t.Boundary {
		enc, err := indexkey.EncodeComponent(slot.Value)
		if err != nil {
			return "", icyerr.Wrap(icyerr.ClassUnsupported, icyerr.OriginCursor, "encoding boundary slot", err)
		}
		buf = append(buf, enc[0]) // type_tag, mirrors the component's own leading tag byte
		var lenBuf [binary.MaxVarintLen64]byte
		ln := binary.PutUvarint(lenBuf[:], uint64(len(enc)))
		buf = append(buf, lenBuf[:ln]...)
		buf = append(buf, enc...)
	}

	if t.Anchor == nil {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		buf = appendLenFramed(buf, []byte(t.Anchor.IndexID))
		buf = append(buf, byte(t.Anchor.KeyKind))
		buf = append(buf, byte(t.Anchor.ComponentArity))
		var rkLen [4]byte
		binary.BigEndian.PutUint32(rkLen[:], uint32(len(t.Anchor.RawKey)))
		buf = append(buf, rkLen[:]...)
		buf = append(buf, t.Anchor.RawKey...)
	}

	return hex.EncodeToString(buf), nil
}

func appendLenFramed(buf, payload []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:n]...)
	return append(buf, payload...)
}

// Decode parses an opaque hex token string into a Token, rejecting
// anything that fails strict decode (spec §6 "Reject empty/odd-
// hex/invalid-hex as InvalidInput. Unsupported version -> InvalidInput").
func Decode(token string) (Token, error) {
	if len(token) == 0 {
		return Token{}, invalidInput("empty cursor token")
	}
	if len(token)%2 != 0 {
		return Token{}, invalidInput("odd-length hex cursor token")
	}
	raw, err := hex.DecodeString(token)
	if err != nil {
		return Token{}, invalidInput("invalid hex cursor token")
	}
	b := raw
	if len(b) < 1 {
		return Token{}, invalidInput("truncated cursor token")
	}
	version := b[0]
	b = b[1:]
	if version != VersionV1 && version != VersionV2 {
		return Token{}, invalidInput("unsupported cursor token version")
	}

	if len(b) < 16 {
		return Token{}, invalidInput("truncated cursor fingerprint")
	}
	var fp [16]byte
	copy(fp[:], b[:16])
	b = b[16:]

	if len(b) < 1 {
		return Token{}, invalidInput("truncated cursor direction")
	}
	dir := indexkey.Direction(b[0])
	if dir != indexkey.Asc && dir != indexkey.Desc {
		return Token{}, invalidInput("invalid cursor direction")
	}
	b = b[1:]

	var offset uint64
	if version == VersionV2 {
		off, n := binary.Uvarint(b)
		if n <= 0 {
			return Token{}, invalidInput("truncated cursor offset")
		}
		offset = off
		b = b[n:]
	}

	if len(b) < 1 {
		return Token{}, invalidInput("truncated cursor boundary arity")
	}
	arity := int(b[0])
	b = b[1:]

	boundary := make([]BoundarySlot, 0, arity)
	for i := 0; i < arity; i++ {
		if len(b) < 1 {
			return Token{}, invalidInput("truncated boundary slot tag")
		}
		// type_tag is redundant with the component's own leading tag
		// byte; skip it and let DecodeComponent re-derive the family.
		b = b[1:]
		ln, n := binary.Uvarint(b)
		if n <= 0 {
			return Token{}, invalidInput("truncated boundary slot length")
		}
		b = b[n:]
		if uint64(len(b)) < ln {
			return Token{}, invalidInput("truncated boundary slot payload")
		}
		payload := b[:ln]
		b = b[ln:]
		v, rest, err := indexkey.DecodeComponent(payload)
		if err != nil || len(rest) != 0 {
			return Token{}, invalidInput("malformed boundary slot value")
		}
		boundary = append(boundary, BoundarySlot{Value: v})
	}

	if len(b) < 1 {
		return Token{}, invalidInput("truncated cursor anchor flag")
	}
	hasAnchor := b[0]
	b = b[1:]
	if hasAnchor != 0 && hasAnchor != 1 {
		return Token{}, invalidInput("invalid cursor anchor flag")
	}

	var anchor *Anchor
	if hasAnchor == 1 {
		idLen, n := binary.Uvarint(b)
		if n <= 0 {
			return Token{}, invalidInput("truncated anchor index id length")
		}
		b = b[n:]
		if uint64(len(b)) < idLen {
			return Token{}, invalidInput("truncated anchor index id")
		}
		indexID := string(b[:idLen])
		b = b[idLen:]

		if len(b) < 2 {
			return Token{}, invalidInput("truncated anchor kind/arity")
		}
		kind := indexkey.KeyKind(b[0])
		arity := int(b[1])
		b = b[2:]

		if len(b) < 4 {
			return Token{}, invalidInput("truncated anchor raw key length")
		}
		rkLen := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint64(len(b)) < uint64(rkLen) {
			return Token{}, invalidInput("truncated anchor raw key")
		}
		rawKey := append(indexkey.RawKey(nil), b[:rkLen]...)
		b = b[rkLen:]

		anchor = &Anchor{IndexID: indexID, KeyKind: kind, ComponentArity: arity, RawKey: rawKey}
	}

	if len(b) != 0 {
		return Token{}, invalidInput("trailing bytes after cursor token")
	}

	return Token{
		Version:       version,
		Fingerprint:   fp,
		Direction:     dir,
		InitialOffset: offset,
		Boundary:      boundary,
		Anchor:        anchor,
	}, nil
}
