package cursor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/value"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	r := require.New(t)
	tok := Token{
		Version:       VersionV2,
		Fingerprint:   [16]byte{1, 2, 3},
		Direction:     indexkey.Asc,
		InitialOffset: 5,
		Boundary:      []BoundarySlot{{Value: value.NewUint(42)}, {Value: value.NewText("x")}},
	}

	encoded, err := Encode(tok)
	r.NoError(err)

	decoded, err := Decode(encoded)
	r.NoError(err)
	r.Equal(tok.Version, decoded.Version)
	r.Equal(tok.Fingerprint, decoded.Fingerprint)
	r.Equal(tok.Direction, decoded.Direction)
	r.Equal(tok.InitialOffset, decoded.InitialOffset)
	r.Len(decoded.Boundary, 2)
	r.Nil(decoded.Anchor)
}

func TestEncodeDecodeRoundtripWithAnchor(t *testing.T) {
	r := require.New(t)
	tok := Token{
		Version:     VersionV2,
		Fingerprint: [16]byte{9},
		Direction:   indexkey.Desc,
		Boundary:    []BoundarySlot{{Value: value.NewUint(7)}},
		Anchor: &Anchor{
			IndexID:        "by_thing",
			KeyKind:        indexkey.KindUser,
			ComponentArity: 1,
			RawKey:         indexkey.RawKey("some-raw-key-bytes"),
		},
	}

	encoded, err := Encode(tok)
	r.NoError(err)

	decoded, err := Decode(encoded)
	r.NoError(err)
	r.NotNil(decoded.Anchor)
	r.Equal(tok.Anchor.IndexID, decoded.Anchor.IndexID)
	r.Equal(tok.Anchor.KeyKind, decoded.Anchor.KeyKind)
	r.Equal(tok.Anchor.ComponentArity, decoded.Anchor.ComponentArity)
	r.Equal([]byte(tok.Anchor.RawKey), []byte(decoded.Anchor.RawKey))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	r := require.New(t)

	_, err := Decode("")
	r.Error(err)

	_, err = Decode("abc")
	r.Error(err)

	_, err = Decode("zz")
	r.Error(err)

	_, err = Decode("ff")
	r.Error(err)
}
