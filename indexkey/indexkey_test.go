package indexkey

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/value"
)

func TestEncodeDecodeKeyRoundtrip(t *testing.T) {
	r := require.New(t)

	k := IndexKey{
		Kind:       KindUser,
		IndexID:    "by_name",
		Components: []value.Value{value.NewText("alice"), value.NewUint(7)},
		PK:         value.NewUint(42),
	}

	raw, err := EncodeKey(k)
	r.NoError(err)

	decoded, err := DecodeKey(raw, k.Arity())
	r.NoError(err)
	r.Equal(k.Kind, decoded.Kind)
	r.Equal(k.IndexID, decoded.IndexID)
	r.Equal(k.PK, decoded.PK)
	r.Equal(k.Components, decoded.Components)
}

func TestEncodeKeyOrderPreservesValueOrder(t *testing.T) {
	r := require.New(t)

	low := IndexKey{Kind: KindUser, IndexID: "x", Components: []value.Value{value.NewUint(1)}, PK: value.NewUint(0)}
	high := IndexKey{Kind: KindUser, IndexID: "x", Components: []value.Value{value.NewUint(2)}, PK: value.NewUint(0)}

	lowRaw, err := EncodeKey(low)
	r.NoError(err)
	highRaw, err := EncodeKey(high)
	r.NoError(err)

	r.Negative(bytes.Compare(lowRaw, highRaw))
}

func TestEncodeKeyOrderForNegativeInts(t *testing.T) {
	r := require.New(t)

	neg := IndexKey{Kind: KindUser, IndexID: "x", Components: []value.Value{value.NewInt(-5)}, PK: value.NewUint(0)}
	pos := IndexKey{Kind: KindUser, IndexID: "x", Components: []value.Value{value.NewInt(5)}, PK: value.NewUint(0)}

	negRaw, err := EncodeKey(neg)
	r.NoError(err)
	posRaw, err := EncodeKey(pos)
	r.NoError(err)

	r.Negative(bytes.Compare(negRaw, posRaw))
}

func TestEncodeKeyOrderForDecimals(t *testing.T) {
	r := require.New(t)

	small := value.DecimalFromInt64(9)
	big := value.DecimalFromInt64(10)
	neg := value.DecimalFromInt64(-100)

	smallRaw, err := EncodeComponent(value.NewDecimal(small))
	r.NoError(err)
	bigRaw, err := EncodeComponent(value.NewDecimal(big))
	r.NoError(err)
	negRaw, err := EncodeComponent(value.NewDecimal(neg))
	r.NoError(err)
	zeroRaw, err := EncodeComponent(value.NewDecimal(value.Decimal{}))
	r.NoError(err)

	r.Negative(bytes.Compare(smallRaw, bigRaw))
	r.Negative(bytes.Compare(negRaw, zeroRaw))
	r.Negative(bytes.Compare(zeroRaw, smallRaw))
}

func TestEncodeKeyOrderForStringsWithEmbeddedNull(t *testing.T) {
	r := require.New(t)

	a, err := EncodeComponent(value.NewText("a"))
	r.NoError(err)
	ab, err := EncodeComponent(value.NewText("a\x00b"))
	r.NoError(err)

	r.Negative(bytes.Compare(a, ab))
}

func TestDecodeKeyRejectsTruncated(t *testing.T) {
	r := require.New(t)

	k := IndexKey{Kind: KindUser, IndexID: "x", Components: []value.Value{value.NewUint(1)}, PK: value.NewUint(2)}
	raw, err := EncodeKey(k)
	r.NoError(err)

	_, err = DecodeKey(raw[:len(raw)-1], k.Arity())
	r.Error(err)

	_, err = DecodeKey(nil, 0)
	r.Error(err)
}

func TestDecodeKeyRejectsUnknownKind(t *testing.T) {
	r := require.New(t)
	_, err := DecodeKey(RawKey{99, 0}, 0)
	r.Error(err)
}

func TestPrefixUpperBound(t *testing.T) {
	r := require.New(t)

	bound, ok := PrefixUpperBound([]byte{1, 2, 3})
	r.True(ok)
	r.Equal([]byte{1, 2, 4}, bound)

	_, ok = PrefixUpperBound([]byte{0xFF, 0xFF})
	r.False(ok)
}

func TestEnvelopeContains(t *testing.T) {
	r := require.New(t)

	env := Envelope{Lower: IncludedBound(RawKey{1}), Upper: ExcludedBound(RawKey{5})}
	r.True(env.Contains(RawKey{1}))
	r.True(env.Contains(RawKey{3}))
	r.False(env.Contains(RawKey{5}))
	r.False(env.Contains(RawKey{0}))
}

func TestEnvelopeIsEmpty(t *testing.T) {
	r := require.New(t)

	r.False(Envelope{Lower: UnboundedBound(), Upper: UnboundedBound()}.IsEmpty())
	r.True(Envelope{Lower: IncludedBound(RawKey{5}), Upper: IncludedBound(RawKey{1})}.IsEmpty())
	r.False(Envelope{Lower: IncludedBound(RawKey{1}), Upper: IncludedBound(RawKey{1})}.IsEmpty())
	r.True(Envelope{Lower: ExcludedBound(RawKey{1}), Upper: IncludedBound(RawKey{1})}.IsEmpty())
}

func TestApplyAnchorAsc(t *testing.T) {
	r := require.New(t)

	env := Envelope{Lower: IncludedBound(RawKey{1}), Upper: UnboundedBound()}
	out := env.ApplyAnchor(RawKey{3}, Asc)
	r.Equal(Excluded, out.Lower.Kind)
	r.Equal(RawKey{3}, out.Lower.Key)
}

func TestApplyAnchorDesc(t *testing.T) {
	r := require.New(t)

	env := Envelope{Lower: UnboundedBound(), Upper: IncludedBound(RawKey{9})}
	out := env.ApplyAnchor(RawKey{5}, Desc)
	r.Equal(Excluded, out.Upper.Kind)
	r.Equal(RawKey{5}, out.Upper.Key)
}

func TestContinuationAdvanced(t *testing.T) {
	r := require.New(t)
	r.True(ContinuationAdvanced(RawKey{1}, RawKey{2}, Asc))
	r.False(ContinuationAdvanced(RawKey{2}, RawKey{1}, Asc))
	r.True(ContinuationAdvanced(RawKey{2}, RawKey{1}, Desc))
}
