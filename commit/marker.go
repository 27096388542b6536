package commit

import (
	"github.com/ugorji/go/codec"

	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/reverseindex"
	"github.com/dragginzgame/icydb-core/value"
)

// maxMarkerBytes bounds the size of a persisted commit marker - a batch
// lane with an unreasonable number of row-ops is a caller bug, not
// something the engine should try to durably record (spec §11 "bounded
// CBOR-like binary"). Configurable (spec §5 "Configurable bounds: max
// commit marker bytes"), see SetMarkerLimit.
var maxMarkerBytes = 1 << 20

// SetMarkerLimit overrides the max commit marker byte bound. Callers
// apply this once at startup, before any marker is encoded or decoded
// (config.Apply).
func SetMarkerLimit(n int) {
	maxMarkerBytes = n
}

var markerCborHandle = &codec.CborHandle{}

// Marker is the durable record of a batch's row-ops, written once before
// any mutation is applied and cleared once every mutation in it has been
// applied (spec §11 "commit marker"): the crash-safety pivot. If the
// process dies after the marker is persisted but before finish_commit,
// recovery replays Ops against the host map from wherever it left off.
type Marker struct {
	Ops []RowOp
}

type wireIndexPut struct {
	Key   []byte
	PKTag []byte
}

type wireEdge struct {
	TargetEntity string
	TargetPK     []byte
	SourcePK     []byte
}

type wireRowOp struct {
	Entity string
	PK     []byte
	Before []byte
	After  []byte

	IndexDeletes [][]byte
	IndexPuts    []wireIndexPut

	ReverseDeletes []wireEdge
	ReversePuts    []wireEdge
}

type wireMarker struct {
	Ops []wireRowOp
}

func encodeValue(v value.Value) ([]byte, error) { return indexkey.EncodeComponent(v) }

func decodeValue(b []byte) (value.Value, error) {
	v, rest, err := indexkey.DecodeComponent(b)
	if err != nil {
		return value.Value{}, err
	}
	if len(rest) != 0 {
		return value.Value{}, icyerr.New(icyerr.ClassCorruption, icyerr.OriginCommit, "trailing bytes after marker value")
	}
	return v, nil
}

func encodeEdge(e reverseindex.Edge) (wireEdge, error) {
	tpk, err := encodeValue(e.TargetPK)
	if err != nil {
		return wireEdge{}, err
	}
	spk, err := encodeValue(e.SourcePK)
	if err != nil {
		return wireEdge{}, err
	}
	return wireEdge{TargetEntity: e.TargetEntity, TargetPK: tpk, SourcePK: spk}, nil
}

func decodeEdge(w wireEdge) (reverseindex.Edge, error) {
	tpk, err := decodeValue(w.TargetPK)
	if err != nil {
		return reverseindex.Edge{}, err
	}
	spk, err := decodeValue(w.SourcePK)
	if err != nil {
		return reverseindex.Edge{}, err
	}
	return reverseindex.Edge{TargetEntity: w.TargetEntity, TargetPK: tpk, SourcePK: spk}, nil
}

// EncodeMarker renders m to its durable wire form.
func EncodeMarker(m Marker) ([]byte, error) {
	w := wireMarker{Ops: make([]wireRowOp, len(m.Ops))}
	for i, op := range m.Ops {
		pkBytes, err := encodeValue(op.PK)
		if err != nil {
			return nil, err
		}
		wop := wireRowOp{
			Entity: op.Entity,
			PK:     pkBytes,
			Before: op.Before,
			After:  op.After,
		}
		for _, d := range op.IndexDeletes {
			wop.IndexDeletes = append(wop.IndexDeletes, []byte(d))
		}
		for _, p := range op.IndexPuts {
			pkTag, err := encodeValue(p.Entry.PK)
			if err != nil {
				return nil, err
			}
			wop.IndexPuts = append(wop.IndexPuts, wireIndexPut{Key: []byte(p.Key), PKTag: pkTag})
		}
		for _, e := range op.ReverseDeletes {
			we, err := encodeEdge(e)
			if err != nil {
				return nil, err
			}
			wop.ReverseDeletes = append(wop.ReverseDeletes, we)
		}
		for _, e := range op.ReversePuts {
			we, err := encodeEdge(e)
			if err != nil {
				return nil, err
			}
			wop.ReversePuts = append(wop.ReversePuts, we)
		}
		w.Ops[i] = wop
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, markerCborHandle).Encode(w); err != nil {
		return nil, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginCommit, "cbor-encoding commit marker", err)
	}
	if len(out) > maxMarkerBytes {
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginCommit, "encoded commit marker exceeds size bound")
	}
	return out, nil
}

// DecodeMarker reverses EncodeMarker, rejecting any payload past the
// size bound before it reaches the CBOR decoder (mirrors kv's
// DecodeIndexEntry bounded-decode discipline).
func DecodeMarker(raw []byte) (Marker, error) {
	if len(raw) > maxMarkerBytes {
		return Marker{}, icyerr.New(icyerr.ClassCorruption, icyerr.OriginCommit, "commit marker exceeds size bound")
	}
	var w wireMarker
	if err := codec.NewDecoderBytes(raw, markerCborHandle).Decode(&w); err != nil {
		return Marker{}, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginCommit, "cbor-decoding commit marker", err)
	}
	m := Marker{Ops: make([]RowOp, len(w.Ops))}
	for i, wop := range w.Ops {
		pk, err := decodeValue(wop.PK)
		if err != nil {
			return Marker{}, err
		}
		op := RowOp{Entity: wop.Entity, PK: pk, Before: wop.Before, After: wop.After}
		for _, d := range wop.IndexDeletes {
			op.IndexDeletes = append(op.IndexDeletes, indexkey.RawKey(d))
		}
		for _, p := range wop.IndexPuts {
			pkv, err := decodeValue(p.PKTag)
			if err != nil {
				return Marker{}, err
			}
			op.IndexPuts = append(op.IndexPuts, IndexPut{Key: indexkey.RawKey(p.Key), Entry: kv.RawIndexEntry{PK: pkv}})
		}
		for _, we := range wop.ReverseDeletes {
			e, err := decodeEdge(we)
			if err != nil {
				return Marker{}, err
			}
			op.ReverseDeletes = append(op.ReverseDeletes, e)
		}
		for _, we := range wop.ReversePuts {
			e, err := decodeEdge(we)
			if err != nil {
				return Marker{}, err
			}
			op.ReversePuts = append(op.ReversePuts, e)
		}
		m.Ops[i] = op
	}
	return m, nil
}
