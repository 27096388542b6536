package main

import (
	"github.com/ugorji/go/codec"

	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// noteEntity is the smoke test's sole entity: a PK, a text title, and a
// boolean done flag, indexed on done for a non-trivial access path.
var noteEntity = schema.EntityDescriptor{
	Name: "note",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "title", Family: value.FamilyText},
		{Name: "done", Family: value.FamilyBool},
	},
	Indexes: []schema.IndexDescriptor{
		{ID: "by_done", Components: []schema.FieldDescriptor{{Name: "done", Family: value.FamilyBool}}},
	},
}

// note is the in-memory decoded form of one row.
type note struct {
	ID    uint64
	Title string
	Done  bool
}

func (n note) PK() value.Value { return value.NewUint(n.ID) }

func (n note) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(n.ID), true
	case "title":
		return value.NewText(n.Title), true
	case "done":
		return value.NewBool(n.Done), true
	default:
		return value.Value{}, false
	}
}

func (n note) IsNull(string) bool            { return false }
func (n note) IsEmptyCollection(string) bool { return false }

var noteCborHandle = &codec.CborHandle{}

type noteCodec struct{}

type wireNote struct {
	ID    uint64
	Title string
	Done  bool
}

func (noteCodec) Encode(r executor.Record) ([]byte, error) {
	n, ok := r.(note)
	if !ok {
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginSerialize, "record is not a note")
	}
	var out []byte
	if err := codec.NewEncoderBytes(&out, noteCborHandle).Encode(wireNote{ID: n.ID, Title: n.Title, Done: n.Done}); err != nil {
		return nil, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginSerialize, "cbor-encoding note", err)
	}
	return out, nil
}

func (noteCodec) Decode(raw []byte) (executor.Record, error) {
	var w wireNote
	if err := codec.NewDecoderBytes(raw, noteCborHandle).Decode(&w); err != nil {
		return nil, icyerr.Wrap(icyerr.ClassCorruption, icyerr.OriginSerialize, "cbor-decoding note", err)
	}
	return note{ID: w.ID, Title: w.Title, Done: w.Done}, nil
}
