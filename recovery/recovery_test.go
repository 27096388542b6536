package recovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type row struct {
	ID   uint64
	Name string
}

func (r row) PK() value.Value { return value.NewUint(r.ID) }

func (r row) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(r.ID), true
	case "name":
		return value.NewText(r.Name), true
	default:
		return value.Value{}, false
	}
}

func (row) IsNull(string) bool            { return false }
func (row) IsEmptyCollection(string) bool { return false }

type rowCodec struct{}

func (rowCodec) Encode(r executor.Record) ([]byte, error) { return []byte(r.(row).Name), nil }
func (rowCodec) Decode(raw []byte) (executor.Record, error) {
	return row{Name: string(raw)}, nil
}

type codecSet map[string]executor.Codec

func (c codecSet) Codec(entity string) (executor.Codec, bool) {
	codec, ok := c[entity]
	return codec, ok
}

var thingEntity = schema.EntityDescriptor{
	Name: "thing",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "name", Family: value.FamilyText},
	},
}

func TestRecoverNoMarkerIsNoop(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	registry, err := schema.NewRegistry([]schema.EntityDescriptor{thingEntity})
	r.NoError(err)

	replayed, err := Recover(store, registry, codecSet{"thing": rowCodec{}})
	r.NoError(err)
	r.Zero(replayed)
}

func TestRecoverReplaysPersistedMarker(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	registry, err := schema.NewRegistry([]schema.EntityDescriptor{thingEntity})
	r.NoError(err)

	var op commit.RowOp
	r.NoError(store.View(func(tx kv.Tx) error {
		var perr error
		op, perr = commit.PreparePut(tx, thingEntity, rowCodec{}, row{ID: 1, Name: "widget"}, commit.Insert)
		return perr
	}))

	raw, err := commit.EncodeMarker(commit.Marker{Ops: []commit.RowOp{op}})
	r.NoError(err)
	r.NoError(store.Update(func(tx kv.RwTx) error {
		return tx.Put(kv.TableMeta, kv.MarkerKey, raw)
	}))

	replayed, err := Recover(store, registry, codecSet{"thing": rowCodec{}})
	r.NoError(err)
	r.Equal(1, replayed)

	r.NoError(store.View(func(tx kv.Tx) error {
		got, found, gerr := kv.NewDataStore(tx).Get("thing", value.NewUint(1))
		r.NoError(gerr)
		r.True(found)
		r.Equal("widget", string(got))
		return nil
	}))

	r.NoError(store.View(func(tx kv.Tx) error {
		_, found, gerr := tx.Get(kv.TableMeta, kv.MarkerKey)
		r.NoError(gerr)
		r.False(found)
		return nil
	}))
}
