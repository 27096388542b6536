package reverseindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type fakeRow map[string]value.Value

func (r fakeRow) PK() value.Value { return r["id"] }

func (r fakeRow) Field(name string) (value.Value, bool) {
	v, ok := r[name]
	return v, ok
}

func (fakeRow) IsNull(string) bool            { return false }
func (fakeRow) IsEmptyCollection(string) bool { return false }

var commentEntity = schema.EntityDescriptor{
	Name: "comment",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "post_id", Family: value.FamilyUint},
	},
	Relations: []schema.RelationDescriptor{
		{Field: "post_id", TargetEntity: "post", Strong: true},
	},
}

func TestDeltasInsert(t *testing.T) {
	r := require.New(t)
	after := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(10)}

	adds, removes, err := Deltas(commentEntity, nil, after)
	r.NoError(err)
	r.Empty(removes)
	r.Len(adds, 1)
	r.Equal(Edge{TargetEntity: "post", TargetPK: value.NewUint(10), SourcePK: value.NewUint(1)}, adds[0])
}

func TestDeltasDelete(t *testing.T) {
	r := require.New(t)
	before := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(10)}

	adds, removes, err := Deltas(commentEntity, before, nil)
	r.NoError(err)
	r.Empty(adds)
	r.Len(removes, 1)
	r.Equal(Edge{TargetEntity: "post", TargetPK: value.NewUint(10), SourcePK: value.NewUint(1)}, removes[0])
}

func TestDeltasUpdateUnchangedTarget(t *testing.T) {
	r := require.New(t)
	before := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(10)}
	after := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(10)}

	adds, removes, err := Deltas(commentEntity, before, after)
	r.NoError(err)
	r.Empty(adds)
	r.Empty(removes)
}

func TestDeltasUpdateChangedTarget(t *testing.T) {
	r := require.New(t)
	before := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(10)}
	after := fakeRow{"id": value.NewUint(1), "post_id": value.NewUint(20)}

	adds, removes, err := Deltas(commentEntity, before, after)
	r.NoError(err)
	r.Len(adds, 1)
	r.Len(removes, 1)
	r.Equal(value.NewUint(20), adds[0].TargetPK)
	r.Equal(value.NewUint(10), removes[0].TargetPK)
}

func TestDeltasRequiresAtLeastOneSide(t *testing.T) {
	r := require.New(t)
	_, _, err := Deltas(commentEntity, nil, nil)
	r.Error(err)
}

func TestHasReferencesPutRemove(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	edge := Edge{TargetEntity: "post", TargetPK: value.NewUint(10), SourcePK: value.NewUint(1)}

	r.NoError(store.View(func(tx kv.Tx) error {
		found, ferr := HasReferences(tx, edge.TargetEntity, edge.TargetPK)
		r.NoError(ferr)
		r.False(found)
		return nil
	}))

	r.NoError(store.Update(func(tx kv.RwTx) error {
		return Put(kv.NewRwIndexStore(tx), edge)
	}))

	r.NoError(store.View(func(tx kv.Tx) error {
		found, ferr := HasReferences(tx, edge.TargetEntity, edge.TargetPK)
		r.NoError(ferr)
		r.True(found)
		return nil
	}))

	r.NoError(store.Update(func(tx kv.RwTx) error {
		return Remove(kv.NewRwIndexStore(tx), edge)
	}))

	r.NoError(store.View(func(tx kv.Tx) error {
		found, ferr := HasReferences(tx, edge.TargetEntity, edge.TargetPK)
		r.NoError(ferr)
		r.False(found)
		return nil
	}))
}
