package commit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type testRow struct {
	ID    uint64
	Email string
}

func (r testRow) PK() value.Value { return value.NewUint(r.ID) }

func (r testRow) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(r.ID), true
	case "email":
		return value.NewText(r.Email), true
	default:
		return value.Value{}, false
	}
}

func (testRow) IsNull(string) bool            { return false }
func (testRow) IsEmptyCollection(string) bool { return false }

type testCodec struct{}

func (testCodec) Encode(r executor.Record) ([]byte, error) {
	row := r.(testRow)
	return []byte(row.Email), nil
}

func (testCodec) Decode(raw []byte) (executor.Record, error) {
	return testRow{Email: string(raw)}, nil
}

var userEntity = schema.EntityDescriptor{
	Name: "user",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "email", Family: value.FamilyText},
	},
	Indexes: []schema.IndexDescriptor{
		{ID: "by_email", Components: []schema.FieldDescriptor{{Name: "email", Family: value.FamilyText}}, Unique: true},
	},
}

func TestPreparePutInsert(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	var op RowOp
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		op, err = PreparePut(tx, userEntity, testCodec{}, testRow{ID: 1, Email: "a@example.com"}, Insert)
		return err
	}))
	r.Nil(op.Before)
	r.Equal([]byte("a@example.com"), op.After)
	r.Len(op.IndexPuts, 1)
	r.Empty(op.IndexDeletes)
}

func TestPreparePutInsertRejectsExisting(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedRow(r, store, testRow{ID: 1, Email: "a@example.com"})

	r.Error(store.View(func(tx kv.Tx) error {
		_, err := PreparePut(tx, userEntity, testCodec{}, testRow{ID: 1, Email: "b@example.com"}, Insert)
		return err
	}))
}

func TestPreparePutUpdateRequiresExisting(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	r.Error(store.View(func(tx kv.Tx) error {
		_, err := PreparePut(tx, userEntity, testCodec{}, testRow{ID: 1, Email: "a@example.com"}, Update)
		return err
	}))
}

func TestPreparePutUniqueViolation(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedRow(r, store, testRow{ID: 1, Email: "a@example.com"})

	r.Error(store.View(func(tx kv.Tx) error {
		_, err := PreparePut(tx, userEntity, testCodec{}, testRow{ID: 2, Email: "a@example.com"}, Insert)
		return err
	}))
}

func TestPreparePutSameRowSameUniqueValueOK(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedRow(r, store, testRow{ID: 1, Email: "a@example.com"})

	r.NoError(store.View(func(tx kv.Tx) error {
		_, err := PreparePut(tx, userEntity, testCodec{}, testRow{ID: 1, Email: "a@example.com"}, Replace)
		return err
	}))
}

func TestPrepareDeleteNotFound(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	var ok bool
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		_, ok, err = PrepareDelete(tx, userEntity, testCodec{}, value.NewUint(1))
		return err
	}))
	r.False(ok)
}

func TestPrepareDeleteFound(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedRow(r, store, testRow{ID: 1, Email: "a@example.com"})

	var op RowOp
	var ok bool
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		op, ok, err = PrepareDelete(tx, userEntity, testCodec{}, value.NewUint(1))
		return err
	}))
	r.True(ok)
	r.Nil(op.After)
	r.Len(op.IndexDeletes, 1)
}

func seedRow(r *require.Assertions, store *memkv.Store, row testRow) {
	r.NoError(store.Update(func(tx kv.RwTx) error {
		op, err := PreparePut(tx, userEntity, testCodec{}, row, Insert)
		if err != nil {
			return err
		}
		return Apply(tx, []RowOp{op})
	}))
}
