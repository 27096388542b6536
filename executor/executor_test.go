package executor

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/cursor"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type widget struct {
	ID   uint64
	Name string
}

func (w widget) PK() value.Value { return value.NewUint(w.ID) }

func (w widget) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(w.ID), true
	case "name":
		return value.NewText(w.Name), true
	default:
		return value.Value{}, false
	}
}

func (widget) IsNull(string) bool            { return false }
func (widget) IsEmptyCollection(string) bool { return false }

type widgetCodec struct{}

func (widgetCodec) Encode(r Record) ([]byte, error) {
	w := r.(widget)
	return []byte(strconv.FormatUint(w.ID, 10) + "|" + w.Name), nil
}
func (widgetCodec) Decode(raw []byte) (Record, error) {
	parts := strings.SplitN(string(raw), "|", 2)
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	return widget{ID: id, Name: parts[1]}, nil
}

var widgetEntity = schema.EntityDescriptor{
	Name: "widget",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "name", Family: value.FamilyText},
	},
}

func seedWidgets(t *testing.T, store *memkv.Store, n int) {
	t.Helper()
	r := require.New(t)
	r.NoError(store.Update(func(tx kv.RwTx) error {
		rw := kv.NewRwDataStore(tx)
		for i := 1; i <= n; i++ {
			raw, err := widgetCodec{}.Encode(widget{ID: uint64(i), Name: "w"})
			if err != nil {
				return err
			}
			if err := rw.Put("widget", value.NewUint(uint64(i)), raw); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestExecuteFullScanReturnsAllRowsInPkOrder(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedWidgets(t, store, 3)

	plan, err := planner.Build(widgetEntity, predicate.True{}, []planner.OrderField{{Field: "id"}}, planner.Window{})
	r.NoError(err)

	var page *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page, err = Execute(tx, widgetEntity, widgetCodec{}, plan, nil)
		return err
	}))
	r.Len(page.Rows, 3)
	r.Nil(page.NextCursor)
	r.Equal(uint64(1), page.Rows[0].(widget).ID)
	r.Equal(uint64(3), page.Rows[2].(widget).ID)
}

func TestExecutePaginationAndCursorResume(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	seedWidgets(t, store, 5)

	limit := uint64(2)
	plan, err := planner.Build(widgetEntity, predicate.True{}, []planner.OrderField{{Field: "id"}}, planner.Window{Limit: &limit})
	r.NoError(err)

	var page *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page, err = Execute(tx, widgetEntity, widgetCodec{}, plan, nil)
		return err
	}))
	r.Len(page.Rows, 2)
	r.NotNil(page.NextCursor)
	r.Equal(uint64(1), page.Rows[0].(widget).ID)
	r.Equal(uint64(2), page.Rows[1].(widget).ID)

	tok, err := cursor.Decode(*page.NextCursor)
	r.NoError(err)

	var page2 *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page2, err = Execute(tx, widgetEntity, widgetCodec{}, plan, &tok)
		return err
	}))
	r.Len(page2.Rows, 2)
	r.Equal(uint64(3), page2.Rows[0].(widget).ID)
	r.Equal(uint64(4), page2.Rows[1].(widget).ID)
	r.NotNil(page2.NextCursor)

	tok3, err := cursor.Decode(*page2.NextCursor)
	r.NoError(err)
	var page3 *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page3, err = Execute(tx, widgetEntity, widgetCodec{}, plan, &tok3)
		return err
	}))
	r.Len(page3.Rows, 1)
	r.Equal(uint64(5), page3.Rows[0].(widget).ID)
	r.Nil(page3.NextCursor)
}

func TestExecuteAppliesResidualPredicate(t *testing.T) {
	r := require.New(t)
	store := memkv.New()
	r.NoError(store.Update(func(tx kv.RwTx) error {
		rw := kv.NewRwDataStore(tx)
		raw1, _ := widgetCodec{}.Encode(widget{ID: 1, Name: "keep"})
		raw2, _ := widgetCodec{}.Encode(widget{ID: 2, Name: "drop"})
		if err := rw.Put("widget", value.NewUint(1), raw1); err != nil {
			return err
		}
		return rw.Put("widget", value.NewUint(2), raw2)
	}))

	pred := predicate.Compare{Field: "name", Op: predicate.OpEq, Value: value.NewText("keep"), Coercion: predicate.Coercion{Kind: predicate.Strict}}
	plan, err := planner.Build(widgetEntity, pred, []planner.OrderField{{Field: "id"}}, planner.Window{})
	r.NoError(err)

	var page *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page, err = Execute(tx, widgetEntity, widgetCodec{}, plan, nil)
		return err
	}))
	r.Len(page.Rows, 1)
	r.Equal("keep", page.Rows[0].(widget).Name)
}

func TestValuesByAndDistinctValuesBy(t *testing.T) {
	r := require.New(t)
	rows := []Record{
		widget{ID: 1, Name: "a"},
		widget{ID: 2, Name: "b"},
		widget{ID: 3, Name: "a"},
	}

	vals, err := ValuesBy(rows, "name")
	r.NoError(err)
	r.Equal([]value.Value{value.NewText("a"), value.NewText("b"), value.NewText("a")}, vals)

	distinct, err := DistinctValuesBy(rows, "name")
	r.NoError(err)
	r.Equal([]value.Value{value.NewText("a"), value.NewText("b")}, distinct)
}

func TestFirstAndLastValueBy(t *testing.T) {
	r := require.New(t)
	rows := []Record{widget{ID: 1, Name: "a"}, widget{ID: 2, Name: "b"}}

	first, ok, err := FirstValueBy(rows, "name")
	r.NoError(err)
	r.True(ok)
	r.Equal(value.NewText("a"), first)

	last, ok, err := LastValueBy(rows, "name")
	r.NoError(err)
	r.True(ok)
	r.Equal(value.NewText("b"), last)

	_, ok, err = FirstValueBy(nil, "name")
	r.NoError(err)
	r.False(ok)
}

func TestGroupByBucketsInFirstObservedOrder(t *testing.T) {
	r := require.New(t)
	rows := []Record{
		widget{ID: 1, Name: "b"},
		widget{ID: 2, Name: "a"},
		widget{ID: 3, Name: "b"},
	}

	groups, err := GroupBy(rows, "name")
	r.NoError(err)
	r.Len(groups, 2)
	r.Equal(value.NewText("b"), groups[0].Key)
	r.Len(groups[0].Rows, 2)
	r.Equal(value.NewText("a"), groups[1].Key)
	r.Len(groups[1].Rows, 1)
}

func TestValuesByRejectsUnknownField(t *testing.T) {
	r := require.New(t)
	_, err := ValuesBy([]Record{widget{ID: 1, Name: "a"}}, "nope")
	r.Error(err)
}

// person carries two declared indexes, by_age (non-unique) and by_email
// (unique), so an executed IndexRange plan against by_age has an
// adjacent index to bleed into if its envelope isn't confined to by_age's
// own key-prefix region.
type person struct {
	ID    uint64
	Age   uint64
	Email string
}

func (p person) PK() value.Value { return value.NewUint(p.ID) }

func (p person) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(p.ID), true
	case "age":
		return value.NewUint(p.Age), true
	case "email":
		return value.NewText(p.Email), true
	default:
		return value.Value{}, false
	}
}

func (person) IsNull(string) bool            { return false }
func (person) IsEmptyCollection(string) bool { return false }

type personCodec struct{}

func (personCodec) Encode(r Record) ([]byte, error) {
	p := r.(person)
	return []byte(strconv.FormatUint(p.ID, 10) + "|" + strconv.FormatUint(p.Age, 10) + "|" + p.Email), nil
}

func (personCodec) Decode(raw []byte) (Record, error) {
	parts := strings.SplitN(string(raw), "|", 3)
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	age, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}
	return person{ID: id, Age: age, Email: parts[2]}, nil
}

var personEntity = schema.EntityDescriptor{
	Name: "person",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "age", Family: value.FamilyUint},
		{Name: "email", Family: value.FamilyText},
	},
	Indexes: []schema.IndexDescriptor{
		{ID: "by_age", Components: []schema.FieldDescriptor{{Name: "age", Family: value.FamilyUint}}},
		{ID: "by_email", Components: []schema.FieldDescriptor{{Name: "email", Family: value.FamilyText}}, Unique: true},
	},
}

func seedPersons(t *testing.T, store *memkv.Store, people []person) {
	t.Helper()
	r := require.New(t)
	r.NoError(store.Update(func(tx kv.RwTx) error {
		data := kv.NewRwDataStore(tx)
		idx := kv.NewRwIndexStore(tx)
		for _, p := range people {
			raw, err := personCodec{}.Encode(p)
			if err != nil {
				return err
			}
			if err := data.Put("person", value.NewUint(p.ID), raw); err != nil {
				return err
			}

			ageKey, err := indexkey.EncodeKey(indexkey.IndexKey{
				Kind:       indexkey.KindUser,
				IndexID:    "by_age",
				Components: []value.Value{value.NewUint(p.Age)},
				PK:         value.NewUint(p.ID),
			})
			if err != nil {
				return err
			}
			if err := idx.Put(ageKey, kv.RawIndexEntry{PK: value.NewUint(p.ID)}); err != nil {
				return err
			}

			emailKey, err := indexkey.EncodeKey(indexkey.IndexKey{
				Kind:       indexkey.KindUser,
				IndexID:    "by_email",
				Components: []value.Value{value.NewText(p.Email)},
				PK:         value.NewUint(p.ID),
			})
			if err != nil {
				return err
			}
			if err := idx.Put(emailKey, kv.RawIndexEntry{PK: value.NewUint(p.ID)}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestExecuteIndexRangeDoesNotBleedIntoAdjacentIndex(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	people := []person{
		{ID: 1, Age: 15, Email: "a@example.com"},
		{ID: 2, Age: 20, Email: "b@example.com"},
		{ID: 3, Age: 25, Email: "c@example.com"},
		{ID: 4, Age: 30, Email: "d@example.com"},
	}
	seedPersons(t, store, people)

	pred := predicate.Compare{Field: "age", Op: predicate.OpGt, Value: value.NewUint(18), Coercion: predicate.Coercion{Kind: predicate.Strict}}
	plan, err := planner.Build(personEntity, pred, []planner.OrderField{{Field: "age"}}, planner.Window{})
	r.NoError(err)
	r.Equal(planner.AccessIndexRange, plan.AccessPath.Kind())
	r.Equal("by_age", plan.IndexID)

	var page *Page
	r.NoError(store.View(func(tx kv.Tx) error {
		var err error
		page, err = Execute(tx, personEntity, personCodec{}, plan, nil)
		return err
	}))

	r.Len(page.Rows, 3)
	ages := make([]uint64, len(page.Rows))
	for i, row := range page.Rows {
		p := row.(person)
		r.Greater(p.Age, uint64(18))
		ages[i] = p.Age
	}
	r.Equal([]uint64{20, 25, 30}, ages)
}
