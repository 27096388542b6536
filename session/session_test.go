package session

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

type item struct {
	ID    uint64
	Label string
}

func (i item) PK() value.Value { return value.NewUint(i.ID) }

func (i item) Field(name string) (value.Value, bool) {
	switch name {
	case "id":
		return value.NewUint(i.ID), true
	case "label":
		return value.NewText(i.Label), true
	default:
		return value.Value{}, false
	}
}

func (item) IsNull(string) bool            { return false }
func (item) IsEmptyCollection(string) bool { return false }

type itemCodec struct{}

func (itemCodec) Encode(r executor.Record) ([]byte, error) {
	i := r.(item)
	return []byte(strconv.FormatUint(i.ID, 10) + "|" + i.Label), nil
}
func (itemCodec) Decode(raw []byte) (executor.Record, error) {
	parts := strings.SplitN(string(raw), "|", 2)
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	return item{ID: id, Label: parts[1]}, nil
}

var itemEntity = schema.EntityDescriptor{
	Name: "item",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "label", Family: value.FamilyText},
	},
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	r := require.New(t)
	registry, err := schema.NewRegistry([]schema.EntityDescriptor{itemEntity})
	r.NoError(err)
	codecs := NewCodecs()
	codecs.Register("item", itemCodec{})
	sess, err := New(memkv.New(), registry, codecs)
	r.NoError(err)
	return sess
}

func TestSaveLoadDelete(t *testing.T) {
	r := require.New(t)
	sess := newTestSession(t)

	r.NoError(sess.Save("item", item{ID: 1, Label: "one"}, commit.Insert))
	r.NoError(sess.Save("item", item{ID: 2, Label: "two"}, commit.Insert))

	resp, err := sess.Load(Query{Entity: "item", Where: predicate.True{}, Order: []planner.OrderField{{Field: "id"}}})
	r.NoError(err)
	r.Equal(ResponseRows, resp.Kind)
	r.Len(resp.Rows, 2)

	r.NoError(sess.Delete("item", value.NewUint(1)))

	resp, err = sess.Load(Query{Entity: "item", Where: predicate.True{}, Order: []planner.OrderField{{Field: "id"}}})
	r.NoError(err)
	r.Len(resp.Rows, 1)
	r.Equal(uint64(2), resp.Rows[0].(item).ID)

	r.Equal(uint64(3), sess.Stats().CommitCount)
}

func TestSaveManyAndPagedLoad(t *testing.T) {
	r := require.New(t)
	sess := newTestSession(t)

	recs := []executor.Record{
		item{ID: 1, Label: "a"},
		item{ID: 2, Label: "b"},
		item{ID: 3, Label: "c"},
	}
	r.NoError(sess.SaveMany("item", recs, commit.BatchAtomic, commit.Insert))

	limit := uint64(2)
	resp, err := sess.Load(Query{
		Entity: "item",
		Where:  predicate.True{},
		Order:  []planner.OrderField{{Field: "id"}},
		Window: planner.Window{Limit: &limit},
	})
	r.NoError(err)
	r.Equal(ResponsePagedRows, resp.Kind)
	r.Len(resp.Paged, 2)
	r.NotNil(resp.NextCursor)

	resp2, err := sess.Load(Query{
		Entity: "item",
		Where:  predicate.True{},
		Order:  []planner.OrderField{{Field: "id"}},
		Window: planner.Window{Limit: &limit},
		Cursor: resp.NextCursor,
	})
	r.NoError(err)
	r.Equal(ResponsePagedRows, resp2.Kind)
	r.Len(resp2.Paged, 1)
	r.Nil(resp2.NextCursor)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	r := require.New(t)
	sess := newTestSession(t)
	r.NoError(sess.Delete("item", value.NewUint(99)))
	r.Zero(sess.Stats().CommitCount)
}

func TestGroupByAndValuesBy(t *testing.T) {
	r := require.New(t)
	sess := newTestSession(t)
	r.NoError(sess.Save("item", item{ID: 1, Label: "a"}, commit.Insert))
	r.NoError(sess.Save("item", item{ID: 2, Label: "a"}, commit.Insert))
	r.NoError(sess.Save("item", item{ID: 3, Label: "b"}, commit.Insert))

	resp, err := sess.Load(Query{
		Entity:   "item",
		Where:    predicate.True{},
		Order:    []planner.OrderField{{Field: "id"}},
		Terminal: TerminalGroupBy,
		Field:    "label",
	})
	r.NoError(err)
	r.Equal(ResponseGroupedRows, resp.Kind)
	r.Len(resp.Grouped, 2)
	r.Len(resp.Grouped[0].Rows, 2)
	r.Len(resp.Grouped[1].Rows, 1)

	values, err := sess.ValuesBy(Query{Entity: "item", Where: predicate.True{}}, "label")
	r.NoError(err)
	r.Len(values, 3)
}
