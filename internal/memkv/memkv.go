// Package memkv is an in-memory implementation of kv.Store, used only by
// package tests (and cmd/icydb-smoke) as a stand-in for whatever durable
// host map a real deployment plugs in. It is not part of the public API.
package memkv

import (
	"bytes"

	"github.com/tidwall/btree"

	"github.com/dragginzgame/icydb-core/kv"
)

type entry struct {
	key []byte
	val []byte
}

func entryLess(a, b entry) bool { return bytes.Compare(a.key, b.key) < 0 }

// Store is a three-table in-memory host map (spec §2 plus the commit
// marker's own meta table, spec §11), backed by tidwall/btree so Cursor
// traversal has the same ordered-iteration behavior the real backend
// would provide.
type Store struct {
	data  *btree.BTreeG[entry]
	index *btree.BTreeG[entry]
	meta  *btree.BTreeG[entry]
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		data:  btree.NewBTreeG(entryLess),
		index: btree.NewBTreeG(entryLess),
		meta:  btree.NewBTreeG(entryLess),
	}
}

func (s *Store) tree(table kv.Table) *btree.BTreeG[entry] {
	switch table {
	case kv.TableIndex:
		return s.index
	case kv.TableMeta:
		return s.meta
	default:
		return s.data
	}
}

// View opens a read-only transaction. Since the engine is single-threaded
// and cooperative, this is a thin wrapper rather than a true snapshot.
func (s *Store) View(fn func(tx kv.Tx) error) error {
	return fn(&tx{store: s})
}

// Update opens a read-write transaction.
func (s *Store) Update(fn func(tx kv.RwTx) error) error {
	return fn(&rwTx{tx: tx{store: s}})
}

type tx struct {
	store *Store
}

func (t *tx) Has(table kv.Table, key []byte) (bool, error) {
	_, ok := t.store.tree(table).Get(entry{key: key})
	return ok, nil
}

func (t *tx) Get(table kv.Table, key []byte) ([]byte, bool, error) {
	e, ok := t.store.tree(table).Get(entry{key: key})
	if !ok {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (t *tx) Cursor(table kv.Table) (kv.Cursor, error) {
	return &cursor{tr: t.store.tree(table)}, nil
}

type rwTx struct {
	tx
}

func (t *rwTx) Put(table kv.Table, key, val []byte) error {
	kc := append([]byte(nil), key...)
	vc := append([]byte(nil), val...)
	t.store.tree(table).Set(entry{key: kc, val: vc})
	return nil
}

func (t *rwTx) Delete(table kv.Table, key []byte) error {
	t.store.tree(table).Delete(entry{key: key})
	return nil
}

type cursor struct {
	tr    *btree.BTreeG[entry]
	cur   entry
	valid bool
}

func (c *cursor) First() ([]byte, []byte, error) {
	c.valid = false
	c.tr.Scan(func(e entry) bool {
		c.cur = e
		c.valid = true
		return false
	})
	return c.current()
}

func (c *cursor) Last() ([]byte, []byte, error) {
	c.valid = false
	c.tr.Reverse(func(e entry) bool {
		c.cur = e
		c.valid = true
		return false
	})
	return c.current()
}

func (c *cursor) Seek(seek []byte) ([]byte, []byte, error) {
	c.valid = false
	c.tr.Ascend(entry{key: seek}, func(e entry) bool {
		c.cur = e
		c.valid = true
		return false
	})
	return c.current()
}

func (c *cursor) SeekExact(key []byte) ([]byte, []byte, bool, error) {
	k, v, err := c.Seek(key)
	if err != nil || k == nil || !bytes.Equal(k, key) {
		c.valid = false
		return nil, nil, false, err
	}
	return k, v, true, nil
}

func (c *cursor) Next() ([]byte, []byte, error) {
	if !c.valid {
		return nil, nil, nil
	}
	prev := c.cur.key
	c.valid = false
	skip := true
	c.tr.Ascend(entry{key: prev}, func(e entry) bool {
		if skip && bytes.Equal(e.key, prev) {
			skip = false
			return true
		}
		c.cur = e
		c.valid = true
		return false
	})
	return c.current()
}

func (c *cursor) Prev() ([]byte, []byte, error) {
	if !c.valid {
		return nil, nil, nil
	}
	prev := c.cur.key
	c.valid = false
	skip := true
	c.tr.Descend(entry{key: prev}, func(e entry) bool {
		if skip && bytes.Equal(e.key, prev) {
			skip = false
			return true
		}
		c.cur = e
		c.valid = true
		return false
	})
	return c.current()
}

func (c *cursor) Current() ([]byte, []byte, error) { return c.current() }

func (c *cursor) current() ([]byte, []byte, error) {
	if !c.valid {
		return nil, nil, nil
	}
	return c.cur.key, c.cur.val, nil
}

func (c *cursor) Close() {}
