package kv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/value"
)

func TestDataStorePutGetDelete(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	r.NoError(store.Update(func(tx kv.RwTx) error {
		return kv.NewRwDataStore(tx).Put("user", value.NewUint(1), []byte("alice"))
	}))

	r.NoError(store.View(func(tx kv.Tx) error {
		row, found, err := kv.NewDataStore(tx).Get("user", value.NewUint(1))
		r.NoError(err)
		r.True(found)
		r.Equal("alice", string(row))
		return nil
	}))

	r.NoError(store.Update(func(tx kv.RwTx) error {
		return kv.NewRwDataStore(tx).Delete("user", value.NewUint(1))
	}))

	r.NoError(store.View(func(tx kv.Tx) error {
		_, found, err := kv.NewDataStore(tx).Get("user", value.NewUint(1))
		r.NoError(err)
		r.False(found)
		return nil
	}))
}

func TestRwDataStorePutRejectsOversizedRow(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	kv.SetRowLimit(4)
	defer kv.SetRowLimit(1 << 20)

	err := store.Update(func(tx kv.RwTx) error {
		return kv.NewRwDataStore(tx).Put("user", value.NewUint(1), []byte("too long"))
	})
	r.Error(err)
}

func TestIndexStoreCountPrefix(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	key1, err := indexkey.EncodeKey(indexkey.IndexKey{Kind: indexkey.KindUser, IndexID: "by_age", Components: []value.Value{value.NewInt(30)}, PK: value.NewUint(1)})
	r.NoError(err)
	key2, err := indexkey.EncodeKey(indexkey.IndexKey{Kind: indexkey.KindUser, IndexID: "by_age", Components: []value.Value{value.NewInt(30)}, PK: value.NewUint(2)})
	r.NoError(err)

	r.NoError(store.Update(func(tx kv.RwTx) error {
		ix := kv.NewRwIndexStore(tx)
		if err := ix.Put(key1, kv.RawIndexEntry{PK: value.NewUint(1)}); err != nil {
			return err
		}
		return ix.Put(key2, kv.RawIndexEntry{PK: value.NewUint(2)})
	}))

	prefix, err := indexkey.EncodePrefix(indexkey.KindUser, "by_age", []value.Value{value.NewInt(30)})
	r.NoError(err)

	r.NoError(store.View(func(tx kv.Tx) error {
		count, err := kv.NewIndexStore(tx).CountPrefix(prefix, 1)
		r.NoError(err)
		r.Equal(2, count)
		return nil
	}))
}

func TestScanWalksEnvelopeInOrder(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	r.NoError(store.Update(func(tx kv.RwTx) error {
		rw := kv.NewRwDataStore(tx)
		for i := uint64(1); i <= 3; i++ {
			if err := rw.Put("item", value.NewUint(i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))

	var seen []byte
	r.NoError(store.View(func(tx kv.Tx) error {
		return kv.Scan(tx, kv.TableData, indexkey.Envelope{}, indexkey.Asc, func(k, v []byte) (bool, error) {
			seen = append(seen, v[0])
			return true, nil
		})
	}))
	r.Equal([]byte{1, 2, 3}, seen)
}

func TestScanDescending(t *testing.T) {
	r := require.New(t)
	store := memkv.New()

	r.NoError(store.Update(func(tx kv.RwTx) error {
		rw := kv.NewRwDataStore(tx)
		for i := uint64(1); i <= 3; i++ {
			if err := rw.Put("item", value.NewUint(i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))

	var seen []byte
	r.NoError(store.View(func(tx kv.Tx) error {
		return kv.Scan(tx, kv.TableData, indexkey.Envelope{}, indexkey.Desc, func(k, v []byte) (bool, error) {
			seen = append(seen, v[0])
			return true, nil
		})
	}))
	r.Equal([]byte{3, 2, 1}, seen)
}

func TestTableCfgRegisterAndFlags(t *testing.T) {
	r := require.New(t)
	cfg := kv.NewTableCfg()
	cfg.Register(kv.Table("by_email"), kv.TableCfgItem{Flags: kv.FlagUnique, Arity: 1})

	r.True(cfg.IsUnique(kv.Table("by_email")))
	r.False(cfg.IsSystem(kv.Table("by_email")))
	r.False(cfg.IsUnique(kv.TableData))
}
