// Package recovery implements C13: detecting a persisted commit marker
// at startup, replaying it through the same prepare path normal commits
// use, and the optional index-rebuild maintenance operation.
package recovery

import (
	"github.com/ledgerwatch/log/v3"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
)

// Codecs resolves the executor.Codec for an entity by name - the same
// per-entity lookup a session keeps, needed here so marker replay can
// decode row bytes without recovery knowing any concrete entity type.
type Codecs interface {
	Codec(entity string) (executor.Codec, bool)
}

// Recover checks for a persisted commit marker and, if present,
// re-prepares and replays its ops in stored order before clearing it
// (spec §4.9), returning how many ops it replayed. It must run before
// any other read or write against store. A no-op (replayed=0) if no
// marker is present.
func Recover(store kv.Store, registry *schema.Registry, codecs Codecs) (replayed int, err error) {
	raw, found, err := loadMarker(store)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	marker, err := commit.DecodeMarker(raw)
	if err != nil {
		// Fail closed: a corrupted marker must surface for operator
		// inspection, never be silently discarded (spec §4.9 step 1).
		return 0, err
	}

	log.Warn("[recovery] replaying commit marker", "ops", len(marker.Ops))

	applied := make([]commit.RowOp, 0, len(marker.Ops))
	for _, stored := range marker.Ops {
		rop, err := rederive(registry, codecs, stored)
		if err != nil {
			if rbErr := rollback(store, applied); rbErr != nil {
				return 0, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginRecovery,
					"rolling back failed replay", rbErr)
			}
			return 0, icyerr.Wrap(icyerr.ClassInvariantViolation, icyerr.OriginRecovery,
				"re-preparing marker row-op during replay", err)
		}

		if err := store.Update(func(tx kv.RwTx) error {
			return commit.Apply(tx, []commit.RowOp{rop})
		}); err != nil {
			return 0, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginRecovery,
				"applying marker row-op during replay", err)
		}
		applied = append(applied, rop)
	}

	if err := clearMarker(store); err != nil {
		return 0, err
	}
	return len(marker.Ops), nil
}

func rederive(registry *schema.Registry, codecs Codecs, stored commit.RowOp) (commit.RowOp, error) {
	entity, ok := registry.Entity(stored.Entity)
	if !ok {
		return commit.RowOp{}, icyerr.New(icyerr.ClassCorruption, icyerr.OriginRecovery,
			"commit marker references unknown entity").WithDetail("entity=" + stored.Entity)
	}
	codec, ok := codecs.Codec(stored.Entity)
	if !ok {
		return commit.RowOp{}, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginRecovery,
			"no codec registered for entity").WithDetail("entity=" + stored.Entity)
	}
	return commit.Rederive(entity, codec, stored.PK, stored.Before, stored.After)
}

// rollback undoes applied, in reverse order, by applying each op's
// inverse (spec §4.9 step 3). The marker itself is left in place by the
// caller - only a successful full replay clears it.
func rollback(store kv.Store, applied []commit.RowOp) error {
	return store.Update(func(tx kv.RwTx) error {
		for i := len(applied) - 1; i >= 0; i-- {
			if err := commit.Apply(tx, []commit.RowOp{commit.Invert(applied[i])}); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadMarker(store kv.Store) ([]byte, bool, error) {
	var raw []byte
	var found bool
	err := store.View(func(tx kv.Tx) error {
		v, ok, err := tx.Get(kv.TableMeta, kv.MarkerKey)
		if err != nil {
			return err
		}
		raw, found = v, ok
		return nil
	})
	return raw, found, err
}

func clearMarker(store kv.Store) error {
	return store.Update(func(tx kv.RwTx) error {
		return tx.Delete(kv.TableMeta, kv.MarkerKey)
	})
}
