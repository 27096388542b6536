// Package session implements C16: the Save/Delete/Load facade that wires
// schema, planner, executor, and commit together into the engine's one
// externally-visible entry point (spec §6 "Query surface").
package session

import (
	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/recovery"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// Session is the engine's entry point: one per host map, constructed
// once recovery has run to completion.
type Session struct {
	store    kv.Store
	registry *schema.Registry
	codecs   *Codecs
	window   *commit.Window
	stats    Stats
}

// New runs recovery against store (spec §4.9 "invoked before any read
// or write when startup detects a commit marker") and returns a ready
// Session.
func New(store kv.Store, registry *schema.Registry, codecs *Codecs) (*Session, error) {
	replayed, err := recovery.Recover(store, registry, codecs)
	if err != nil {
		return nil, err
	}
	return &Session{
		store:    store,
		registry: registry,
		codecs:   codecs,
		window:   commit.NewWindow(store),
		stats:    Stats{MarkerReplays: uint64(replayed)},
	}, nil
}

func unknownEntity(name string) error {
	return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginInterface, "unknown entity").WithDetail("entity=" + name)
}

func (s *Session) resolve(entityName string) (schema.EntityDescriptor, executor.Codec, error) {
	entity, ok := s.registry.Entity(entityName)
	if !ok {
		return schema.EntityDescriptor{}, nil, unknownEntity(entityName)
	}
	codec, err := s.codecs.require(entityName)
	if err != nil {
		return schema.EntityDescriptor{}, nil, err
	}
	return entity, codec, nil
}

// Save prepares and commits a single row-op under commit.Single (spec §6
// "save(entity, mode)").
func (s *Session) Save(entityName string, rec executor.Record, mode commit.SaveMode) error {
	entity, codec, err := s.resolve(entityName)
	if err != nil {
		return err
	}

	var op commit.RowOp
	if err := s.store.View(func(tx kv.Tx) error {
		o, err := commit.PreparePut(tx, entity, codec, rec, mode)
		if err != nil {
			return err
		}
		op = o
		return nil
	}); err != nil {
		return err
	}

	if err := s.window.Commit(commit.Single, []commit.RowOp{op}); err != nil {
		return err
	}
	s.stats.CommitCount++
	return nil
}

// SaveMany prepares every row in recs against the current live store and
// commits them together under lane (spec §6 "save_many(entities, lane,
// mode)").
func (s *Session) SaveMany(entityName string, recs []executor.Record, lane commit.Lane, mode commit.SaveMode) error {
	entity, codec, err := s.resolve(entityName)
	if err != nil {
		return err
	}

	ops := make([]commit.RowOp, 0, len(recs))
	if err := s.store.View(func(tx kv.Tx) error {
		for _, rec := range recs {
			op, err := commit.PreparePut(tx, entity, codec, rec, mode)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}
		return nil
	}); err != nil {
		return err
	}

	if len(ops) == 0 {
		return nil
	}
	if err := s.window.Commit(lane, ops); err != nil {
		return err
	}
	s.stats.CommitCount++
	return nil
}

// Delete prepares and commits a single delete, a no-op if pk does not
// exist (spec §6 "delete(entity_pk)").
func (s *Session) Delete(entityName string, pk value.Value) error {
	entity, codec, err := s.resolve(entityName)
	if err != nil {
		return err
	}

	var op commit.RowOp
	var found bool
	if err := s.store.View(func(tx kv.Tx) error {
		o, ok, err := commit.PrepareDelete(tx, entity, codec, pk)
		if err != nil {
			return err
		}
		op, found = o, ok
		return nil
	}); err != nil {
		return err
	}
	if !found {
		return nil
	}

	if err := s.window.Commit(commit.Single, []commit.RowOp{op}); err != nil {
		return err
	}
	s.stats.CommitCount++
	return nil
}

// DeleteMany prepares every pk that still exists and commits them
// together under lane (spec §6 "delete_many(pks, lane)"). PKs with
// nothing to delete are silently skipped.
func (s *Session) DeleteMany(entityName string, pks []value.Value, lane commit.Lane) error {
	entity, codec, err := s.resolve(entityName)
	if err != nil {
		return err
	}

	ops := make([]commit.RowOp, 0, len(pks))
	if err := s.store.View(func(tx kv.Tx) error {
		for _, pk := range pks {
			op, found, err := commit.PrepareDelete(tx, entity, codec, pk)
			if err != nil {
				return err
			}
			if found {
				ops = append(ops, op)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if len(ops) == 0 {
		return nil
	}
	if err := s.window.Commit(lane, ops); err != nil {
		return err
	}
	s.stats.CommitCount++
	return nil
}

// Rebuild runs the startup index-rebuild maintenance operation against
// one entity (spec §4.9 "Startup rebuild").
func (s *Session) Rebuild(entityName string) error {
	entity, codec, err := s.resolve(entityName)
	if err != nil {
		return err
	}
	return recovery.Rebuild(s.store, entity, codec)
}
