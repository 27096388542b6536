// Package reverseindex implements the reverse-relation index (spec C14):
// a System-namespace index recording, for every strong relation field,
// the (target entity, target PK) -> source PK edge a row mutation
// creates or removes. It backs the delete-block check: a row cannot be
// deleted while some other row's strong relation still points at it.
package reverseindex

import (
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// IndexID names the single System-namespace index every strong
// relation's reverse edges are recorded under.
const IndexID = "reverse"

// Edge is one directed strong-relation edge from a source row to the
// target row it references: (target entity, target PK) -> source PK,
// the same tuple direction the delete-block check reads.
type Edge struct {
	TargetEntity string
	TargetPK     value.Value
	SourcePK     value.Value
}

func rawKey(e Edge) (indexkey.RawKey, error) {
	return indexkey.EncodeKey(indexkey.IndexKey{
		Kind:       indexkey.KindSystem,
		IndexID:    IndexID,
		Components: []value.Value{value.NewIdentifier(e.TargetEntity), e.TargetPK},
		PK:         e.SourcePK,
	})
}

func prefix(targetEntity string, targetPK value.Value) (indexkey.RawKey, error) {
	return indexkey.EncodePrefix(indexkey.KindSystem, IndexID, []value.Value{value.NewIdentifier(targetEntity), targetPK})
}

// HasReferences reports whether any strong relation currently points at
// (targetEntity, targetPK) - the authoritative check the delete-block
// gate runs before admitting a delete (spec C14 "strong relations ...
// block delete of the referenced row").
func HasReferences(tx kv.Tx, targetEntity string, targetPK value.Value) (bool, error) {
	p, err := prefix(targetEntity, targetPK)
	if err != nil {
		return false, err
	}
	count, err := kv.NewIndexStore(tx).CountPrefix(p, 1)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deltas derives the symmetric old/new reverse-edge changes for one row
// mutation (spec C14 "for each row mutation, derive old/new target sets
// for every strong relation field on the source; emit symmetric (remove
// old, add new) reverse-index ops"). before is nil on insert, after is
// nil on delete; at least one must be non-nil.
func Deltas(entity schema.EntityDescriptor, before, after executor.Record) (adds, removes []Edge, err error) {
	source := before
	if source == nil {
		source = after
	}
	if source == nil {
		return nil, nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginCommit,
			"reverse-index delta requires at least one of before/after")
	}
	sourcePK := source.PK()

	for _, rel := range entity.Relations {
		if !rel.Strong {
			continue
		}
		oldTarget, oldOK := targetOf(before, rel.Field)
		newTarget, newOK := targetOf(after, rel.Field)
		if oldOK && newOK {
			eq, eqErr := value.Equal(oldTarget, newTarget)
			if eqErr != nil {
				return nil, nil, eqErr
			}
			if eq {
				continue
			}
		}
		if oldOK {
			removes = append(removes, Edge{TargetEntity: rel.TargetEntity, TargetPK: oldTarget, SourcePK: sourcePK})
		}
		if newOK {
			adds = append(adds, Edge{TargetEntity: rel.TargetEntity, TargetPK: newTarget, SourcePK: sourcePK})
		}
	}
	return adds, removes, nil
}

func targetOf(rec executor.Record, field string) (value.Value, bool) {
	if rec == nil {
		return value.Value{}, false
	}
	return rec.Field(field)
}

// Put persists e as an index entry. Used only by the commit package's
// apply phase.
func Put(rw kv.RwIndexStore, e Edge) error {
	k, err := rawKey(e)
	if err != nil {
		return err
	}
	return rw.Put(k, kv.RawIndexEntry{PK: e.SourcePK})
}

// Remove deletes e's index entry, a no-op if already absent. Used only
// by the commit package's apply phase.
func Remove(rw kv.RwIndexStore, e Edge) error {
	k, err := rawKey(e)
	if err != nil {
		return err
	}
	return rw.Delete(k)
}
