package executor

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// materialize loads and decodes the row for pk under entity, verifying
// the identity invariant: the decoded row's own PK must equal the
// storage key it was found at (spec §3 "the decoded PK must equal the
// storage key"). A PK produced by an index stream that has no
// corresponding data row, or whose decoded PK disagrees with the lookup
// key, is a store/index desync - always Corruption, never a caller bug.
func materialize(tx kv.Tx, codec Codec, entity schema.EntityDescriptor, pk value.Value) (Record, error) {
	row, found, err := kv.NewDataStore(tx).Get(entity.Name, pk)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, icyerr.New(icyerr.ClassCorruption, icyerr.OriginExecutor, "index entry references a row absent from the data store").
			WithDetail("entity=" + entity.Name)
	}
	rec, err := codec.Decode(row)
	if err != nil {
		return nil, err
	}
	eq, err := value.Equal(rec.PK(), pk)
	if err != nil {
		return nil, err
	}
	if !eq {
		return nil, icyerr.New(icyerr.ClassCorruption, icyerr.OriginExecutor, "decoded row PK does not match its storage key").
			WithDetail("entity=" + entity.Name)
	}
	return rec, nil
}
