// Package executor implements the access-stream producers, row
// materialization, and post-access pipeline of C10/C11: turning a
// planner.Plan into a bounded sequence of decoded rows.
package executor

import (
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/value"
)

// Record is the decoded form of one entity row. It satisfies
// predicate.Row so the post-access filter can evaluate residual
// predicates directly against it, and additionally exposes the entity's
// own PK for the identity check at materialization time.
type Record interface {
	predicate.Row
	PK() value.Value
}

// Codec decodes/encodes opaque row bytes for one entity (spec §6 "Entity
// encoder"). The engine never interprets row bytes itself; every
// concrete entity type supplies its own Codec.
type Codec interface {
	Decode(raw []byte) (Record, error)
	Encode(r Record) ([]byte, error)
}
