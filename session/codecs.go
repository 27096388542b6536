package session

import (
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/icyerr"
)

// Codecs is the registry of per-entity executor.Codec implementations a
// Session needs to decode/encode rows; it also satisfies
// recovery.Codecs, so replay can reuse it directly.
type Codecs struct {
	byEntity map[string]executor.Codec
}

// NewCodecs builds an empty codec registry.
func NewCodecs() *Codecs {
	return &Codecs{byEntity: make(map[string]executor.Codec)}
}

// Register associates codec with entity. Must be called once per entity
// before a Session can save/delete/load it.
func (c *Codecs) Register(entity string, codec executor.Codec) {
	c.byEntity[entity] = codec
}

// Codec looks up the codec registered for entity.
func (c *Codecs) Codec(entity string) (executor.Codec, bool) {
	codec, ok := c.byEntity[entity]
	return codec, ok
}

func (c *Codecs) require(entity string) (executor.Codec, error) {
	codec, ok := c.byEntity[entity]
	if !ok {
		return nil, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginInterface, "no codec registered for entity").
			WithDetail("entity=" + entity)
	}
	return codec, nil
}
