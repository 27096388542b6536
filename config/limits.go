// Package config implements the resource-limit configuration surface
// spec §5 "Configurable bounds" names but leaves without an API: max
// index entry bytes, max commit marker bytes, and max row bytes. The scan
// budget is not configurable here; the executor derives it per query from
// the window's limit and offset.
package config

import (
	"github.com/c2h5oh/datasize"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/kv"
)

// Limits holds every configurable bound the engine enforces (spec §5).
// Zero-value fields are left at whatever the package they govern
// already defaults to; Apply only overrides a bound when its field is
// non-zero, so a partially-populated Limits (e.g. loaded from a TOML
// file that only sets one knob) behaves as an overlay on Defaults.
type Limits struct {
	MaxIndexEntryBytes datasize.ByteSize `toml:"max_index_entry_bytes"`
	MaxMarkerBytes     datasize.ByteSize `toml:"max_marker_bytes"`
	MaxRowBytes        datasize.ByteSize `toml:"max_row_bytes"`
}

// Defaults returns the bounds the engine ships with, matching the
// values kv/commit already enforce before any config is applied.
func Defaults() Limits {
	return Limits{
		MaxIndexEntryBytes: 4 * datasize.KB,
		MaxMarkerBytes:     1 * datasize.MB,
		MaxRowBytes:        1 * datasize.MB,
	}
}

// Apply pushes l's non-zero bounds into the kv and commit packages.
// Call once at startup, before constructing a session.Session, so
// every subsequent encode/decode is governed by the configured limits
// rather than their built-in defaults.
func Apply(l Limits) {
	if l.MaxIndexEntryBytes > 0 {
		kv.SetIndexEntryLimit(int(l.MaxIndexEntryBytes))
	}
	if l.MaxMarkerBytes > 0 {
		commit.SetMarkerLimit(int(l.MaxMarkerBytes))
	}
	if l.MaxRowBytes > 0 {
		kv.SetRowLimit(int(l.MaxRowBytes))
	}
}
