package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dragginzgame/icydb-core/icyerr"
)

// Load reads a TOML-encoded Limits document from path, starting from
// Defaults() and overlaying whatever the file sets (spec §5
// "Configurable bounds"). A missing field in the file keeps its
// default value rather than zeroing it out.
func Load(path string) (Limits, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, icyerr.Wrap(icyerr.ClassSystemFailure, icyerr.OriginInterface, "reading config file", err)
	}

	l := Defaults()
	if err := toml.Unmarshal(raw, &l); err != nil {
		return Limits{}, icyerr.Wrap(icyerr.ClassInvalidInput, icyerr.OriginInterface, "parsing config file", err)
	}
	return l, nil
}
