package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/commit"
	"github.com/dragginzgame/icydb-core/internal/memkv"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/value"
)

func TestDefaults(t *testing.T) {
	r := require.New(t)
	d := Defaults()
	r.Equal(4*datasize.KB, d.MaxIndexEntryBytes)
	r.Equal(1*datasize.MB, d.MaxMarkerBytes)
	r.Equal(1*datasize.MB, d.MaxRowBytes)
}

func TestApplyIgnoresZeroFields(t *testing.T) {
	r := require.New(t)
	defer func() {
		kv.SetIndexEntryLimit(4096)
		commit.SetMarkerLimit(1 << 20)
		kv.SetRowLimit(1 << 20)
	}()

	Apply(Limits{MaxIndexEntryBytes: 8 * datasize.KB})

	// Marker/row bounds were zero in the overlay, so they must retain
	// their prior (default) behavior rather than collapsing to zero.
	_, err := commit.EncodeMarker(commit.Marker{})
	r.NoError(err)
}

func TestApplyTightensRowLimit(t *testing.T) {
	r := require.New(t)
	defer kv.SetRowLimit(1 << 20)

	Apply(Limits{MaxRowBytes: 4})

	store := memkv.New()
	err := store.Update(func(tx kv.RwTx) error {
		return kv.NewRwDataStore(tx).Put("item", value.NewUint(1), []byte("too long a row"))
	})
	r.Error(err)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.toml")
	r.NoError(os.WriteFile(path, []byte("max_row_bytes = \"2MB\"\n"), 0o600))

	l, err := Load(path)
	r.NoError(err)
	r.Equal(2*datasize.MB, l.MaxRowBytes)
	r.Equal(Defaults().MaxIndexEntryBytes, l.MaxIndexEntryBytes)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	r := require.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	r.Error(err)
}
