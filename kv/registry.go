package kv

// TableFlags records structural properties of a registered table, the
// same bitflag idiom erigon-lib's TableCfgItem.Flags uses to describe
// mdbx bucket layout. They are recorded data only: the in-memory backend
// and the schema package never read them, and they are queried solely
// through IsUnique and IsSystem.
type TableFlags uint

const (
	FlagNone TableFlags = 0
	// FlagUnique marks an index table whose keys map to at most one
	// primary key each (spec §3 "Index.unique"). The index store adapter
	// does not consult it; uniqueness is enforced at commit preflight from
	// the schema's IndexDescriptor.Unique.
	FlagUnique TableFlags = 1 << iota
	// FlagSystem marks the reverse-relation table and any other
	// System-namespace index (spec §9 "System namespace").
	FlagSystem
)

// TableCfgItem describes one logical table registered with a Store,
// mirroring erigon-lib's TableCfgItem shape (flags + a human label) with
// the mdbx-specific DBI/DupSort fields dropped, since the host map
// contract here has no notion of them.
type TableCfgItem struct {
	Flags TableFlags
	// Arity is the number of non-PK components an index-key table's keys
	// carry (spec §3 "Index.arity"); zero for TableData.
	Arity int
}

// TableCfg is the table registry, in the "declare, then look up" shape of
// erigon-lib's TableCfg map for mdbx buckets. The engine's stores do not
// consult it, so registration is not required before a table is used.
type TableCfg map[Table]TableCfgItem

// NewTableCfg seeds a registry with the three fixed core tables (data,
// index, meta) and returns it ready for one entry per declared index.
func NewTableCfg() TableCfg {
	return TableCfg{
		TableData:  {Flags: FlagNone, Arity: 0},
		TableIndex: {Flags: FlagNone, Arity: 0},
		TableMeta:  {Flags: FlagNone, Arity: 0},
	}
}

// Register adds or replaces a table's configuration. Index tables are
// named by their index_id (spec §3), not by the fixed constants above.
// No engine package calls Register; queries and mutations do not depend
// on it.
func (c TableCfg) Register(name Table, item TableCfgItem) {
	c[name] = item
}

// IsUnique reports whether name was registered with FlagUnique.
func (c TableCfg) IsUnique(name Table) bool {
	return c[name].Flags&FlagUnique != 0
}

// IsSystem reports whether name was registered with FlagSystem.
func (c TableCfg) IsSystem(name Table) bool {
	return c[name].Flags&FlagSystem != 0
}
