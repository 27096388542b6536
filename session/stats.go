package session

// Stats is a read-only snapshot of the session's lifetime counters,
// supplementing spec's C16 surface with basic operability signal.
type Stats struct {
	CommitCount   uint64
	RowsScanned   uint64
	MarkerReplays uint64
}

// Stats returns a snapshot of s's current counters.
func (s *Session) Stats() Stats {
	return s.stats
}
