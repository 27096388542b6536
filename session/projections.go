package session

import (
	"github.com/dragginzgame/icydb-core/executor"
	"github.com/dragginzgame/icydb-core/value"
)

// ValuesBy runs q unbounded and projects field out of every matching
// row, in row order (spec §4.7 "values_by(field)").
func (s *Session) ValuesBy(q Query, field string) ([]value.Value, error) {
	rows, err := s.rows(q)
	if err != nil {
		return nil, err
	}
	return executor.ValuesBy(rows, field)
}

// DistinctValuesBy is ValuesBy deduped by first occurrence (spec §4.7
// "distinct_values_by(field)").
func (s *Session) DistinctValuesBy(q Query, field string) ([]value.Value, error) {
	rows, err := s.rows(q)
	if err != nil {
		return nil, err
	}
	return executor.DistinctValuesBy(rows, field)
}

// ValuesByWithIDs is ValuesBy paired with each row's PK (spec §4.7
// "values_by_with_ids(field)").
func (s *Session) ValuesByWithIDs(q Query, field string) ([]executor.IDValue, error) {
	rows, err := s.rows(q)
	if err != nil {
		return nil, err
	}
	return executor.ValuesByWithIDs(rows, field)
}
