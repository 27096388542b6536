package executor

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// unsupportedField reports a projection referencing a field the
// materialized rows don't carry (spec §4.7 "Unknown field -> Unsupported").
func unsupportedField(field string) error {
	return icyerr.New(icyerr.ClassUnsupported, icyerr.OriginQuery, "unknown projection field").WithDetail("field=" + field)
}

// ValuesBy projects field out of every row, in row order.
func ValuesBy(rows []Record, field string) ([]value.Value, error) {
	out := make([]value.Value, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Field(field)
		if !ok {
			return nil, unsupportedField(field)
		}
		out = append(out, v)
	}
	return out, nil
}

// DistinctValuesBy dedupes ValuesBy's output by first occurrence (spec
// §4.7 "distinct_values_by(field) (first-observed dedup)"; §8 parity
// invariant "distinct_values_by(f) == first_observed_dedup(values_by(f))").
func DistinctValuesBy(rows []Record, field string) ([]value.Value, error) {
	all, err := ValuesBy(rows, field)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(all))
	out := make([]value.Value, 0, len(all))
	for _, v := range all {
		key, err := dedupeKey(v)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out, nil
}

func dedupeKey(v value.Value) (string, error) {
	// Compare against itself to force a family check, then key on the
	// family-tagged Go representation directly - Value has no exported
	// byte form of its own, but every family's payload is comparable by
	// value so a distinguishing string key is a simple direct render.
	switch v.Family {
	case value.FamilyInt:
		return "i" + itoa64(v.I), nil
	case value.FamilyUint, value.FamilyTimestamp, value.FamilyEnum:
		return "u" + utoa64(v.U), nil
	case value.FamilyBool:
		if v.Bool {
			return "b1", nil
		}
		return "b0", nil
	case value.FamilyText, value.FamilyIdentifier:
		return "s" + v.S, nil
	case value.FamilyDecimal:
		d := v.Dec.Normalized()
		return "d" + itoa64(int64(d.Sign)) + ":" + itoa64(int64(d.Exp)) + ":" + d.Mag.Dec(), nil
	default:
		return "", icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginQuery, "unknown value family")
	}
}

func itoa64(n int64) string {
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	s := utoa64(u)
	if neg {
		return "-" + s
	}
	return s
}

func utoa64(u uint64) string {
	if u == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}

// FirstValueBy returns the first row's projected field, if any.
func FirstValueBy(rows []Record, field string) (value.Value, bool, error) {
	if len(rows) == 0 {
		return value.Value{}, false, nil
	}
	v, ok := rows[0].Field(field)
	if !ok {
		return value.Value{}, false, unsupportedField(field)
	}
	return v, true, nil
}

// LastValueBy returns the last row's projected field, if any.
func LastValueBy(rows []Record, field string) (value.Value, bool, error) {
	if len(rows) == 0 {
		return value.Value{}, false, nil
	}
	v, ok := rows[len(rows)-1].Field(field)
	if !ok {
		return value.Value{}, false, unsupportedField(field)
	}
	return v, true, nil
}

// IDValue pairs a row's PK with its projected field value (spec §4.7
// "values_by_with_ids").
type IDValue struct {
	PK    value.Value
	Value value.Value
}

// ValuesByWithIDs is ValuesBy paired with each row's PK.
func ValuesByWithIDs(rows []Record, field string) ([]IDValue, error) {
	out := make([]IDValue, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Field(field)
		if !ok {
			return nil, unsupportedField(field)
		}
		out = append(out, IDValue{PK: r.PK(), Value: v})
	}
	return out, nil
}

// Group is one bucket of GroupBy's output: every row sharing Key's
// value for the grouped field, in row order.
type Group struct {
	Key  value.Value
	Rows []Record
}

// GroupBy buckets rows by field, in first-observed bucket order (spec
// §6 "Response ... GroupedRows(...)").
func GroupBy(rows []Record, field string) ([]Group, error) {
	order := make([]string, 0)
	buckets := make(map[string]*Group)
	for _, r := range rows {
		v, ok := r.Field(field)
		if !ok {
			return nil, unsupportedField(field)
		}
		key, err := dedupeKey(v)
		if err != nil {
			return nil, err
		}
		g, exists := buckets[key]
		if !exists {
			g = &Group{Key: v}
			buckets[key] = g
			order = append(order, key)
		}
		g.Rows = append(g.Rows, r)
	}
	out := make([]Group, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out, nil
}
