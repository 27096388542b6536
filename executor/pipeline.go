package executor

import (
	"sort"

	"github.com/dragginzgame/icydb-core/cursor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/value"
)

// materializedRow pairs a decoded Record with the raw index key it was
// found at, when its access path has one - the only piece of
// information a next-page anchor needs beyond the row's own order
// fields (spec §4.7 "Emission of next token").
type materializedRow struct {
	rec    Record
	rawKey indexkey.RawKey
}

// sortRows performs the post-access in-memory sort (spec §4.7 "Order: if
// the access stream did not satisfy the requested order, perform an
// in-memory sort"), stable so ties preserve the access stream's own
// emission order.
func sortRows(rows []materializedRow, order []planner.OrderField) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := compareRows(rows[i].rec, rows[j].rec, order)
		if err != nil {
			sortErr = err
			return false
		}
		return cmp < 0
	})
	return sortErr
}

func compareRows(a, b Record, order []planner.OrderField) (int, error) {
	for _, of := range order {
		av, aok := a.Field(of.Field)
		bv, bok := b.Field(of.Field)
		if !aok || !bok {
			return 0, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
				"order field absent from materialized row").WithDetail("field=" + of.Field)
		}
		cmp, err := value.Compare(av, bv)
		if err != nil {
			return 0, err
		}
		if of.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

// compareToBoundary reports the row's position relative to a decoded
// cursor boundary under the canonical multi-field order: >0 means the
// row comes strictly after the boundary in traversal order (spec §4.7
// "Cursor-boundary: drop rows that are not strictly after the token's
// boundary under the canonical order").
func compareToBoundary(rec Record, boundary []cursor.BoundarySlot, order []planner.OrderField) (int, error) {
	for i, slot := range boundary {
		if i >= len(order) {
			break
		}
		of := order[i]
		rv, ok := rec.Field(of.Field)
		if !ok {
			return 0, icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
				"order field absent from materialized row").WithDetail("field=" + of.Field)
		}
		cmp, err := value.Compare(rv, slot.Value)
		if err != nil {
			return 0, err
		}
		if of.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}
