package executor

import (
	"github.com/dragginzgame/icydb-core/cursor"
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/kv"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
)

// Page is one executed page of a query: the materialized, filtered,
// ordered, windowed rows plus an opaque continuation token for the next
// page, if any (spec §4.7, §6 "PagedRows{ rows, next_cursor }").
type Page struct {
	Rows       []Record
	NextCursor *string
}

// Execute runs plan's access path, post-access pipeline, and pagination
// (spec C10/C11), honoring an optional decoded continuation token.
func Execute(tx kv.Tx, entity schema.EntityDescriptor, codec Codec, plan *planner.Plan, token *cursor.Token) (*Page, error) {
	requestedOffset := plan.Window.Offset
	effectiveOffset := requestedOffset

	if token != nil {
		if err := cursor.Validate(*token, plan, entity, requestedOffset); err != nil {
			return nil, err
		}
		effectiveOffset = 0
	}

	access := plan.AccessPath
	if token != nil && token.Anchor != nil {
		if ixr, ok := access.(planner.IndexRangeAccess); ok {
			ixr.Envelope = ixr.Envelope.ApplyAnchor(token.Anchor.RawKey, plan.Direction)
			access = ixr
		}
	}

	raw, err := NewStream(tx, entity, access, plan.Direction)
	if err != nil {
		return nil, err
	}
	stream := guard(raw)
	defer stream.Close()

	budget, budgeted := scanBudget(plan.Window.Limit, effectiveOffset)
	// A resume without an anchor restarts the stream at the envelope's
	// start, so rows at or before the cursor boundary would count against
	// the budget; such a scan runs unbudgeted instead.
	if token != nil && token.Anchor == nil {
		budgeted = false
	}

	var rows []materializedRow
	stoppedEarly := false
	for {
		rawKey, pk, ok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rec, err := materialize(tx, codec, entity, pk)
		if err != nil {
			return nil, err
		}
		pass, err := predicate.Eval(plan.Residual, rec)
		if err != nil {
			return nil, err
		}
		if !pass {
			continue
		}
		rows = append(rows, materializedRow{rec: rec, rawKey: rawKey})
		if budgeted && !plan.PostSort && uint64(len(rows)) >= budget {
			stoppedEarly = true
			break
		}
	}
	if !stoppedEarly {
		if err := stream.assertConsumed(); err != nil {
			return nil, err
		}
	}

	if plan.PostSort {
		if err := sortRows(rows, plan.Order); err != nil {
			return nil, err
		}
	}

	if token != nil {
		kept := rows[:0]
		for _, r := range rows {
			cmp, err := compareToBoundary(r.rec, token.Boundary, plan.Order)
			if err != nil {
				return nil, err
			}
			if cmp > 0 {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	if effectiveOffset > 0 {
		if effectiveOffset >= uint64(len(rows)) {
			rows = nil
		} else {
			rows = rows[effectiveOffset:]
		}
	}

	hasMore := false
	if plan.Window.Limit != nil && uint64(len(rows)) > *plan.Window.Limit {
		rows = rows[:*plan.Window.Limit]
		hasMore = true
	}

	page := &Page{Rows: make([]Record, len(rows))}
	for i, r := range rows {
		page.Rows[i] = r.rec
	}

	if hasMore && len(rows) > 0 {
		next, err := nextToken(rows[len(rows)-1], plan, requestedOffset)
		if err != nil {
			return nil, err
		}
		page.NextCursor = &next
	}

	return page, nil
}

func nextToken(last materializedRow, plan *planner.Plan, requestedOffset uint64) (string, error) {
	boundary := make([]cursor.BoundarySlot, 0, len(plan.Order))
	for _, of := range plan.Order {
		v, ok := last.rec.Field(of.Field)
		if !ok {
			return "", icyerr.New(icyerr.ClassInvariantViolation, icyerr.OriginExecutor,
				"order field absent when emitting continuation token").WithDetail("field=" + of.Field)
		}
		boundary = append(boundary, cursor.BoundarySlot{Value: v})
	}

	var anchor *cursor.Anchor
	if plan.AccessPath.Kind() == planner.AccessIndexRange && last.rawKey != nil {
		anchor = &cursor.Anchor{
			IndexID:        plan.IndexID,
			KeyKind:        indexkey.KindUser,
			ComponentArity: plan.IndexArity,
			RawKey:         last.rawKey,
		}
	}

	return cursor.Encode(cursor.Token{
		Version:       cursor.VersionV2,
		Fingerprint:   plan.Fingerprint,
		Direction:     plan.Direction,
		InitialOffset: requestedOffset,
		Boundary:      boundary,
		Anchor:        anchor,
	})
}
