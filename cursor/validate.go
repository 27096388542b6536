package cursor

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/indexkey"
	"github.com/dragginzgame/icydb-core/planner"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

// Validate runs every compatibility gate a decoded token must pass
// before the executor is allowed to resume from it (spec §4.5
// "Compatibility checks"). Each failure is a distinct, named condition
// so callers and tests can assert on *why* a token was rejected, not
// just that it was.
func Validate(t Token, p *planner.Plan, entity schema.EntityDescriptor, requestedOffset uint64) error {
	if t.Fingerprint != p.Fingerprint {
		return fail("PlanFingerprintMismatch")
	}
	if t.Direction != p.Direction {
		return fail("DirectionMismatch")
	}
	if t.InitialOffset != requestedOffset {
		return fail("ContinuationCursorWindowMismatch")
	}
	if len(t.Boundary) != len(p.Order) {
		return fail("BoundaryArityMismatch")
	}
	for i, slot := range t.Boundary {
		field, ok := entity.Field(p.Order[i].Field)
		if !ok {
			return fail("BoundaryFieldUnknown")
		}
		if slot.Value.Family != field.Family {
			return fail("BoundarySlotTypeMismatch")
		}
	}

	ixAccess, isIndexRange := p.AccessPath.(planner.IndexRangeAccess)
	if t.Anchor != nil {
		if !isIndexRange {
			return fail("AnchorNotApplicable")
		}
		if t.Anchor.IndexID != ixAccess.IndexID {
			return fail("AnchorIndexIdMismatch")
		}
		if t.Anchor.KeyKind != indexkey.KindUser {
			return fail("AnchorKeyKindInvalid")
		}
		if t.Anchor.ComponentArity != ixAccess.Arity {
			return fail("AnchorArityMismatch")
		}
		decoded, err := indexkey.DecodeKey(t.Anchor.RawKey, ixAccess.Arity)
		if err != nil {
			return fail("AnchorMalformed")
		}
		if !ixAccess.Envelope.Contains(t.Anchor.RawKey) {
			return fail("AnchorOutOfEnvelope")
		}
		if len(t.Boundary) == 0 {
			return fail("AnchorBoundaryMissing")
		}
		pkSlot := t.Boundary[len(t.Boundary)-1]
		eq, err := value.Equal(decoded.PK, pkSlot.Value)
		if err != nil || !eq {
			return fail("AnchorPKMismatch")
		}
	} else if isIndexRange {
		return fail("AnchorRequired")
	}

	return nil
}

func fail(variant string) error {
	return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginCursor, "cursor token rejected").WithDetail(variant)
}
