package executor

import "math/bits"

// safeAdd returns x+y and whether the addition overflowed uint64, the
// same carry-checked idiom erigon-lib's math.SafeAdd uses (bits.Add64),
// adapted here to gate the fallback scan budget (spec §4.6 "Fallback
// scan ... governed by a scan budget: if limit+offset+1 is
// provable-safe, execution is bounded").
func safeAdd(x, y uint64) (uint64, bool) {
	sum, carry := bits.Add64(x, y, 0)
	return sum, carry == 0
}

// scanBudget computes limit+offset+1 when that sum is provably
// representable without overflow. ok=false means no budget can be
// proven safe and the fallback scan must proceed unbounded, relying on
// post-filtering instead (spec §4.6).
func scanBudget(limit *uint64, offset uint64) (budget uint64, ok bool) {
	if limit == nil {
		return 0, false
	}
	sum, ok1 := safeAdd(*limit, offset)
	if !ok1 {
		return 0, false
	}
	sum, ok2 := safeAdd(sum, 1)
	if !ok2 {
		return 0, false
	}
	return sum, true
}
