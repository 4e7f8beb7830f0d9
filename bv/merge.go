package bv

import "github.com/go-osra/osra/ir"

// Merge combines two BVs over the same Value under the given policy,
// implementing spec.md §4.1's merge semantics:
//
//   - ⊥ absorbs under And; the non-⊥ side wins under Or.
//   - incompatible settled signedness promotes to Inconsistent.
//   - both sides are normalized to plain (non-negated) intervals before
//     the interval meet/join, except for the "v != k" (negated-constant)
//     shape, which is handled directly since it cannot be normalized to a
//     single positive interval (spec.md §9's "unlimited" BV).
//
// Where an exact result would require tracking more than one hole in an
// interval (e.g. the meet of two distinct NE constraints on the same
// value), the result is conservatively widened rather than computed
// exactly — spec.md §8 scenario 4 calls this out explicitly as "safely
// approximated".
//
// Returns the merged BV and whether it differs from the receiver.
func (a BV) Merge(policy Policy, o BV) (BV, bool) {
	if a.bottom && o.bottom {
		return a, false
	}
	if policy == And {
		if a.bottom {
			return a, false
		}
		if o.bottom {
			return Bottom(a.value), true
		}
	} else {
		if a.bottom {
			return o, !o.Eq(a)
		}
		if o.bottom {
			return a, false
		}
	}

	sign := mergeSignedness(a.sign, o.sign)

	aHole, aIsNE := negatedConstant(a)
	oHole, oIsNE := negatedConstant(o)

	var result BV
	switch {
	case aIsNE && oIsNE:
		result = mergeTwoHoles(policy, a.value, sign, aHole, oHole)
	case aIsNE:
		result = mergeRangeAndHole(policy, o, sign, aHole)
	case oIsNE:
		result = mergeRangeAndHole(policy, a, sign, oHole)
	default:
		aLo, aHi, aValid := normalizePositive(a)
		oLo, oHi, oValid := normalizePositive(o)
		result = combineIntervals(policy, a.value, sign, aLo, aHi, aValid, oLo, oHi, oValid)
	}

	return result, !result.Eq(a)
}

func negatedConstant(x BV) (uint64, bool) {
	if x.negated && x.IsConstant() {
		return x.lo, true
	}
	return 0, false
}

// normalizePositive returns x's represented set as a plain [lo,hi]
// interval, or valid=false if x cannot be expressed that way (top, or an
// unlimited negated BV).
func normalizePositive(x BV) (lo, hi uint64, valid bool) {
	if x.IsUninitialized() {
		return 0, 0, false
	}
	if x.sign == Any {
		return x.lo, x.hi, true
	}
	if !x.negated {
		return x.lo, x.hi, true
	}
	if x.IsSingleRange() {
		lo, hi := x.ActualBoundaries()
		return lo, hi, true
	}
	return 0, 0, false
}

func topSigned(v ir.Value, sign Signedness) BV {
	b := BV{value: v, sign: sign}
	if sign == Unknown {
		return b
	}
	b.lo = b.lowerExtreme()
	b.hi = b.upperExtreme()
	return b
}

func buildPositive(v ir.Value, sign Signedness, lo, hi uint64) BV {
	return BV{value: v, sign: sign, lo: lo, hi: hi}
}

func negatedConstantBV(v ir.Value, sign Signedness, k uint64) BV {
	return BV{value: v, sign: sign, lo: k, hi: k, negated: true}
}

// mergeTwoHoles merges two "v != k" constraints on the same value.
func mergeTwoHoles(policy Policy, v ir.Value, sign Signedness, k1, k2 uint64) BV {
	if k1 == k2 {
		return negatedConstantBV(v, sign, k1)
	}
	switch policy {
	case And:
		// Excluding two distinct points isn't a single interval; widen
		// conservatively to top rather than track two holes.
		return topSigned(v, sign)
	default: // Or
		// "!= k1" OR "!= k2" with k1 != k2 covers every value (any x is
		// unequal to at least one of two distinct constants) — exact.
		return topSigned(v, sign)
	}
}

// mergeRangeAndHole merges a plain/negated range with a "v != k"
// constraint on the same value.
func mergeRangeAndHole(policy Policy, rangeBV BV, sign Signedness, hole uint64) BV {
	if rangeBV.IsUninitialized() {
		switch policy {
		case And:
			return negatedConstantBV(rangeBV.value, sign, hole)
		default:
			return topSigned(rangeBV.value, sign)
		}
	}

	lo, hi, valid := normalizePositive(rangeBV)
	if !valid {
		return topSigned(rangeBV.value, sign)
	}

	switch policy {
	case And:
		if rangeBV.IsConstant() && lo == hole {
			return Bottom(rangeBV.value)
		}
		// Hole inside or outside the range: keep the range as-is. This is
		// exact when the hole falls outside [lo,hi], and a safe
		// over-approximation (documented) when it falls inside.
		return buildPositive(rangeBV.value, sign, lo, hi)
	default: // Or
		if leq(sign, lo, hole) && leq(sign, hole, hi) {
			// The range already covers the excluded point, so "range OR
			// != hole" covers everything.
			return topSigned(rangeBV.value, sign)
		}
		return negatedConstantBV(rangeBV.value, sign, hole)
	}
}

func combineIntervals(
	policy Policy, v ir.Value, sign Signedness,
	aLo, aHi uint64, aValid bool,
	bLo, bHi uint64, bValid bool,
) BV {
	switch policy {
	case And:
		switch {
		case !aValid && !bValid:
			return topSigned(v, sign)
		case !aValid:
			return buildPositive(v, sign, bLo, bHi)
		case !bValid:
			return buildPositive(v, sign, aLo, aHi)
		}
		lo := maxOrdered(sign, aLo, bLo)
		hi := minOrdered(sign, aHi, bHi)
		if lt(sign, hi, lo) {
			return Bottom(v)
		}
		return buildPositive(v, sign, lo, hi)
	default: // Or
		if !aValid || !bValid {
			return topSigned(v, sign)
		}
		lo := minOrdered(sign, aLo, bLo)
		hi := maxOrdered(sign, aHi, bHi)
		return buildPositive(v, sign, lo, hi)
	}
}

func mergeSignedness(a, o Signedness) Signedness {
	if a == Inconsistent || o == Inconsistent {
		return Inconsistent
	}
	if a == Any && o == Any {
		return Any
	}
	if a == Any {
		return o
	}
	if o == Any {
		return a
	}
	if a == Unknown {
		return o
	}
	if o == Unknown {
		return a
	}
	if a == o {
		return a
	}
	return Inconsistent
}
