package bv

import "github.com/go-osra/osra/ir"

func settle(signed bool) Signedness {
	if signed {
		return Signed
	}
	return Unsigned
}

// CreateGE builds the primitive constraint "v >= k" (spec.md §4.1).
func CreateGE(v ir.Value, k uint64, signed bool) BV {
	b := BV{value: v, sign: settle(signed)}
	b.lo = k
	b.hi = b.upperExtreme()
	return b
}

// CreateLE builds the primitive constraint "v <= k".
func CreateLE(v ir.Value, k uint64, signed bool) BV {
	b := BV{value: v, sign: settle(signed)}
	b.lo = b.lowerExtreme()
	b.hi = k
	return b
}

// CreateEQ builds the primitive constraint "v == k".
func CreateEQ(v ir.Value, k uint64, signed bool) BV {
	return BV{value: v, lo: k, hi: k, sign: settle(signed)}
}

// CreateNE builds the primitive constraint "v != k" using negation on a
// singleton interval (spec.md §4.1: "NE uses negation on a singleton
// interval").
func CreateNE(v ir.Value, k uint64, signed bool) BV {
	return BV{value: v, lo: k, hi: k, sign: settle(signed), negated: true}
}

// CreateConstant builds the BV for a known integer constant.
func CreateConstant(v ir.Value, k uint64) BV {
	return Constant(v, k)
}
