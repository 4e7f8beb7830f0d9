package osr

import (
	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
)

// Combine implements the closed-form arithmetic transfer of spec.md §4.2:
// given this OSR for the free operand and a constant operand c at
// position freeOpIndex (0 if the free operand is the left-hand side),
// compute the resulting OSR for op(free, c) or op(c, free).
//
// cur is the current BV of the free variable (o.X at o.Home); it is only
// consulted for And, where an all-covering mask is an identity. Returns
// ok=false for opcodes/operands with no closed form — callers fall back
// to an undetermined (⊤) OSR for the result, per spec.md §4.2.
func (o OSR) Combine(op ir.Opcode, c uint64, freeOpIndex int, cur bv.BV) (OSR, bool) {
	m := mask(o.Width)
	out := o
	switch op {
	case ir.OpAdd:
		out.Base = (out.Base + c) & m
		return out, true

	case ir.OpSub:
		if freeOpIndex == 0 {
			out.Base = (out.Base - c) & m
		} else {
			out.Base = (c - out.Base) & m
			out.Factor = (-out.Factor) & m
		}
		return out, true

	case ir.OpMul:
		out.Base = (out.Base * c) & m
		out.Factor = (out.Factor * c) & m
		return out, true

	case ir.OpShl:
		if c >= 64 {
			return OSR{}, false
		}
		mult := uint64(1) << c
		out.Base = (out.Base * mult) & m
		out.Factor = (out.Factor * mult) & m
		return out, true

	case ir.OpAnd:
		if maskCoversRange(c, cur) {
			return out, true
		}
		return OSR{}, false

	case ir.OpOr, ir.OpXor:
		if c == 0 {
			return out, true
		}
		return OSR{}, false

	default:
		return OSR{}, false
	}
}

// maskCoversRange reports whether ANDing with mask c leaves every value
// the free variable can currently take unchanged — true when c keeps every
// bit at or below the highest set bit of cur's upper bound (spec.md §4.2:
// "And with a mask that covers the range: identity").
func maskCoversRange(c uint64, cur bv.BV) bool {
	if cur.IsBottom() || cur.IsUninitialized() {
		return false
	}
	lo, hi := cur.Bounds()
	if cur.Negated() {
		if !cur.IsSingleRange() {
			return false
		}
		lo, hi = cur.ActualBoundaries()
	}
	if lo > hi {
		return false
	}
	covered := hi
	for s := uint(1); s < 64; s <<= 1 {
		covered |= covered >> s
	}
	return covered&^c == 0
}

// Cast implements Trunc/ZExt/SExt/IntToPtr/PtrToInt: Base and Factor are
// preserved modulo the new width (spec.md §4.2). Signedness retagging
// (Signed for SExt, Unsigned for ZExt) is the caller's responsibility —
// it applies to the BV bound to (Home, X) in bvmap.Map, not to the OSR
// itself (spec.md §9's design note: the BV lives in BVMap, keyed, not
// owned by the OSR).
func (o OSR) Cast(op ir.Opcode, newWidth int) (OSR, bool) {
	switch op {
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpIntToPtr, ir.OpPtrToInt:
		out := o
		out.Width = newWidth
		nm := mask(newWidth)
		out.Base &= nm
		out.Factor &= nm
		return out, true
	default:
		return OSR{}, false
	}
}
