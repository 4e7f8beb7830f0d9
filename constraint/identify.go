// Package constraint implements C4: turning a branch or switch's
// comparison into per-successor BV constraints on the free operand and its
// transitive dependents (spec.md §4.4).
package constraint

import "github.com/go-osra/osra/ir"

// constOf resolves v to a concrete constant bit pattern, either because v
// is itself an ir.Const or because its tracked OSR has a zero factor (a
// computed compile-time constant).
func constOf(osrs OSRLookup, v ir.Value) (uint64, bool) {
	if c, ok := v.(ir.Const); ok {
		return c.Bits, true
	}
	if o, ok := osrs(v); ok && o.Factor == 0 {
		return o.Base, true
	}
	return 0, false
}

// IdentifyOperands picks the free (non-constant-factor) side of a
// comparison and the known constant on the other side, normalizing so the
// returned predicate always reads "free p k" (mirroring p if the free
// operand was originally the right-hand operand). ok is false if neither
// side resolves to exactly one free operand plus one known constant — C4
// has nothing to propagate in that case (spec.md §4.4 point 5).
func IdentifyOperands(osrs OSRLookup, p ir.Predicate, x, y ir.Value) (free ir.Value, k uint64, pred ir.Predicate, ok bool) {
	xo, xHasOSR := osrs(x)
	yo, yHasOSR := osrs(y)

	xFree := xHasOSR && xo.Factor != 0
	yFree := yHasOSR && yo.Factor != 0

	if xFree && !yFree {
		if k, known := constOf(osrs, y); known {
			return x, k, p, true
		}
	}
	if yFree && !xFree {
		if k, known := constOf(osrs, x); known {
			return y, k, p.Mirror(), true
		}
	}
	return nil, 0, p, false
}
