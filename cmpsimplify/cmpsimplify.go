// Package cmpsimplify implements the comparison-simplifier collaborator
// spec.md's constraint extractor (C4) assumes upstream: putting a raw
// comparison into "value pred constant" canonical form before anything
// downstream inspects it, independent of whatever OSR tracking may or may
// not have settled for either operand yet.
//
// Grounded on _examples/original_source/ir-helpers.h's isa_with_op /
// swapOperands idiom: normalize operand order to a canonical type layout
// (there, "first operand of type F, second of type S"; here, "value on the
// left, constant on the right") rather than special-casing both orders
// everywhere a comparison is consumed.
package cmpsimplify

import "github.com/go-osra/osra/ir"

// Simplify puts cmp into canonical form: if its constant operand is on the
// left, the returned predicate is mirrored so that reading it as
// "value pred k" preserves the original meaning. ok is false when neither
// operand is a literal ir.Const — cmpsimplify only canonicalizes around a
// literal; a value with a merely-inferred constant OSR is
// constraint.IdentifyOperands's concern, not this package's.
func Simplify(cmp *ir.Cmp) (value ir.Value, pred ir.Predicate, k ir.Const, ok bool) {
	if kc, isConst := cmp.Y.(ir.Const); isConst {
		return cmp.X, cmp.Pred, kc, true
	}
	if kc, isConst := cmp.X.(ir.Const); isConst {
		return cmp.Y, cmp.Pred.Mirror(), kc, true
	}
	return nil, cmp.Pred, ir.Const{}, false
}

// Canonical reports whether cmp is already in "value pred constant" form,
// i.e. its constant operand (if it has one) is already on the right.
func Canonical(cmp *ir.Cmp) bool {
	_, isConstY := cmp.Y.(ir.Const)
	_, isConstX := cmp.X.(ir.Const)
	return isConstY || !isConstX
}
