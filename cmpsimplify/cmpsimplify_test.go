package cmpsimplify

import (
	"testing"

	"github.com/go-osra/osra/ir"
)

func TestSimplifyLeavesConstantOnRightUnchanged(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	x := b.EmitOther(bb, ir.Type{Width: 32})
	cmp := b.EmitCmp(bb, ir.ULT, x, ir.Const{Typ: ir.Type{Width: 32}, Bits: 10})

	value, pred, k, ok := Simplify(cmp)
	if !ok || value != ir.Value(x) || pred != ir.ULT || k.Bits != 10 {
		t.Fatalf("expected (x, ult, 10, true), got (%v, %v, %v, %v)", value, pred, k, ok)
	}
}

func TestSimplifyMirrorsPredicateWhenConstantIsOnLeft(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	x := b.EmitOther(bb, ir.Type{Width: 32})
	cmp := b.EmitCmp(bb, ir.ULT, ir.Const{Typ: ir.Type{Width: 32}, Bits: 10}, x)

	value, pred, k, ok := Simplify(cmp)
	if !ok || value != ir.Value(x) || pred != ir.UGT || k.Bits != 10 {
		t.Fatalf("expected (x, ugt, 10, true), got (%v, %v, %v, %v)", value, pred, k, ok)
	}
}

func TestSimplifyFailsWithNoConstantOperand(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	x := b.EmitOther(bb, ir.Type{Width: 32})
	y := b.EmitOther(bb, ir.Type{Width: 32})
	cmp := b.EmitCmp(bb, ir.EQ, x, y)

	if _, _, _, ok := Simplify(cmp); ok {
		t.Fatalf("expected ok=false when neither operand is a literal constant")
	}
}

func TestCanonicalReportsExistingOrder(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	x := b.EmitOther(bb, ir.Type{Width: 32})

	right := b.EmitCmp(bb, ir.ULT, x, ir.Const{Typ: ir.Type{Width: 32}, Bits: 10})
	if !Canonical(right) {
		t.Fatalf("expected a constant-on-the-right comparison to already be canonical")
	}

	left := b.EmitCmp(bb, ir.ULT, ir.Const{Typ: ir.Type{Width: 32}, Bits: 10}, x)
	if Canonical(left) {
		t.Fatalf("expected a constant-on-the-left comparison to not be canonical")
	}
}
