package bv

import (
	"testing"

	"github.com/go-osra/osra/ir"
)

var v32 = ir.Const{Typ: ir.Type{Width: 32}, Bits: 0}

func TestMergeBoundaryOrJoinsToTop(t *testing.T) {
	// createLE(v,k,Unsigned).merge<Or>(createGE(v,k+1,Unsigned)) == top
	const k = 10
	le := CreateLE(v32, k, false)
	ge := CreateGE(v32, k+1, false)

	got, changed := le.Merge(Or, ge)
	if !got.IsTop() {
		t.Fatalf("expected top, got %s", got)
	}
	if !changed {
		t.Fatalf("expected change flag set")
	}
}

func TestMergeBoundaryEqAndNeIsBottom(t *testing.T) {
	const k = 7
	for _, signed := range []bool{false, true} {
		eq := CreateEQ(v32, k, signed)
		ne := CreateNE(v32, k, signed)

		got, _ := eq.Merge(And, ne)
		if !got.IsBottom() {
			t.Fatalf("signed=%v: expected bottom, got %s", signed, got)
		}
	}
}

func TestConstantIsNeverNegated(t *testing.T) {
	c := Constant(v32, 42)
	if c.Negated() {
		t.Fatalf("constant BV must never be negated")
	}
	if !c.IsConstant() {
		t.Fatalf("expected IsConstant")
	}
	if c.ConstantValue() != 42 {
		t.Fatalf("got %d", c.ConstantValue())
	}
}

func TestTopUninitializedRoundtrip(t *testing.T) {
	top := Top(v32)
	if !top.IsTop() {
		t.Fatalf("fresh Top must report IsTop")
	}
	if !top.IsUninitialized() {
		t.Fatalf("fresh Top must report IsUninitialized")
	}
	settled, changed := top.SetSignedness(false)
	if !changed {
		t.Fatalf("expected signedness to change from Unknown")
	}
	if settled.Sign() != Unsigned {
		t.Fatalf("expected Unsigned, got %s", settled.Sign())
	}
	if !settled.IsTop() {
		t.Fatalf("full unsigned range must still report IsTop")
	}
}

func TestSetSignednessInconsistent(t *testing.T) {
	b := CreateEQ(v32, 5, false)
	b, changed := b.SetSignedness(true)
	if !changed {
		t.Fatalf("expected a change to Inconsistent")
	}
	if b.Sign() != Inconsistent {
		t.Fatalf("expected Inconsistent, got %s", b.Sign())
	}
	// Inconsistent is a sink.
	again, changed := b.SetSignedness(false)
	if changed {
		t.Fatalf("Inconsistent must be a sink")
	}
	if again.Sign() != Inconsistent {
		t.Fatalf("expected still Inconsistent")
	}
}

func TestActualBoundariesPanicsOnUnlimitedNegated(t *testing.T) {
	// A negated BV with neither endpoint at an extreme has no single-range
	// complement (spec.md §9's Open Question resolution).
	b := BV{value: v32, sign: Unsigned, lo: 10, hi: 20, negated: true}
	if b.IsSingleRange() {
		t.Fatalf("expected not single-range")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on ActualBoundaries of an unlimited negated BV")
		}
	}()
	b.ActualBoundaries()
}

func TestMoveToShiftsInterval(t *testing.T) {
	out := ir.Const{Typ: ir.Type{Width: 32}, Bits: 0}
	b := CreateGE(v32, 0, false)
	b, _ = b.SetBound(Upper, And, 10)
	moved := b.MoveTo(out, 3, 2)
	lo, hi := moved.Bounds()
	if lo != 3 || hi != 23 {
		t.Fatalf("expected [3,23], got [%d,%d]", lo, hi)
	}
}

func TestMergeBottomAbsorption(t *testing.T) {
	bot := Bottom(v32)
	c := Constant(v32, 1)

	got, _ := bot.Merge(And, c)
	if !got.IsBottom() {
		t.Fatalf("bottom must absorb under And")
	}

	got, _ = bot.Merge(Or, c)
	if !got.Eq(c) {
		t.Fatalf("bottom must be identity under Or, got %s", got)
	}
}
