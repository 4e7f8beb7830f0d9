package osra

import (
	"testing"

	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/reachdef"
)

func layout() ir.DataLayout { return ir.DataLayout{PointerWidth: 64} }

// scenario 1 (spec.md §8): linear induction.
func TestLinearInduction(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	entry := b.Block("entry")
	loop := b.Block("L")
	exit := b.Block("exit")

	b.EmitBr(entry, loop)

	i := b.EmitPhi(loop, ir.Type{Width: 32})
	inext := b.EmitBinOp(loop, ir.OpAdd, ir.Type{Width: 32}, i, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})
	b.AddIncoming(i, entry, ir.Const{Typ: ir.Type{Width: 32}, Bits: 0})
	b.AddIncoming(i, loop, inext)
	cmp := b.EmitCmp(loop, ir.ULT, i, ir.Const{Typ: ir.Type{Width: 32}, Bits: 10})
	b.EmitCondBr(loop, cmp, loop, exit)

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	o, ok := result.GetOSR(i)
	if !ok || o.Base != 0 || o.Factor != 1 || o.X != ir.Value(i) {
		t.Fatalf("expected OSR(i) = 0 + 1*i, got %v (ok=%v)", o, ok)
	}

	got := result.BV(loop, i)
	lo, hi := got.Bounds()
	if !got.HasSignedness() || got.IsSigned() || lo != 0 || hi != 9 {
		t.Fatalf("expected BV(i at L) = [0, 9] unsigned, got %s", got)
	}
}

// scenario 2 (spec.md §8): constant fold through sext.
func TestConstantFoldThroughSext(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	bb := b.Block("bb")
	x := b.EmitCast(bb, ir.OpSExt, ir.Type{Width: 64}, ir.Const{Typ: ir.Type{Width: 32}, Bits: 5})

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	o, ok := result.GetOSR(x)
	if !ok || o.Factor != 0 || o.Base != 5 {
		t.Fatalf("expected OSR(x) = constant 5, got %v (ok=%v)", o, ok)
	}

	got := result.BV(bb, x)
	if !got.HasSignedness() || !got.IsSigned() || !got.IsConstant() || got.ConstantValue() != 5 {
		t.Fatalf("expected BV(x) = {5} signed, got %s", got)
	}
}

// scenario 3 (spec.md §8): branch narrowing.
func TestBranchNarrowing(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	entry := b.Block("entry")
	a := b.Block("A")
	bblk := b.Block("B")

	x := b.EmitOther(entry, ir.Type{Width: 32})
	cmp := b.EmitCmp(entry, ir.EQ, x, ir.Const{Typ: ir.Type{Width: 32}, Bits: 7})
	b.EmitCondBr(entry, cmp, a, bblk)

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	inA := result.BV(a, x)
	if !inA.IsConstant() || inA.ConstantValue() != 7 {
		t.Fatalf("expected BV(x) = {7} in A, got %s", inA)
	}

	inB := result.BV(bblk, x)
	if !inB.Negated() || !inB.IsConstant() || inB.ConstantValue() != 7 {
		t.Fatalf("expected BV(x) = negated {7} (co-interval) in B, got %s", inB)
	}
}

// scenario 4 (spec.md §8): switch dispatch.
func TestSwitchDispatch(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	entry := b.Block("entry")
	c1 := b.Block("case1")
	c2 := b.Block("case2")
	c5 := b.Block("case5")
	def := b.Block("default")

	s := b.EmitOther(entry, ir.Type{Width: 32})
	cases := []ir.SwitchCase{
		{Value: ir.Const{Typ: ir.Type{Width: 32}, Bits: 1}, Target: c1},
		{Value: ir.Const{Typ: ir.Type{Width: 32}, Bits: 2}, Target: c2},
		{Value: ir.Const{Typ: ir.Type{Width: 32}, Bits: 5}, Target: c5},
	}
	b.EmitSwitch(entry, s, cases, def)

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	for _, want := range []struct {
		block *ir.BasicBlock
		k     uint64
	}{{c1, 1}, {c2, 2}, {c5, 5}} {
		got := result.BV(want.block, s)
		if !got.IsConstant() || got.ConstantValue() != want.k {
			t.Fatalf("expected BV(s) = {%d} in %s, got %s", want.k, want.block, got)
		}
	}

	// Excluding three distinct case values has no single-interval exact
	// representation (spec.md §8 scenario 4's "safely approximated"): the
	// meet of the three NE components widens to the unconstrained range
	// rather than a negated three-point set.
	inDefault := result.BV(def, s)
	if inDefault.IsBottom() || inDefault.IsConstant() {
		t.Fatalf("expected BV(s) in default to be the conservative unconstrained range, got %s", inDefault)
	}
}

// scenario 5 (spec.md §8): load with two reachers.
func TestLoadWithTwoReachers(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	entry := b.Block("entry")
	then := b.Block("then")
	els := b.Block("else")
	join := b.Block("join")

	ptr := b.EmitOther(entry, ir.Type{Width: 64})
	k := b.EmitOther(entry, ir.Type{Width: 32})
	cmp := b.EmitCmp(entry, ir.EQ, k, ir.Const{Typ: ir.Type{Width: 32}, Bits: 0})
	b.EmitCondBr(entry, cmp, then, els)

	b.EmitStore(then, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 0})
	b.EmitBr(then, join)
	b.EmitStore(els, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 16})
	b.EmitBr(els, join)

	l := b.EmitLoad(join, ir.Type{Width: 32}, ptr)

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	o, ok := result.GetOSR(l)
	if !ok {
		t.Fatalf("expected a tracked OSR for the load")
	}
	if o.Factor != 1 || o.Base != 0 || o.X != ir.Value(l) {
		t.Fatalf("two constant reachers share no common free variable; expected the top fallback OSR 0 + 1*l, got %v", o)
	}
}

// scenario 6 (spec.md §8): subscription re-enqueue on a changed load.
func TestSubscriptionReenqueue(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	bb := b.Block("bb")
	ptr := b.EmitOther(bb, ir.Type{Width: 64})
	b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 3})
	l := b.EmitLoad(bb, ir.Type{Width: 32}, ptr)
	add := b.EmitBinOp(bb, ir.OpAdd, ir.Type{Width: 32}, l, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})

	fn := b.Finish()
	a := New(fn, reachdef.New(fn), nil)
	result := a.Run()

	subs := a.subs.Subscribers(l)
	found := false
	for _, s := range subs {
		if s == ir.Instruction(add) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected add to be subscribed to load l after one run")
	}

	addOSR, ok := result.GetOSR(add)
	if !ok || addOSR.Base != 4 || addOSR.Factor != 0 {
		t.Fatalf("expected OSR(add) = constant 4 (3 + 1), got %v (ok=%v)", addOSR, ok)
	}
}

// spec.md §5: bulk release after query consumers finish.
func TestReleaseDropsRetainedState(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	bb := b.Block("bb")
	ptr := b.EmitOther(bb, ir.Type{Width: 64})
	b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 3})
	l := b.EmitLoad(bb, ir.Type{Width: 32}, ptr)
	add := b.EmitBinOp(bb, ir.OpAdd, ir.Type{Width: 32}, l, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})

	fn := b.Finish()
	a := New(fn, reachdef.New(fn), nil)
	result := a.Run()

	if _, ok := result.GetOSR(add); !ok {
		t.Fatalf("expected OSR(add) to be tracked before Release")
	}
	if subs := a.subs.Subscribers(l); len(subs) == 0 {
		t.Fatalf("expected add to be subscribed to load l before Release")
	}

	a.Release()

	if _, ok := result.GetOSR(add); ok {
		t.Fatalf("expected the OSR table to be empty after Release")
	}
	if subs := result.subs.Subscribers(l); len(subs) != 0 {
		t.Fatalf("expected subscriptions to be dropped after Release, got %v", subs)
	}
	if got := result.BV(bb, l).String(); got != bv.Top(l).String() {
		t.Fatalf("expected the released BVMap to answer with l's intrinsic top BV, got %s", got)
	}
}

func TestIsDeadReportsUnobservedStore(t *testing.T) {
	b := ir.NewBuilder("f", layout())
	bb := b.Block("bb")
	ptr := b.EmitOther(bb, ir.Type{Width: 64})
	dead := b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})
	live := b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 2})
	b.EmitLoad(bb, ir.Type{Width: 32}, ptr)

	fn := b.Finish()
	result := New(fn, reachdef.New(fn), nil).Run()

	if result.IsDead(live) {
		t.Fatalf("expected the store actually reaching the load to be live")
	}
	if !result.IsDead(dead) {
		t.Fatalf("expected the shadowed store to be reported dead")
	}
}
