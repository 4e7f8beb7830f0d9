package reachdef

import (
	"testing"

	"github.com/go-osra/osra/ir"
)

func TestReachesFindsStoreInSameBlock(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	ptr := b.EmitOther(bb, ir.Type{Width: 64})
	val := ir.Const{Typ: ir.Type{Width: 32}, Bits: 7}
	b.EmitStore(bb, ptr, val)
	l := b.EmitLoad(bb, ir.Type{Width: 32}, ptr)

	svc := New(b.Finish())
	reaches := svc.Reaches(l)
	if len(reaches) != 1 {
		t.Fatalf("expected exactly 1 reaching def, got %d", len(reaches))
	}
	if _, ok := reaches[0].(*ir.Store); !ok {
		t.Fatalf("expected a Store, got %T", reaches[0])
	}
}

func TestReachesMergesAcrossPredecessors(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	entry := b.Block("entry")
	left := b.Block("left")
	right := b.Block("right")
	join := b.Block("join")

	ptr := b.EmitOther(entry, ir.Type{Width: 64})
	cond := b.EmitOther(entry, ir.Type{Width: 1})
	b.EmitCondBr(entry, cond, left, right)

	b.EmitStore(left, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})
	b.EmitBr(left, join)

	b.EmitStore(right, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 2})
	b.EmitBr(right, join)

	l := b.EmitLoad(join, ir.Type{Width: 32}, ptr)

	svc := New(b.Finish())
	reaches := svc.Reaches(l)
	if len(reaches) != 2 {
		t.Fatalf("expected 2 reaching stores (one per predecessor), got %d", len(reaches))
	}
}

func TestReachesStopsAtKillingStore(t *testing.T) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	bb := b.Block("bb")
	ptr := b.EmitOther(bb, ir.Type{Width: 64})
	b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})
	b.EmitStore(bb, ptr, ir.Const{Typ: ir.Type{Width: 32}, Bits: 2})
	l := b.EmitLoad(bb, ir.Type{Width: 32}, ptr)

	svc := New(b.Finish())
	reaches := svc.Reaches(l)
	if len(reaches) != 1 {
		t.Fatalf("expected only the nearest store to reach, got %d", len(reaches))
	}
	store := reaches[0].(*ir.Store)
	if store.Val.(ir.Const).Bits != 2 {
		t.Fatalf("expected the second (killing) store, got value %v", store.Val)
	}
}
