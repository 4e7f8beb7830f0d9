// Package bvmap implements C3, the BVMap: the per-(block, value) store of
// Bounded Values that backs every OSR's key-based reference (spec.md §4.3,
// §9's design note, and the BVMap class in
// _examples/original_source/osra.h).
//
// A MapValue carries a summary BV (the meet of its per-predecessor-edge
// components under policy And) plus the components themselves. Grounded on
// cs-au-dk-goat's analysis/lattice/map-base.go baseMap, which backs a
// similar persistent per-key Element store with github.com/benbjohnson/immutable.
package bvmap

import (
	"reflect"

	"github.com/benbjohnson/immutable"

	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/utils"
)

// key identifies one BVMap slot: a basic block and the value whose BV is
// tracked there.
type key struct {
	block *ir.BasicBlock
	value ir.Value
}

func hashValue(v ir.Value) uint32 {
	if c, ok := v.(ir.Const); ok {
		return utils.HashCombine(uint32(c.Typ.Width), uint32(c.Bits), uint32(c.Bits>>32))
	}
	p := reflect.ValueOf(v).Pointer()
	return uint32(p ^ (p >> 32))
}

type keyHasher struct{}

func (keyHasher) Hash(k key) uint32 {
	var bp uint32
	if k.block != nil {
		p := reflect.ValueOf(k.block).Pointer()
		bp = uint32(p ^ (p >> 32))
	}
	return utils.HashCombine(bp, hashValue(k.value))
}

func (keyHasher) Equal(a, b key) bool {
	return a.block == b.block && a.value == b.value
}

// component is one predecessor edge's contribution to a slot's summary.
type component struct {
	origin *ir.BasicBlock
	bv     bv.BV
}

// mapValue is the per-(block,value) entry: a summary plus the edge
// components it was computed from. forced entries (set directly by a
// transfer function, never by edge propagation) carry no components and
// are never re-summarized (spec.md §4.3).
type mapValue struct {
	summary    bv.BV
	components []component
	forced     bool
}

// Map is the BVMap: an immutable.Map from (block, value) to mapValue,
// threaded value-style the way baseMap threads *immutable.Map through its
// lattice Elements — every mutator returns a new Map.
type Map struct {
	mp *immutable.Map[key, mapValue]
}

// New returns an empty BVMap.
func New() *Map {
	return &Map{mp: immutable.NewMap[key, mapValue](keyHasher{})}
}

func (m *Map) intrinsic(v ir.Value) bv.BV {
	if c, ok := v.(ir.Const); ok {
		return bv.Constant(c, c.Bits)
	}
	return bv.Top(v)
}

// Get returns the summary BV for (block, value). If no entry exists yet it
// returns the value's intrinsic BV without storing an entry.
func (m *Map) Get(block *ir.BasicBlock, v ir.Value) bv.BV {
	k := key{block, v}
	if mv, ok := m.mp.Get(k); ok {
		return mv.summary
	}
	return m.intrinsic(v)
}

// GetEdge returns the component BV recorded for (block, value) on the edge
// from pred, and whether one exists.
func (m *Map) GetEdge(block *ir.BasicBlock, pred *ir.BasicBlock, v ir.Value) (bv.BV, bool) {
	k := key{block, v}
	mv, ok := m.mp.Get(k)
	if !ok {
		return bv.BV{}, false
	}
	for _, c := range mv.components {
		if c.origin == pred {
			return c.bv, true
		}
	}
	return bv.BV{}, false
}

func summarize(mv mapValue, intrinsic bv.BV) mapValue {
	if mv.forced {
		return mv
	}
	if len(mv.components) == 0 {
		mv.summary = intrinsic
		return mv
	}
	summary := mv.components[0].bv
	for _, c := range mv.components[1:] {
		summary, _ = summary.Merge(bv.And, c.bv)
	}
	mv.summary = summary
	return mv
}

// SetSignedness propagates a settled signedness to the summary and every
// component of (block, value), then re-summarizes (BVMap::setSignedness).
// Returns the updated Map and whether the summary changed.
func (m *Map) SetSignedness(block *ir.BasicBlock, v ir.Value, isSigned bool) (*Map, bool) {
	k := key{block, v}
	mv, ok := m.mp.Get(k)
	if !ok {
		mv = mapValue{summary: m.intrinsic(v)}
	}
	before := mv.summary

	mv.summary, _ = mv.summary.SetSignedness(isSigned)
	for i := range mv.components {
		mv.components[i].bv, _ = mv.components[i].bv.SetSignedness(isSigned)
	}
	mv = summarize(mv, m.intrinsic(v))

	return &Map{mp: m.mp.Set(k, mv)}, !mv.summary.Eq(before)
}

// ForceBV installs bv directly as the summary of (block, value), bypassing
// component tracking — used when a transfer function computes a BV
// directly for an instruction defined in that block (BVMap::forceBV).
func (m *Map) ForceBV(block *ir.BasicBlock, v ir.Value, newBV bv.BV) *Map {
	k := key{block, v}
	return &Map{mp: m.mp.Set(k, mapValue{summary: newBV, forced: true})}
}

// IsForced reports whether (block, value) currently holds a forced entry.
func (m *Map) IsForced(block *ir.BasicBlock, v ir.Value) bool {
	mv, ok := m.mp.Get(key{block, v})
	return ok && mv.forced
}

// Update is the key write path (spec.md §4.3): record newBV as the
// component contributed by the edge origin -> target for value, meeting it
// with any prior component under And, then re-summarize. Returns the
// updated Map and whether target's summary changed.
func (m *Map) Update(target, origin *ir.BasicBlock, v ir.Value, newBV bv.BV) (*Map, bool) {
	k := key{target, v}
	mv, ok := m.mp.Get(k)
	if !ok {
		mv = mapValue{summary: m.intrinsic(v)}
	}
	if mv.forced {
		// A forced entry's summary comes from the transfer function, not
		// from edge propagation; record the component for GetEdge but
		// leave the summary untouched.
		mv.components = setComponent(mv.components, origin, newBV)
		return &Map{mp: m.mp.Set(k, mv)}, false
	}

	before := mv.summary
	mv.components = setComponent(mv.components, origin, newBV)
	mv = summarize(mv, m.intrinsic(v))

	return &Map{mp: m.mp.Set(k, mv)}, !mv.summary.Eq(before)
}

func setComponent(components []component, origin *ir.BasicBlock, newBV bv.BV) []component {
	for i, c := range components {
		if c.origin == origin {
			merged, _ := c.bv.Merge(bv.And, newBV)
			out := make([]component, len(components))
			copy(out, components)
			out[i].bv = merged
			return out
		}
	}
	out := make([]component, len(components), len(components)+1)
	copy(out, components)
	return append(out, component{origin: origin, bv: newBV})
}

// Clear returns a fresh, empty Map (BVMap::clear).
func (m *Map) Clear() *Map { return New() }
