// Package loadreach implements C5, the load reacher table: for each Load,
// the set of (defining instruction, OSR) pairs computed from the
// reaching-definitions collaborator (package reachdef), and the logic to
// unify that set into a single OSR usable as the Load's own transfer
// result (spec.md §4.5).
package loadreach

import (
	"golang.org/x/exp/slices"

	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/osr"
)

// Entry is one reaching definition's contribution: the instruction that
// defines the value (a Store or a prior Load) and its OSR, already
// switchBlock'd to the querying Load's block.
type Entry struct {
	Def ir.Instruction
	OSR osr.OSR
}

// Table is LoadReachers: per-Load list of Entries, plus the last merged
// OSR, cached so Merge can report whether the result changed.
type Table struct {
	reachers map[*ir.Load][]Entry
	merged   map[*ir.Load]osr.OSR
	known    map[*ir.Load]bool
}

// New returns an empty load reacher table.
func New() *Table {
	return &Table{
		reachers: make(map[*ir.Load][]Entry),
		merged:   make(map[*ir.Load]osr.OSR),
		known:    make(map[*ir.Load]bool),
	}
}

// UpdateLoadReacher upserts (def, newOSR) into l's reacher list, replacing
// any prior entry for the same def. Returns whether the list changed.
func (t *Table) UpdateLoadReacher(l *ir.Load, def ir.Instruction, newOSR osr.OSR) bool {
	list := t.reachers[l]
	for i, e := range list {
		if e.Def == def {
			if e.OSR.Eq(newOSR) {
				return false
			}
			list[i].OSR = newOSR
			return true
		}
	}
	t.reachers[l] = append(list, Entry{Def: def, OSR: newOSR})
	return true
}

// Entries returns l's current reacher list.
func (t *Table) Entries(l *ir.Load) []Entry {
	return t.reachers[l]
}

func sameUnderlying(a, b osr.OSR) bool {
	return a.Factor != 0 && a.Factor == b.Factor && a.Width == b.Width && a.Home == b.Home && a.X == b.X
}

// MergeResult is the outcome of unifying a Load's reacher list.
type MergeResult struct {
	OSR osr.OSR
	// ForcedBV, when ForceNeeded, must be installed via bvmap.ForceBV on
	// (l.Block(), l) so OSR's own free variable (l itself, in that case)
	// carries the right range.
	ForcedBV    bv.BV
	ForceNeeded bool
}

// Merge implements mergeLoadReacher (spec.md §4.5): unify l's reacher list
// into one OSR. resolve looks up the current BV for an entry's OSR (via
// bvmap.Map.Get(o.Home, o.X)). Returns the result and whether it differs
// from the previously cached merge (callers re-enqueue l's subscribers on
// change, package subscribe).
func (t *Table) Merge(l *ir.Load, resolve func(osr.OSR) bv.BV) (MergeResult, bool) {
	entries := t.reachers[l]
	var result MergeResult

	switch {
	case len(entries) == 0:
		result = MergeResult{OSR: osr.Identity(l.Block(), l, l.Type().Width)}

	case allEqual(entries):
		result = MergeResult{OSR: entries[0].OSR}

	case shareUnderlying(entries):
		lo, hi, signed := span(entries, resolve)
		forced := bv.CreateGE(l, lo, signed)
		forced, _ = forced.SetBound(bv.Upper, bv.And, hi)
		result = MergeResult{
			OSR:         osr.OSR{Base: 0, Factor: entries[0].OSR.Factor, Width: l.Type().Width, Home: l.Block(), X: l},
			ForcedBV:    forced,
			ForceNeeded: true,
		}

	default:
		result = MergeResult{
			OSR:         osr.Identity(l.Block(), l, l.Type().Width),
			ForcedBV:    bv.Top(l),
			ForceNeeded: true,
		}
	}

	changed := !t.known[l] || !result.OSR.Eq(t.merged[l])
	t.merged[l] = result.OSR
	t.known[l] = true
	return result, changed
}

func allEqual(entries []Entry) bool {
	osrs := make([]osr.OSR, len(entries))
	for i, e := range entries {
		osrs[i] = e.OSR
	}
	return slices.Equal(osrs, repeat(osrs[0], len(osrs)))
}

func repeat(o osr.OSR, n int) []osr.OSR {
	out := make([]osr.OSR, n)
	for i := range out {
		out[i] = o
	}
	return out
}

func shareUnderlying(entries []Entry) bool {
	for _, e := range entries[1:] {
		if !sameUnderlying(entries[0].OSR, e.OSR) {
			return false
		}
	}
	return true
}

func span(entries []Entry, resolve func(osr.OSR) bv.BV) (lo, hi uint64, signed bool) {
	first := resolve(entries[0].OSR)
	signed = first.HasSignedness() && first.IsSigned()
	lo, hi = entries[0].OSR.Boundaries(first)
	for _, e := range entries[1:] {
		cur := resolve(e.OSR)
		l, h := e.OSR.Boundaries(cur)
		if less(signed, l, lo) {
			lo = l
		}
		if less(signed, hi, h) {
			hi = h
		}
	}
	return lo, hi, signed
}

func less(signed bool, a, b uint64) bool {
	if signed {
		return int64(a) < int64(b)
	}
	return a < b
}
