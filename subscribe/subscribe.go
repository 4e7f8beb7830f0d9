// Package subscribe implements C6: the bipartite Load -> Instruction
// dependency graph. Whenever the fixpoint driver's transfer function for
// instruction I reads a load L's merged OSR (loadreach.Table.Merge), it
// records I as a subscriber of L. When L's merged OSR later changes, every
// subscriber is handed back to the driver to re-enqueue.
//
// Subscriptions are append-only during an analysis run (spec.md §4.6: "never
// removed during analysis; dropped on release") — matching
// cs-au-dk-goat/utils/hmap's "mutable map, no deletions" idiom, though a
// plain Go map suffices here since both key types (*ir.Load and
// ir.Instruction) are directly comparable, unlike hmap's generic-hasher use
// case for keys that aren't.
package subscribe

import "github.com/go-osra/osra/ir"

// Graph tracks, for each Load, the set of instructions whose transfer
// function consulted it.
type Graph struct {
	subs map[*ir.Load]map[ir.Instruction]bool
}

// New returns an empty subscription graph.
func New() *Graph {
	return &Graph{subs: make(map[*ir.Load]map[ir.Instruction]bool)}
}

// Subscribe records that reader's transfer function read l's OSR.
func (g *Graph) Subscribe(l *ir.Load, reader ir.Instruction) {
	set, ok := g.subs[l]
	if !ok {
		set = make(map[ir.Instruction]bool)
		g.subs[l] = set
	}
	set[reader] = true
}

// Subscribers returns every instruction currently subscribed to l, in no
// particular order.
func (g *Graph) Subscribers(l *ir.Load) []ir.Instruction {
	set := g.subs[l]
	out := make([]ir.Instruction, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

// Release drops every subscription, matching spec.md §4.6's "dropped on
// release" (called once an analysis run is done with a function).
func (g *Graph) Release() {
	g.subs = make(map[*ir.Load]map[ir.Instruction]bool)
}
