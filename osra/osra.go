// Package osra implements C7, the fixpoint driver that orchestrates C1-C6
// (packages bv, osr, bvmap, constraint, loadreach, subscribe) to a joint
// fixpoint over a function's OSRs and Bounded Values (spec.md §4.7).
//
// The driver is grounded on cs-au-dk-goat/analysis/absint's "evaluate
// instruction, update map, enqueue dependents" shape, with the actual queue
// adapted directly from cs-au-dk-goat/utils/worklist (generics preserved,
// item type specialized to a (block, start instruction) pair per spec.md
// §4.7's "worklist of (BasicBlock, start-instruction) pairs").
package osra

import (
	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/bvmap"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/loadreach"
	"github.com/go-osra/osra/osr"
	"github.com/go-osra/osra/reachdef"
	"github.com/go-osra/osra/subscribe"
	"github.com/go-osra/osra/utils/worklist"
)

// Blacklist excludes basic blocks from analysis: edges into or out of a
// blacklisted block are ignored during merging and constraint propagation
// (spec.md §3).
type Blacklist map[*ir.BasicBlock]bool

// Analysis is the mutable state threaded through one run of the fixpoint
// driver: OSRs, the BVMap, the load reacher table and subscription graph,
// plus the def-use and load-dependency indexes used to decide what to
// re-enqueue on change.
type Analysis struct {
	fn        *ir.Function
	blacklist Blacklist
	reach     *reachdef.Service

	bvs   *bvmap.Map
	osrs  map[ir.Value]osr.OSR
	loads *loadreach.Table
	subs  *subscribe.Graph

	// users records standard SSA def-use edges: users[v] is every
	// instruction with v as an operand.
	users map[ir.Value][]ir.Instruction
	// loadDependents records the reverse of a Load's reacher list: for a
	// value v that some Load's merged OSR was built from, loadDependents[v]
	// is every such Load, so a later change to v's OSR re-triggers that
	// Load's own merge (spec.md §4.5's reacher list is not itself an SSA
	// def-use edge, since Loads observe Stores through aliasing, not
	// operands).
	loadDependents map[ir.Value][]*ir.Load

	// result is the Result handed back by Run, kept so Release can drop the
	// state Result queries share with Analysis in one place.
	result *Result
}

// New prepares an Analysis over fn. reach answers reaching-definition
// queries for fn's loads (package reachdef, or any equivalent collaborator);
// blacklist may be nil.
func New(fn *ir.Function, reach *reachdef.Service, blacklist Blacklist) *Analysis {
	if blacklist == nil {
		blacklist = Blacklist{}
	}
	a := &Analysis{
		fn:             fn,
		blacklist:      blacklist,
		reach:          reach,
		bvs:            bvmap.New(),
		osrs:           make(map[ir.Value]osr.OSR),
		loads:          loadreach.New(),
		subs:           subscribe.New(),
		users:          make(map[ir.Value][]ir.Instruction),
		loadDependents: make(map[ir.Value][]*ir.Load),
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands() {
				a.users[op] = append(a.users[op], instr)
			}
		}
	}
	return a
}

type workItem struct {
	block *ir.BasicBlock
	from  int
}

// Run drives the worklist to a fixpoint and returns the queryable result
// (spec.md §6). Every non-blacklisted block is seeded once in reverse
// postorder; re-processing past that point is driven entirely by change
// propagation.
func (a *Analysis) Run() *Result {
	var start []workItem
	for _, b := range a.fn.ReversePostorder() {
		if a.blacklist[b] {
			continue
		}
		start = append(start, workItem{block: b, from: 0})
	}

	worklist.StartV(start, func(next workItem, add func(workItem)) {
		a.processBlock(next.block, next.from, func(b *ir.BasicBlock, from int) {
			if a.blacklist[b] {
				return
			}
			add(workItem{block: b, from: from})
		})
	})

	a.result = &Result{fn: a.fn, reach: a.reach, osrs: a.osrs, bvs: a.bvs, subs: a.subs}
	return a.result
}

// Release drops the analysis's retained state in bulk: the BVMap is reset
// to empty (bvmap.Map.Clear), the load subscription graph's subscriptions
// are dropped (subscribe.Graph.Release), and the OSR table and def-use
// indexes are discarded. Call it once the Result returned by Run has been
// fully queried (spec.md §5's "memory is released in bulk via a dedicated
// release entry point after query consumers finish"; spec.md §4.6's
// subscriptions "dropped on release").
//
// Release mutates the Result returned by the Run call it follows, so
// queries made against that Result after Release report an empty
// analysis rather than stale data.
func (a *Analysis) Release() {
	a.subs.Release()
	a.bvs = a.bvs.Clear()
	a.osrs = make(map[ir.Value]osr.OSR)
	a.loads = loadreach.New()
	a.users = nil
	a.loadDependents = nil

	if a.result != nil {
		a.result.bvs = a.bvs
		a.result.osrs = a.osrs
		a.result.subs = a.subs
	}
}

// Result is the queryable output of a completed analysis run (spec.md §6).
type Result struct {
	fn    *ir.Function
	reach *reachdef.Service
	osrs  map[ir.Value]osr.OSR
	bvs   *bvmap.Map
	subs  *subscribe.Graph
}

// GetOSR returns the OSR computed for v, if the analysis tracked one.
func (r *Result) GetOSR(v ir.Value) (osr.OSR, bool) {
	o, ok := r.osrs[v]
	return o, ok
}

// BV returns the summary Bounded Value for v as visible in block.
func (r *Result) BV(block *ir.BasicBlock, v ir.Value) bv.BV {
	return r.bvs.Get(block, v)
}

// OSRString and BVString satisfy package report's Result interface without
// making report import package osr/bv directly.
func (r *Result) OSRString(v ir.Value) (string, bool) {
	o, ok := r.osrs[v]
	if !ok {
		return "", false
	}
	return o.String(), true
}

// BVString returns the summary Bounded Value for v as visible in block,
// formatted the way bv.BV.String renders it.
func (r *Result) BVString(block *ir.BasicBlock, v ir.Value) string {
	return r.bvs.Get(block, v).String()
}

// IsDead approximates spec.md §6's "writes to CPU state but never read
// again": true iff no load in the function lists store among its reaching
// definitions. The IR here has no distinct CPU-state-register concept (the
// original OSRAPass tracked writes to a fixed register file separately from
// ordinary memory), so this is scoped to "no load can observe this store"
// rather than the original's narrower CPU-state condition.
func (r *Result) IsDead(store *ir.Store) bool {
	for _, b := range r.fn.Blocks {
		for _, instr := range b.Instrs {
			l, ok := instr.(*ir.Load)
			if !ok {
				continue
			}
			for _, reacher := range r.reach.Reaches(l) {
				if reacher == ir.Instruction(store) {
					return false
				}
			}
		}
	}
	return true
}
