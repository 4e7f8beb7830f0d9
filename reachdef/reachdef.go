// Package reachdef is the default reaching-definitions collaborator
// spec.md §2/§4.5 treats as external: given a Load, it returns the set of
// Store or prior Load instructions (to the same pointer, by SSA identity)
// that may flow into it along some path. No alias analysis is performed —
// only exact pointer-value identity kills a path, the same conservative
// same-function scope the original OSRAPass delegated to
// ConditionalReachedLoadsPass (_examples/original_source/osra.h's
// getAnalysisUsage).
//
// Traversal is a backward DFS over the CFG with per-path killing, grounded
// on cs-au-dk-goat's analysis/livevars — a comparable worklist-driven CFG
// dataflow pass — adapted here to the simpler backward reaching-defs
// question rather than a forward/backward join lattice.
package reachdef

import "github.com/go-osra/osra/ir"

// Service answers reaching-definition queries for loads in a single
// function. It is immutable for the duration of an analysis run, matching
// spec.md §5's "collaborators are consulted synchronously and assumed
// immutable".
type Service struct {
	fn *ir.Function
}

// New builds a reaching-definitions service over fn.
func New(fn *ir.Function) *Service { return &Service{fn: fn} }

// Reaches returns every Store or Load instruction that may define the
// value read by l, deduplicated, in no particular order.
func (s *Service) Reaches(l *ir.Load) []ir.Instruction {
	visitedBlocks := make(map[*ir.BasicBlock]bool)
	found := make(map[ir.Instruction]bool)

	var scanBlock func(b *ir.BasicBlock, from int)
	scanBlock = func(b *ir.BasicBlock, from int) {
		for i := from; i >= 0; i-- {
			instr := b.Instrs[i]
			switch ins := instr.(type) {
			case *ir.Store:
				if samePointer(ins.Ptr, l.Ptr) {
					found[instr] = true
					return
				}
			case *ir.Load:
				if instr != ir.Instruction(l) && samePointer(ins.Ptr, l.Ptr) {
					found[instr] = true
					return
				}
			}
		}
		if visitedBlocks[b] {
			return
		}
		visitedBlocks[b] = true
		for _, p := range b.Preds {
			scanBlock(p, len(p.Instrs)-1)
		}
	}

	block := l.Block()
	idx := indexOf(block, l)
	scanBlock(block, idx-1)

	out := make([]ir.Instruction, 0, len(found))
	for instr := range found {
		out = append(out, instr)
	}
	return out
}

func indexOf(b *ir.BasicBlock, instr ir.Instruction) int {
	for i, in := range b.Instrs {
		if in == instr {
			return i
		}
	}
	return len(b.Instrs) - 1
}

func samePointer(a, b ir.Value) bool {
	return a == b
}
