package ir

import "fmt"

// DataLayout describes the target's integer widths and endianness, the
// external collaborator spec.md §1/§6 requires for wraparound and
// IntToPtr/PtrToInt bit-pattern semantics.
type DataLayout struct {
	PointerWidth int
	BigEndian    bool
}

// BasicBlock is a straight-line sequence of instructions ending in a
// terminator (Br, CondBr, Switch, or nothing for a function's exit block).
type BasicBlock struct {
	Name    string
	Instrs  []Instruction
	Preds   []*BasicBlock
	Succs   []*BasicBlock
	fn      *Function
	rpoIdx  int
}

func (b *BasicBlock) String() string { return b.Name }

// Terminator returns the block's last instruction, if it is one of
// Br/CondBr/Switch, and ok=false otherwise.
func (b *BasicBlock) Terminator() (Instruction, bool) {
	if len(b.Instrs) == 0 {
		return nil, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	switch last.Op() {
	case OpBr, OpCondBr, OpSwitch:
		return last, true
	default:
		return nil, false
	}
}

// Function is a single function's CFG: an entry block plus a data layout.
// Blocks are stored in the order they were added; ReversePostorder
// computes the traversal order the fixpoint driver (osra package) seeds
// its worklist with (spec.md §4.7).
type Function struct {
	Name   string
	Entry  *BasicBlock
	Blocks []*BasicBlock
	Layout DataLayout
}

// ReversePostorder returns Function's blocks in reverse postorder from
// Entry, the standard traversal order for a forward dataflow worklist
// (grounded on cs-au-dk-goat's use of RPO-seeded worklists in
// analysis/absint).
func (f *Function) ReversePostorder() []*BasicBlock {
	visited := make(map[*BasicBlock]bool, len(f.Blocks))
	var post []*BasicBlock
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	if f.Entry != nil {
		visit(f.Entry)
	}
	// Any block unreachable from Entry still needs a slot so the fixpoint
	// driver can visit it (dead code is common in translated switches).
	for _, b := range f.Blocks {
		visit(b)
	}
	rpo := make([]*BasicBlock, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	for i, b := range rpo {
		b.rpoIdx = i
	}
	return rpo
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%%%d = %s %s, %v, %v", b.id, b.op, b.typ, b.X, b.Y)
}
func (c *Cast) String() string {
	return fmt.Sprintf("%%%d = %s %s to %s", c.id, c.op, c.X, c.typ)
}
func (l *Load) String() string  { return fmt.Sprintf("%%%d = load %s, %v", l.id, l.typ, l.Ptr) }
func (s *Store) String() string { return fmt.Sprintf("store %v, %v", s.Val, s.Ptr) }
func (c *Cmp) String() string   { return fmt.Sprintf("%%%d = cmp %s %v, %v", c.id, c.Pred, c.X, c.Y) }
func (p *Phi) String() string   { return fmt.Sprintf("%%%d = phi %s", p.id, p.typ) }
func (b *Br) String() string    { return fmt.Sprintf("br %s", b.Target) }
func (c *CondBr) String() string {
	return fmt.Sprintf("condbr %v, %s, %s", c.Cond, c.Then, c.Else)
}
func (s *Switch) String() string { return fmt.Sprintf("switch %v", s.Value) }
func (o *Other) String() string  { return fmt.Sprintf("%%%d = other", o.id) }
