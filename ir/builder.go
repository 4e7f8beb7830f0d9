package ir

// Builder assembles a Function incrementally. It exists so tests and
// ssaadapter don't have to hand-wire instruction ids, block back-pointers,
// and predecessor/successor sets themselves.
type Builder struct {
	fn     *Function
	nextID int
}

// NewBuilder starts building a function under the given data layout.
func NewBuilder(name string, layout DataLayout) *Builder {
	return &Builder{fn: &Function{Name: name, Layout: layout}}
}

// Block creates a new, empty basic block and adds it to the function.
func (b *Builder) Block(name string) *BasicBlock {
	bb := &BasicBlock{Name: name, fn: b.fn}
	b.fn.Blocks = append(b.fn.Blocks, bb)
	if b.fn.Entry == nil {
		b.fn.Entry = bb
	}
	return bb
}

// Link records a successor edge bb -> to, updating both sides.
func (b *Builder) Link(bb, to *BasicBlock) {
	bb.Succs = append(bb.Succs, to)
	to.Preds = append(to.Preds, bb)
}

func (b *Builder) newBase(bb *BasicBlock, typ Type, op Opcode, ops ...Value) *baseInstr {
	b.nextID++
	return &baseInstr{id: b.nextID, typ: typ, op: op, ops: ops, block: bb}
}

func (b *Builder) append(bb *BasicBlock, instr Instruction) {
	bb.Instrs = append(bb.Instrs, instr)
}

// Emit* helpers append a well-formed instruction to bb and return it.

func (b *Builder) EmitBinOp(bb *BasicBlock, op Opcode, typ Type, x, y Value) *BinOp {
	i := &BinOp{baseInstr: b.newBase(bb, typ, op, x, y), X: x, Y: y}
	b.append(bb, i)
	return i
}

func (b *Builder) EmitCast(bb *BasicBlock, op Opcode, typ Type, x Value) *Cast {
	i := &Cast{baseInstr: b.newBase(bb, typ, op, x), X: x}
	b.append(bb, i)
	return i
}

func (b *Builder) EmitLoad(bb *BasicBlock, typ Type, ptr Value) *Load {
	i := &Load{baseInstr: b.newBase(bb, typ, OpLoad, ptr), Ptr: ptr}
	b.append(bb, i)
	return i
}

func (b *Builder) EmitStore(bb *BasicBlock, ptr, val Value) *Store {
	i := &Store{baseInstr: b.newBase(bb, Type{}, OpStore, ptr, val), Ptr: ptr, Val: val}
	b.append(bb, i)
	return i
}

func (b *Builder) EmitCmp(bb *BasicBlock, pred Predicate, x, y Value) *Cmp {
	i := &Cmp{baseInstr: b.newBase(bb, Type{Width: 1}, OpCmp, x, y), Pred: pred, X: x, Y: y}
	b.append(bb, i)
	return i
}

func (b *Builder) EmitPhi(bb *BasicBlock, typ Type) *Phi {
	i := &Phi{baseInstr: b.newBase(bb, typ, OpPhi)}
	b.append(bb, i)
	return i
}

// AddIncoming records one incoming edge of a Phi and its operand. It does
// not touch Preds/Succs; the CFG edge itself is linked by the terminator
// helpers (EmitBr, EmitCondBr, EmitSwitch).
func (b *Builder) AddIncoming(p *Phi, pred *BasicBlock, val Value) {
	p.Edges = append(p.Edges, PhiEdge{Pred: pred, Val: val})
	p.ops = append(p.ops, val)
}

func (b *Builder) EmitBr(bb, target *BasicBlock) *Br {
	i := &Br{baseInstr: b.newBase(bb, Type{}, OpBr), Target: target}
	b.append(bb, i)
	b.Link(bb, target)
	return i
}

func (b *Builder) EmitCondBr(bb *BasicBlock, cond Value, then, els *BasicBlock) *CondBr {
	i := &CondBr{baseInstr: b.newBase(bb, Type{}, OpCondBr, cond), Cond: cond, Then: then, Else: els}
	b.append(bb, i)
	b.Link(bb, then)
	b.Link(bb, els)
	return i
}

func (b *Builder) EmitSwitch(bb *BasicBlock, val Value, cases []SwitchCase, def *BasicBlock) *Switch {
	i := &Switch{baseInstr: b.newBase(bb, Type{}, OpSwitch, val), Value: val, Cases: cases, Default: def}
	b.append(bb, i)
	for _, c := range cases {
		b.Link(bb, c.Target)
	}
	b.Link(bb, def)
	return i
}

func (b *Builder) EmitOther(bb *BasicBlock, typ Type, ops ...Value) *Other {
	i := &Other{baseInstr: b.newBase(bb, typ, OpOther, ops...)}
	b.append(bb, i)
	return i
}

// Finish returns the assembled function.
func (b *Builder) Finish() *Function { return b.fn }
