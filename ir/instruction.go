package ir

import "fmt"

// Instruction is an SSA instruction: it is itself a typed Value (its
// "result"), carries an Opcode, and refers to its operands and home block.
//
// Concrete instructions are built with Builder's Emit* methods (builder.go)
// rather than struct literals, so that back-pointers (Block, predecessor
// and successor sets) stay consistent — mirroring how cs-au-dk-goat's cfg.Node implementations
// are only ever produced through the cfg package's own builders.
type Instruction interface {
	Value
	ID() int
	Op() Opcode
	Operands() []Value
	Block() *BasicBlock
	String() string
}

type baseInstr struct {
	id    int
	typ   Type
	op    Opcode
	ops   []Value
	block *BasicBlock
}

func (b *baseInstr) ID() int          { return b.id }
func (b *baseInstr) Type() Type       { return b.typ }
func (b *baseInstr) Op() Opcode       { return b.op }
func (b *baseInstr) Operands() []Value { return b.ops }
func (b *baseInstr) Block() *BasicBlock { return b.block }
func (b *baseInstr) valueName() string { return fmt.Sprintf("%%%d", b.id) }

// BinOp is a two-operand arithmetic instruction (Add/Sub/Mul/Shl/And/Or/Xor).
type BinOp struct {
	*baseInstr
	X, Y Value
}

// Cast is a width-changing or bit-pattern-preserving instruction
// (Trunc/ZExt/SExt/IntToPtr/PtrToInt).
type Cast struct {
	*baseInstr
	X Value
}

// Load reads the value most recently stored to Ptr along the current path.
// OSRA never interprets Ptr itself; it consults the reaching-definitions
// collaborator (package reachdef) to find candidate defining instructions.
type Load struct {
	*baseInstr
	Ptr Value
}

// Store writes Val to Ptr. Stores have no result value tracked by OSRA;
// they exist so reachdef can report them as reaching definitions of Loads.
type Store struct {
	*baseInstr
	Ptr, Val Value
}

// Cmp is a canonicalized comparison (see cmpsimplify), consumed lazily by
// the constraint extractor at a branch (spec.md §4.4).
type Cmp struct {
	*baseInstr
	Pred Predicate
	X, Y Value
}

// Phi merges a value per incoming CFG edge ("basic-block argument" in
// spec.md §3's taxonomy).
type Phi struct {
	*baseInstr
	Edges []PhiEdge
}

type PhiEdge struct {
	Pred *BasicBlock
	Val  Value
}

// Br is an unconditional jump.
type Br struct {
	*baseInstr
	Target *BasicBlock
}

// CondBr branches on Cond (expected to resolve to a Cmp via the
// constraint extractor) to one of two successors.
type CondBr struct {
	*baseInstr
	Cond         Value
	Then, Else   *BasicBlock
}

// SwitchCase is one case label/target pair of a Switch.
type SwitchCase struct {
	Value   Const
	Target  *BasicBlock
}

// Switch dispatches Value to one of several constant cases, or Default.
type Switch struct {
	*baseInstr
	Value   Value
	Cases   []SwitchCase
	Default *BasicBlock
}

// Other is an opaque instruction (e.g. a call) OSRA does not model beyond
// giving it an undetermined (⊤) OSR.
type Other struct {
	*baseInstr
}
