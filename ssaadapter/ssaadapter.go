// Package ssaadapter translates a single golang.org/x/tools/go/ssa function
// into ir, the minimal typed IR osra consumes. Unlike cs-au-dk-goat's
// analysis/cfg (which builds a whole-program, interprocedural CFG stitched
// together via points-to results, goroutine spawns, and select-statement
// rewrites), osra only ever analyzes one function's straight-line SSA at a
// time, so this adapter keeps the source repo's "walk blocks in a queue,
// mint a node per instruction, wire successors as you go" shape
// (cs-au-dk-goat/analysis/cfg/get-cfg.go's getFunCfg) but drops everything
// concurrency- and call-graph-specific: a Call, Go, Defer, or any other
// instruction osra's opcode set has no closed form for becomes a single
// opaque ir.Other node, exactly like the pass's own OpOther fallback for
// "calls and other unmodeled instructions" (ir/ir.go's Opcode doc comment).
package ssaadapter

import (
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/go-osra/osra/cmpsimplify"
	"github.com/go-osra/osra/ir"
)

// Translate converts fn's basic blocks into an ir.Function under layout.
// fn must already be built (ssa.Function.Blocks populated; see
// golang.org/x/tools/go/ssa/ssautil.AllPackages combined with
// (*ssa.Program).Build in cmd/osra).
func Translate(fn *ssa.Function, layout ir.DataLayout) *ir.Function {
	t := &translator{
		b:      ir.NewBuilder(fn.String(), layout),
		layout: layout,
		blocks: make(map[*ssa.BasicBlock]*ir.BasicBlock, len(fn.Blocks)),
		vals:   make(map[ssa.Value]ir.Value),
	}
	return t.run(fn)
}

type translator struct {
	b      *ir.Builder
	layout ir.DataLayout
	blocks map[*ssa.BasicBlock]*ir.BasicBlock
	vals   map[ssa.Value]ir.Value
	entry  *ir.BasicBlock
}

type phiPair struct {
	ssaPhi *ssa.Phi
	irPhi  *ir.Phi
}

func (t *translator) run(fn *ssa.Function) *ir.Function {
	if len(fn.Blocks) == 0 {
		// External/intrinsic function: mint a single empty block so the
		// result is still a well-formed (if trivial) ir.Function.
		t.b.Block("entry")
		return t.b.Finish()
	}

	for _, sb := range fn.Blocks {
		t.blocks[sb] = t.b.Block(blockName(sb))
	}
	t.entry = t.blocks[fn.Blocks[0]]

	var phis []phiPair
	for _, sb := range fn.Blocks {
		irb := t.blocks[sb]
		for _, instr := range sb.Instrs {
			if p, ok := instr.(*ssa.Phi); ok {
				irPhi := t.b.EmitPhi(irb, ir.Type{Width: t.widthOf(p.Type())})
				t.vals[p] = irPhi
				phis = append(phis, phiPair{ssaPhi: p, irPhi: irPhi})
			}
		}
	}

	for _, sb := range fn.Blocks {
		irb := t.blocks[sb]
		for _, instr := range sb.Instrs {
			t.translateInstr(irb, sb, instr)
		}
	}

	// Wired last, after every instruction has a slot in t.vals, so a phi
	// that reads a value defined later in the same block via a loop back
	// edge (spec.md §8 scenario 1's induction variable) resolves correctly.
	for _, p := range phis {
		for i, pred := range p.ssaPhi.Block().Preds {
			t.b.AddIncoming(p.irPhi, t.blocks[pred], t.operand(p.ssaPhi.Edges[i]))
		}
	}

	return t.b.Finish()
}

func blockName(b *ssa.BasicBlock) string {
	if b.Comment != "" {
		return b.Comment
	}
	return b.String()
}

func (t *translator) translateInstr(irb *ir.BasicBlock, sb *ssa.BasicBlock, instr ssa.Instruction) {
	switch i := instr.(type) {
	case *ssa.Phi:
		// Already handled: placeholder created, incoming edges wired after
		// every block's instructions are translated.
	case *ssa.BinOp:
		t.binOp(irb, i)
	case *ssa.UnOp:
		t.unOp(irb, i)
	case *ssa.Convert:
		t.convert(irb, i)
	case *ssa.ChangeType:
		// A same-underlying-type reinterpretation carries no bit-level
		// change osra needs to model; alias the result to its operand.
		t.vals[i] = t.operand(i.X)
	case *ssa.Store:
		t.b.EmitStore(irb, t.operand(i.Addr), t.operand(i.Val))
	case *ssa.If:
		t.b.EmitCondBr(irb, t.operand(i.Cond), t.blocks[sb.Succs[0]], t.blocks[sb.Succs[1]])
	case *ssa.Jump:
		t.b.EmitBr(irb, t.blocks[sb.Succs[0]])
	case *ssa.Return, *ssa.Panic, *ssa.RunDefers, *ssa.DebugRef:
		// Path termination or a pure debug marker: no ir counterpart.
	default:
		t.genericOther(irb, instr)
	}
}

// arithOpFor maps a go/token arithmetic operator to the small opcode set
// osr.OSR.Combine has a closed form for (ir/ir.go's Opcode doc comment).
// Division, remainder, shift-right, and bit-clear have none, so they fall
// through to the opaque case in binOp.
func arithOpFor(tok token.Token) (ir.Opcode, bool) {
	switch tok {
	case token.ADD:
		return ir.OpAdd, true
	case token.SUB:
		return ir.OpSub, true
	case token.MUL:
		return ir.OpMul, true
	case token.SHL:
		return ir.OpShl, true
	case token.AND:
		return ir.OpAnd, true
	case token.OR:
		return ir.OpOr, true
	case token.XOR:
		return ir.OpXor, true
	}
	return ir.OpConst, false
}

func predicateFor(tok token.Token, signed bool) (ir.Predicate, bool) {
	switch tok {
	case token.EQL:
		return ir.EQ, true
	case token.NEQ:
		return ir.NE, true
	case token.LSS:
		if signed {
			return ir.SLT, true
		}
		return ir.ULT, true
	case token.LEQ:
		if signed {
			return ir.SLE, true
		}
		return ir.ULE, true
	case token.GTR:
		if signed {
			return ir.SGT, true
		}
		return ir.UGT, true
	case token.GEQ:
		if signed {
			return ir.SGE, true
		}
		return ir.UGE, true
	}
	return 0, false
}

// binOp handles go/ssa's dual use of *ssa.BinOp for both arithmetic and
// comparison: comparisons become an ir.Cmp, canonicalized on the spot via
// cmpsimplify so a constant operand always ends up on the right before any
// downstream package ever sees it.
func (t *translator) binOp(irb *ir.BasicBlock, i *ssa.BinOp) {
	x, y := t.operand(i.X), t.operand(i.Y)
	width := t.widthOf(i.Type())

	if pred, ok := predicateFor(i.Op, t.isSigned(i.X.Type())); ok {
		cmp := t.b.EmitCmp(irb, pred, x, y)
		if value, mirrored, k, ok := cmpsimplify.Simplify(cmp); ok {
			cmp.X, cmp.Pred, cmp.Y = value, mirrored, k
		}
		t.vals[i] = cmp
		return
	}

	if op, ok := arithOpFor(i.Op); ok {
		t.vals[i] = t.b.EmitBinOp(irb, op, ir.Type{Width: width}, x, y)
		return
	}

	// token.QUO/REM/SHR/AND_NOT: no closed-form combine, opaque like a call.
	t.vals[i] = t.b.EmitOther(irb, ir.Type{Width: width}, x, y)
}

func (t *translator) unOp(irb *ir.BasicBlock, i *ssa.UnOp) {
	width := t.widthOf(i.Type())
	switch i.Op {
	case token.MUL:
		t.vals[i] = t.b.EmitLoad(irb, ir.Type{Width: width}, t.operand(i.X))
	case token.SUB:
		zero := ir.Const{Typ: ir.Type{Width: width}}
		t.vals[i] = t.b.EmitBinOp(irb, ir.OpSub, ir.Type{Width: width}, zero, t.operand(i.X))
	case token.XOR:
		allOnes := ir.Const{Typ: ir.Type{Width: width}, Bits: (ir.Type{Width: width}).Mask()}
		t.vals[i] = t.b.EmitBinOp(irb, ir.OpXor, ir.Type{Width: width}, t.operand(i.X), allOnes)
	case token.NOT:
		one := ir.Const{Typ: ir.Type{Width: width}, Bits: 1}
		t.vals[i] = t.b.EmitBinOp(irb, ir.OpXor, ir.Type{Width: width}, t.operand(i.X), one)
	default:
		// token.ARROW (channel receive): unmodeled, opaque.
		t.genericOther(irb, i)
	}
}

func (t *translator) convert(irb *ir.BasicBlock, i *ssa.Convert) {
	srcW, dstW := t.widthOf(i.X.Type()), t.widthOf(i.Type())
	switch {
	case dstW > srcW:
		op := ir.OpZExt
		if t.isSigned(i.X.Type()) {
			op = ir.OpSExt
		}
		t.vals[i] = t.b.EmitCast(irb, op, ir.Type{Width: dstW}, t.operand(i.X))
	case dstW < srcW:
		t.vals[i] = t.b.EmitCast(irb, ir.OpTrunc, ir.Type{Width: dstW}, t.operand(i.X))
	default:
		// Same-width conversion (e.g. int32 <-> uint32): the bit pattern is
		// unchanged, only its interpretation is; osr.Combine has no separate
		// notion of "reinterpret", so alias the result to its operand.
		t.vals[i] = t.operand(i.X)
	}
}

// genericOther is the fallback for every instruction osra's opcode set does
// not model: calls, goroutine spawns, defers, allocations, aggregate and
// map/slice/channel operations, type assertions, and multi-way select. It
// still records the instruction's operands so a later comparison against an
// opaque result can be recognized as a free variable by
// constraint.IdentifyOperands (osra/transfer.go's *ir.Other case).
func (t *translator) genericOther(irb *ir.BasicBlock, instr ssa.Instruction) {
	var ops []ir.Value
	for _, p := range instr.Operands(nil) {
		if p == nil || *p == nil {
			continue
		}
		ops = append(ops, t.operand(*p))
	}

	other := t.b.EmitOther(irb, ir.Type{Width: t.resultWidth(instr)}, ops...)
	if v, ok := instr.(ssa.Value); ok {
		t.vals[v] = other
	}
}

func (t *translator) resultWidth(instr ssa.Instruction) int {
	v, ok := instr.(ssa.Value)
	if !ok {
		return 0
	}
	return t.widthOf(v.Type())
}

// operand resolves v to an ir.Value: a fresh ir.Const for an SSA constant,
// the already-translated instruction result, or (for a Parameter, FreeVar,
// Global, or Builtin referenced directly, none of which osra models) a
// synthetic ir.Other minted once in the entry block and cached, matching
// the "undetermined (self, 1, 0) top" treatment osra/transfer.go gives any
// *ir.Other it encounters.
func (t *translator) operand(v ssa.Value) ir.Value {
	if c, ok := v.(*ssa.Const); ok {
		return t.constFor(c)
	}
	if iv, ok := t.vals[v]; ok {
		return iv
	}
	other := t.b.EmitOther(t.entry, ir.Type{Width: t.widthOf(v.Type())})
	t.vals[v] = other
	return other
}

func (t *translator) constFor(c *ssa.Const) ir.Const {
	width := t.widthOf(c.Type())
	var bits uint64
	if c.Value != nil {
		switch c.Value.Kind() {
		case constant.Int:
			n, _ := constant.Int64Val(c.Value)
			bits = uint64(n) & (ir.Type{Width: width}).Mask()
		case constant.Bool:
			if constant.BoolVal(c.Value) {
				bits = 1
			}
		}
	}
	return ir.Const{Typ: ir.Type{Width: width}, Bits: bits}
}

func (t *translator) widthOf(typ types.Type) int {
	if b, ok := typ.Underlying().(*types.Basic); ok {
		switch b.Kind() {
		case types.Bool, types.UntypedBool:
			return 1
		case types.Int8, types.Uint8:
			return 8
		case types.Int16, types.Uint16:
			return 16
		case types.Int32, types.Uint32:
			return 32
		case types.Int64, types.Uint64, types.Int, types.Uint, types.Uintptr,
			types.UntypedInt, types.UntypedRune:
			return 64
		}
	}
	return t.layout.PointerWidth
}

func (t *translator) isSigned(typ types.Type) bool {
	b, ok := typ.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	return b.Info()&types.IsInteger != 0 && b.Info()&types.IsUnsigned == 0
}
