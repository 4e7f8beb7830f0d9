package osra

import (
	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/constraint"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/osr"
)

// processBlock runs the per-instruction transfer of spec.md §4.7 starting
// at index from, dispatching by opcode-carrying concrete type rather than
// virtual methods (spec.md §9: "pattern-match, avoid virtual dispatch").
// enqueue schedules (block, from-index) work items; it is a no-op for
// blacklisted blocks.
func (a *Analysis) processBlock(b *ir.BasicBlock, from int, enqueue func(*ir.BasicBlock, int)) {
	for i := from; i < len(b.Instrs); i++ {
		switch instr := b.Instrs[i].(type) {
		case *ir.BinOp:
			a.transferBinOp(instr, enqueue)
		case *ir.Cast:
			a.transferCast(instr, enqueue)
		case *ir.Phi:
			a.transferPhi(instr, enqueue)
		case *ir.Load:
			a.transferLoad(instr, enqueue)
		case *ir.CondBr:
			a.transferCondBr(instr, enqueue)
		case *ir.Switch:
			a.transferSwitch(instr, enqueue)
		case *ir.Br:
			enqueue(instr.Target, 0)
		case *ir.Other:
			// Opaque: give it the undetermined "(self, 1, 0) top" OSR
			// (spec.md §4.7) so it is still usable as a free operand by a
			// later branch or switch.
			a.setOSR(instr, osr.Identity(instr.Block(), instr, instr.Type().Width), enqueue)
		// *ir.Store carries no OSR of its own (spec.md §4.7); *ir.Cmp is
		// evaluated lazily by the branch that consumes it. Neither
		// schedules further work directly.
		default:
		}
	}
}

// osrOf resolves the current OSR of v: literal for a constant, tracked for
// an already-analyzed instruction, or the conservative "(self, 1, 0) top"
// case of spec.md §4.7 for anything not yet analyzed.
func (a *Analysis) osrOf(v ir.Value, home *ir.BasicBlock) osr.OSR {
	if k, ok := v.(ir.Const); ok {
		return osr.Constant(home, k.Typ.Width, k.Bits)
	}
	if o, ok := a.osrs[v]; ok {
		return o
	}
	return osr.Identity(home, v, v.Type().Width)
}

// constOperand reports the known integer value of v if it resolves to one:
// a literal constant, or an already-tracked OSR whose factor is zero
// (spec.md §4.2's "concrete constant (factor 0, bounded to singleton)").
func (a *Analysis) constOperand(v ir.Value) (uint64, bool) {
	if k, ok := v.(ir.Const); ok {
		return k.Bits, true
	}
	if o, ok := a.osrs[v]; ok && o.Factor == 0 {
		return o.Base, true
	}
	return 0, false
}

// subscribeOperand registers user as a subscriber of v when v is itself a
// Load (spec.md §4.6): "whenever the transfer function for instruction I
// reads a load L's OSR, it inserts I into Subscriptions[L]".
func (a *Analysis) subscribeOperand(user ir.Instruction, v ir.Value) {
	if l, ok := v.(*ir.Load); ok {
		a.subs.Subscribe(l, user)
	}
}

func evalConstBinOp(op ir.Opcode, x, y uint64, width int) (uint64, bool) {
	m := ir.Type{Width: width}.Mask()
	switch op {
	case ir.OpAdd:
		return (x + y) & m, true
	case ir.OpSub:
		return (x - y) & m, true
	case ir.OpMul:
		return (x * y) & m, true
	case ir.OpShl:
		if y >= 64 {
			return 0, false
		}
		return (x << y) & m, true
	case ir.OpAnd:
		return x & y, true
	case ir.OpOr:
		return x | y, true
	case ir.OpXor:
		return x ^ y, true
	default:
		return 0, false
	}
}

func (a *Analysis) transferBinOp(b *ir.BinOp, enqueue func(*ir.BasicBlock, int)) {
	a.subscribeOperand(b, b.X)
	a.subscribeOperand(b, b.Y)

	xk, xConst := a.constOperand(b.X)
	yk, yConst := a.constOperand(b.Y)
	width := b.Type().Width

	var result osr.OSR
	switch {
	case xConst && yConst:
		if folded, ok := evalConstBinOp(b.Op(), xk, yk, width); ok {
			result = osr.Constant(b.Block(), width, folded)
		} else {
			result = osr.Identity(b.Block(), b, width)
		}
	case !xConst && yConst:
		base := a.osrOf(b.X, b.Block())
		cur := a.bvs.Get(base.Home, base.X)
		if combined, ok := base.Combine(b.Op(), yk, 0, cur); ok {
			result = combined
		} else {
			result = osr.Identity(b.Block(), b, width)
		}
	case xConst && !yConst:
		base := a.osrOf(b.Y, b.Block())
		cur := a.bvs.Get(base.Home, base.X)
		if combined, ok := base.Combine(b.Op(), xk, 1, cur); ok {
			result = combined
		} else {
			result = osr.Identity(b.Block(), b, width)
		}
	default:
		result = osr.Identity(b.Block(), b, width)
	}

	a.setOSR(b, result, enqueue)
}

func (a *Analysis) transferCast(c *ir.Cast, enqueue func(*ir.BasicBlock, int)) {
	a.subscribeOperand(c, c.X)

	base := a.osrOf(c.X, c.Block())
	result, ok := base.Cast(c.Op(), c.Type().Width)
	if !ok {
		result = osr.Identity(c.Block(), c, c.Type().Width)
	}
	a.setOSR(c, result, enqueue)

	if c.Op() == ir.OpSExt || c.Op() == ir.OpZExt {
		signed := c.Op() == ir.OpSExt
		if result.Factor == 0 {
			// No free variable to tag: force the cast's own slot to the
			// folded constant, signed per the cast opcode (spec.md §8
			// scenario 2: "OSR(x) = constant 5, sign Signed").
			folded := bv.CreateEQ(c, result.Base, signed)
			before := a.bvs.Get(c.Block(), c)
			a.bvs = a.bvs.ForceBV(c.Block(), c, folded)
			if !before.Eq(folded) {
				a.enqueueDependents(c, enqueue)
			}
			return
		}
		var changed bool
		a.bvs, changed = a.bvs.SetSignedness(result.Home, result.X, signed)
		if changed {
			a.enqueueDependents(result.X, enqueue)
		}
	}
}

func allSameOSR(osrs []osr.OSR) bool {
	if len(osrs) == 0 {
		return false
	}
	for _, o := range osrs[1:] {
		if !o.Eq(osrs[0]) {
			return false
		}
	}
	return true
}

// transferPhi computes the phi's own OSR by the same "adopt if unanimous,
// else fall back to identity" rule loadreach.Merge uses for a load's
// reachers (spec.md §4.7's "meet in C3" is underspecified for phis beyond
// the load case; DESIGN.md records this as the chosen reading). It does not
// write BVMap components itself: a phi's Bounded Value comes entirely from
// whatever branch narrowing (C4) targets it once its OSR makes it a
// tracked free variable, per spec.md §8 scenario 1.
func (a *Analysis) transferPhi(p *ir.Phi, enqueue func(*ir.BasicBlock, int)) {
	rebased := make([]osr.OSR, 0, len(p.Edges))
	for _, e := range p.Edges {
		if a.blacklist[e.Pred] {
			continue
		}
		a.subscribeOperand(p, e.Val)
		rebased = append(rebased, a.osrOf(e.Val, e.Pred).SwitchBlock(p.Block()))
	}

	result := osr.Identity(p.Block(), p, p.Type().Width)
	if allSameOSR(rebased) {
		result = rebased[0]
	}
	a.setOSR(p, result, enqueue)
}

// transferLoad refreshes L's reacher list from the reaching-definitions
// collaborator, merges it (loadreach.Table.Merge), and installs the result
// (spec.md §4.5, §4.7).
func (a *Analysis) transferLoad(l *ir.Load, enqueue func(*ir.BasicBlock, int)) {
	for _, r := range a.reach.Reaches(l) {
		var srcVal ir.Value
		var srcHome *ir.BasicBlock
		switch d := r.(type) {
		case *ir.Store:
			srcVal, srcHome = d.Val, d.Block()
		case *ir.Load:
			srcVal, srcHome = d, d.Block()
		default:
			continue
		}
		srcOSR := a.osrOf(srcVal, srcHome).SwitchBlock(l.Block())
		a.loads.UpdateLoadReacher(l, r, srcOSR)
		a.addLoadDependency(srcVal, l)
	}

	resolve := func(o osr.OSR) bv.BV { return a.bvs.Get(o.Home, o.X) }
	result, changed := a.loads.Merge(l, resolve)
	if result.ForceNeeded {
		a.bvs = a.bvs.ForceBV(l.Block(), l, result.ForcedBV)
	}

	a.osrs[l] = result.OSR
	if changed {
		a.enqueueDependents(l, enqueue)
	}
}

func (a *Analysis) addLoadDependency(v ir.Value, l *ir.Load) {
	for _, existing := range a.loadDependents[v] {
		if existing == l {
			return
		}
	}
	a.loadDependents[v] = append(a.loadDependents[v], l)
}

// transferCondBr delegates to the constraint extractor (C4), pushing the
// resulting per-value constraints onto the taken/not-taken successor edges
// (spec.md §4.4 point 4) and re-enqueuing a successor whenever its summary
// changes. An undecidable or unconditional branch still visits both
// successors, matching point 5's "propagate no constraints but still
// record the summary edge".
func (a *Analysis) transferCondBr(br *ir.CondBr, enqueue func(*ir.BasicBlock, int)) {
	cmp, ok := br.Cond.(*ir.Cmp)
	if !ok {
		enqueue(br.Then, 0)
		enqueue(br.Else, 0)
		return
	}
	a.subscribeOperand(br, cmp.X)
	a.subscribeOperand(br, cmp.Y)

	taken, untaken, decidable := constraint.ExtractBranch(cmp, a.osrs)
	if !decidable {
		enqueue(br.Then, 0)
		enqueue(br.Else, 0)
		return
	}
	if a.applyConstraints(br.Then, br.Block(), taken) {
		enqueue(br.Then, 0)
	}
	if a.applyConstraints(br.Else, br.Block(), untaken) {
		enqueue(br.Else, 0)
	}
}

// transferSwitch mirrors transferCondBr for a multi-way dispatch: each case
// gets an EQ constraint on the switched value, and the default gets the
// meet of every case's NE constraint (spec.md §4.4 point 5, §8 scenario 4).
func (a *Analysis) transferSwitch(sw *ir.Switch, enqueue func(*ir.BasicBlock, int)) {
	a.subscribeOperand(sw, sw.Value)

	signed := false
	if o, ok := a.osrs[sw.Value]; ok {
		if cur := a.bvs.Get(o.Home, o.X); cur.HasSignedness() {
			signed = cur.IsSigned()
		}
	}

	perCase, defaultBV := constraint.ExtractSwitch(sw, signed)
	for _, c := range sw.Cases {
		if a.applyConstraints(c.Target, sw.Block(), map[ir.Value]bv.BV{sw.Value: perCase[c.Target]}) {
			enqueue(c.Target, 0)
		}
	}
	if a.applyConstraints(sw.Default, sw.Block(), map[ir.Value]bv.BV{sw.Value: defaultBV}) {
		enqueue(sw.Default, 0)
	}
}

func (a *Analysis) applyConstraints(target, origin *ir.BasicBlock, constraints map[ir.Value]bv.BV) bool {
	changed := false
	for v, newBV := range constraints {
		var upd bool
		a.bvs, upd = a.bvs.Update(target, origin, v, newBV)
		changed = changed || upd
	}
	return changed
}

// setOSR installs newOSR for v and, if it differs from what was previously
// tracked, enqueues every dependent (spec.md §4.7's "if it changes, enqueue
// all users... plus, if the instruction is a load, its subscribers").
func (a *Analysis) setOSR(v ir.Value, newOSR osr.OSR, enqueue func(*ir.BasicBlock, int)) {
	old, had := a.osrs[v]
	a.osrs[v] = newOSR
	if had && old.Eq(newOSR) {
		return
	}
	a.enqueueDependents(v, enqueue)
}

func (a *Analysis) enqueueDependents(v ir.Value, enqueue func(*ir.BasicBlock, int)) {
	for _, user := range a.users[v] {
		enqueue(user.Block(), indexOf(user.Block(), user))
	}
	for _, l := range a.loadDependents[v] {
		enqueue(l.Block(), indexOf(l.Block(), l))
	}
	if l, ok := v.(*ir.Load); ok {
		for _, sub := range a.subs.Subscribers(l) {
			enqueue(sub.Block(), indexOf(sub.Block(), sub))
		}
	}
}

func indexOf(b *ir.BasicBlock, instr ir.Instruction) int {
	for i, in := range b.Instrs {
		if in == instr {
			return i
		}
	}
	return 0
}
