package constraint

import (
	uf "github.com/spakin/disjoint"

	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/osr"
)

// solveConstraints computes the taken/not-taken BVs for x from "O(x) p k",
// per the per-predicate table in spec.md §4.4. ok is false when the OSR
// cannot be solved (e.g. Factor == 0, which IdentifyOperands should already
// have excluded for the free side).
func solveConstraints(p ir.Predicate, o osr.OSR, k uint64, x ir.Value) (taken, untaken bv.BV, ok bool) {
	signed := p.IsSigned()
	increasing := int64(o.Factor) >= 0

	switch p {
	case ir.EQ, ir.NE:
		sol, solvable := o.SolveEquation(k, false)
		if !solvable {
			return bv.Top(x), bv.Top(x), false
		}
		exact := o.Evaluate(sol) == k
		switch {
		case p == ir.EQ && exact:
			return bv.CreateEQ(x, sol, signed), bv.CreateNE(x, sol, signed), true
		case p == ir.EQ && !exact:
			return bv.Bottom(x), bv.Top(x), true
		case p == ir.NE && exact:
			return bv.CreateNE(x, sol, signed), bv.CreateEQ(x, sol, signed), true
		default: // NE, !exact: the compare is vacuously true on every reachable x
			return bv.Top(x), bv.Bottom(x), true
		}

	case ir.ULT, ir.SLT:
		sol, solvable := o.SolveEquation(k, false)
		if !solvable {
			return bv.Top(x), bv.Top(x), false
		}
		if increasing {
			return bv.CreateLE(x, sol-1, signed), bv.CreateGE(x, sol, signed), true
		}
		return bv.CreateGE(x, sol+1, signed), bv.CreateLE(x, sol, signed), true

	case ir.ULE, ir.SLE:
		sol, solvable := o.SolveEquation(k, false)
		if !solvable {
			return bv.Top(x), bv.Top(x), false
		}
		if increasing {
			return bv.CreateLE(x, sol, signed), bv.CreateGE(x, sol+1, signed), true
		}
		return bv.CreateGE(x, sol, signed), bv.CreateLE(x, sol-1, signed), true

	case ir.UGT, ir.SGT:
		sol, solvable := o.SolveEquation(k, true)
		if !solvable {
			return bv.Top(x), bv.Top(x), false
		}
		if increasing {
			return bv.CreateGE(x, sol+1, signed), bv.CreateLE(x, sol, signed), true
		}
		return bv.CreateLE(x, sol-1, signed), bv.CreateGE(x, sol, signed), true

	case ir.UGE, ir.SGE:
		sol, solvable := o.SolveEquation(k, true)
		if !solvable {
			return bv.Top(x), bv.Top(x), false
		}
		if increasing {
			return bv.CreateGE(x, sol, signed), bv.CreateLE(x, sol-1, signed), true
		}
		return bv.CreateLE(x, sol, signed), bv.CreateGE(x, sol+1, signed), true
	}
	return bv.Top(x), bv.Top(x), false
}

// cluster groups the values in osrs that are transitively related to the
// same free variable via union-find, mirroring the Pset-style clustering
// in cs-au-dk-goat's analysis/gotopo/pset.go (uf.NewElement/Union/Find).
type cluster struct {
	elems map[ir.Value]*uf.Element
}

func newCluster(osrs map[ir.Value]osr.OSR) *cluster {
	c := &cluster{elems: make(map[ir.Value]*uf.Element, len(osrs))}
	elem := func(v ir.Value) *uf.Element {
		if e, ok := c.elems[v]; ok {
			return e
		}
		e := uf.NewElement()
		e.Data = v
		c.elems[v] = e
		return e
	}
	for v, o := range osrs {
		elem(v)
		if o.Factor != 0 && o.X != nil {
			uf.Union(elem(v), elem(o.X))
		}
	}
	return c
}

// membersOf returns every tracked value transitively related to x (x's own
// free variable, or any value whose OSR chain bottoms out at x), including
// x itself if present in the set.
func (c *cluster) membersOf(x ir.Value) []ir.Value {
	root, ok := c.elems[x]
	if !ok {
		return nil
	}
	root = root.Find()
	var out []ir.Value
	for v, e := range c.elems {
		if e.Find() == root {
			out = append(out, v)
		}
	}
	return out
}

// ExtractBranch computes the constraints to install on the taken and
// not-taken successors of a branch guarded by cmp, given every OSR
// currently tracked for block (spec.md §4.4). decidable is false when no
// constraint can be derived (propagate nothing; caller still records the
// summary edge per point 5).
func ExtractBranch(cmp *ir.Cmp, allOSRs map[ir.Value]osr.OSR) (taken, untaken map[ir.Value]bv.BV, decidable bool) {
	lookup := func(v ir.Value) (osr.OSR, bool) { o, ok := allOSRs[v]; return o, ok }

	free, k, pred, ok := IdentifyOperands(lookup, cmp.Pred, cmp.X, cmp.Y)
	if !ok {
		return nil, nil, false
	}
	freeOSR := allOSRs[free]

	takenX, untakenX, ok := solveConstraints(pred, freeOSR, k, free)
	if !ok {
		return nil, nil, false
	}

	c := newCluster(allOSRs)
	members := c.membersOf(free)

	taken = make(map[ir.Value]bv.BV, len(members))
	untaken = make(map[ir.Value]bv.BV, len(members))
	for _, v := range members {
		vo, has := allOSRs[v]
		if !has {
			continue
		}
		taken[v] = vo.Apply(takenX, v)
		untaken[v] = vo.Apply(untakenX, v)
	}
	return taken, untaken, true
}

// ExtractSwitch computes, per case target, the EQ constraint on the
// switched value, and for the default target the meet of every case's NE
// constraint (spec.md §4.4 point 5's switch handling, §8 scenario 4).
func ExtractSwitch(sw *ir.Switch, signed bool) (perCase map[*ir.BasicBlock]bv.BV, defaultBV bv.BV) {
	perCase = make(map[*ir.BasicBlock]bv.BV, len(sw.Cases))
	defaultBV = bv.Top(sw.Value)
	for i, c := range sw.Cases {
		perCase[c.Target] = bv.CreateEQ(sw.Value, c.Value.Bits, signed)
		ne := bv.CreateNE(sw.Value, c.Value.Bits, signed)
		if i == 0 {
			defaultBV = ne
		} else {
			defaultBV, _ = defaultBV.Merge(bv.And, ne)
		}
	}
	return perCase, defaultBV
}
