// Package osr implements C2: the Open Symbolic Relation a + b·x over a
// tracked free variable x. Per the design notes in spec.md §9, an OSR
// refers to its BV by a (home block, value) key rather than by pointer —
// bvmap.Map is the only thing that owns BVs — so OSR here is a plain,
// copyable value type; callers resolve the current bv.BV for X via
// bvmap.Map and pass it into the methods that need it.
package osr

import (
	"fmt"

	"github.com/go-osra/osra/bv"
	"github.com/go-osra/osra/ir"
)

// OSR denotes Base + Factor·x (mod 2^Width), where x is the SSA value X,
// read from the BV bound to (Home, X) in the BVMap. Factor == 0 denotes
// the constant Base.
type OSR struct {
	Base, Factor uint64
	Width        int
	Home         *ir.BasicBlock
	X            ir.Value
}

func mask(width int) uint64 {
	if width <= 0 || width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// Constant builds the OSR for an integer constant: factor 0, home block
// irrelevant since there is no free variable.
func Constant(home *ir.BasicBlock, width int, value uint64) OSR {
	return OSR{Base: value & mask(width), Factor: 0, Width: width, Home: home}
}

// Identity builds the trivial OSR "0 + 1·v" for a value that isn't (yet)
// expressible more precisely — spec.md §4.7's "OSR is (self, 1, 0) ⊤" case.
func Identity(home *ir.BasicBlock, v ir.Value, width int) OSR {
	return OSR{Base: 0, Factor: 1, Width: width, Home: home, X: v}
}

// Eq performs field-wise equality (spec.md §3's OSR equality, used for
// stability / change detection).
func (o OSR) Eq(other OSR) bool {
	return o.Base == other.Base && o.Factor == other.Factor &&
		o.Width == other.Width && o.Home == other.Home && o.X == other.X
}

// IsConstant resolves spec.md §9's Open Question: an OSR is constant iff
// its BV is constant (not "factor == 0" — a zero-factor OSR over a
// not-yet-constant BV is still reported as non-constant here, matching
// the chosen interpretation).
func (o OSR) IsConstant(cur bv.BV) bool {
	return cur.IsConstant()
}

// Evaluate computes Base + Factor·k (mod 2^Width).
func (o OSR) Evaluate(k uint64) uint64 {
	return (o.Base + o.Factor*k) & mask(o.Width)
}

// Boundaries computes (evaluate(bv.lo), evaluate(bv.hi)), using
// cur.ActualBoundaries when cur is negated, per spec.md §4.2.
func (o OSR) Boundaries(cur bv.BV) (lo, hi uint64) {
	var blo, bhi uint64
	if cur.Negated() {
		blo, bhi = cur.ActualBoundaries()
	} else {
		blo, bhi = cur.Bounds()
	}
	return o.Evaluate(blo), o.Evaluate(bhi)
}

// SolveEquation computes the integer solution x of Base + Factor·x = k
// (mod 2^Width), rounding toward +∞ if ceiling, else toward −∞. Returns
// ok=false when Factor == 0 (spec.md §4.2): a zero-factor OSR has no
// single solution regardless of whether Base == k.
func (o OSR) SolveEquation(k uint64, ceiling bool) (uint64, bool) {
	if o.Factor == 0 {
		return 0, false
	}
	diff := int64(k) - int64(o.Base)
	factor := int64(o.Factor)
	q := diff / factor
	r := diff % factor
	if r != 0 {
		positive := (r > 0) == (factor > 0)
		if ceiling && positive {
			q++
		} else if !ceiling && !positive {
			q--
		}
	}
	return uint64(q) & mask(o.Width), true
}

// Compare decides predicate p against k using this OSR's evaluated
// boundaries over cur. Returns (result, decidable); decidable is false
// when k falls strictly inside the evaluated range for an (in)equality
// that isn't already settled by the endpoints (spec.md §4.2).
func (o OSR) Compare(p ir.Predicate, k uint64, cur bv.BV) (result bool, decidable bool) {
	lo, hi := o.Boundaries(cur)
	if int64(o.Factor) < 0 {
		lo, hi = hi, lo
	}
	signed := p.IsSigned()
	lt := func(a, b uint64) bool {
		if signed {
			return int64(a) < int64(b)
		}
		return a < b
	}
	leq := func(a, b uint64) bool { return a == b || lt(a, b) }

	switch p {
	case ir.EQ:
		if lo == hi && lo == k {
			return true, true
		}
		if !(leq(lo, k) && leq(k, hi)) {
			return false, true
		}
	case ir.NE:
		if lo == hi && lo == k {
			return false, true
		}
		if !(leq(lo, k) && leq(k, hi)) {
			return true, true
		}
	case ir.ULT, ir.SLT:
		if lt(hi, k) {
			return true, true
		}
		if leq(k, lo) {
			return false, true
		}
	case ir.ULE, ir.SLE:
		if leq(hi, k) {
			return true, true
		}
		if lt(k, lo) {
			return false, true
		}
	case ir.UGT, ir.SGT:
		if lt(k, lo) {
			return true, true
		}
		if leq(hi, k) {
			return false, true
		}
	case ir.UGE, ir.SGE:
		if leq(k, lo) {
			return true, true
		}
		if lt(hi, k) {
			return false, true
		}
	}
	return false, false
}

// Apply returns target shifted by this OSR for a new value v, i.e. a BV
// describing offset + factor·t for t ranging over target (spec.md §4.2).
func (o OSR) Apply(target bv.BV, v ir.Value) bv.BV {
	return target.MoveTo(v, o.Base, o.Factor)
}

// SwitchBlock rebases this OSR's home block, leaving Base/Factor/X
// unchanged — the glossary's "Switch-block" operation (spec.md §9), used
// when a reaching definition's or phi operand's OSR, computed at one
// block, is read at another (C7's phi handling in osra.transferPhi, C5's load reacher table).
func (o OSR) SwitchBlock(home *ir.BasicBlock) OSR {
	out := o
	out.Home = home
	return out
}

func (o OSR) String() string {
	if o.Factor == 0 {
		return fmt.Sprintf("%d", o.Base)
	}
	return fmt.Sprintf("%d + %d*%v", o.Base, o.Factor, o.X)
}
