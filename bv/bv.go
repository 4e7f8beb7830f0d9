// Package bv implements C1, the Bounded Value lattice: a (possibly
// negated) closed interval over an SSA value, tagged with a signedness
// state. Semantics follow spec.md §3/§4.1 and the original BoundedValue
// class in _examples/original_source/osra.h.
//
// BV values are immutable, following the value-lattice idiom of
// cs-au-dk-goat's analysis/lattice package (e.g. Interval): every mutating
// operation returns a new BV plus a bool reporting whether anything
// changed, so callers (bvmap.Map, the osra fixpoint driver) can decide
// whether to re-enqueue dependents.
package bv

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/go-osra/osra/ir"
)

var colorize = struct {
	Bound func(...interface{}) string
	Sign  func(...interface{}) string
}{
	Bound: color.New(color.FgHiWhite).SprintFunc(),
	Sign:  color.New(color.FgYellow).SprintFunc(),
}

// Signedness is the 5-state lattice from spec.md §3.
type Signedness uint8

const (
	Unknown Signedness = iota
	Any
	Unsigned
	Signed
	Inconsistent
)

func (s Signedness) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Any:
		return "any"
	case Unsigned:
		return "unsigned"
	case Signed:
		return "signed"
	case Inconsistent:
		return "inconsistent"
	}
	return "?"
}

// Policy selects the merge operator: And is meet (intersection), Or is
// join (union).
type Policy int

const (
	And Policy = iota
	Or
)

// Bound selects which endpoint an operation targets.
type Bound int

const (
	Lower Bound = iota
	Upper
)

// ErrInvariant is raised (via panic) when a caller violates one of the
// documented BV invariants (spec.md §3, §9's Open Question about
// actualBoundaries on unlimited negated BVs).
type ErrInvariant string

func (e ErrInvariant) Error() string { return string(e) }

// BV is a Bounded Value: an interval [Lo, Hi] (raw bit patterns), a
// signedness, a bottom flag, and a negation flag meaning "the complement
// of [Lo, Hi] within Sign's full range".
type BV struct {
	value   ir.Value
	lo, hi  uint64
	sign    Signedness
	bottom  bool
	negated bool
}

// Value returns the SSA value this BV constrains.
func (b BV) Value() ir.Value { return b.value }

// Bottom returns the ⊥ BV for v: unreachable.
func Bottom(v ir.Value) BV {
	return BV{value: v, bottom: true}
}

// Top returns the ⊤ BV for v: uninitialized, matching the
// default-constructed BoundedValue(Value) in the original source, which
// starts with Sign = UnknownSignedness.
func Top(v ir.Value) BV {
	return BV{value: v, sign: Unknown}
}

// Constant returns the BV for an integer constant: Sign = Any, a
// singleton interval, never negated (spec.md §3 invariant).
func Constant(v ir.Value, k uint64) BV {
	return BV{value: v, lo: k, hi: k, sign: Any}
}

func (b BV) IsBottom() bool { return b.bottom }

// IsUninitialized reports Sign == Unknown, i.e. this BV has never been
// touched by setSignedness or a constructor.
func (b BV) IsUninitialized() bool { return !b.bottom && b.sign == Unknown }

// IsConstant reports ¬bottom ∧ ¬uninitialized ∧ lo == hi (spec.md §3).
func (b BV) IsConstant() bool {
	return !b.bottom && !b.IsUninitialized() && b.lo == b.hi
}

// ConstantValue returns the constant's raw bits. Panics if !IsConstant().
func (b BV) ConstantValue() uint64 {
	if !b.IsConstant() {
		panic(ErrInvariant("bv: ConstantValue called on a non-constant BV"))
	}
	return b.lo
}

func (b BV) Sign() Signedness { return b.sign }

// HasSignedness mirrors BoundedValue::hasSignedness: true once the sign
// has settled to Unsigned or Signed (not Unknown, not Any).
func (b BV) HasSignedness() bool {
	return b.sign != Unknown && b.sign != Any
}

// IsSigned mirrors BoundedValue::isSigned; panics on a bottom or
// signedness-less BV, matching the original's assert.
func (b BV) IsSigned() bool {
	if b.bottom || !b.HasSignedness() {
		panic(ErrInvariant("bv: IsSigned called without settled signedness"))
	}
	return b.sign != Unsigned
}

// Negated reports whether the represented set is the complement of
// [Lo, Hi].
func (b BV) Negated() bool { return b.negated }

// Bounds returns the raw (possibly negated-form) [Lo, Hi] bit patterns.
func (b BV) Bounds() (lo, hi uint64) { return b.lo, b.hi }

func (b BV) lowerExtreme() uint64 {
	switch b.sign {
	case Signed:
		return uint64(1) << 63
	default:
		return 0
	}
}

func (b BV) upperExtreme() uint64 {
	switch b.sign {
	case Unsigned, Inconsistent:
		return ^uint64(0)
	case Signed:
		return uint64(1)<<63 - 1
	default:
		return 0
	}
}

// IsTop mirrors BoundedValue::isTop: uninitialized, or the full
// non-negated range for a settled signedness.
func (b BV) IsTop() bool {
	if b.IsConstant() || b.sign == Any || b.bottom {
		return false
	}
	if b.IsUninitialized() {
		return true
	}
	return !b.negated && b.lo == b.lowerExtreme() && b.hi == b.upperExtreme()
}

// IsSingleRange reports whether the BV is not "unlimited": a negated BV
// with neither endpoint at an extreme has no complement expressible as a
// single interval (spec.md §3, §9 Open Question).
func (b BV) IsSingleRange() bool {
	if !b.negated {
		return true
	}
	if b.IsConstant() {
		return false
	}
	return b.lo == b.lowerExtreme() || b.hi == b.upperExtreme()
}

// ActualBoundaries returns the complement interval of a limited negated
// BV. Panics (ErrInvariant) if the BV is unlimited — callers must check
// IsSingleRange first, per spec.md §9's Open Question resolution.
func (b BV) ActualBoundaries() (lo, hi uint64) {
	if b.negated && b.IsConstant() {
		panic(ErrInvariant("bv: ActualBoundaries called on a negated constant"))
	}
	if !b.negated {
		return b.lo, b.hi
	}
	if b.lo == b.lowerExtreme() {
		return b.hi + 1, b.upperExtreme()
	}
	if b.hi == b.upperExtreme() {
		return b.lowerExtreme(), b.lo - 1
	}
	panic(ErrInvariant("bv: ActualBoundaries called on an unlimited BV"))
}

// SetSignedness drives the signedness state machine (spec.md §4.1):
// Unknown -> Signed/Unsigned on first use, Signed x Unsigned ->
// Inconsistent, Inconsistent is a sink. Returns the possibly-updated BV
// and whether the signedness changed.
func (b BV) SetSignedness(isSigned bool) (BV, bool) {
	want := Unsigned
	if isSigned {
		want = Signed
	}
	switch b.sign {
	case Unknown:
		out := b
		out.sign = want
		if b.IsUninitialized() {
			out.lo, out.hi = 0, 0
			out.lo = out.lowerExtreme()
			out.hi = out.upperExtreme()
		}
		return out, true
	case Any, Inconsistent:
		return b, false
	case want:
		return b, false
	default:
		out := b
		out.sign = Inconsistent
		lo, hi := out.lo, out.hi
		if hi > out.upperExtreme() || lo > hi {
			// Reinterpreting under the widened Inconsistent range never
			// shrinks the set; a full range collapses to itself.
			out.lo, out.hi = 0, out.upperExtreme()
		}
		return out, true
	}
}

func (b BV) String() string {
	if b.bottom {
		return "⊥"
	}
	if b.IsUninitialized() {
		return "⊤"
	}
	sign := ""
	if b.sign != Any {
		sign = "(" + colorize.Sign(b.sign.String()) + ")"
	}
	neg := ""
	if b.negated {
		neg = "¬"
	}
	lo, hi := b.printBounds()
	return fmt.Sprintf("%s[%s, %s]%s", neg, colorize.Bound(lo), colorize.Bound(hi), sign)
}

func (b BV) printBounds() (string, string) {
	if b.sign == Signed || b.sign == Inconsistent {
		return fmt.Sprintf("%d", int64(b.lo)), fmt.Sprintf("%d", int64(b.hi))
	}
	return fmt.Sprintf("%d", b.lo), fmt.Sprintf("%d", b.hi)
}

// MoveTo produces a BV over a different value v, with boundaries shifted
// by offset + multiplier·t for t ranging over b — the operation osr.OSR's
// Apply delegates to (spec.md §4.2's "apply"). Bottom, top, and
// signedness-less BVs pass through unchanged, matching the original
// BoundedValue::apply guard.
func (b BV) MoveTo(v ir.Value, offset, multiplier uint64) BV {
	if b.bottom || b.IsTop() || !b.HasSignedness() {
		return b
	}
	return BV{
		value:   v,
		sign:    b.sign,
		lo:      offset + multiplier*b.lo,
		hi:      offset + multiplier*b.hi,
		negated: b.negated,
	}
}

// Eq performs full structural equality (used by fixpoint stability
// checks, spec.md §8 invariant 4).
func (b BV) Eq(o BV) bool {
	if b.bottom || o.bottom {
		return b.bottom == o.bottom
	}
	return b.value == o.value && b.lo == o.lo && b.hi == o.hi &&
		b.sign == o.sign && b.negated == o.negated
}
