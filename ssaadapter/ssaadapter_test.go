package ssaadapter

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/go-osra/osra/osra"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/reachdef"
)

const linearInductionSrc = `
package p

func count() int {
	n := 0
	for i := 0; i < 10; i++ {
		n = i
	}
	return n
}
`

func buildSSA(t *testing.T, src string) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	pkg := types.NewPackage("p", "p")
	conf := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("build ssa: %v", err)
	}
	return ssaPkg
}

// findComparedPhi locates the phi fed into a Cmp as its free operand: since
// binOp canonicalizes every translated comparison with the constant on the
// right (cmpsimplify), the loop induction variable shows up as a Cmp's X.
func findComparedPhi(fn *ir.Function) *ir.Phi {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if cmp, ok := instr.(*ir.Cmp); ok {
				if p, ok := cmp.X.(*ir.Phi); ok {
					return p
				}
			}
		}
	}
	return nil
}

// End-to-end rerun of spec.md §8 scenario 1 (linear induction), but on real
// Go source translated through golang.org/x/tools/go/ssa rather than a
// hand-built ir.Function, matching SPEC_FULL.md §1's description of
// ssaadapter's role ("drive OSRA end-to-end on compiled Go").
func TestTranslateLinearInductionFromGoSource(t *testing.T) {
	ssaPkg := buildSSA(t, linearInductionSrc)
	fn := ssaPkg.Func("count")
	if fn == nil {
		t.Fatalf("expected a count function in the built package")
	}

	fn2 := Translate(fn, ir.DataLayout{PointerWidth: 64})
	result := osra.New(fn2, reachdef.New(fn2), nil).Run()

	induction := findComparedPhi(fn2)
	if induction == nil {
		t.Fatalf("expected to find the loop induction variable as a Cmp operand")
	}

	o, ok := result.GetOSR(induction)
	if !ok || o.Factor != 1 || o.X != ir.Value(induction) {
		t.Fatalf("expected OSR(i) to fall back to its own identity (a non-unanimous phi), got %v (ok=%v)", o, ok)
	}

	var cmpBlock *ir.BasicBlock
	for _, b := range fn2.Blocks {
		for _, instr := range b.Instrs {
			if _, ok := instr.(*ir.Cmp); ok {
				cmpBlock = b
			}
		}
	}
	if cmpBlock == nil {
		t.Fatalf("expected to find the comparison's block")
	}

	bv := result.BV(cmpBlock, induction)
	lo, hi := bv.Bounds()
	if !bv.HasSignedness() || hi-lo >= uint64(1)<<32 {
		t.Fatalf("expected a narrowed bounded range for the induction variable at its comparison, got %s", bv)
	}
}

const sextConstSrc = `
package p

func widen() int64 {
	var x int32 = 5
	return int64(x)
}
`

// Mirrors spec.md §8 scenario 2 (constant fold through sext) end-to-end.
func TestTranslateConstantFoldThroughSext(t *testing.T) {
	ssaPkg := buildSSA(t, sextConstSrc)
	fn := ssaPkg.Func("widen")
	if fn == nil {
		t.Fatalf("expected a widen function in the built package")
	}

	fn2 := Translate(fn, ir.DataLayout{PointerWidth: 64})
	result := osra.New(fn2, reachdef.New(fn2), nil).Run()

	var cast *ir.Cast
	for _, b := range fn2.Blocks {
		for _, instr := range b.Instrs {
			if c, ok := instr.(*ir.Cast); ok && c.Op() == ir.OpSExt {
				cast = c
			}
		}
	}
	if cast == nil {
		t.Fatalf("expected a translated sext instruction")
	}

	o, ok := result.GetOSR(cast)
	if !ok || o.Factor != 0 || o.Base != 5 {
		t.Fatalf("expected OSR(int64(x)) = constant 5, got %v (ok=%v)", o, ok)
	}
}
