package report

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/go-osra/osra/ir"
)

// stubResult is a minimal report.Result used to test the renderers without
// depending on package osra (would be an import cycle: osra_test could want
// report, but report must never import osra back).
type stubResult struct {
	osrs map[ir.Value]string
	bvs  map[ir.Value]string
}

func (s stubResult) OSRString(v ir.Value) (string, bool) {
	o, ok := s.osrs[v]
	return o, ok
}

func (s stubResult) BVString(_ *ir.BasicBlock, v ir.Value) string {
	return s.bvs[v]
}

func buildSample() (*ir.Function, ir.Value, ir.Value) {
	b := ir.NewBuilder("f", ir.DataLayout{PointerWidth: 64})
	entry := b.Block("entry")
	loop := b.Block("loop")

	x := b.EmitOther(entry, ir.Type{Width: 32})
	b.EmitBr(entry, loop)
	add := b.EmitBinOp(loop, ir.OpAdd, ir.Type{Width: 32}, x, ir.Const{Typ: ir.Type{Width: 32}, Bits: 1})

	return b.Finish(), x, ir.Value(add)
}

func TestDescribeIncludesBlockNamesAndAnnotations(t *testing.T) {
	fn, x, add := buildSample()
	result := stubResult{
		osrs: map[ir.Value]string{x: "(entry, 1, 0)", add: "(loop, 1, 1)"},
		bvs:  map[ir.Value]string{x: "[0, 9] unsigned", add: "[1, 10] unsigned"},
	}

	out := DescribeString(fn, result)

	for _, want := range []string{"entry:", "loop:", "(entry, 1, 0)", "[1, 10] unsigned"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected describe output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDescribeOmitsMissingOSR(t *testing.T) {
	fn, _, _ := buildSample()
	result := stubResult{osrs: map[ir.Value]string{}, bvs: map[ir.Value]string{}}

	out := DescribeString(fn, result)
	if strings.Contains(out, "osr=") {
		t.Fatalf("expected no osr= annotation when no OSR is tracked, got:\n%s", out)
	}
}

// TestDescribeGoldenOutput locks down Describe's exact line shape against a
// fixture, following cs-au-dk-goat/analysis/absint's own goldie.Assert
// convention for its own printed analysis reports.
func TestDescribeGoldenOutput(t *testing.T) {
	fn, x, add := buildSample()
	result := stubResult{
		osrs: map[ir.Value]string{x: "(entry, 1, 0)", add: "(loop, 1, 1)"},
		bvs:  map[ir.Value]string{x: "[0, 9] unsigned", add: "[1, 10] unsigned"},
	}

	out := DescribeString(fn, result)
	goldie.New(t).Assert(t, t.Name(), []byte(out))
}

func TestBuildDOTProducesValidTopLevelStructure(t *testing.T) {
	fn, x, add := buildSample()
	result := stubResult{
		osrs: map[ir.Value]string{x: "(entry, 1, 0)", add: "(loop, 1, 1)"},
		bvs:  map[ir.Value]string{},
	}

	dot := buildDOT(fn, result)

	if !strings.HasPrefix(dot, "digraph \"f\" {") {
		t.Fatalf("expected dot output to open with a named digraph, got:\n%s", dot)
	}
	if !strings.Contains(dot, "cluster_entry") || !strings.Contains(dot, "cluster_loop") {
		t.Fatalf("expected one cluster per basic block, got:\n%s", dot)
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Fatalf("expected dot output to close the digraph, got:\n%s", dot)
	}
}
