// Package report renders an analysis result the way cs-au-dk-goat's own
// vistool/intraprocess-visualize.go convention does: a plain-text form for
// terminal output and tests, and a Graphviz-rendered CFG for visual
// inspection. Both walk the same (block, instruction) structure and read
// the analysis through the Result interface below, so report does not
// import package osra.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-graphviz"

	"github.com/go-osra/osra/ir"
)

// Result is the subset of osra.Result that report needs. It is expressed as
// an interface, rather than importing package osra directly, so that
// cmd/osra can hand report a live *osra.Result and tests a stand-in,
// without an import cycle.
type Result interface {
	OSRString(v ir.Value) (string, bool)
	BVString(block *ir.BasicBlock, v ir.Value) string
}

var (
	blockColor = color.New(color.FgHiCyan).SprintFunc()
	instrColor = color.New(color.FgHiWhite, color.Faint).SprintFunc()
	osrColor   = color.New(color.FgHiYellow).SprintFunc()
	bvColor    = color.New(color.FgHiGreen).SprintFunc()
)

// Describe writes a plain-text dump of fn's blocks, each instruction
// annotated with its tracked OSR and Bounded Value (spec.md §6's "describe"
// output), in the style of cs-au-dk-goat's SSAValString: one colorized line
// per instruction, block headers set off on their own line.
func Describe(w io.Writer, fn *ir.Function, result Result) {
	for _, b := range fn.Blocks {
		fmt.Fprintf(w, "%s:\n", blockColor(b.Name))
		for _, instr := range b.Instrs {
			fmt.Fprintf(w, "  %s", instrColor(instr.String()))

			if v, ok := instr.(ir.Value); ok {
				if o, ok := result.OSRString(v); ok {
					fmt.Fprintf(w, "  osr=%s", osrColor(o))
				}
				if bvs := result.BVString(b, v); bvs != "" {
					fmt.Fprintf(w, "  bv=%s", bvColor(bvs))
				}
			}
			fmt.Fprintln(w)
		}
	}
}

// DescribeString is a convenience wrapper for tests and String() methods
// that want the whole report as one string rather than writing to an
// io.Writer, matching how the teacher's own String() methods (e.g.
// analysis/defs) build their result with a strings.Builder.
func DescribeString(fn *ir.Function, result Result) string {
	var sb strings.Builder
	Describe(&sb, fn, result)
	return sb.String()
}

// dotAttrs formats a Graphviz attribute list the way cs-au-dk-goat's
// utils/dot.DotAttrs.String does: `key="value"` pairs space-joined.
type dotAttrs map[string]string

func (a dotAttrs) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	return strings.Join(parts, " ")
}

func nodeID(b *ir.BasicBlock, instr ir.Instruction) string {
	return fmt.Sprintf("%s_%d", b.Name, instr.ID())
}

// buildDOT renders fn's CFG as a single Graphviz digraph, clustered by
// basic block, with every instruction node labeled with its OSR/BV summary.
// This mirrors cs-au-dk-goat/analysis/cfg's addFunctionToVisualizationGraph:
// one cluster per block, intra-block instructions chained top to bottom,
// inter-block edges following Succs.
func buildDOT(fn *ir.Function, result Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", fn.Name)
	fmt.Fprintln(&sb, `  rankdir="TB";`)
	fmt.Fprintln(&sb, `  node [shape="box" fontname="monospace"];`)

	for _, b := range fn.Blocks {
		fmt.Fprintf(&sb, "  subgraph %q {\n", "cluster_"+b.Name)
		fmt.Fprintf(&sb, "    label=%q;\n", b.Name)
		fmt.Fprintln(&sb, `    bgcolor="#e6ffff";`)

		var prev string
		for _, instr := range b.Instrs {
			label := instr.String()
			if v, ok := instr.(ir.Value); ok {
				if o, ok := result.OSRString(v); ok {
					label += "\n" + o
				}
				if bvs := result.BVString(b, v); bvs != "" {
					label += "\n" + bvs
				}
			}

			id := nodeID(b, instr)
			attrs := dotAttrs{"label": label}
			fmt.Fprintf(&sb, "    %q [%s];\n", id, attrs)

			if prev != "" {
				fmt.Fprintf(&sb, "    %q -> %q [style=\"invis\"];\n", prev, id)
			}
			prev = id
		}
		fmt.Fprintln(&sb, "  }")
	}

	for _, b := range fn.Blocks {
		if len(b.Instrs) == 0 {
			continue
		}
		last := b.Instrs[len(b.Instrs)-1]
		for _, s := range b.Succs {
			if len(s.Instrs) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  %q -> %q;\n", nodeID(b, last), nodeID(s, s.Instrs[0]))
		}
	}

	fmt.Fprintln(&sb, "}")
	return sb.String()
}

// RenderDOT renders fn's annotated CFG in the given Graphviz output format
// ("svg", "png", ...) to w, via github.com/goccy/go-graphviz (spec.md §6).
func RenderDOT(w io.Writer, fn *ir.Function, result Result, format string) error {
	dot := buildDOT(fn, result)

	g := graphviz.New()
	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("report: parsing generated dot: %w", err)
	}
	defer graph.Close()
	defer g.Close()

	return g.Render(graph, graphviz.Format(format), w)
}
