// Command osra loads a Go package, translates one of its functions into
// ir, runs the OSR/Bounded-Value fixpoint analysis over it, and prints a
// report. It follows cs-au-dk-goat/main.go's overall pipeline shape (load
// packages, build SSA, locate the target function, run the analysis,
// report) shed of the teacher's task-menu dispatch, points-to analysis,
// and goroutine topology construction, none of which a single-function
// fixpoint needs.
package main

import (
	"log"
	"os"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/go-osra/osra/osra"
	"github.com/go-osra/osra/config"
	"github.com/go-osra/osra/ir"
	"github.com/go-osra/osra/pkgutil"
	"github.com/go-osra/osra/reachdef"
	"github.com/go-osra/osra/report"
	"github.com/go-osra/osra/ssaadapter"
)

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalln(err)
	}
	if opts.NoColorize {
		color.NoColor = true
	}
	if len(opts.Args) == 0 {
		log.Fatalln("usage: osra [flags] <package>")
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:     opts.GoPath,
		ModulePath: opts.ModulePath,
	}, opts.Args[0])
	if err != nil {
		log.Fatalln("loading package:", err)
	}

	prog, _ := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	fn := findFunction(pkgutil.AllPackages(prog), opts.Function)
	if fn == nil {
		log.Fatalf("function %q not found", opts.Function)
	}

	fn2 := ssaadapter.Translate(fn, ir.DataLayout{PointerWidth: 64})

	blacklist, err := loadBlacklist(opts, fn2)
	if err != nil {
		log.Fatalln("loading blacklist:", err)
	}

	result := osra.New(fn2, reachdef.New(fn2), blacklist).Run()

	if opts.DotOut != "" {
		f, err := os.Create(opts.DotOut)
		if err != nil {
			log.Fatalln("creating output file:", err)
		}
		defer f.Close()
		if err := render(f, fn2, result, opts); err != nil {
			log.Fatalln(err)
		}
		return
	}

	if err := render(os.Stdout, fn2, result, opts); err != nil {
		log.Fatalln(err)
	}
}

func findFunction(pkgs []*ssa.Package, name string) *ssa.Function {
	for _, pkg := range pkgs {
		if member, ok := pkg.Members[name]; ok {
			if fn, ok := member.(*ssa.Function); ok {
				return fn
			}
		}
	}
	return nil
}

func loadBlacklist(opts *config.Options, fn *ir.Function) (osra.Blacklist, error) {
	bl, err := config.LoadBlacklist(opts.BlacklistPath)
	if err != nil {
		return nil, err
	}

	names := bl.ForFunction(opts.Function)
	if len(names) == 0 {
		return nil, nil
	}

	out := osra.Blacklist{}
	for _, b := range fn.Blocks {
		if names[b.Name] {
			out[b] = true
		}
	}
	return out, nil
}

func render(w *os.File, fn *ir.Function, result *osra.Result, opts *config.Options) error {
	if opts.OutputFormat == "" || opts.OutputFormat == "text" {
		report.Describe(w, fn, result)
		return nil
	}
	return report.RenderDOT(w, fn, result, opts.OutputFormat)
}
