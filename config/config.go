// Package config holds cmd/osra's command-line options and the block
// blacklist file format, grounded on cs-au-dk-goat/utils/init.go's
// package-level options struct populated by the standard flag package.
// Unlike the teacher, osra has no task/pset selection menu (it always runs
// the one fixpoint analysis), so this is a much smaller options set: which
// package and function to analyze, how to report the result, and which
// blocks to exclude.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Options is the CLI configuration for cmd/osra, populated by Parse.
type Options struct {
	GoPath        string
	ModulePath    string
	Function      string
	BlacklistPath string
	OutputFormat  string
	DotOut        string
	NoColorize    bool
	Verbose       bool

	// Args holds the positional arguments left after flag parsing (the
	// package pattern to load), matching flag.Args() semantics.
	Args []string
}

// Parse populates an Options from args (typically os.Args[1:]), following
// the teacher's convention of one flag.*Var call per field.
func Parse(args []string) (*Options, error) {
	fs := flag.NewFlagSet("osra", flag.ContinueOnError)
	opts := &Options{}

	fs.StringVar(&opts.GoPath, "gopath", "", "GOPATH to use for packages.Load")
	fs.StringVar(&opts.ModulePath, "modulepath", "", "path to a directory containing a Go module")
	fs.StringVar(&opts.Function, "fun", "main", "target function to analyze")
	fs.StringVar(&opts.BlacklistPath, "blacklist", "", "path to a YAML file listing blocks to exclude from analysis")
	fs.StringVar(&opts.OutputFormat, "format", "text", "report format: text or a Graphviz format (svg, png, ...)")
	fs.StringVar(&opts.DotOut, "out", "", "output file for a non-text report format; defaults to stdout")
	fs.BoolVar(&opts.NoColorize, "no-colorize", false, "disable pretty printer colorization")
	fs.BoolVar(&opts.Verbose, "verbose", false, "accepted for compatibility; osra prints no extra output for it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.Args = fs.Args()
	return opts, nil
}

// BlockRef names one basic block by the function that owns it and the
// block's name, mirroring how spec.md §6 describes the blacklist ("block
// names by function and index").
type BlockRef struct {
	Function string `yaml:"function"`
	Block    string `yaml:"block"`
}

// Blacklist is the parsed form of a -blacklist YAML file: a flat list of
// blocks to exclude, grouped by owning function.
type Blacklist struct {
	Blocks []BlockRef `yaml:"blocks"`
}

// LoadBlacklist reads and parses a blacklist YAML file of the form:
//
//	blocks:
//	  - function: Foo
//	    block: bb3
//	  - function: Bar
//	    block: bb0
//
// An empty path is not an error: it yields an empty Blacklist, matching
// -blacklist being optional.
func LoadBlacklist(path string) (Blacklist, error) {
	if path == "" {
		return Blacklist{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Blacklist{}, fmt.Errorf("config: reading blacklist %s: %w", path, err)
	}

	var bl Blacklist
	if err := yaml.Unmarshal(data, &bl); err != nil {
		return Blacklist{}, fmt.Errorf("config: parsing blacklist %s: %w", path, err)
	}
	return bl, nil
}

// ForFunction returns the set of block names blacklisted for fn, suitable
// for ssaadapter's translated blocks to be matched against by name before
// being turned into an osra.Blacklist keyed by *ir.BasicBlock.
func (bl Blacklist) ForFunction(fn string) map[string]bool {
	out := make(map[string]bool)
	for _, ref := range bl.Blocks {
		if ref.Function == fn {
			out[ref.Block] = true
		}
	}
	return out
}
