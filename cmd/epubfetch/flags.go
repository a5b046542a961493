package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	logLevel  string
	logFormat string
	quiet     bool
}

// resolveFlags holds flags for the resolve command.
type resolveFlags struct {
	common  commonFlags
	output  string
	workers int
}

// catFlags holds flags for the cat command.
type catFlags struct {
	common    commonFlags
	output    string
	dataURI   bool
	highlight bool
	style     string
}

// manifestFlags holds flags for the manifest command.
type manifestFlags struct {
	common commonFlags
	format string
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common    commonFlags
	output    string
	timeout   string
	pageSize  string
	landscape bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console, json")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting and
// prints its usage to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseResolveFlags parses resolve command flags and returns positional args.
func parseResolveFlags(args []string, w io.Writer) (*resolveFlags, []string, error) {
	f := &resolveFlags{}
	fs := newFlagSet("resolve", w, printResolveUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "documents resolved in parallel (0 = auto)")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseCatFlags parses cat command flags and returns positional args.
func parseCatFlags(args []string, w io.Writer) (*catFlags, []string, error) {
	f := &catFlags{}
	fs := newFlagSet("cat", w, printCatUsage)

	fs.StringVarP(&f.output, "output", "o", "", "write to file instead of stdout")
	fs.BoolVar(&f.dataURI, "data-uri", false, "print the resource as a data: URI")
	fs.BoolVar(&f.highlight, "highlight", false, "syntax-highlight text resources")
	fs.StringVar(&f.style, "style", "monokai", "highlight style name")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseManifestFlags parses manifest command flags and returns positional args.
func parseManifestFlags(args []string, w io.Writer) (*manifestFlags, []string, error) {
	f := &manifestFlags{}
	fs := newFlagSet("manifest", w, printManifestUsage)

	fs.StringVarP(&f.format, "format", "f", formatText, "output format: text, yaml")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, w io.Writer) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", w, printRenderUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output PDF path")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF generation timeout (e.g., 30s, 2m)")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: letter, a4, legal")
	fs.BoolVar(&f.landscape, "landscape", false, "landscape orientation")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
