package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch"
	"github.com/alnah/go-epubfetch/internal/config"
	"github.com/alnah/go-epubfetch/internal/contenttype"
	"github.com/alnah/go-epubfetch/internal/hints"
	"github.com/alnah/go-epubfetch/internal/logging"
	"github.com/alnah/go-epubfetch/internal/render"
)

// Sentinel errors for the CLI.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrWriteOutput = errors.New("failed to write output")
)

// command runs one subcommand with its arguments (command name excluded).
type command func(ctx context.Context, args []string, env *Environment) error

var commands = map[string]command{
	"resolve":  runResolve,
	"cat":      runCat,
	"manifest": runManifest,
	"render":   runRender,
}

// runMain dispatches to a command and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	name, rest := args[1], args[2:]
	switch name {
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "epubfetch %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(rest, env)
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", name)
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := withSignals(context.Background())
	defer stop()

	if err := cmd(ctx, rest, env); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// hintedError attaches a hint computed where the context for it was known.
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() }
func (e *hintedError) Unwrap() error { return e.err }

func withHint(err error, hint string) error {
	if err == nil || hint == "" {
		return err
	}
	return &hintedError{err: err, hint: hint}
}

// hintFor returns the hint for err, or "" when none applies.
func hintFor(err error) string {
	var he *hintedError
	if errors.As(err, &he) {
		return he.hint
	}
	switch {
	case errors.Is(err, render.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, ErrWriteOutput), errors.Is(err, epubfetch.ErrExport):
		return hints.ForOutputDirectory()
	}
	return ""
}

// usageError wraps a flag parse error so it maps to ExitUsage.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// setup loads the config named by the common flags and builds the logger.
// Flags override config values.
func setup(f *commonFlags, env *Environment) (*config.Config, *zap.Logger, error) {
	cfg := config.DefaultConfig()
	if f.config != "" {
		loaded, err := config.LoadConfig(f.config)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, nil, withHint(err, hints.ForConfigNotFound(configCandidates(f.config)))
			}
			return nil, nil, err
		}
		cfg = loaded
	}

	level := cfg.Log.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	if f.quiet {
		level = "error"
	}
	format := cfg.Log.Format
	if f.logFormat != "" {
		format = f.logFormat
	}

	logger, err := logging.New(env.Stderr, level, format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// configCandidates lists where a config name is searched, for hints.
func configCandidates(name string) []string {
	if strings.ContainsAny(name, "/\\") {
		return nil
	}
	paths := []string{name + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "go-epubfetch", name+".yaml"))
	}
	return paths
}

// openPublication opens the publication at location with the configured
// fetch concurrency.
func openPublication(ctx context.Context, location string, cfg *config.Config, logger *zap.Logger) (*epubfetch.Publication, error) {
	pub, err := epubfetch.Open(ctx, location,
		epubfetch.WithLogger(logger),
		epubfetch.WithConcurrency(cfg.Fetch.Concurrency))
	if err != nil {
		return nil, withHint(err, hints.ForNotAPublication(location))
	}
	return pub, nil
}

// documentPath maps a manifest id, a canonical path or an href relative to
// the package document to a canonical path. Unknown arguments are returned
// unchanged so the lookup error names them.
func documentPath(pub *epubfetch.Publication, arg string) string {
	items := pub.Manifest()
	for _, it := range items {
		if it.ID == arg || it.Path == arg {
			return it.Path
		}
	}
	if p, err := pub.DocumentPath(arg); err == nil {
		for _, it := range items {
			if it.Path == p {
				return p
			}
		}
	}
	return arg
}

// spineDocuments returns the spine entries that are content documents.
func spineDocuments(pub *epubfetch.Publication) []string {
	var docs []string
	for _, p := range pub.Spine() {
		if contenttype.IsMarkup(pub.ContentType(p)) {
			docs = append(docs, p)
		}
	}
	return docs
}

// resolveDocument resolves arg and attaches the spine as a hint when the
// document is not in the package.
func resolveDocument(ctx context.Context, pub *epubfetch.Publication, arg string) (*epubfetch.Document, error) {
	doc, err := pub.ResolveDocument(ctx, documentPath(pub, arg))
	if errors.Is(err, epubfetch.ErrDocumentNotFound) {
		return nil, withHint(err, hints.ForUnknownDocument(pub.Spine()))
	}
	return doc, err
}
