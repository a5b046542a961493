package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-epubfetch"
	"github.com/alnah/go-epubfetch/internal/hints"
)

// resolveResult holds the outcome of one document.
type resolveResult struct {
	document string
	output   string
	report   epubfetch.Report
	err      error
}

func runResolve(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseResolveFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) < 1 {
		return fmt.Errorf("%w: resolve requires a publication", ErrUsage)
	}
	if f.workers < 0 {
		return fmt.Errorf("%w: --workers must be >= 0", ErrUsage)
	}

	cfg, logger, err := setup(&f.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input := positional[0]
	outDir := f.output
	if outDir == "" {
		outDir = cfg.Output.DefaultDir
	}
	if outDir == "" {
		outDir = defaultOutputDir(input)
	}

	pub, err := openPublication(ctx, input, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	documents := positional[1:]
	if len(documents) == 0 {
		documents = spineDocuments(pub)
	}
	if len(documents) == 0 {
		return fmt.Errorf("%w: %s has no content documents in its spine", ErrUsage, input)
	}

	results := resolveAll(ctx, pub, documents, outDir, resolveWorkers(f.workers, len(documents)))
	return printResolveResults(results, env, f.common.quiet)
}

// resolveAll resolves and exports documents with at most workers in flight.
// Results keep the order of documents.
func resolveAll(ctx context.Context, pub *epubfetch.Publication, documents []string, outDir string, workers int) []resolveResult {
	results := make([]resolveResult, len(documents))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, arg := range documents {
		g.Go(func() error {
			results[i] = resolveOne(ctx, pub, arg, outDir)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func resolveOne(ctx context.Context, pub *epubfetch.Publication, arg, outDir string) resolveResult {
	result := resolveResult{document: arg}

	doc, err := resolveDocument(ctx, pub, arg)
	if err != nil {
		result.err = err
		return result
	}
	defer func() { _ = doc.Close() }()

	result.report = doc.Report()
	result.output, result.err = doc.Export(outDir)
	return result
}

// printResolveResults prints one line per document and a summary, and
// returns the combined error of failed documents.
func printResolveResults(results []resolveResult, env *Environment, quiet bool) error {
	var (
		errs       error
		succeeded  int
		unresolved int
	)
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.document, r.err, hintFor(r.err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.document, r.err))
			continue
		}
		succeeded++
		unresolved += len(r.report.Failures)
		if !quiet {
			fmt.Fprintf(env.Stdout, "Created %s (%d rewritten, %d unresolved)\n",
				r.output, r.report.Rewritten, len(r.report.Failures))
		}
	}

	failed := len(results) - succeeded
	if !quiet {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
		if unresolved > 0 {
			fmt.Fprintf(env.Stderr, "%d references left unresolved%s\n", unresolved, hints.ForUnresolved(unresolved))
		}
	}

	if errs != nil {
		return fmt.Errorf("%d of %d documents failed: %w", failed, len(results), errs)
	}
	return nil
}

// resolveWorkers returns the number of documents resolved in parallel.
func resolveWorkers(requested, documents int) int {
	n := requested
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > documents {
		n = documents
	}
	if n < 1 {
		n = 1
	}
	return n
}

// defaultOutputDir derives "<name>-resolved" from the publication location.
func defaultOutputDir(input string) string {
	base := filepath.Base(filepath.Clean(input))
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-resolved"
}
