package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-epubfetch/internal/fileutil"
	"github.com/alnah/go-epubfetch/internal/render"
)

func runRender(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) != 2 {
		return fmt.Errorf("%w: render requires a publication and a document", ErrUsage)
	}

	cfg, logger, err := setup(&f.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	timeout := cfg.Render.TimeoutDuration()
	if f.timeout != "" {
		timeout, err = time.ParseDuration(f.timeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("%w: invalid --timeout %q", ErrUsage, f.timeout)
		}
	}
	opts := render.Options{
		PageSize:  cfg.Render.PageSize,
		Landscape: cfg.Render.Landscape || f.landscape,
	}
	if f.pageSize != "" {
		opts.PageSize = f.pageSize
	}
	if _, err := render.PrintOptions(opts); err != nil {
		return err
	}

	pub, err := openPublication(ctx, positional[0], cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	doc, err := resolveDocument(ctx, pub, positional[1])
	if err != nil {
		return err
	}
	defer func() { _ = doc.Close() }()

	tmp, err := os.MkdirTemp("", "epubfetch-render-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	page, err := doc.Export(tmp)
	if err != nil {
		return err
	}

	renderer := env.NewRenderer(timeout, logger)
	defer func() { _ = renderer.Close() }()

	pdf, err := renderer.RenderFile(ctx, page, opts)
	if err != nil {
		return err
	}

	output := f.output
	if output == "" {
		output = defaultPDFName(doc.Path())
	}
	written, err := fileutil.WriteInDir(filepath.Dir(output), filepath.Base(output), pdf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}

	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "Created %s\n", written)
		if n := len(doc.Report().Failures); n > 0 {
			fmt.Fprintf(env.Stderr, "%d references left unresolved\n", n)
		}
	}
	return nil
}

// defaultPDFName returns the document's file name with a .pdf extension.
func defaultPDFName(documentPath string) string {
	base := path.Base(documentPath)
	return strings.TrimSuffix(base, path.Ext(base)) + ".pdf"
}
