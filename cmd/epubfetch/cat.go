package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/alnah/go-epubfetch/internal/contenttype"
	"github.com/alnah/go-epubfetch/internal/fileutil"
)

func runCat(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseCatFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) != 2 {
		return fmt.Errorf("%w: cat requires a publication and a resource path", ErrUsage)
	}
	if f.dataURI && f.highlight {
		return fmt.Errorf("%w: --data-uri and --highlight are mutually exclusive", ErrUsage)
	}

	cfg, logger, err := setup(&f.common, env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pub, err := openPublication(ctx, positional[0], cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	path := documentPath(pub, positional[1])

	var out []byte
	switch {
	case f.dataURI:
		uri, err := pub.FetchDataURI(ctx, path)
		if err != nil {
			return err
		}
		out = []byte(uri + "\n")
	case f.highlight:
		data, err := pub.Fetch(ctx, path)
		if err != nil {
			return err
		}
		ct := pub.ContentType(path)
		if !contenttype.IsText(ct) {
			return fmt.Errorf("%w: cannot highlight %s resource", ErrUsage, ct)
		}
		var sb strings.Builder
		if err := highlight(&sb, string(data), ct, f.style); err != nil {
			return err
		}
		out = []byte(sb.String())
	default:
		data, err := pub.Fetch(ctx, path)
		if err != nil {
			return err
		}
		out = data
	}

	if f.output == "" {
		if _, err := env.Stdout.Write(out); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	written, err := fileutil.WriteInDir(filepath.Dir(f.output), filepath.Base(f.output), out)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	if !f.common.quiet {
		fmt.Fprintf(env.Stderr, "Created %s\n", written)
	}
	return nil
}

// lexerNames maps media types to chroma lexer names.
var lexerNames = map[string]string{
	contenttype.CSS:                 "css",
	contenttype.XHTML:               "html",
	contenttype.HTML:                "html",
	contenttype.SVG:                 "xml",
	"application/oebps-package+xml": "xml",
	"application/x-dtbncx+xml":      "xml",
	"application/xml":               "xml",
	"text/xml":                      "xml",
	"text/javascript":               "javascript",
	"application/javascript":        "javascript",
}

// highlight writes source to w with terminal colors. Unknown media types
// fall back to chroma's plain-text lexer.
func highlight(w io.Writer, source, mediaType, style string) error {
	mt, _, _ := strings.Cut(mediaType, ";")
	lexer, ok := lexerNames[strings.ToLower(strings.TrimSpace(mt))]
	if !ok {
		lexer = "plaintext"
	}
	if err := quick.Highlight(w, source, lexer, "terminal256", style); err != nil {
		return fmt.Errorf("highlighting %s: %w", mediaType, err)
	}
	return nil
}
