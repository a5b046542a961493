// Package epubfetch resolves the embedded resources of EPUB publications
// and reverses the font obfuscation declared in META-INF/encryption.xml.
//
// # Quick Start
//
// Open a publication, resolve a content document, and close both when done:
//
//	pub, err := epubfetch.Open(ctx, "book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pub.Close()
//
//	doc, err := pub.ResolveDocument(ctx, pub.Spine()[0])
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	html, err := doc.HTML()
//
// Every relative image, SVG image, linked stylesheet and inline style
// reference in the document is replaced by a handle of the form
// blob:epubfetch/<uuid>. Stylesheets are expanded transitively: their
// url(...) and @import references are rewritten to handles too. The
// original value stays on the element under data-epubfetch-orig.
//
// Document.Open returns the bytes behind a handle. Document.Export writes
// the document and its resources to a directory with handles replaced by
// relative paths.
//
// # Resolution
//
// Each canonical path is fetched at most once per document, even when it is
// referenced from several places or from an import cycle. References that
// cannot be resolved are left as written and listed in Document.Report; one
// failure never blocks the others.
//
// Fonts listed in the obfuscation manifest are deobfuscated as they are
// fetched, using the IDPF (SHA-1 key, 1040-byte prefix) or Adobe (UUID key,
// 1024-byte prefix) algorithm. Resources with any other algorithm pass
// through unchanged.
//
// # Configuration
//
// Use functional options to customize the publication:
//
//	pub, err := epubfetch.Open(ctx, "book.epub",
//	    epubfetch.WithLogger(logger),
//	    epubfetch.WithConcurrency(4),
//	)
//
// Storage other than a directory or a zip archive can be plugged in with
// OpenFetcher.
package epubfetch
