package epubfetch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alnah/go-epubfetch/internal/handle"
	"github.com/alnah/go-epubfetch/internal/markup"
	"github.com/alnah/go-epubfetch/internal/pkgpath"
	"github.com/alnah/go-epubfetch/internal/resolve"
)

// Failure is one reference left as written because it could not be resolved.
type Failure struct {
	// Path is the canonical target, empty when the reference did not
	// resolve to a package path.
	Path string
	// Ref is the reference as written.
	Ref string
	// Base is the document or stylesheet containing Ref.
	Base string
	Err  error
}

// Report summarizes the resolution of one content document.
type Report struct {
	Rewritten int
	Skipped   int
	Fetches   int
	Handles   int
	Failures  []Failure
}

// Document is a content document whose relative image and stylesheet
// references have been replaced by handles. Close releases the handles.
type Document struct {
	path   string
	doc    *markup.Document
	rctx   *resolve.Context
	store  *handle.Store
	report Report

	mu     sync.Mutex
	closed bool
}

// ResolveDocument loads the content document at the canonical root-relative
// path and resolves every relative reference in it, including stylesheet
// imports. Unresolvable references are reported in the Report and left
// as written; only loading or parsing the document itself fails the call.
//
// If ctx ends first, the call returns ctx.Err() and the partial state is
// released in the background once pending fetches settle.
func (p *Publication) ResolveDocument(ctx context.Context, path string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: unexpected panic: %v", ErrResolve, r)
		}
	}()

	if p.closed.Load() {
		return nil, ErrClosed
	}
	canonical, err := pkgpath.Clean(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}

	text, err := p.fetchDocument(ctx, canonical)
	if err != nil {
		return nil, err
	}
	parsed, err := markup.Parse(text, p.ContentType(canonical))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolve, canonical, err)
	}

	rctx := resolve.NewContext(p.store.NewScope())
	res := p.resolver.Resolve(ctx, rctx, parsed.Root, canonical)

	report, err := res.Wait(ctx)
	if err != nil {
		go func() {
			<-res.Done()
			rctx.Release()
		}()
		return nil, err
	}

	return &Document{
		path:   canonical,
		doc:    parsed,
		rctx:   rctx,
		store:  p.store,
		report: convertReport(report),
	}, nil
}

func convertReport(r *resolve.Report) Report {
	out := Report{
		Rewritten: r.Rewritten,
		Skipped:   r.Skipped,
		Fetches:   r.Fetches,
		Handles:   r.Handles,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, Failure{Path: f.Path, Ref: f.Ref, Base: f.Base, Err: f.Err})
	}
	return out
}

// Path returns the canonical path of the document.
func (d *Document) Path() string {
	return d.path
}

// Report returns the resolution summary.
func (d *Document) Report() Report {
	return d.report
}

// HTML renders the rewritten document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrDocumentClosed
	}
	return d.doc.Render()
}

// Resources returns the canonical paths resolved for the document,
// including those reached through stylesheet imports, mapped to their
// handles.
func (d *Document) Resources() map[string]string {
	resolved := d.rctx.Cache().Resolved()
	out := make(map[string]string, len(resolved))
	for p, h := range resolved {
		out[p] = h.String()
	}
	return out
}

// ResourcePaths returns the keys of Resources, sorted.
func (d *Document) ResourcePaths() []string {
	res := d.Resources()
	paths := make([]string, 0, len(res))
	for p := range res {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Open returns the content and content type behind a handle of this
// document. Handles of other documents are unknown here.
func (d *Document) Open(h string) ([]byte, string, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, "", ErrDocumentClosed
	}
	if !handle.IsHandle(h) || !d.rctx.Scope().Owns(handle.Handle(h)) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}

	res, err := d.store.Open(handle.Handle(h))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnknownHandle, err)
	}
	return res.Data, res.ContentType, nil
}

// Close releases every handle allocated for the document. It is idempotent.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.rctx.Release()
	return nil
}
