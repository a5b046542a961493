package resolve

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"github.com/alnah/go-epubfetch/internal/contenttype"
	"github.com/alnah/go-epubfetch/internal/handle"
	"github.com/alnah/go-epubfetch/internal/markup"
	"github.com/alnah/go-epubfetch/internal/obfuscation"
	"github.com/alnah/go-epubfetch/internal/pkgpath"
)

// DefaultConcurrency bounds simultaneous fetch calls per Resolve call.
const DefaultConcurrency = 8

// OrigAttr keeps the pre-rewrite reference on a rewritten element.
const OrigAttr = "data-epubfetch-orig"

// Fetcher reads package resources by canonical path.
// fetch.DataFetcher satisfies it.
type Fetcher interface {
	FetchText(ctx context.Context, path string) (string, error)
	FetchBinary(ctx context.Context, path string) ([]byte, error)
}

// CipherSource returns the cipher for a canonical path, or nil when the
// resource is stored in the clear. obfuscation.Registry satisfies it.
type CipherSource interface {
	CipherFor(path string) *obfuscation.Cipher
}

// Resolver resolves content documents against one package.
// It is safe for concurrent use; per-document state lives in Context.
type Resolver struct {
	fetcher Fetcher
	ciphers CipherSource
	logger  *zap.Logger
	limit   int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds simultaneous fetch calls of each Resolve call.
// Every call gets its own bound, so fetches stuck in one document never
// hold back another. Values below 1 keep the default.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = int64(n)
		}
	}
}

// New creates a Resolver. ciphers may be nil for a package without
// obfuscated resources.
func New(fetcher Fetcher, ciphers CipherSource, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		ciphers: ciphers,
		logger:  zap.NewNop(),
		limit:   DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Failure describes one reference that could not be resolved. The reference
// is left as written.
type Failure struct {
	// Path is the canonical path, empty when the reference did not resolve
	// to one.
	Path string
	// Ref is the reference as written.
	Ref string
	// Base is the canonical path of the document or stylesheet containing Ref.
	Base string
	Err  error
}

// Report summarizes one resolution pass.
type Report struct {
	// Rewritten counts document elements whose reference became a handle.
	Rewritten int
	// Skipped counts document references left alone because they are not
	// relative (external URLs, data URIs, fragments).
	Skipped int
	// Fetches counts fetch calls issued.
	Fetches int
	// Handles counts distinct canonical paths claimed in the document.
	Handles  int
	Failures []Failure
}

// Resolution is an in-progress Resolve call.
type Resolution struct {
	barrier *JoinBarrier
	report  *Report
}

// Done is closed once every reference has settled and the document has
// been rewritten.
func (r *Resolution) Done() <-chan struct{} {
	return r.barrier.Done()
}

// Wait blocks until the resolution completes or ctx ends. The document must
// not be read before Wait returns a report.
func (r *Resolution) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-r.barrier.Done():
		return r.report, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refKind selects the fetch mode of a reference.
type refKind int

const (
	kindBinary refKind = iota
	kindStylesheet
	kindInlineStyle
)

// reference is one resolvable element of the document.
type reference struct {
	node      *html.Node
	namespace string
	key       string
	value     string
	path      string
	kind      refKind
}

// outcome is the result slot of one reference, written by exactly one
// goroutine before it settles the barrier.
type outcome struct {
	handle handle.Handle
	text   string
	ok     bool
}

// pass holds the state of one Resolve call.
type pass struct {
	r       *Resolver
	ctx     context.Context
	doc     *Context
	barrier *JoinBarrier
	sem     *semaphore.Weighted

	fetches atomic.Int64

	mu       sync.Mutex
	failures []Failure
}

// Resolve rewrites every relative image and stylesheet reference under root.
// basePath is the canonical path of the document. The returned Resolution
// completes once all fetches, including nested stylesheet imports, have
// settled; the tree is only modified at that point, on one goroutine.
// A document without relative references completes before Resolve returns
// and issues no fetch.
func (r *Resolver) Resolve(ctx context.Context, doc *Context, root *html.Node, basePath string) *Resolution {
	p := &pass{r: r, ctx: ctx, doc: doc, sem: semaphore.NewWeighted(r.limit)}
	report := &Report{}
	res := &Resolution{report: report}

	refs, skipped := p.collect(root, basePath)
	report.Skipped = skipped
	outcomes := make([]outcome, len(refs))

	p.barrier = NewJoinBarrier(len(refs), func() {
		report.Rewritten = apply(refs, outcomes)
		report.Fetches = int(p.fetches.Load())
		report.Handles = doc.cache.Len()
		p.mu.Lock()
		report.Failures = append(report.Failures, p.failures...)
		p.mu.Unlock()

		r.logger.Info("document resolved",
			zap.String("document", basePath),
			zap.Int("rewritten", report.Rewritten),
			zap.Int("skipped", report.Skipped),
			zap.Int("fetches", report.Fetches),
			zap.Int("failures", len(report.Failures)))
	})
	res.barrier = p.barrier

	for i := range refs {
		go p.run(refs[i], &outcomes[i], basePath)
	}
	return res
}

// collect enumerates the references to resolve. References that are not
// relative are counted as skipped; relative ones that do not resolve to a
// package path are recorded as failures without an operation.
func (p *pass) collect(root *html.Node, basePath string) ([]reference, int) {
	var (
		refs    []reference
		skipped int
	)

	add := func(n *html.Node, namespace, key, value string, kind refKind) {
		if !pkgpath.IsRelativeRef(value) {
			skipped++
			return
		}
		target, err := pkgpath.Resolve(basePath, value)
		if err != nil {
			p.fail(Failure{Ref: value, Base: basePath, Err: fmt.Errorf("%w: %v", ErrReference, err)})
			return
		}
		refs = append(refs, reference{node: n, namespace: namespace, key: key, value: value, path: target, kind: kind})
	}

	markup.Walk(root, func(n *html.Node) {
		switch {
		case n.Data == "img" && n.Namespace == "":
			if v, ok := markup.Attr(n, "src"); ok {
				add(n, "", "src", v, kindBinary)
			}
		case n.Data == "image" && n.Namespace == "svg":
			if v, ok := markup.AttrNS(n, "", "href"); ok {
				add(n, "", "href", v, kindBinary)
			} else if v, ok := markup.AttrNS(n, "xlink", "href"); ok {
				add(n, "xlink", "href", v, kindBinary)
			}
		case n.Data == "link" && n.Namespace == "":
			rel, _ := markup.Attr(n, "rel")
			if !markup.HasToken(rel, "stylesheet") {
				return
			}
			if v, ok := markup.Attr(n, "href"); ok {
				add(n, "", "href", v, kindStylesheet)
			}
		case n.Data == "style":
			text := markup.Text(n)
			if hasRelativeMatch(ScanCSS(text)) {
				refs = append(refs, reference{node: n, value: text, path: basePath, kind: kindInlineStyle})
			}
		}
	})

	return refs, skipped
}

// run resolves one document reference and settles its barrier slot.
func (p *pass) run(ref reference, out *outcome, basePath string) {
	if ref.kind == kindInlineStyle {
		// The inline sheet is expanded with the document as its base; the
		// expansion settles the slot.
		p.expand(basePath, ref.value, func(rewritten string) {
			out.text, out.ok = rewritten, true
			p.barrier.Settle()
		})
		return
	}

	defer p.barrier.Settle()

	declared, _ := markup.Attr(ref.node, "type")
	h, err := p.obtain(ref.path, ref.kind, declared)
	if err != nil {
		p.fail(Failure{Path: ref.path, Ref: ref.value, Base: basePath, Err: err})
		return
	}
	out.handle, out.ok = h, true
}

// obtain returns the handle for a canonical path, fetching it if this is the
// first reference to it in the document. Concurrent callers for the same
// path share one fetch; they wait only for the fetch outcome, never for
// stylesheet expansion, so import cycles cannot deadlock.
//
// For a stylesheet the handle is returned as soon as its text is fetched;
// the expansion is registered on the document barrier and fills the handle
// with the rewritten text when it completes.
func (p *pass) obtain(path string, kind refKind, declaredType string) (handle.Handle, error) {
	entry, owner := p.doc.cache.claim(path)
	if !owner {
		return entry.wait()
	}

	// Marked before the fetch: a cycle back to this sheet must not expand
	// it a second time.
	expandable := kind == kindStylesheet && p.doc.processed.markIfNew(path)

	data, err := p.fetch(path, kind)
	if err != nil {
		entry.settle("", err)
		return "", err
	}

	h, err := p.doc.scope.Allocate()
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrHandle, path, err)
		entry.settle("", err)
		return "", err
	}

	contentType := contenttype.FromFileName(path)
	if kind == kindStylesheet {
		contentType = contenttype.CSS
		if declaredType != "" {
			contentType = declaredType
		}
	}
	// Filled right away so the handle is openable even if expansion fails.
	p.fill(h, path, data, contentType)
	entry.settle(h, nil)

	if expandable {
		text := string(data)
		p.barrier.Add(1)
		go p.expand(path, text, func(rewritten string) {
			p.fill(h, path, []byte(rewritten), contentType)
			p.barrier.Settle()
		})
	}

	return h, nil
}

// expand resolves the url() and @import references of one stylesheet
// relative to base, then calls done with the rewritten text. Every relative
// match runs on its own goroutine; done is called on the goroutine that
// settles the last match, or immediately when there is none.
func (p *pass) expand(base, text string, done func(string)) {
	matches := ScanCSS(text)
	handles := make([]handle.Handle, len(matches))

	var relative []int
	for i, m := range matches {
		if pkgpath.IsRelativeRef(m.Path) {
			relative = append(relative, i)
		}
	}

	sheet := NewJoinBarrier(len(relative), func() {
		done(RewriteCSS(text, matches, handles))
	})

	for _, i := range relative {
		go func(i int) {
			defer sheet.Settle()

			m := matches[i]
			target, err := pkgpath.Resolve(base, m.Path)
			if err != nil {
				p.fail(Failure{Ref: m.Path, Base: base, Err: fmt.Errorf("%w: %v", ErrReference, err)})
				return
			}

			kind := kindBinary
			if m.Import {
				kind = kindStylesheet
			}
			h, err := p.obtain(target, kind, "")
			if err != nil {
				p.fail(Failure{Path: target, Ref: m.Path, Base: base, Err: err})
				return
			}
			handles[i] = h
		}(i)
	}
}

// fetch reads a resource under the concurrency bound and reverses its
// obfuscation when the registry declares one. Stylesheets are read as text
// unless they are themselves obfuscated.
func (p *pass) fetch(path string, kind refKind) (data []byte, err error) {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, path, err)
	}
	defer p.sem.Release(1)

	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("%w: %s: panic: %v", ErrFetch, path, rec)
		}
	}()

	p.fetches.Add(1)

	var cipher *obfuscation.Cipher
	if p.r.ciphers != nil {
		cipher = p.r.ciphers.CipherFor(path)
	}

	if kind == kindStylesheet && cipher == nil {
		text, err := p.r.fetcher.FetchText(p.ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, path, err)
		}
		return []byte(text), nil
	}

	data, err = p.r.fetcher.FetchBinary(p.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, path, err)
	}
	if cipher != nil {
		p.r.logger.Debug("deobfuscating resource",
			zap.String("path", path),
			zap.String("algorithm", string(cipher.Algorithm())))
		data = cipher.Deobfuscate(data)
	}
	return data, nil
}

// fill stores content behind a handle. It only fails once the document's
// scope has been released, when nobody can open the handle anymore.
func (p *pass) fill(h handle.Handle, path string, data []byte, contentType string) {
	if err := p.doc.scope.Store().Fill(h, data, contentType); err != nil {
		p.r.logger.Debug("handle content dropped",
			zap.String("path", path),
			zap.String("handle", h.String()),
			zap.Error(err))
	}
}

// fail records and logs a failed reference.
func (p *pass) fail(f Failure) {
	p.r.logger.Warn("resource reference left unresolved",
		zap.String("ref", f.Ref),
		zap.String("path", f.Path),
		zap.String("base", f.Base),
		zap.Error(f.Err))

	p.mu.Lock()
	p.failures = append(p.failures, f)
	p.mu.Unlock()
}

// apply rewrites the resolved references into the tree and returns how
// many elements changed.
func apply(refs []reference, outcomes []outcome) int {
	rewritten := 0
	for i, ref := range refs {
		out := outcomes[i]
		if !out.ok {
			continue
		}
		if ref.kind == kindInlineStyle {
			if out.text != ref.value {
				markup.SetText(ref.node, out.text)
				rewritten++
			}
			continue
		}
		markup.SetAttrNS(ref.node, ref.namespace, ref.key, out.handle.String())
		markup.SetAttr(ref.node, OrigAttr, ref.value)
		rewritten++
	}
	return rewritten
}

func hasRelativeMatch(matches []CSSMatch) bool {
	for _, m := range matches {
		if pkgpath.IsRelativeRef(m.Path) {
			return true
		}
	}
	return false
}
