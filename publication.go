package epubfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch/internal/contenttype"
	"github.com/alnah/go-epubfetch/internal/fetch"
	"github.com/alnah/go-epubfetch/internal/handle"
	"github.com/alnah/go-epubfetch/internal/obfuscation"
	"github.com/alnah/go-epubfetch/internal/opf"
	"github.com/alnah/go-epubfetch/internal/pkgpath"
	"github.com/alnah/go-epubfetch/internal/resolve"
)

// Fetcher reads package resources by canonical root-relative path.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	FetchText(ctx context.Context, path string) (string, error)
	FetchBinary(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// Item is a manifest entry of the package document.
type Item struct {
	ID string
	// Path is canonical and root-relative.
	Path       string
	MediaType  string
	Properties []string
}

// EncryptionEntry is one resource declared in META-INF/encryption.xml.
type EncryptionEntry struct {
	Path      string
	Algorithm string
	// Supported is false for algorithms that are recorded but passed through.
	Supported bool
}

// Publication is an opened package. It is safe for concurrent use; every
// content document resolved from it gets its own resolution state.
type Publication struct {
	fetcher     Fetcher
	logger      *zap.Logger
	pkg         *opf.Package
	packagePath string
	registry    *obfuscation.Registry
	resolver    *resolve.Resolver
	store       *handle.Store
	closed      atomic.Bool
}

// Open opens an unpacked publication directory or a zip archive.
func Open(ctx context.Context, location string, opts ...Option) (*Publication, error) {
	f, err := fetch.Open(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPublication, err)
	}
	pub, err := OpenFetcher(ctx, f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return pub, nil
}

// OpenFetcher opens a publication served by a custom Fetcher. The
// Publication takes ownership of f and closes it on Close.
func OpenFetcher(ctx context.Context, f Fetcher, opts ...Option) (*Publication, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	container, err := f.FetchText(ctx, opf.ContainerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPublication, err)
	}
	packagePath, err := opf.ReadContainer(strings.NewReader(container))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPublication, err)
	}

	packageDoc, err := f.FetchText(ctx, packagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNotPublication, packagePath, err)
	}
	pkg, err := opf.ParsePackage(strings.NewReader(packageDoc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPublication, err)
	}

	registry := obfuscation.NewRegistry(pkg.Identifier, obfuscation.WithLogger(o.logger))
	registry.Load(ctx, f)

	pub := &Publication{
		fetcher:     f,
		logger:      o.logger,
		pkg:         pkg,
		packagePath: packagePath,
		registry:    registry,
		store:       handle.NewStore(),
	}
	pub.resolver = resolve.New(f, registry,
		resolve.WithLogger(o.logger),
		resolve.WithConcurrency(o.concurrency))

	o.logger.Debug("publication opened",
		zap.String("package", packagePath),
		zap.String("identifier", pkg.Identifier),
		zap.Int("manifest", len(pkg.Manifest)),
		zap.Bool("obfuscation", registry.Declared()))

	return pub, nil
}

// Identifier returns the package's unique identifier.
func (p *Publication) Identifier() string {
	return p.pkg.Identifier
}

// Title returns the first dc:title, or "".
func (p *Publication) Title() string {
	return p.pkg.Title
}

// Version returns the package document's version attribute.
func (p *Publication) Version() string {
	return p.pkg.Version
}

// PackagePath returns the canonical path of the package document.
func (p *Publication) PackagePath() string {
	return p.packagePath
}

// Manifest returns the package manifest with root-relative paths.
// Items whose href does not resolve inside the package are skipped.
func (p *Publication) Manifest() []Item {
	items := make([]Item, 0, len(p.pkg.Manifest))
	for _, it := range p.pkg.Manifest {
		if item, ok := p.item(it); ok {
			items = append(items, item)
		}
	}
	return items
}

// Spine returns the canonical paths of the content documents in reading
// order.
func (p *Publication) Spine() []string {
	spine := p.pkg.SpineItems()
	paths := make([]string, 0, len(spine))
	for _, it := range spine {
		if item, ok := p.item(it); ok {
			paths = append(paths, item.Path)
		}
	}
	return paths
}

func (p *Publication) item(it opf.Item) (Item, bool) {
	path, err := pkgpath.Resolve(p.packagePath, it.Href)
	if err != nil {
		p.logger.Debug("skipping manifest item",
			zap.String("id", it.ID),
			zap.String("href", it.Href),
			zap.Error(err))
		return Item{}, false
	}
	return Item{
		ID:         it.ID,
		Path:       path,
		MediaType:  it.MediaType,
		Properties: strings.Fields(it.Properties),
	}, true
}

// DocumentPath converts an href relative to the package document into a
// canonical root-relative path.
func (p *Publication) DocumentPath(href string) (string, error) {
	return pkgpath.Resolve(p.packagePath, href)
}

// Encryption returns the resources declared in the obfuscation manifest,
// sorted by path. It is empty when the package has no manifest.
func (p *Publication) Encryption() []EncryptionEntry {
	entries := p.registry.Entries()
	out := make([]EncryptionEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, EncryptionEntry{
			Path:      e.Path,
			Algorithm: string(e.Algorithm),
			Supported: e.Algorithm.Supported(),
		})
	}
	return out
}

// Fetch returns the bytes of a resource, deobfuscated when the manifest
// declares a supported algorithm for it. path is root-relative.
func (p *Publication) Fetch(ctx context.Context, path string) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	canonical, err := pkgpath.Clean(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceNotFound, err)
	}

	data, err := p.fetcher.FetchBinary(ctx, canonical)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, canonical)
		}
		return nil, err
	}
	if c := p.registry.CipherFor(canonical); c != nil {
		data = c.Deobfuscate(data)
	}
	return data, nil
}

// FetchDataURI returns a resource as a base64 data URI, deobfuscated like
// Fetch.
func (p *Publication) FetchDataURI(ctx context.Context, path string) (string, error) {
	data, err := p.Fetch(ctx, path)
	if err != nil {
		return "", err
	}
	return fetch.DataURI(path, data), nil
}

// ContentType returns the media type declared in the manifest for path,
// falling back to the file name.
func (p *Publication) ContentType(path string) string {
	for _, it := range p.Manifest() {
		if it.Path == path && it.MediaType != "" {
			return it.MediaType
		}
	}
	return contenttype.FromFileName(path)
}

// fetchDocument reads a content document as text.
func (p *Publication) fetchDocument(ctx context.Context, path string) (string, error) {
	data, err := p.Fetch(ctx, path)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return "", err
	}
	return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
}

// Close closes the underlying storage. Documents already resolved stay
// readable until they are closed.
func (p *Publication) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.fetcher.Close()
}
