package obfuscation

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch/internal/pkgpath"
)

// ManifestPath is the root-relative location of the obfuscation manifest.
const ManifestPath = "META-INF/encryption.xml"

// TextSource fetches a package resource as text.
// fetch.DataFetcher satisfies it.
type TextSource interface {
	FetchText(ctx context.Context, path string) (string, error)
}

// Entry is one resource declared in the manifest.
type Entry struct {
	Path      string
	Algorithm Algorithm
}

// Registry maps canonical resource paths to the algorithm that obfuscates
// them and hands out the matching Cipher.
//
// A Registry is built once by Load and is read-only afterwards; all methods
// are safe for concurrent use.
type Registry struct {
	identifier string
	logger     *zap.Logger

	mu       sync.RWMutex
	declared bool
	entries  map[string]Algorithm
	ciphers  map[Algorithm]*Cipher
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report manifest and key problems.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry bound to the package identifier,
// which is the key material for every cipher it returns.
func NewRegistry(identifier string, opts ...RegistryOption) *Registry {
	r := &Registry{
		identifier: identifier,
		logger:     zap.NewNop(),
		entries:    make(map[string]Algorithm),
		ciphers:    make(map[Algorithm]*Cipher),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches and parses the manifest from src.
// A missing or unreadable manifest is not an error: the registry stays empty
// and the publication is treated as having no obfuscated resources.
func (r *Registry) Load(ctx context.Context, src TextSource) {
	text, err := src.FetchText(ctx, ManifestPath)
	if err != nil {
		r.logger.Debug("publication does not use obfuscation",
			zap.String("manifest", ManifestPath),
			zap.Error(err))
		return
	}

	entries, err := ParseManifest(strings.NewReader(text))
	if err != nil {
		r.logger.Warn("ignoring unreadable obfuscation manifest",
			zap.String("manifest", ManifestPath),
			zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.logger.Debug("obfuscation declared",
			zap.String("algorithm", string(e.Algorithm)),
			zap.String("path", e.Path))
		r.entries[e.Path] = e.Algorithm
		r.declared = true
	}
}

// Declared reports whether the manifest declared at least one resource.
func (r *Registry) Declared() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.declared
}

// AlgorithmFor returns the algorithm declared for a canonical path.
func (r *Registry) AlgorithmFor(path string) (Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[path]
	return a, ok
}

// CipherFor returns the cipher for a canonical path, or nil when the path is
// not declared or its algorithm is not supported (pass-through).
func (r *Registry) CipherFor(path string) *Cipher {
	algorithm, ok := r.AlgorithmFor(path)
	if !ok || !algorithm.Supported() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.ciphers[algorithm]; ok {
		return c
	}

	c, err := NewCipher(algorithm, r.identifier)
	if err != nil {
		// Only ErrMalformedIdentifier reaches here; the key is best-effort.
		r.logger.Warn("deriving key from malformed identifier",
			zap.String("algorithm", string(algorithm)),
			zap.String("identifier", r.identifier),
			zap.Error(err))
	}
	r.ciphers[algorithm] = c
	return c
}

// Entries returns every declared resource sorted by path.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for p, a := range r.entries {
		out = append(out, Entry{Path: p, Algorithm: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ParseManifest extracts one Entry per CipherReference of every
// EncryptedData element. The algorithm is the first EncryptionMethod of the
// enclosing EncryptedData. Nothing else in the document is validated.
func ParseManifest(r io.Reader) ([]Entry, error) {
	decoder := xml.NewDecoder(r)

	var (
		entries   []Entry
		inData    bool
		haveAlgo  bool
		algorithm Algorithm
		uris      []string
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "EncryptedData":
				inData, haveAlgo, algorithm, uris = true, false, "", nil
			case "EncryptionMethod":
				if inData && !haveAlgo {
					algorithm = Algorithm(attr(t, "Algorithm"))
					haveAlgo = true
				}
			case "CipherReference":
				if inData {
					uris = append(uris, attr(t, "URI"))
				}
			}
		case xml.EndElement:
			if t.Name.Local != "EncryptedData" || !inData {
				continue
			}
			inData = false
			for _, uri := range uris {
				p, err := pkgpath.Clean(uri)
				if err != nil {
					continue
				}
				entries = append(entries, Entry{Path: p, Algorithm: algorithm})
			}
		}
	}

	return entries, nil
}

// attr returns the value of the attribute with the given local name.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
