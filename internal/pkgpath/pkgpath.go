// Package pkgpath implements the single canonical path convention used for
// every package resource: root-relative, slash separated, cleaned,
// percent-decoded and in Unicode NFC, without query or fragment.
//
// Manifest URIs, fetcher paths, dedup keys and cipher lookups all go through
// this package so that two spellings of the same resource compare equal.
package pkgpath

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sentinel errors for path operations.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrEscapesRoot = errors.New("path escapes package root")
	ErrInvalidPath = errors.New("invalid path")
)

// IsRelativeRef reports whether a reference found in a document should be
// resolved against the package.
//
// Not relative:
//
//   - empty values and fragment-only references ("#id")
//   - references with a scheme (http:, data:, file:, blob:, urn: ...)
//   - protocol-relative ("//host/x") and rooted ("/x") references
func IsRelativeRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return false
	}
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) {
		return false
	}

	u, err := url.Parse(ref)
	if err != nil {
		// Unparseable references are not fetched; the caller leaves them as is.
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// Clean canonicalizes a root-relative path.
// A leading slash is accepted and dropped: manifest URIs sometimes carry one.
func Clean(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyPath
	}

	decoded, err := decode(p)
	if err != nil {
		return "", err
	}

	cleaned := path.Clean("/" + decoded)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrEmptyPath, p)
	}
	if escapes("/"+decoded) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, p)
	}

	return norm.NFC.String(cleaned), nil
}

// Resolve resolves ref against the canonical path of the document or
// stylesheet that contains it and returns the canonical path of the target.
// base must already be canonical.
func Resolve(base, ref string) (string, error) {
	if !IsRelativeRef(ref) {
		return "", fmt.Errorf("%w: not a relative reference: %q", ErrInvalidPath, ref)
	}

	decoded, err := decode(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if decoded == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyPath, ref)
	}

	joined := path.Join(path.Dir("/"+base), decoded)
	if escapes(path.Dir("/"+base) + "/" + decoded) {
		return "", fmt.Errorf("%w: %q from %q", ErrEscapesRoot, ref, base)
	}

	cleaned := strings.TrimPrefix(joined, "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q from %q", ErrEmptyPath, ref, base)
	}
	return norm.NFC.String(cleaned), nil
}

// Dir returns the directory part of a canonical path ("" for the root).
func Dir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// decode strips query and fragment and percent-decodes the path.
func decode(ref string) (string, error) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.ReplaceAll(ref, `\`, "/")

	decoded, err := url.PathUnescape(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, ref, err)
	}
	return decoded, nil
}

// escapes reports whether walking the slash-separated path ever climbs
// above the root. path.Clean silently clamps "/.." to "/", which would map
// a hostile reference onto an unrelated resource.
func escapes(rooted string) bool {
	depth := 0
	for _, seg := range strings.Split(rooted, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}
