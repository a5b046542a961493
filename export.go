package epubfetch

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alnah/go-epubfetch/internal/contenttype"
	"github.com/alnah/go-epubfetch/internal/fileutil"
	"github.com/alnah/go-epubfetch/internal/handle"
)

// Export writes the rewritten document and every resource it resolved under
// dir, each at its canonical path. Handles in the document and in exported
// stylesheets are replaced by relative paths, so the tree renders without
// the handle store. It returns the path of the written document.
func (d *Document) Export(dir string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrDocumentClosed
	}

	resolved := d.rctx.Cache().Resolved()
	targets := make(map[handle.Handle]string, len(resolved))
	for p, h := range resolved {
		targets[h] = p
	}

	for p, h := range resolved {
		res, err := d.store.Open(h)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrExport, p, err)
		}
		data := res.Data
		if contenttype.IsText(res.ContentType) {
			data = []byte(replaceHandles(string(data), p, targets))
		}
		if _, err := fileutil.WriteInDir(dir, p, data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrExport, err)
		}
	}

	rendered, err := d.doc.Render()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}
	out, err := fileutil.WriteInDir(dir, d.path, []byte(replaceHandles(rendered, d.path, targets)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExport, err)
	}
	return out, nil
}

// replaceHandles substitutes every handle in text with the path of its
// target relative to from, the canonical path of the file holding text.
func replaceHandles(text, from string, targets map[handle.Handle]string) string {
	if len(targets) == 0 || !strings.Contains(text, handle.Prefix) {
		return text
	}
	pairs := make([]string, 0, 2*len(targets))
	for h, to := range targets {
		pairs = append(pairs, h.String(), relativeRef(path.Dir("/"+from), "/"+to))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// relativeRef returns a URL-escaped relative reference from the rooted
// directory fromDir to the rooted file to.
func relativeRef(fromDir, to string) string {
	from := splitPath(fromDir)
	target := splitPath(to)

	common := 0
	for common < len(from) && common < len(target)-1 && from[common] == target[common] {
		common++
	}

	segments := make([]string, 0, len(from)-common+len(target)-common)
	for range from[common:] {
		segments = append(segments, "..")
	}
	for _, s := range target[common:] {
		segments = append(segments, url.PathEscape(s))
	}
	return strings.Join(segments, "/")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
