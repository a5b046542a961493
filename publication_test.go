package epubfetch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
)

// ---------------------------------------------------------------------------
// TestOpen - Container, package document and obfuscation manifest
// ---------------------------------------------------------------------------

func TestOpen(t *testing.T) {
	t.Parallel()

	for kind, loc := range locations(t) {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()

			pub, err := Open(context.Background(), loc)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() { _ = pub.Close() }()

			if pub.Identifier() != bookIdentifier {
				t.Errorf("Identifier() = %q, want %q", pub.Identifier(), bookIdentifier)
			}
			if pub.Title() != "Fixture Book" {
				t.Errorf("Title() = %q", pub.Title())
			}
			if pub.Version() != "3.0" {
				t.Errorf("Version() = %q, want 3.0", pub.Version())
			}
			if pub.PackagePath() != "OEBPS/content.opf" {
				t.Errorf("PackagePath() = %q", pub.PackagePath())
			}

			wantSpine := []string{"OEBPS/text/ch1.xhtml", "OEBPS/text/ch2.xhtml"}
			if got := pub.Spine(); !reflect.DeepEqual(got, wantSpine) {
				t.Errorf("Spine() = %v, want %v", got, wantSpine)
			}

			enc := pub.Encryption()
			if len(enc) != 1 || enc[0].Path != "OEBPS/fonts/serif.otf" || !enc[0].Supported {
				t.Errorf("Encryption() = %+v", enc)
			}
		})
	}
}

func TestOpen_NotPublication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string][]byte
	}{
		{"no container", map[string][]byte{"mimetype": []byte("application/epub+zip")}},
		{"container without rootfile", map[string][]byte{
			"META-INF/container.xml": []byte(`<container><rootfiles/></container>`),
		}},
		{"missing package document", map[string][]byte{
			"META-INF/container.xml": []byte(bookContainer),
		}},
		{"package without identifier", map[string][]byte{
			"META-INF/container.xml": []byte(bookContainer),
			"OEBPS/content.opf":      []byte(`<package version="3.0"><metadata/><manifest/><spine/></package>`),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Open(context.Background(), writeBookDir(t, tt.files))
			if !errors.Is(err, ErrNotPublication) {
				t.Errorf("Open() error = %v, want ErrNotPublication", err)
			}
		})
	}

	t.Run("missing location", func(t *testing.T) {
		t.Parallel()

		_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.epub"))
		if !errors.Is(err, ErrNotPublication) {
			t.Errorf("Open() error = %v, want ErrNotPublication", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestPublication_Manifest - Root-relative item paths
// ---------------------------------------------------------------------------

func TestPublication_Manifest(t *testing.T) {
	t.Parallel()

	pub, err := Open(context.Background(), writeBookDir(t, bookFiles(t)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = pub.Close() }()

	items := pub.Manifest()
	if len(items) != 7 {
		t.Fatalf("Manifest() has %d items, want 7", len(items))
	}

	byID := map[string]Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if got := byID["cover"]; got.Path != "OEBPS/images/cover.png" || !reflect.DeepEqual(got.Properties, []string{"cover-image"}) {
		t.Errorf("cover item = %+v", got)
	}
	if got := byID["nav"]; got.Path != "OEBPS/nav.xhtml" {
		t.Errorf("nav item path = %q", got.Path)
	}

	if ct := pub.ContentType("OEBPS/fonts/serif.otf"); ct != "font/otf" {
		t.Errorf("ContentType(font) = %q", ct)
	}
	if ct := pub.ContentType("OEBPS/unlisted.svg"); ct != "image/svg+xml" {
		t.Errorf("ContentType(unlisted) = %q", ct)
	}

	p, err := pub.DocumentPath("text/ch2.xhtml#sec")
	if err != nil || p != "OEBPS/text/ch2.xhtml" {
		t.Errorf("DocumentPath() = %q, %v", p, err)
	}
}

// ---------------------------------------------------------------------------
// TestPublication_Fetch - Deobfuscation and errors
// ---------------------------------------------------------------------------

func TestPublication_Fetch(t *testing.T) {
	t.Parallel()

	for kind, loc := range locations(t) {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()

			pub, err := Open(context.Background(), loc)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer func() { _ = pub.Close() }()

			font, err := pub.Fetch(context.Background(), "OEBPS/fonts/serif.otf")
			if err != nil {
				t.Fatalf("Fetch(font) error = %v", err)
			}
			if !bytes.Equal(font, plainFont()) {
				t.Errorf("Fetch(font) not deobfuscated: header %x", font[:4])
			}

			cover, err := pub.Fetch(context.Background(), "/OEBPS/images/cover.png")
			if err != nil || !bytes.Equal(cover, coverPNG) {
				t.Errorf("Fetch(cover) = %q, %v", cover, err)
			}

			_, err = pub.Fetch(context.Background(), "OEBPS/images/missing.png")
			if !errors.Is(err, ErrResourceNotFound) {
				t.Errorf("Fetch(missing) error = %v, want ErrResourceNotFound", err)
			}

			_, err = pub.Fetch(context.Background(), "../outside.png")
			if !errors.Is(err, ErrResourceNotFound) {
				t.Errorf("Fetch(escape) error = %v, want ErrResourceNotFound", err)
			}
		})
	}
}

func TestPublication_FetchDataURI(t *testing.T) {
	t.Parallel()

	pub, err := Open(context.Background(), writeBookZip(t, bookFiles(t)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = pub.Close() }()

	uri, err := pub.FetchDataURI(context.Background(), "OEBPS/styles/base.css")
	if err != nil {
		t.Fatalf("FetchDataURI() error = %v", err)
	}
	if uri != "data:text/css;base64,cCB7IG1hcmdpbjogMCB9" {
		t.Errorf("FetchDataURI() = %q", uri)
	}
}

func TestPublication_Close(t *testing.T) {
	t.Parallel()

	pub, err := Open(context.Background(), writeBookZip(t, bookFiles(t)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := pub.Fetch(context.Background(), "OEBPS/images/cover.png"); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() after Close error = %v, want ErrClosed", err)
	}
	if _, err := pub.ResolveDocument(context.Background(), "OEBPS/text/ch1.xhtml"); !errors.Is(err, ErrClosed) {
		t.Errorf("ResolveDocument() after Close error = %v, want ErrClosed", err)
	}
}

// ---------------------------------------------------------------------------
// TestOpenFetcher - Custom storage
// ---------------------------------------------------------------------------

type memFetcher struct {
	files  map[string][]byte
	closed atomic.Bool
}

func (m *memFetcher) FetchText(_ context.Context, path string) (string, error) {
	data, err := m.FetchBinary(context.Background(), path)
	return string(data), err
}

func (m *memFetcher) FetchBinary(_ context.Context, path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return data, nil
}

func (m *memFetcher) Close() error {
	m.closed.Store(true)
	return nil
}

func TestOpenFetcher(t *testing.T) {
	t.Parallel()

	f := &memFetcher{files: bookFiles(t)}
	pub, err := OpenFetcher(context.Background(), f, WithConcurrency(2))
	if err != nil {
		t.Fatalf("OpenFetcher() error = %v", err)
	}

	doc, err := pub.ResolveDocument(context.Background(), "OEBPS/text/ch1.xhtml")
	if err != nil {
		t.Fatalf("ResolveDocument() error = %v", err)
	}
	defer func() { _ = doc.Close() }()

	html, err := doc.HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(html, `src="blob:epubfetch/`) {
		t.Errorf("HTML() has no rewritten image:\n%s", html)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !f.closed.Load() {
		t.Error("Close() did not close the fetcher")
	}
}
