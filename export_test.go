package epubfetch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-epubfetch/internal/handle"
)

// ---------------------------------------------------------------------------
// TestDocument_Export - Materialized tree
// ---------------------------------------------------------------------------

func TestDocument_Export(t *testing.T) {
	t.Parallel()

	_, doc := resolveChapterOne(t, writeBookZip(t, bookFiles(t)))
	out := t.TempDir()

	docPath, err := doc.Export(out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if want := filepath.Join(out, "OEBPS", "text", "ch1.xhtml"); docPath != want {
		t.Errorf("Export() = %q, want %q", docPath, want)
	}

	read := func(rel string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("reading exported %s: %v", rel, err)
		}
		return string(data)
	}

	page := read("OEBPS/text/ch1.xhtml")
	for _, want := range []string{
		`href="../styles/main.css"`,
		`src="../images/cover.png"`,
		`src="../images/missing.png"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("exported document missing %q:\n%s", want, page)
		}
	}

	css := read("OEBPS/styles/main.css")
	for _, want := range []string{
		`@import url("base.css")`,
		`src: url("../fonts/serif.otf")`,
		`background: url("../images/cover.png")`,
	} {
		if !strings.Contains(css, want) {
			t.Errorf("exported stylesheet missing %q:\n%s", want, css)
		}
	}

	for name, text := range map[string]string{"document": page, "stylesheet": css} {
		if strings.Contains(text, handle.Prefix) {
			t.Errorf("exported %s still contains a handle", name)
		}
	}

	if font := read("OEBPS/fonts/serif.otf"); !bytes.Equal([]byte(font), plainFont()) {
		t.Error("exported font is not deobfuscated")
	}
	if cover := read("OEBPS/images/cover.png"); !bytes.Equal([]byte(cover), coverPNG) {
		t.Error("exported cover differs from the package")
	}
	if _, err := os.Stat(filepath.Join(out, "OEBPS", "images", "missing.png")); !os.IsNotExist(err) {
		t.Error("unresolved resource was exported")
	}
}

// ---------------------------------------------------------------------------
// TestRelativeRef - Paths between exported files
// ---------------------------------------------------------------------------

func TestRelativeRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from string
		to   string
		want string
	}{
		{"/OEBPS/text", "/OEBPS/images/a.png", "../images/a.png"},
		{"/OEBPS/styles", "/OEBPS/styles/base.css", "base.css"},
		{"/", "/OEBPS/a.png", "OEBPS/a.png"},
		{"/OEBPS/text/deep", "/cover.png", "../../../cover.png"},
		{"/OEBPS", "/OEBPS/my fonts/a b.otf", "my%20fonts/a%20b.otf"},
		{"/a/b", "/a/b", "../b"},
	}

	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			t.Parallel()

			if got := relativeRef(tt.from, tt.to); got != tt.want {
				t.Errorf("relativeRef(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
