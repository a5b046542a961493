package markup

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/alnah/go-epubfetch/internal/contenttype"
)

// ---------------------------------------------------------------------------
// Parse / Render
// ---------------------------------------------------------------------------

func TestParseRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		wantFragment bool
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "xhtml document",
			content:      `<?xml version="1.0" encoding="UTF-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>T</title></head><body><p>x</p></body></html>`,
			wantContains: []string{"<title>T</title>", "<p>x</p>"},
		},
		{
			name:         "doctype document",
			content:      "<!DOCTYPE html><html><body><img src=\"a.png\"/></body></html>",
			wantContains: []string{"<!DOCTYPE html>", `<img src="a.png"/>`},
		},
		{
			name:         "fragment",
			content:      `<p>hello</p><img src="a.png">`,
			wantFragment: true,
			wantContains: []string{"<p>hello</p>"},
			wantExcludes: []string{"<html>", "<body>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse(tt.content, "")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if doc.Fragment() != tt.wantFragment {
				t.Errorf("Fragment() = %v, want %v", doc.Fragment(), tt.wantFragment)
			}

			got, err := doc.Render()
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() = %q, want to contain %q", got, want)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("Render() = %q, should not contain %q", got, exclude)
				}
			}
		})
	}
}

func TestParse_SVGImageKeepsNamespace(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html><html><body><svg xmlns:xlink="http://www.w3.org/1999/xlink"><image xlink:href="cover.jpg"/></svg></body></html>`

	for _, mediaType := range []string{contenttype.HTML, contenttype.XHTML} {
		t.Run(mediaType, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse(page, mediaType)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			image := find(doc, "image")
			if image == nil || image.Namespace != "svg" {
				t.Fatalf("svg image element not found: %+v", image)
			}

			if v, ok := AttrNS(image, "xlink", "href"); !ok || v != "cover.jpg" {
				t.Errorf("AttrNS(xlink, href) = %q, %v; want cover.jpg", v, ok)
			}
			if v, ok := Attr(image, "href"); !ok || v != "cover.jpg" {
				t.Errorf("Attr(href) = %q, %v; want cover.jpg", v, ok)
			}

			SetAttrNS(image, "xlink", "href", "blob:x")
			got, _ := doc.Render()
			if !strings.Contains(got, `xlink:href="blob:x"`) {
				t.Errorf("Render() = %q, want rewritten xlink:href", got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// XML content documents
// ---------------------------------------------------------------------------

func TestParse_XHTMLSelfClosingElementsStayEmpty(t *testing.T) {
	t.Parallel()

	const page = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title/><script src="../js/a.js"/><style/></head>
<body epub:type="bodymatter"><p>A&nbsp;&amp;&#160;B</p><img src="../images/a.png" alt=""/></body>
</html>`

	doc, err := Parse(page, contenttype.XHTML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Fragment() {
		t.Error("Fragment() = true, want false")
	}

	for _, tag := range []string{"title", "script", "style"} {
		n := find(doc, tag)
		if n == nil {
			t.Fatalf("%s element not found", tag)
		}
		if n.FirstChild != nil {
			t.Errorf("<%s/> has children, want none", tag)
		}
	}

	img := find(doc, "img")
	if img == nil {
		t.Fatal("img after self-closing head elements not found")
	}
	if img.Parent == nil || img.Parent.Data != "body" {
		t.Errorf("img parent = %+v, want body", img.Parent)
	}

	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		"<!DOCTYPE html>",
		"<title></title>",
		`<script src="../js/a.js"></script>`,
		`<body epub:type="bodymatter">`,
		"<p>A\u00a0&amp;\u00a0B</p>",
		`<img src="../images/a.png" alt=""/>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() = %q, want to contain %q", got, want)
		}
	}
}

func TestParse_XHTMLDoctypeIdentifiers(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd"><html><body/></html>`

	doc, err := Parse(page, contenttype.XHTML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, _ := doc.Render()
	want := `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`
	if !strings.HasPrefix(got, want) {
		t.Errorf("Render() = %q, want prefix %q", got, want)
	}
}

func TestParse_MalformedXHTMLFallsBackToHTML(t *testing.T) {
	t.Parallel()

	// Unquoted attribute and unclosed paragraph are not XML.
	doc, err := Parse(`<!DOCTYPE html><html><body><p class=x>one<img src="a.png"></body></html>`, contenttype.XHTML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if find(doc, "img") == nil {
		t.Error("img not found after HTML fallback")
	}
}

func TestParse_XHTMLFragment(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<p>one</p> <title/><img src="a.png"/>`, contenttype.XHTML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !doc.Fragment() {
		t.Error("Fragment() = false, want true")
	}
	got, _ := doc.Render()
	if want := `<p>one</p> <title></title><img src="a.png"/>`; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestParse_HTMLSelfClosingTitleIsRawText(t *testing.T) {
	t.Parallel()

	// Without an XML media type the HTML rules apply.
	doc, err := Parse(`<!DOCTYPE html><html><head><title/></head><body><img src="a.png"/></body></html>`, contenttype.HTML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if find(doc, "img") != nil {
		t.Error("img found inside HTML raw text title")
	}
}

// find returns the first element with the given tag.
func find(doc *Document, tag string) *html.Node {
	var found *html.Node
	Walk(doc.Root, func(n *html.Node) {
		if found == nil && n.Data == tag {
			found = n
		}
	})
	return found
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestSetAttr(t *testing.T) {
	t.Parallel()

	n := &html.Node{Type: html.ElementNode, Data: "img", Attr: []html.Attribute{{Key: "src", Val: "a.png"}}}

	SetAttr(n, "src", "b.png")
	SetAttr(n, "data-x", "1")

	if v, _ := Attr(n, "src"); v != "b.png" {
		t.Errorf("src = %q, want b.png", v)
	}
	if v, ok := Attr(n, "data-x"); !ok || v != "1" {
		t.Errorf("data-x = %q, %v; want 1", v, ok)
	}
	if len(n.Attr) != 2 {
		t.Errorf("len(Attr) = %d, want 2", len(n.Attr))
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<style>@import "a.css";</style>`, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var style *html.Node
	Walk(doc.Root, func(n *html.Node) {
		if n.Data == "style" {
			style = n
		}
	})
	if style == nil {
		t.Fatal("style element not found")
	}

	if got := Text(style); got != `@import "a.css";` {
		t.Errorf("Text() = %q", got)
	}

	SetText(style, `@import url("blob:x");`)
	if got := Text(style); got != `@import url("blob:x");` {
		t.Errorf("Text() after SetText = %q", got)
	}

	out, _ := doc.Render()
	if !strings.Contains(out, `@import url("blob:x");`) {
		t.Errorf("Render() = %q, style text should not be escaped", out)
	}
}

func TestHasToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		val  string
		want bool
	}{
		{"stylesheet", true},
		{"alternate Stylesheet", true},
		{"  stylesheet  ", true},
		{"icon", false},
		{"stylesheets", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasToken(tt.val, "stylesheet"); got != tt.want {
			t.Errorf("HasToken(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
