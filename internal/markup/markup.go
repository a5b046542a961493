// Package markup parses content documents into a traversable tree and
// renders them back, with small helpers for reading and writing attributes.
package markup

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-epubfetch/internal/contenttype"
)

// ErrParse indicates the content document could not be parsed.
var ErrParse = errors.New("failed to parse content document")

// Document is a parsed content document.
type Document struct {
	// Root is the document node. For fragments it is a synthetic document
	// node whose children are the fragment's top-level nodes.
	Root *html.Node

	fragment bool
	xmlDecl  bool
}

// Fragment reports whether the source was a fragment rather than a full
// document.
func (d *Document) Fragment() bool {
	return d.fragment
}

// Parse parses markup of the given media type. XHTML and SVG, and any
// source starting with an XML declaration, are read as XML so self-closing
// elements are honored; sources that are not well-formed fall back to the
// HTML parser. Sources starting with an XML declaration, a doctype or an
// html element are full documents; anything else is a body fragment, so
// no html/body wrapper is added on render.
func Parse(content, mediaType string) (*Document, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	full := isFullDocument(content)

	if contenttype.IsXMLMarkup(mediaType) || hasXMLDeclaration(content) {
		if root, declared, err := parseXML(content); err == nil {
			return &Document{Root: root, fragment: !full, xmlDecl: declared && full}, nil
		}
	}

	if full {
		root, err := html.Parse(strings.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return &Document{Root: root}, nil
	}

	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{Root: root, fragment: true}, nil
}

func hasXMLDeclaration(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "<?xml")
}

func isFullDocument(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(head, "<?xml") ||
		strings.HasPrefix(head, "<!doctype") ||
		strings.HasPrefix(head, "<html")
}

// Render serializes the document. Fragments render their children only.
func (d *Document) Render() (string, error) {
	var buf strings.Builder

	if d.fragment {
		for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if d.xmlDecl {
		buf.WriteString(xmlDeclaration)
	}
	if err := html.Render(&buf, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Walk calls fn for every element node under n in document order.
func Walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Attr returns the value of the attribute with the given key, ignoring its
// namespace (so "href" matches both href and xlink:href).
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrNS returns the value of the attribute with the given namespace and key.
func AttrNS(n *html.Node, namespace, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == namespace && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute without namespace, replacing an existing one.
func SetAttr(n *html.Node, key, val string) {
	SetAttrNS(n, "", key, val)
}

// SetAttrNS sets a namespaced attribute, replacing an existing one.
func SetAttrNS(n *html.Node, namespace, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == namespace && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Namespace: namespace, Key: key, Val: val})
}

// Text returns the concatenated text children of n.
func Text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// HasToken reports whether a whitespace-separated attribute value such as
// rel contains token, case-insensitively.
func HasToken(val, token string) bool {
	for _, f := range strings.Fields(val) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
