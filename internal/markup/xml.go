package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// xmlDeclaration precedes rendered documents whose source had one. Output
// is always UTF-8 whatever the source declared.
const xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// parseXML builds a node tree from well-formed XML markup. Unlike the HTML
// parser it honors "/>" on any element, so <title/> or <script src="x"/>
// stay empty instead of swallowing the rest of the document as text.
//
// Nodes follow the HTML parser's conventions: XHTML elements have an empty
// namespace, SVG and MathML subtrees use "svg" and "math", and prefixed
// attributes keep their prefix as namespace (xlink:href is {xlink, href}).
func parseXML(content string) (root *html.Node, declared bool, err error) {
	d := xml.NewDecoder(strings.NewReader(content))
	d.Strict = true
	d.Entity = xml.HTMLEntity
	// The text is decoded already; a declared legacy encoding is stale.
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}

	root = &html.Node{Type: html.DocumentNode}
	cur := root
	var open []string

	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{
				Type:      html.ElementNode,
				Data:      t.Name.Local,
				DataAtom:  atom.Lookup([]byte(t.Name.Local)),
				Namespace: childNamespace(cur, t.Name.Local),
			}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Namespace: a.Name.Space, Key: a.Name.Local, Val: a.Value})
			}
			cur.AppendChild(n)
			cur = n
			open = append(open, qualifiedName(t.Name))

		case xml.EndElement:
			// RawToken leaves tag matching to the caller.
			name := qualifiedName(t.Name)
			if len(open) == 0 || open[len(open)-1] != name {
				return nil, false, fmt.Errorf("unexpected end element </%s>", name)
			}
			open = open[:len(open)-1]
			cur = cur.Parent

		case xml.CharData:
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})

		case xml.Comment:
			cur.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})

		case xml.ProcInst:
			if t.Target == "xml" {
				declared = true
			}

		case xml.Directive:
			if n := doctypeNode(string(t)); n != nil && cur == root {
				root.AppendChild(n)
			}
		}
	}

	if len(open) > 0 {
		return nil, false, fmt.Errorf("unclosed element <%s>", open[len(open)-1])
	}
	return root, declared, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// childNamespace returns the HTML-parser namespace of an element named
// local under parent.
func childNamespace(parent *html.Node, local string) string {
	switch local {
	case "svg":
		return "svg"
	case "math":
		return "math"
	}
	if parent.Type != html.ElementNode {
		return ""
	}
	if parent.Namespace == "svg" && parent.Data == "foreignObject" {
		return ""
	}
	return parent.Namespace
}

// doctypeNode converts a <!DOCTYPE ...> directive, or returns nil for any
// other directive. Internal subsets are dropped.
func doctypeNode(directive string) *html.Node {
	fields := strings.Fields(directive)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "DOCTYPE") {
		return nil
	}

	n := &html.Node{Type: html.DoctypeNode, Data: strings.ToLower(strings.TrimSuffix(fields[1], "["))}
	if len(fields) < 3 {
		return n
	}

	ids := quotedStrings(directive)
	switch strings.ToUpper(fields[2]) {
	case "PUBLIC":
		if len(ids) > 0 {
			n.Attr = append(n.Attr, html.Attribute{Key: "public", Val: ids[0]})
		}
		if len(ids) > 1 {
			n.Attr = append(n.Attr, html.Attribute{Key: "system", Val: ids[1]})
		}
	case "SYSTEM":
		if len(ids) > 0 {
			n.Attr = append(n.Attr, html.Attribute{Key: "system", Val: ids[0]})
		}
	}
	return n
}

// quotedStrings returns the single- or double-quoted literals of s in order.
func quotedStrings(s string) []string {
	var out []string
	for {
		i := strings.IndexAny(s, `"'`)
		if i < 0 {
			return out
		}
		end := strings.IndexByte(s[i+1:], s[i])
		if end < 0 {
			return out
		}
		out = append(out, s[i+1:i+1+end])
		s = s[i+end+2:]
	}
}
