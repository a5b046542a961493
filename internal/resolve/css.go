package resolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alnah/go-epubfetch/internal/handle"
)

var (
	// url(x), url("x"), url('x'); group 1..3 hold the reference.
	cssURLPattern = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^'")\s]*))\s*\)`)

	// @import "x", @import 'x'; group 1..2 hold the reference.
	cssImportPattern = regexp.MustCompile(`(?i)@import\s*(?:"([^"]*)"|'([^']*)')`)
)

// CSSMatch is a reference located in stylesheet text.
type CSSMatch struct {
	// Start and End delimit the matched span in the original text.
	Start, End int
	// Raw is the matched text.
	Raw string
	// Path is the reference as written, surrounding whitespace removed.
	Path string
	// Import is set for @import targets, in string or url() form.
	Import bool
	// urlForm is set when the span is a url() token.
	urlForm bool
}

// ScanCSS returns every url() and @import reference in text, ordered by
// position. Spans never overlap: "@import url(x)" yields a single url()
// match flagged as import.
func ScanCSS(text string) []CSSMatch {
	var matches []CSSMatch

	for _, loc := range cssImportPattern.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, CSSMatch{
			Start:  loc[0],
			End:    loc[1],
			Raw:    text[loc[0]:loc[1]],
			Path:   strings.TrimSpace(firstGroup(text, loc)),
			Import: true,
		})
	}

	for _, loc := range cssURLPattern.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, CSSMatch{
			Start:   loc[0],
			End:     loc[1],
			Raw:     text[loc[0]:loc[1]],
			Path:    strings.TrimSpace(firstGroup(text, loc)),
			Import:  precededByImport(text[:loc[0]]),
			urlForm: true,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return dropOverlaps(matches)
}

// RewriteCSS replaces match spans with handles in one pass over the
// original text. handles[i] belongs to matches[i]; an empty handle leaves
// the span untouched. matches must be ordered and non-overlapping, as
// returned by ScanCSS.
func RewriteCSS(text string, matches []CSSMatch, handles []handle.Handle) string {
	var b strings.Builder
	b.Grow(len(text))

	prev := 0
	for i, m := range matches {
		if i >= len(handles) || handles[i] == "" {
			continue
		}
		b.WriteString(text[prev:m.Start])
		if m.urlForm {
			b.WriteString(`url("` + handles[i].String() + `")`)
		} else {
			b.WriteString(`@import url("` + handles[i].String() + `")`)
		}
		prev = m.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

// firstGroup returns the first participating capture group of a match.
func firstGroup(text string, loc []int) string {
	for g := 2; g+1 < len(loc); g += 2 {
		if loc[g] >= 0 {
			return text[loc[g]:loc[g+1]]
		}
	}
	return ""
}

// precededByImport reports whether before ends with "@import" and optional
// whitespace.
func precededByImport(before string) bool {
	before = strings.TrimRight(before, " \t\r\n\f")
	const kw = "@import"
	return len(before) >= len(kw) && strings.EqualFold(before[len(before)-len(kw):], kw)
}

// dropOverlaps keeps the first of any overlapping spans. A url() token
// inside an @import string, such as @import "url(x).css", is not a
// reference of its own.
func dropOverlaps(matches []CSSMatch) []CSSMatch {
	out := matches[:0]
	end := -1
	for _, m := range matches {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}
