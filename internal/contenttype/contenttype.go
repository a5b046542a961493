// Package contenttype discovers the media type of a package resource from
// its file name.
package contenttype

import (
	"mime"
	"path"
	"strings"
)

// Default is returned when no media type is known for an extension.
const Default = "application/octet-stream"

// Media types that the resolver treats specially.
const (
	XHTML = "application/xhtml+xml"
	HTML  = "text/html"
	CSS   = "text/css"
	SVG   = "image/svg+xml"
)

// byExtension covers the core media types of a publication. Lookups fall
// back to the platform table for anything else.
var byExtension = map[string]string{
	".xhtml": XHTML,
	".xht":   XHTML,
	".html":  HTML,
	".htm":   HTML,
	".css":   CSS,
	".svg":   SVG,
	".svgz":  SVG,
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".opf":   "application/oebps-package+xml",
	".ncx":   "application/x-dtbncx+xml",
	".smil":  "application/smil+xml",
	".xml":   "application/xml",
	".js":    "text/javascript",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".m4a":   "audio/mp4",
}

// FromFileName returns the media type for a file name or path.
func FromFileName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return Default
	}
	if t, ok := byExtension[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return Default
}

// IsMarkup reports whether the media type is a content document type the
// markup parser accepts.
func IsMarkup(mediaType string) bool {
	switch base(mediaType) {
	case XHTML, HTML, SVG:
		return true
	}
	return false
}

// IsXMLMarkup reports whether content documents of the media type are
// XML serializations.
func IsXMLMarkup(mediaType string) bool {
	switch base(mediaType) {
	case XHTML, SVG:
		return true
	}
	return false
}

// IsText reports whether resources of the media type are fetched as text.
func IsText(mediaType string) bool {
	t := base(mediaType)
	return strings.HasPrefix(t, "text/") || strings.HasSuffix(t, "+xml") || t == "application/xml"
}

func base(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
