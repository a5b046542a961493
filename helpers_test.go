package epubfetch

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-epubfetch/internal/obfuscation"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const bookIdentifier = "urn:uuid:12345678-9abc-def0-1234-56789abcdef0"

const bookContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const bookPackage = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="isbn">978-0-00-000000-1</dc:identifier>
    <dc:identifier id="bookid">` + bookIdentifier + `</dc:identifier>
    <dc:title>Fixture Book</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="css" href="styles/main.css" media-type="text/css"/>
    <item id="base" href="styles/base.css" media-type="text/css"/>
    <item id="cover" href="images/cover.png" media-type="image/png" properties="cover-image"/>
    <item id="font" href="fonts/serif.otf" media-type="font/otf"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const bookEncryption = `<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container"
            xmlns:enc="http://www.w3.org/2001/04/xmlenc#">
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding"/>
    <enc:CipherData><enc:CipherReference URI="OEBPS/fonts/serif.otf"/></enc:CipherData>
  </enc:EncryptedData>
</encryption>`

const chapterOne = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><link rel="stylesheet" href="../styles/main.css"/></head>
<body>
<img src="../images/cover.png" alt="cover"/>
<img src="../images/missing.png" alt="gone"/>
<img src="http://example.com/remote.png" alt="remote"/>
</body>
</html>`

const chapterTwo = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body><p>Plain text.</p></body></html>`

const mainCSS = `@import "base.css";
@font-face { font-family: Book; src: url(../fonts/serif.otf); }
body { background: url('../images/cover.png'); }`

var coverPNG = []byte("\x89PNG\r\n\x1a\nfixture")

// plainFont returns the font bytes a reader should see after deobfuscation.
func plainFont() []byte {
	font := make([]byte, 1500)
	copy(font, []byte{0x00, 0x01, 0x00, 0x00})
	for i := 4; i < len(font); i++ {
		font[i] = byte(i % 251)
	}
	return font
}

// bookFiles returns the fixture package with its font obfuscated under the
// IDPF algorithm.
func bookFiles(t *testing.T) map[string][]byte {
	t.Helper()

	c, err := obfuscation.NewCipher(obfuscation.AlgorithmIDPF, bookIdentifier)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	return map[string][]byte{
		"mimetype":                []byte("application/epub+zip"),
		"META-INF/container.xml":  []byte(bookContainer),
		"META-INF/encryption.xml": []byte(bookEncryption),
		"OEBPS/content.opf":       []byte(bookPackage),
		"OEBPS/text/ch1.xhtml":    []byte(chapterOne),
		"OEBPS/text/ch2.xhtml":    []byte(chapterTwo),
		"OEBPS/nav.xhtml":         []byte(chapterTwo),
		"OEBPS/styles/main.css":   []byte(mainCSS),
		"OEBPS/styles/base.css":   []byte("p { margin: 0 }"),
		"OEBPS/images/cover.png":  coverPNG,
		"OEBPS/fonts/serif.otf":   c.Deobfuscate(plainFont()),
	}
}

// writeBookDir writes files as an unpacked publication and returns its root.
func writeBookDir(t *testing.T, files map[string][]byte) string {
	t.Helper()

	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// writeBookZip writes files as an .epub archive and returns its path.
func writeBookZip(t *testing.T, files map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	p := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// locations returns the fixture both unpacked and zipped.
func locations(t *testing.T) map[string]string {
	t.Helper()

	files := bookFiles(t)
	return map[string]string{
		"dir": writeBookDir(t, files),
		"zip": writeBookZip(t, files),
	}
}
