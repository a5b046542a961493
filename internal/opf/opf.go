// Package opf reads the container document and the package document of a
// publication: where the package document lives, its unique identifier,
// its manifest and its spine.
package opf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alnah/go-epubfetch/internal/pkgpath"
)

// ContainerPath is the root-relative location of the container document.
const ContainerPath = "META-INF/container.xml"

// PackageMediaType is the media type of a package document rootfile.
const PackageMediaType = "application/oebps-package+xml"

// Sentinel errors for package reading.
var (
	// ErrContainerParse indicates container.xml could not be decoded.
	ErrContainerParse = errors.New("failed to parse container document")

	// ErrNoRootfile indicates container.xml names no package document.
	ErrNoRootfile = errors.New("container declares no package document")

	// ErrPackageParse indicates the package document could not be decoded.
	ErrPackageParse = errors.New("failed to parse package document")

	// ErrNoIdentifier indicates the package document has no usable unique identifier.
	ErrNoIdentifier = errors.New("package document has no unique identifier")
)

type containerXML struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// ReadContainer returns the canonical path of the package document named by
// the container document. The first rootfile with the package media type
// wins, falling back to the first rootfile.
func ReadContainer(r io.Reader) (string, error) {
	var c containerXML
	if err := xml.NewDecoder(r).Decode(&c); err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerParse, err)
	}

	chosen := ""
	for _, rf := range c.Rootfiles {
		if rf.FullPath == "" {
			continue
		}
		if rf.MediaType == PackageMediaType {
			chosen = rf.FullPath
			break
		}
		if chosen == "" {
			chosen = rf.FullPath
		}
	}
	if chosen == "" {
		return "", ErrNoRootfile
	}

	p, err := pkgpath.Clean(chosen)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerParse, err)
	}
	return p, nil
}

// Item is one manifest entry. Href is relative to the package document.
type Item struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// Package is the subset of the package document the resolver needs.
type Package struct {
	// Identifier is the value of the dc:identifier named by the
	// unique-identifier attribute, the key material for deobfuscation.
	Identifier string
	Version    string
	Title      string
	Manifest   []Item
	// Spine lists manifest item IDs in reading order.
	Spine []string
}

type packageXML struct {
	UniqueIdentifier string `xml:"unique-identifier,attr"`
	Version          string `xml:"version,attr"`
	Metadata         struct {
		Identifiers []struct {
			ID    string `xml:"id,attr"`
			Value string `xml:",chardata"`
		} `xml:"identifier"`
		Titles []string `xml:"title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// ParsePackage decodes a package document.
//
// The identifier is the dc:identifier whose id matches unique-identifier.
// Packages that omit the attribute or point nowhere fall back to the first
// dc:identifier; a package without any identifier is an error because no
// obfuscated resource could be read.
func ParsePackage(r io.Reader) (*Package, error) {
	var p packageXML
	if err := xml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageParse, err)
	}

	pkg := &Package{Version: p.Version}

	for _, id := range p.Metadata.Identifiers {
		if p.UniqueIdentifier != "" && id.ID == p.UniqueIdentifier {
			pkg.Identifier = strings.TrimSpace(id.Value)
			break
		}
	}
	if pkg.Identifier == "" && len(p.Metadata.Identifiers) > 0 {
		pkg.Identifier = strings.TrimSpace(p.Metadata.Identifiers[0].Value)
	}
	if pkg.Identifier == "" {
		return nil, ErrNoIdentifier
	}

	if len(p.Metadata.Titles) > 0 {
		pkg.Title = strings.TrimSpace(p.Metadata.Titles[0])
	}

	for _, it := range p.Manifest.Items {
		pkg.Manifest = append(pkg.Manifest, Item{
			ID:         it.ID,
			Href:       it.Href,
			MediaType:  it.MediaType,
			Properties: it.Properties,
		})
	}
	for _, ref := range p.Spine.Itemrefs {
		pkg.Spine = append(pkg.Spine, ref.IDRef)
	}

	return pkg, nil
}

// Item returns the manifest item with the given ID.
func (p *Package) Item(id string) (Item, bool) {
	for _, it := range p.Manifest {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// SpineItems returns the manifest items of the spine in reading order.
// Itemrefs without a matching manifest item are skipped.
func (p *Package) SpineItems() []Item {
	items := make([]Item, 0, len(p.Spine))
	for _, id := range p.Spine {
		if it, ok := p.Item(id); ok {
			items = append(items, it)
		}
	}
	return items
}
