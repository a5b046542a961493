// Package fetch provides the storage backends that turn canonical package
// paths into bytes: an exploded directory and a zip archive.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-epubfetch/internal/contenttype"
)

// MaxResourceSize bounds a single resource read (256 MB). It protects
// against decompression bombs in archives.
const MaxResourceSize = 256 << 20

// Sentinel errors for fetch operations.
var (
	// ErrNotFound indicates the package has no resource at the path.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidBasePath indicates the package location is not usable.
	ErrInvalidBasePath = errors.New("invalid package location")

	// ErrPathTraversal indicates an attempt to read outside the package.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrRead indicates an I/O error while reading a resource.
	ErrRead = errors.New("failed to read resource")

	// ErrTooLarge indicates a resource exceeds MaxResourceSize.
	ErrTooLarge = errors.New("resource too large")

	// ErrClosed indicates the fetcher was closed.
	ErrClosed = errors.New("fetcher closed")
)

// DataFetcher reads package resources by canonical root-relative path.
// Implementations are safe for concurrent use.
type DataFetcher interface {
	// FetchText returns the resource decoded as UTF-8 text (BOM removed).
	FetchText(ctx context.Context, path string) (string, error)
	// FetchBinary returns the raw bytes of the resource.
	FetchBinary(ctx context.Context, path string) ([]byte, error)
	// FetchBase64 returns the resource as a base64 data URI.
	FetchBase64(ctx context.Context, path string) (string, error)
	// PackageRootPath returns the location of the package on disk.
	PackageRootPath() string
	// Close releases the underlying storage.
	Close() error
}

// Open returns a DirFetcher for a directory and a ZipFetcher otherwise.
func Open(location string) (DataFetcher, error) {
	info, err := os.Stat(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: does not exist: %s", ErrInvalidBasePath, location)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if info.IsDir() {
		return NewDirFetcher(location)
	}
	return NewZipFetcher(location)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// text converts raw bytes into the string returned by FetchText.
func text(data []byte) string {
	return string(bytes.TrimPrefix(data, utf8BOM))
}

// DataURI encodes data as a base64 data URI typed after the path.
func DataURI(path string, data []byte) string {
	return "data:" + contenttype.FromFileName(path) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
