package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// ZipFetcher reads resources from a zipped package (.epub).
type ZipFetcher struct {
	archivePath string

	mu     sync.RWMutex
	reader *zip.ReadCloser
	index  map[string]*zip.File
}

// NewZipFetcher opens the archive at archivePath and indexes its entries.
// Entry names are indexed in NFC so lookups by canonical path match
// archives written with decomposed file names.
func NewZipFetcher(archivePath string) (*ZipFetcher, error) {
	if archivePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBasePath, archivePath, err)
	}

	index := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := norm.NFC.String(strings.TrimPrefix(f.Name, "/"))
		if _, dup := index[name]; !dup {
			index[name] = f
		}
	}

	return &ZipFetcher{archivePath: archivePath, reader: r, index: index}, nil
}

// FetchText implements DataFetcher.
func (z *ZipFetcher) FetchText(ctx context.Context, path string) (string, error) {
	data, err := z.FetchBinary(ctx, path)
	if err != nil {
		return "", err
	}
	return text(data), nil
}

// FetchBinary implements DataFetcher.
func (z *ZipFetcher) FetchBinary(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	z.mu.RLock()
	defer z.mu.RUnlock()

	if z.reader == nil {
		return nil, ErrClosed
	}

	f, ok := z.index[norm.NFC.String(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if f.UncompressedSize64 > MaxResourceSize {
		return nil, fmt.Errorf("%w: %q", ErrTooLarge, path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrRead, path, err)
	}
	defer func() { _ = rc.Close() }()

	return readLimited(rc, path)
}

// FetchBase64 implements DataFetcher.
func (z *ZipFetcher) FetchBase64(ctx context.Context, path string) (string, error) {
	data, err := z.FetchBinary(ctx, path)
	if err != nil {
		return "", err
	}
	return DataURI(path, data), nil
}

// PackageRootPath implements DataFetcher.
func (z *ZipFetcher) PackageRootPath() string {
	return z.archivePath
}

// Close implements DataFetcher. It is safe to call more than once.
func (z *ZipFetcher) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.reader == nil {
		return nil
	}
	err := z.reader.Close()
	z.reader = nil
	return err
}

// Compile-time interface check.
var _ DataFetcher = (*ZipFetcher)(nil)
