package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirFetcher reads resources from an exploded package directory.
type DirFetcher struct {
	basePath string
}

// NewDirFetcher creates a DirFetcher rooted at basePath.
// Returns ErrInvalidBasePath if the path is not a readable directory.
func NewDirFetcher(basePath string) (*DirFetcher, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	// Containment checks compare real paths.
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidBasePath, absPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidBasePath, err)
	}

	return &DirFetcher{basePath: absPath}, nil
}

// FetchText implements DataFetcher.
func (d *DirFetcher) FetchText(ctx context.Context, path string) (string, error) {
	data, err := d.FetchBinary(ctx, path)
	if err != nil {
		return "", err
	}
	return text(data), nil
}

// FetchBinary implements DataFetcher.
func (d *DirFetcher) FetchBinary(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := filepath.Join(d.basePath, filepath.FromSlash(path))
	if err := d.verifyPathContainment(filePath); err != nil {
		return nil, err
	}

	f, err := os.Open(filePath) // #nosec G304 -- path validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", ErrNotFound, path)
	}

	return readLimited(f, path)
}

// FetchBase64 implements DataFetcher.
func (d *DirFetcher) FetchBase64(ctx context.Context, path string) (string, error) {
	data, err := d.FetchBinary(ctx, path)
	if err != nil {
		return "", err
	}
	return DataURI(path, data), nil
}

// PackageRootPath implements DataFetcher.
func (d *DirFetcher) PackageRootPath() string {
	return d.basePath
}

// Close implements DataFetcher. A directory holds no resources.
func (d *DirFetcher) Close() error {
	return nil
}

// verifyPathContainment ensures the resolved file path is within basePath,
// following symlinks so a link cannot point outside the package.
func (d *DirFetcher) verifyPathContainment(filePath string) error {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path", ErrPathTraversal)
	}

	if realPath, err := filepath.EvalSymlinks(absFilePath); err == nil {
		absFilePath = realPath
	}
	// A missing file fails on open; the prefix check still applies.

	if !strings.HasPrefix(absFilePath, d.basePath+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes package directory", ErrPathTraversal)
	}
	return nil
}

// readLimited reads r fully, failing with ErrTooLarge past MaxResourceSize.
func readLimited(r io.Reader, path string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxResourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrRead, path, err)
	}
	if len(data) > MaxResourceSize {
		return nil, fmt.Errorf("%w: %q", ErrTooLarge, path)
	}
	return data, nil
}

// Compile-time interface check.
var _ DataFetcher = (*DirFetcher)(nil)
