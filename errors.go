package epubfetch

import "errors"

// Sentinel errors for library operations.
var (
	// ErrNotPublication indicates the location holds no readable container
	// or package document.
	ErrNotPublication = errors.New("not a readable publication")

	// ErrDocumentNotFound indicates a content document path the package
	// cannot supply.
	ErrDocumentNotFound = errors.New("content document not found")

	// ErrResourceNotFound indicates a resource path the package cannot supply.
	ErrResourceNotFound = errors.New("resource not found")

	ErrClosed         = errors.New("publication closed")
	ErrDocumentClosed = errors.New("document closed")
	ErrResolve        = errors.New("resolution failed")
	ErrExport         = errors.New("export failed")
	ErrUnknownHandle  = errors.New("unknown handle")
)
