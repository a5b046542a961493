package main

import (
	"errors"
	"os"

	"github.com/alnah/go-epubfetch"
	"github.com/alnah/go-epubfetch/internal/config"
	"github.com/alnah/go-epubfetch/internal/logging"
	"github.com/alnah/go-epubfetch/internal/render"
)

// Exit codes for the epubfetch CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or arguments
	ExitIO      = 3 // Publication or resource unreadable, output unwritable
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, render.ErrBrowserConnect) ||
		errors.Is(err, render.ErrPageCreate) ||
		errors.Is(err, render.ErrPageLoad) ||
		errors.Is(err, render.ErrPDFGeneration) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, epubfetch.ErrNotPublication) ||
		errors.Is(err, epubfetch.ErrDocumentNotFound) ||
		errors.Is(err, epubfetch.ErrResourceNotFound) ||
		errors.Is(err, epubfetch.ErrExport) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, logging.ErrUnknownLevel) ||
		errors.Is(err, logging.ErrUnknownFormat) ||
		errors.Is(err, render.ErrPageSize) {
		return ExitUsage
	}

	return ExitGeneral
}
