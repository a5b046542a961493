package main

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch/internal/render"
)

// PDFRenderer prints an exported document to PDF.
type PDFRenderer interface {
	RenderFile(ctx context.Context, path string, opts render.Options) ([]byte, error)
	Close() error
}

// Compile-time interface implementation check.
var _ PDFRenderer = (*render.Renderer)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout      io.Writer
	Stderr      io.Writer
	NewRenderer func(timeout time.Duration, logger *zap.Logger) PDFRenderer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewRenderer: func(timeout time.Duration, logger *zap.Logger) PDFRenderer {
			return render.New(render.WithTimeout(timeout), render.WithLogger(logger))
		},
	}
}
