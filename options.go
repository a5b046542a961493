package epubfetch

import (
	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch/internal/resolve"
)

// DefaultConcurrency bounds simultaneous resource fetches per publication.
const DefaultConcurrency = resolve.DefaultConcurrency

// Option configures a Publication.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	concurrency int
}

func defaultOptions() *options {
	return &options{
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConcurrency bounds simultaneous resource fetches. Values below 1
// keep the default.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}
