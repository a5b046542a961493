// Package render prints resolved content documents to PDF with headless
// Chrome driven by go-rod.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-epubfetch/internal/process"
)

// Sentinel errors for rendering.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrPageSize       = errors.New("unknown page size")
)

// DefaultTimeout bounds page load when the context has no deadline.
const DefaultTimeout = 30 * time.Second

const marginInches = 0.5

// paperSizes holds portrait width and height in inches.
var paperSizes = map[string][2]float64{
	"letter": {8.5, 11},
	"a4":     {8.27, 11.69},
	"legal":  {8.5, 14},
}

// Options controls the printed page.
type Options struct {
	PageSize  string // "letter" (default), "a4", "legal"
	Landscape bool
}

// PrintOptions converts Options to the DevTools print request.
func PrintOptions(opts Options) (*proto.PagePrintToPDF, error) {
	name := strings.ToLower(opts.PageSize)
	if name == "" {
		name = "letter"
	}
	size, ok := paperSizes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPageSize, opts.PageSize)
	}

	width, height := size[0], size[1]
	if opts.Landscape {
		width, height = height, width
	}

	return &proto.PagePrintToPDF{
		Landscape:       opts.Landscape,
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	}, nil
}

// Renderer owns one lazily started browser. It is safe for concurrent use;
// pages are created per call.
type Renderer struct {
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTimeout sets the page load timeout used when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for browser lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Renderer. No browser starts until the first render.
func New(opts ...Option) *Renderer {
	r := &Renderer{timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ensureBrowser lazily launches and connects to the browser.
func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		r.kill(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.logger.Debug("browser started", zap.Int("pid", l.PID()))
	r.launcher = l
	r.browser = browser
	return browser, nil
}

// RenderFile loads a local XHTML or HTML file and prints it to PDF.
// Relative references in the file resolve against its directory.
func (r *Renderer) RenderFile(ctx context.Context, path string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	printOpts, err := PrintOptions(opts)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + filepath.ToSlash(abs)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Context(ctx).Timeout(timeout).WaitLoad(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.Context(ctx).PDF(printOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// Close shuts the browser down and kills any helper processes left behind.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.kill(r.launcher)
	r.browser = nil
	r.launcher = nil
	return err
}

// kill terminates the launched process tree.
func (r *Renderer) kill(l *launcher.Launcher) {
	if l == nil {
		return
	}
	if err := process.KillTree(l.PID()); err != nil {
		r.logger.Debug("browser process tree already gone", zap.Error(err))
	}
	l.Kill()
}

func floatPtr(v float64) *float64 {
	return &v
}
