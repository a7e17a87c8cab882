package svgbob

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/pandoc-svgbob/internal/fileutil"
)

// ImageFormat is the file format of the images referenced by the document.
type ImageFormat string

const (
	FormatSVG  ImageFormat = "svg"
	FormatPNG  ImageFormat = "png"
	FormatAuto ImageFormat = "auto" // png for targets that cannot embed SVG
)

// rasterTargets are pandoc output formats that cannot embed SVG directly.
var rasterTargets = map[string]bool{
	"latex":   true,
	"beamer":  true,
	"context": true,
	"docx":    true,
	"pptx":    true,
	"odt":     true,
	"rtf":     true,
}

// ParseImageFormat validates a format name. Empty selects FormatSVG.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(strings.ToLower(s)) {
	case "", FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	case FormatAuto:
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("%w: %q (must be svg, png, or auto)", ErrInvalidFormat, s)
	}
}

// For resolves FormatAuto against the pandoc target format, such as
// "latex" or "docx+styles". Other formats are returned unchanged.
func (f ImageFormat) For(target string) ImageFormat {
	if f != FormatAuto {
		return f
	}
	if i := strings.IndexAny(target, "+-"); i >= 0 {
		target = target[:i]
	}
	if rasterTargets[strings.ToLower(target)] {
		return FormatPNG
	}
	return FormatSVG
}

// Rasterizer converts a rendered SVG file to PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, svgPath string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ Rasterizer = (*RodRasterizer)(nil)

// Viewport limits for rasterizing, in CSS pixels.
const (
	defaultViewportWidth  = 800
	defaultViewportHeight = 600
	maxViewportSide       = 16384
)

// RodRasterizer screenshots SVG files in headless Chrome via go-rod.
// Rod automatically downloads Chromium on first run if not found.
// The browser is started on first use and shared by concurrent calls.
type RodRasterizer struct {
	mu      sync.Mutex
	browser *rod.Browser
	timeout time.Duration
}

// NewRodRasterizer creates a RodRasterizer. A zero timeout uses DefaultTimeout.
func NewRodRasterizer(timeout time.Duration) *RodRasterizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RodRasterizer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (r *RodRasterizer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.browser = browser
	return browser, nil
}

// Close releases browser resources.
func (r *RodRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Rasterize opens svgPath in headless Chrome and screenshots its root
// element. The viewport is sized from the SVG's width and height.
func (r *RodRasterizer) Rasterize(ctx context.Context, svgPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(svgPath) // #nosec G304 -- path derived from fingerprint
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	width, height := viewportFor(data)

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	url, err := fileutil.AbsSlash(svgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url // Windows drive letter
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	p := page.Timeout(timeout)

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.Navigate("file://" + url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	el, err := p.Element("svg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	return png, nil
}

// viewportFor returns a viewport large enough for the SVG, or the
// default size when the SVG declares no usable dimensions.
func viewportFor(data []byte) (width, height int) {
	w, h, ok := svgSize(data)
	if !ok {
		return defaultViewportWidth, defaultViewportHeight
	}
	return clampSide(w), clampSide(h)
}

func clampSide(v float64) int {
	n := int(math.Ceil(v))
	if n < 1 {
		return 1
	}
	if n > maxViewportSide {
		return maxViewportSide
	}
	return n
}
