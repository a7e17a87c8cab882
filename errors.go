package svgbob

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrRendererNotFound = errors.New("svgbob renderer not found")
	ErrRenderFailed     = errors.New("svgbob rendering failed")
	ErrRenderTimeout    = errors.New("svgbob rendering timed out")
	ErrInvalidSVG       = errors.New("renderer produced invalid SVG")
	ErrOutputDir        = errors.New("failed to create output directory")
	ErrWriteImage       = errors.New("failed to write image")

	// Link source errors.
	ErrLinkSource   = errors.New("failed to read link source")
	ErrRemoteSource = errors.New("remote link sources are not supported")

	// Rasterizing errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrRasterize      = errors.New("failed to rasterize SVG")

	// Option validation errors.
	ErrInvalidFormat   = errors.New("invalid image format")
	ErrInvalidCacheKey = errors.New("invalid cache key mode")

	// Preview errors.
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrStyleNotFound  = errors.New("style not found")
)

// RenderError reports a renderer process that exited unsuccessfully.
type RenderError struct {
	Renderer string // executable that was run
	ExitCode int    // -1 when the process did not exit normally
	Stderr   string // captured standard error, trimmed
	Err      error
}

func (e *RenderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s exited with status %d", ErrRenderFailed, e.Renderer, e.ExitCode)
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

// Unwrap exposes both ErrRenderFailed and the underlying process error.
func (e *RenderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRenderFailed}
	}
	return []error{ErrRenderFailed, e.Err}
}

// NodeError attaches the failing element to a conversion error.
type NodeError struct {
	Kind string // "CodeBlock" or "Link"
	ID   string // element identifier, may be empty
	Seq  int    // position in document order
	Err  error
}

func (e *NodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s #%s (element %d): %v", e.Kind, e.ID, e.Seq, e.Err)
	}
	return fmt.Sprintf("%s (element %d): %v", e.Kind, e.Seq, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
