package main

import (
	"errors"
	"os"

	svgbob "github.com/alnah/pandoc-svgbob"
	"github.com/alnah/pandoc-svgbob/internal/assets"
	"github.com/alnah/pandoc-svgbob/internal/config"
	"github.com/alnah/pandoc-svgbob/internal/hints"
)

// Exit codes for the pandoc-svgbob CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Document written
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied, bad document
	ExitRenderer = 4 // svgbob missing, failing, or timing out
	ExitBrowser  = 5 // Browser/Chrome errors while rasterizing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 5)
	if errors.Is(err, svgbob.ErrBrowserConnect) ||
		errors.Is(err, svgbob.ErrPageCreate) ||
		errors.Is(err, svgbob.ErrPageLoad) ||
		errors.Is(err, svgbob.ErrRasterize) {
		return ExitBrowser
	}

	// Renderer errors (exit 4)
	if errors.Is(err, svgbob.ErrRendererNotFound) ||
		errors.Is(err, svgbob.ErrRenderFailed) ||
		errors.Is(err, svgbob.ErrRenderTimeout) ||
		errors.Is(err, svgbob.ErrInvalidSVG) {
		return ExitRenderer
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, svgbob.ErrInvalidFormat) ||
		errors.Is(err, svgbob.ErrInvalidCacheKey) ||
		errors.Is(err, svgbob.ErrStyleNotFound) ||
		errors.Is(err, ErrInvalidExtension) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, svgbob.ErrOutputDir) ||
		errors.Is(err, svgbob.ErrWriteImage) ||
		errors.Is(err, svgbob.ErrLinkSource) ||
		errors.Is(err, svgbob.ErrRemoteSource) ||
		errors.Is(err, ErrReadDocument) ||
		errors.Is(err, ErrWriteDocument) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteHTML) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var renderErr *svgbob.RenderError
	switch {
	case errors.Is(err, svgbob.ErrRendererNotFound):
		return hints.ForRendererNotFound()
	case errors.Is(err, svgbob.ErrRenderTimeout):
		return hints.ForTimeout()
	case errors.As(err, &renderErr):
		return hints.ForRendererFailed(renderErr.Stderr)
	case errors.Is(err, svgbob.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, svgbob.ErrOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, svgbob.ErrLinkSource):
		return hints.ForLinkSource()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths(config.DefaultName))
	case errors.Is(err, svgbob.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.Styles())
	}
	return ""
}
