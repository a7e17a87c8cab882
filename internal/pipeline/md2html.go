package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Sentinel errors for HTML conversion.
var (
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrUnknownTheme   = errors.New("unknown highlight theme")
)

// DefaultTheme is the chroma style used for code highlighting. Its
// background matches the one diagrams are rendered on.
const DefaultTheme = "solarized-light"

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark (pure Go).
type GoldmarkConverter struct {
	md       goldmark.Markdown
	diagrams DiagramFunc
	logger   *log.Logger
}

// ConverterOption configures a GoldmarkConverter.
type ConverterOption func(*GoldmarkConverter)

// WithDiagrams renders svgbob fenced code blocks through fn.
// Without it, those blocks are highlighted like any other code.
func WithDiagrams(fn DiagramFunc) ConverterOption {
	return func(c *GoldmarkConverter) { c.diagrams = fn }
}

// WithLogger sets the logger for diagrams that fail to render.
func WithLogger(l *log.Logger) ConverterOption {
	return func(c *GoldmarkConverter) { c.logger = l }
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and syntax highlighting.
func NewGoldmarkConverter(opts ...ConverterOption) *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes, styled by HighlightCSS
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(), // Self-closing tags
			renderer.WithNodeRenderers(
				util.Prioritized(&diagramRenderer{}, 100),
			),
		),
	)

	c := &GoldmarkConverter{md: md, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ToHTML converts Markdown content to an HTML fragment.
// Diagrams are rendered first, honoring ctx; the goldmark pass itself
// supports cancellation via goroutine + select since goldmark doesn't
// natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src := []byte(content)
	doc := c.md.Parser().Parse(text.NewReader(src))

	if c.diagrams != nil {
		if err := c.renderDiagrams(ctx, doc, src); err != nil {
			return "", err
		}
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Renderer().Render(&buf, src, doc); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// HighlightCSS returns the stylesheet for the class names emitted by the
// code highlighter. An empty theme selects DefaultTheme.
func HighlightCSS(theme string) (string, error) {
	if theme == "" {
		theme = DefaultTheme
	}
	if !slices.Contains(styles.Names(), theme) {
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(theme)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	return buf.String(), nil
}
