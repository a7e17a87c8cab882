package svgbob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/alnah/pandoc-svgbob/internal/assets"
	"github.com/alnah/pandoc-svgbob/internal/pandoc"
	"github.com/alnah/pandoc-svgbob/internal/pipeline"
	"github.com/alnah/pandoc-svgbob/internal/yamlutil"
)

// PreviewConfig selects the look of preview pages.
type PreviewConfig struct {
	Style string // Embedded style name or path to a .css file (default: "default")
	Theme string // Chroma theme for code blocks (default: "solarized-light")
}

// Previewer renders Markdown with svgbob fences to a standalone HTML page,
// without going through pandoc. Fences are rendered by the Converter, so
// images land in the same files the filter would produce.
type Previewer struct {
	conv *Converter
	page *pipeline.Page
}

// NewPreviewer loads the style, highlight theme and page template.
func NewPreviewer(conv *Converter, cfg PreviewConfig) (*Previewer, error) {
	style, err := assets.ResolveStyle(cfg.Style)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) || errors.Is(err, assets.ErrInvalidAssetName) {
			return nil, fmt.Errorf("%w: %v", ErrStyleNotFound, err)
		}
		return nil, err
	}

	highlight, err := pipeline.HighlightCSS(cfg.Theme)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStyleNotFound, err)
	}

	tmpl, err := assets.LoadTemplate(assets.PageTemplateName)
	if err != nil {
		return nil, err
	}
	page, err := pipeline.NewPage(tmpl, style+"\n"+highlight)
	if err != nil {
		return nil, err
	}

	return &Previewer{conv: conv, page: page}, nil
}

// Render converts markdown to a complete HTML document.
//
// A YAML front matter block acts as document metadata: its "svgbob" keys
// set diagram options and "title" names the page. Relative paths are
// resolved from sourceDir and rewritten to work from outputDir, where the
// page will be written. Diagrams that fail to render stay code blocks and
// are logged.
func (p *Previewer) Render(ctx context.Context, markdown []byte, sourceDir, outputDir string) ([]byte, error) {
	content := pipeline.NormalizeSource(string(markdown))

	values := map[string]any{}
	front, body, ok := yamlutil.SplitFrontMatter([]byte(content))
	if ok && len(bytes.TrimSpace(front)) > 0 {
		if err := yamlutil.Unmarshal(front, &values); err != nil {
			return nil, fmt.Errorf("%w: front matter: %v", ErrHTMLConversion, err)
		}
		if values == nil {
			values = map[string]any{}
		}
	}
	meta, err := pandoc.MetaFromValues(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	title, _ := meta.Lookup("title")

	md := pipeline.NewGoldmarkConverter(
		pipeline.WithLogger(p.conv.logger),
		pipeline.WithDiagrams(func(ctx context.Context, d pipeline.Diagram) (string, error) {
			return p.conv.RenderCodeBlock(ctx, pandoc.CodeBlock{Attr: d.Attr, Text: d.Text}, meta)
		}),
	)

	fragment, err := md.ToHTML(ctx, string(body))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}

	fragment, err = pipeline.RewritePaths(fragment, sourceDir, outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: rewriting paths: %v", ErrHTMLConversion, err)
	}

	page, err := p.page.Render(ctx, pipeline.PageData{
		Title: title,
		Body:  template.HTML(fragment), // #nosec G203 -- goldmark output, raw HTML disabled
	})
	if err != nil {
		return nil, err
	}
	return []byte(page), nil
}
