package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

// ErrPageRender indicates the page template failed to execute.
var ErrPageRender = errors.New("page template rendering failed")

// lineBreaks matches Windows and old Mac line endings.
var lineBreaks = regexp.MustCompile(`\r\n?`)

// NormalizeSource drops a leading byte order mark and converts line
// endings to \n, so fences hash the same as when pandoc reads the file.
func NormalizeSource(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	return lineBreaks.ReplaceAllString(content, "\n")
}

// PageData holds the values available to the page template.
type PageData struct {
	Title string
	Body  template.HTML // Trusted: produced by goldmark without raw HTML
}

// Page wraps an HTML fragment in a standalone document with an inline
// stylesheet.
type Page struct {
	tmpl  *template.Template
	style string
}

// NewPage parses the page template. style is inlined into every page.
func NewPage(tmplContent, style string) (*Page, error) {
	tmpl, err := template.New("page").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageRender, err)
	}
	return &Page{tmpl: tmpl, style: style}, nil
}

// Render executes the template with data and inserts the stylesheet.
// An empty title becomes "Preview".
func (p *Page) Render(ctx context.Context, data PageData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if data.Title == "" {
		data.Title = "Preview"
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageRender, err)
	}
	return insertStyle(buf.String(), p.style), nil
}

// insertStyle places a <style> element before </head>, else right after
// the opening <body> tag, else at the start of doc.
func insertStyle(doc, css string) string {
	if css == "" {
		return doc
	}
	block := "<style>" + escapeStyle(css) + "</style>"
	lower := strings.ToLower(doc)

	if i := strings.Index(lower, "</head>"); i >= 0 {
		return doc[:i] + block + doc[i:]
	}
	if i := strings.Index(lower, "<body"); i >= 0 {
		if end := strings.IndexByte(doc[i:], '>'); end >= 0 {
			at := i + end + 1
			return doc[:at] + block + doc[at:]
		}
	}
	return block + doc
}

// escapeStyle keeps css from closing its <style> element.
func escapeStyle(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
