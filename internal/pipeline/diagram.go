package pipeline

import (
	"bytes"
	"context"
	"html"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// DiagramLanguage is the fence language that marks a diagram.
const DiagramLanguage = "svgbob"

// Diagram is a fenced code block to be rendered as an image.
//
// The fence info string after the language carries the same attributes a
// pandoc code block would, with or without braces:
//
//	```svgbob {#flow .wide font-size=20}
//	```svgbob font-family="Fira Code" scale=2
type Diagram struct {
	Attr pandoc.Attr // Always carries the DiagramLanguage class first
	Text string
}

// DiagramFunc renders a diagram and returns the image URL.
type DiagramFunc func(ctx context.Context, d Diagram) (src string, err error)

// renderDiagrams replaces every svgbob fenced block in doc whose diagram
// renders. A block that fails is logged and left as code.
func (c *GoldmarkConverter) renderDiagrams(ctx context.Context, doc ast.Node, src []byte) error {
	var blocks []*ast.FencedCodeBlock

	// The callback never fails, so neither does the walk.
	_ = ast.Walk(doc, func(node ast.Node, enter bool) (ast.WalkStatus, error) {
		fb, ok := node.(*ast.FencedCodeBlock)
		if !ok || !enter {
			return ast.WalkContinue, nil
		}
		if string(fb.Language(src)) == DiagramLanguage {
			blocks = append(blocks, fb)
		}
		return ast.WalkSkipChildren, nil
	})

	for _, fb := range blocks {
		d := Diagram{
			Attr: ParseInfo(fenceInfo(fb, src)),
			Text: fenceText(fb, src),
		}

		url, err := c.diagrams(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("diagram left as code", "id", d.Attr.ID, "err", err)
			continue
		}

		parent := fb.Parent()
		parent.ReplaceChild(parent, fb, &diagramNode{ID: d.Attr.ID, Src: url})
	}
	return nil
}

func fenceInfo(fb *ast.FencedCodeBlock, src []byte) string {
	if fb.Info == nil {
		return ""
	}
	return string(fb.Info.Segment.Value(src))
}

func fenceText(fb *ast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	lines := fb.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// ParseInfo reads a fence info string into pandoc attributes. The first
// word is the language; "#id", ".class" and key=value tokens follow,
// optionally inside braces. Values may be double-quoted.
func ParseInfo(info string) pandoc.Attr {
	attr := pandoc.Attr{Classes: []string{DiagramLanguage}}

	info = strings.TrimSpace(info)
	if i := strings.IndexAny(info, " \t{"); i >= 0 {
		info = info[i:]
	} else {
		return attr
	}
	info = strings.TrimSpace(info)
	info = strings.TrimPrefix(info, "{")
	info = strings.TrimSuffix(info, "}")

	for _, tok := range splitInfo(info) {
		switch {
		case strings.HasPrefix(tok, "#") && len(tok) > 1:
			attr.ID = tok[1:]
		case strings.HasPrefix(tok, ".") && len(tok) > 1:
			if tok[1:] != DiagramLanguage {
				attr.Classes = append(attr.Classes, tok[1:])
			}
		case strings.Contains(tok, "="):
			k, v, _ := strings.Cut(tok, "=")
			if k != "" {
				attr.Attributes = append(attr.Attributes, [2]string{k, v})
			}
		}
	}
	return attr
}

// splitInfo splits on whitespace outside double quotes and drops the quotes.
func splitInfo(s string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
		started = false
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case (r == ' ' || r == '\t') && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return tokens
}

// KindDiagram is the node kind of a rendered diagram.
var KindDiagram = ast.NewNodeKind("SvgbobDiagram")

// diagramNode replaces a fenced block whose diagram was rendered.
type diagramNode struct {
	ast.BaseBlock
	ID  string
	Src string
}

func (n *diagramNode) Kind() ast.NodeKind { return KindDiagram }

func (n *diagramNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.ID, "Src": n.Src}, nil)
}

// diagramRenderer writes diagram nodes as figures.
type diagramRenderer struct{}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.render)
}

func (r *diagramRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*diagramNode)

	_, _ = w.WriteString(`<figure class="svgbob"`)
	if n.ID != "" {
		_, _ = w.WriteString(` id="`)
		_, _ = w.WriteString(html.EscapeString(n.ID))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(`><img src="`)
	_, _ = w.WriteString(html.EscapeString(n.Src))
	_, _ = w.WriteString(`" alt="" /></figure>` + "\n")
	return ast.WalkSkipChildren, nil
}
