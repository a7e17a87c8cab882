package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewritePaths makes local image and link paths in an HTML fragment
// resolve from outputDir, where the preview is written.
//
// Relative paths are taken from sourceDir (the Markdown file's directory);
// absolute paths, such as rendered diagrams, are kept pointing at the same
// file. Each is rewritten relative to outputDir with forward slashes, or
// as a file:// URL when no relative path exists (another volume).
//
// URLs, anchors and data URIs are left alone. Only img[src] and a[href]
// are rewritten.
func RewritePaths(fragment, sourceDir, outputDir string) (string, error) {
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return "", err
	}

	doc, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}

	rewriteNode(doc, absSource, absOutput)

	return renderFragment(doc)
}

// parseFragment parses HTML with a body context to avoid wrapping.
func parseFragment(content string) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, err
	}

	// Wrap nodes in a container for uniform traversal
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// renderFragment renders the container's children without a wrapper.
func renderFragment(doc *html.Node) (string, error) {
	var buf strings.Builder
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// rewriteNode traverses the DOM and rewrites local paths.
func rewriteNode(n *html.Node, sourceDir, outputDir string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "img":
			rewriteAttr(n, "src", sourceDir, outputDir)
		case "a":
			rewriteAttr(n, "href", sourceDir, outputDir)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, sourceDir, outputDir)
	}
}

// rewriteAttr rewrites a single attribute if it holds a local path.
func rewriteAttr(n *html.Node, attrName, sourceDir, outputDir string) {
	for i, attr := range n.Attr {
		if attr.Key != attrName || !isLocalPath(attr.Val) {
			continue
		}

		path := filepath.FromSlash(attr.Val)
		if !filepath.IsAbs(path) && !strings.HasPrefix(attr.Val, "/") {
			path = filepath.Join(sourceDir, path)
		}
		n.Attr[i].Val = relativeURL(path, outputDir)
	}
}

// isLocalPath returns true if the value names a file on disk.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Skip URLs (http, https, file, data, mailto, protocol-relative)
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(path, "//") {
		return false
	}

	// Skip anchors
	return !strings.HasPrefix(path, "#")
}

// relativeURL returns absPath relative to dir with forward slashes, or a
// file:// URL when the two share no root.
func relativeURL(absPath, dir string) string {
	rel, err := filepath.Rel(dir, absPath)
	if err != nil {
		return pathToFileURL(absPath)
	}
	u := url.URL{Path: filepath.ToSlash(rel)}
	return u.String()
}

// pathToFileURL converts an absolute path to a file:// URL.
// Handles both Unix and Windows paths correctly.
func pathToFileURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive letter
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
