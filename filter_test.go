package svgbob

// Notes:
// - Documents are built as JSON and decoded with pandoc.ParseDocument so
//   element shapes match what pandoc sends a filter
// - Renderer failures are injected per diagram text through mockRunner.hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func codeBlock(id string, classes []string, text string) map[string]any {
	return pandoc.NewElement(pandoc.TypeCodeBlock, []any{
		pandoc.Attr{ID: id, Classes: classes}.Value(),
		text,
	})
}

func link(classes []string, url string, inlines ...any) map[string]any {
	if inlines == nil {
		inlines = []any{}
	}
	return pandoc.NewElement(pandoc.TypeLink, []any{
		pandoc.Attr{Classes: classes}.Value(),
		inlines,
		[]any{url, ""},
	})
}

// buildDoc encodes blocks and meta as pandoc JSON and decodes them back.
func buildDoc(t *testing.T, meta string, blocks ...any) *pandoc.Document {
	t.Helper()
	if meta == "" {
		meta = "{}"
	}
	if blocks == nil {
		blocks = []any{}
	}
	data, err := json.Marshal(map[string]any{
		"pandoc-api-version": []int{1, 23, 1},
		"meta":               json.RawMessage(meta),
		"blocks":             blocks,
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := pandoc.ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

// roundTrip writes doc and reads it back, as pandoc would between filters.
func roundTrip(t *testing.T, doc *pandoc.Document) *pandoc.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := pandoc.WriteDocument(&buf, doc); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	out, err := pandoc.ParseDocument(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return out
}

func newTestFilter(t *testing.T, runner CommandRunner, opts ...Option) (*Filter, string) {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "svg")
	base := []Option{
		WithBinary(stubRenderer(t)),
		WithRunner(runner),
		WithOutputDir(outDir),
	}
	f, err := NewFilter(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f, outDir
}

// failOn makes the runner fail for diagrams whose stdin contains marker.
func failOn(marker string) func(context.Context, runCall) error {
	return func(_ context.Context, call runCall) error {
		if strings.Contains(call.stdin, marker) {
			return errors.New("exit status 1")
		}
		return nil
	}
}

// imageURL returns the URL of the image in a replaced code block.
func imageURL(t *testing.T, block any) string {
	t.Helper()
	para, ok := block.(map[string]any)
	if !ok || para["t"] != pandoc.TypePara {
		t.Fatalf("block = %v, want Para", block)
	}
	img := para["c"].([]any)[0].(map[string]any)
	_, _, target := imageParts(t, img)
	return target.URL
}

// ---------------------------------------------------------------------------
// TestFilter_Apply - Document pass
// ---------------------------------------------------------------------------

func TestFilter_Apply(t *testing.T) {
	t.Parallel()

	source := filepath.Join(t.TempDir(), "d.bob")
	writeFile(t, source, "o-->o\n")

	doc := buildDoc(t, "",
		codeBlock("a", []string{"svgbob"}, "+--+"),
		codeBlock("", []string{"python"}, "print(1)"),
		pandoc.NewPara(
			pandoc.NewStr("See"),
			link([]string{"svgbob"}, filepath.ToSlash(source), pandoc.NewStr("figure")),
			link(nil, "https://example.com", pandoc.NewStr("plain")),
		),
	)

	runner := &mockRunner{}
	f, outDir := newTestFilter(t, runner)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 2 || result.Rendered != 2 || result.Reused != 0 || len(result.Errors) != 0 {
		t.Errorf("result = %+v, want 2 converted and 2 rendered", result)
	}

	if got, want := imageURL(t, doc.Blocks[0]), expectedURL(t, outDir, "+--+", BuiltinDefaults(), FormatSVG); got != want {
		t.Errorf("block url = %q, want %q", got, want)
	}
	if doc.Blocks[1].(map[string]any)["t"] != pandoc.TypeCodeBlock {
		t.Error("untagged code block was changed")
	}

	inlines := doc.Blocks[2].(map[string]any)["c"].([]any)
	img := inlines[1].(map[string]any)
	_, caption, target := imageParts(t, img)
	if target.Title != "fig:" || len(caption) != 1 {
		t.Errorf("link image target = %+v caption = %v", target, caption)
	}
	if inlines[2].(map[string]any)["t"] != pandoc.TypeLink {
		t.Error("untagged link was changed")
	}
}

func TestFilter_ApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f, _ := newTestFilter(t, runner)

	doc := buildDoc(t, "", codeBlock("", []string{"svgbob"}, "once"))
	if _, err := f.Apply(context.Background(), doc); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	first, _ := json.Marshal(doc.Blocks)

	again := roundTrip(t, doc)
	result, err := f.Apply(context.Background(), again)
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if result.Converted != 0 {
		t.Errorf("second pass converted %d elements, want 0", result.Converted)
	}
	second, _ := json.Marshal(again.Blocks)
	if !bytes.Equal(first, second) {
		t.Errorf("second pass changed the document:\n%s\n%s", first, second)
	}
	if n := len(runner.getCalls()); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}
}

func TestFilter_ApplyDeduplicates(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f, _ := newTestFilter(t, runner, WithJobs(4))

	doc := buildDoc(t, "",
		codeBlock("", []string{"svgbob"}, "same"),
		codeBlock("", []string{"svgbob"}, "same"),
		codeBlock("", []string{"svgbob"}, "other"),
	)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 3 || result.Rendered != 2 {
		t.Errorf("result = %+v, want 3 converted and 2 rendered", result)
	}
	if n := len(runner.getCalls()); n != 2 {
		t.Errorf("renderer called %d times, want 2", n)
	}
	if imageURL(t, doc.Blocks[0]) != imageURL(t, doc.Blocks[1]) {
		t.Error("identical diagrams should share an image")
	}
}

func TestFilter_ApplyIsolatesFailures(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{hook: failOn("bad")}
	f, _ := newTestFilter(t, runner)

	doc := buildDoc(t, "",
		codeBlock("first", []string{"svgbob"}, "good 1"),
		codeBlock("broken", []string{"svgbob"}, "bad"),
		codeBlock("", []string{"svgbob"}, "good 2"),
	)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 2 {
		t.Errorf("Converted = %d, want 2", result.Converted)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one", result.Errors)
	}

	var nodeErr *NodeError
	if !errors.As(result.Errors[0], &nodeErr) {
		t.Fatalf("error %T is not a *NodeError", result.Errors[0])
	}
	if nodeErr.Kind != pandoc.TypeCodeBlock || nodeErr.ID != "broken" {
		t.Errorf("NodeError = %+v, want CodeBlock #broken", nodeErr)
	}
	if !errors.Is(nodeErr, ErrRenderFailed) {
		t.Errorf("NodeError should wrap ErrRenderFailed: %v", nodeErr)
	}

	if doc.Blocks[1].(map[string]any)["t"] != pandoc.TypeCodeBlock {
		t.Error("failed block should be left unchanged")
	}
	for _, i := range []int{0, 2} {
		if doc.Blocks[i].(map[string]any)["t"] != pandoc.TypePara {
			t.Errorf("block %d was not converted", i)
		}
	}
}

func TestFilter_ApplyFailFast(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{hook: failOn("bad")}
	f, _ := newTestFilter(t, runner, WithFailFast(true))

	doc := buildDoc(t, "",
		codeBlock("", []string{"svgbob"}, "good"),
		codeBlock("broken", []string{"svgbob"}, "bad"),
	)

	_, err := f.Apply(context.Background(), doc)
	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("Apply() error = %v, want *NodeError", err)
	}
	if nodeErr.ID != "broken" {
		t.Errorf("NodeError.ID = %q, want broken", nodeErr.ID)
	}
}

func TestFilter_ApplyLinkSourceError(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f, _ := newTestFilter(t, runner)

	doc := buildDoc(t, "",
		pandoc.NewPara(link([]string{"svgbob"}, "missing.bob", pandoc.NewStr("x"))),
		codeBlock("", []string{"svgbob"}, "fine"),
	)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(result.Errors) != 1 || !errors.Is(result.Errors[0], ErrLinkSource) {
		t.Errorf("Errors = %v, want one ErrLinkSource", result.Errors)
	}
	if result.Converted != 1 {
		t.Errorf("Converted = %d, want 1", result.Converted)
	}
}

func TestFilter_ApplyErrorsInDocumentOrder(t *testing.T) {
	t.Parallel()

	// Later diagrams fail first.
	runner := &mockRunner{hook: func(_ context.Context, call runCall) error {
		if strings.HasPrefix(call.stdin, "bad") {
			if call.stdin == "bad 1" {
				time.Sleep(20 * time.Millisecond)
			}
			return errors.New("exit status 1")
		}
		return nil
	}}
	f, _ := newTestFilter(t, runner, WithJobs(4))

	doc := buildDoc(t, "",
		codeBlock("one", []string{"svgbob"}, "bad 1"),
		codeBlock("two", []string{"svgbob"}, "bad 2"),
		codeBlock("three", []string{"svgbob"}, "bad 3"),
	)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	var ids []string
	for _, e := range result.Errors {
		var nodeErr *NodeError
		if errors.As(e, &nodeErr) {
			ids = append(ids, nodeErr.ID)
		}
	}
	if strings.Join(ids, ",") != "one,two,three" {
		t.Errorf("error order = %v, want one,two,three", ids)
	}
}

func TestFilter_ApplyParallelKeepsOrder(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	runner := &mockRunner{hook: func(context.Context, runCall) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}}
	f, outDir := newTestFilter(t, runner, WithJobs(4))

	const count = 12
	blocks := make([]any, count)
	for i := range blocks {
		blocks[i] = codeBlock("", []string{"svgbob"}, fmt.Sprintf("diagram %d", i))
	}
	doc := buildDoc(t, "", blocks...)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != count {
		t.Errorf("Converted = %d, want %d", result.Converted, count)
	}
	for i := range count {
		want := expectedURL(t, outDir, fmt.Sprintf("diagram %d", i), BuiltinDefaults(), FormatSVG)
		if got := imageURL(t, doc.Blocks[i]); got != want {
			t.Errorf("block %d url = %q, want %q", i, got, want)
		}
	}
	if p := peak.Load(); p > 4 {
		t.Errorf("peak concurrency = %d, want at most 4", p)
	}
}

func TestFilter_ApplyNestedBlocks(t *testing.T) {
	t.Parallel()

	f, _ := newTestFilter(t, &mockRunner{})

	quote := pandoc.NewElement("BlockQuote", []any{codeBlock("", []string{"svgbob"}, "nested")})
	doc := buildDoc(t, "", quote)

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 1 {
		t.Fatalf("Converted = %d, want 1", result.Converted)
	}
	inner := doc.Blocks[0].(map[string]any)["c"].([]any)[0]
	_ = imageURL(t, inner)
}

func TestFilter_ApplyMetadataOptions(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f, outDir := newTestFilter(t, runner)

	doc := buildDoc(t, `{"svgbob.font-family":{"t":"MetaString","c":"Iosevka"}}`,
		codeBlock("", []string{"svgbob"}, "meta"))

	if _, err := f.Apply(context.Background(), doc); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	opts := BuiltinDefaults()
	opts.FontFamily = "Iosevka"
	if got, want := imageURL(t, doc.Blocks[0]), expectedURL(t, outDir, "meta", opts, FormatSVG); got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestFilter_ApplyCancelled(t *testing.T) {
	t.Parallel()

	f, _ := newTestFilter(t, &mockRunner{})
	doc := buildDoc(t, "", codeBlock("", []string{"svgbob"}, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Apply(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Apply() error = %v, want context.Canceled", err)
	}
	if doc.Blocks[0].(map[string]any)["t"] != pandoc.TypeCodeBlock {
		t.Error("document changed despite cancellation")
	}
}

func TestFilter_ApplyEmptyDocument(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	f, outDir := newTestFilter(t, runner)

	result, err := f.Apply(context.Background(), buildDoc(t, ""))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 0 || len(runner.getCalls()) != 0 {
		t.Errorf("result = %+v, want nothing done", result)
	}
	if fileExists(outDir) {
		t.Error("output directory created for a document without diagrams")
	}
}

// ---------------------------------------------------------------------------
// TestFilter_Visit - Single node dispatch
// ---------------------------------------------------------------------------

func TestFilter_Visit(t *testing.T) {
	t.Parallel()

	f, _ := newTestFilter(t, &mockRunner{})

	tests := []struct {
		name         string
		node         pandoc.Node
		wantReplaced bool
	}{
		{name: "other element", node: pandoc.Other{Type: "Para"}},
		{name: "untagged code block", node: pandoc.CodeBlock{Attr: pandoc.Attr{Classes: []string{"go"}}, Text: "x"}},
		{name: "untagged link", node: pandoc.Link{Target: pandoc.Target{URL: "a.bob"}}},
		{
			name:         "tagged code block",
			node:         pandoc.CodeBlock{Attr: pandoc.Attr{Classes: []string{"svgbob"}}, Text: "x"},
			wantReplaced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			replacement, replaced, err := f.Visit(context.Background(), tt.node, pandoc.Meta{})
			if err != nil {
				t.Fatalf("Visit() error = %v", err)
			}
			if replaced != tt.wantReplaced {
				t.Errorf("replaced = %v, want %v", replaced, tt.wantReplaced)
			}
			if replaced != (replacement != nil) {
				t.Errorf("replacement = %v with replaced = %v", replacement, replaced)
			}
		})
	}
}

func TestNewFilter_RendererNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewFilter()
	if !errors.Is(err, ErrRendererNotFound) {
		t.Errorf("NewFilter() error = %v, want ErrRendererNotFound", err)
	}
}
