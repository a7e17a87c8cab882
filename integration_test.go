//go:build integration

package svgbob

// Notes:
// - Runs the real svgbob executable found on PATH; tests skip when it is
//   missing so the suite stays usable on machines without cargo.
// - The PNG test also needs Chrome or Chromium, found the way go-rod finds it.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

const integrationTimeout = 30 * time.Second

// requireRenderer skips the test when no svgbob executable is installed.
func requireRenderer(t *testing.T) {
	t.Helper()
	if _, err := FindRenderer(""); errors.Is(err, ErrRendererNotFound) {
		t.Skip("svgbob_cli not installed")
	}
}

// ---------------------------------------------------------------------------
// TestIntegration_FilterSVG - Real renderer, SVG output
// ---------------------------------------------------------------------------

func TestIntegration_FilterSVG(t *testing.T) {
	requireRenderer(t)
	t.Parallel()

	outDir := t.TempDir()
	f, err := NewFilter(WithOutputDir(outDir), WithTimeout(integrationTimeout), WithJobs(2))
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	defer f.Close()

	doc := buildDoc(t, `{"svgbob":{"t":"MetaMap","c":{"scale":{"t":"MetaString","c":"2"}}}}`,
		codeBlock("box", []string{"svgbob"}, "+---+\n|   |\n+---+\n"),
		codeBlock("", []string{"svgbob"}, "o--->*\n"),
		codeBlock("", []string{"go"}, "package main\n"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	result, err := f.Apply(ctx, doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 2 || len(result.Errors) != 0 {
		t.Fatalf("Apply() = %+v, want 2 converted and no errors", result)
	}

	files, err := filepath.Glob(filepath.Join(outDir, "*.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("rendered %d files, want 2", len(files))
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := ValidateSVG(data); err != nil {
			t.Errorf("%s: %v", filepath.Base(path), err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestIntegration_FilterLink - Real renderer reading a source file
// ---------------------------------------------------------------------------

func TestIntegration_FilterLink(t *testing.T) {
	requireRenderer(t)
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "diagram.txt")
	if err := os.WriteFile(source, []byte("x->y\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFilter(WithOutputDir(filepath.Join(dir, "svg")), WithTimeout(integrationTimeout))
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	defer f.Close()

	doc := buildDoc(t, "", pandoc.NewElement(pandoc.TypePara, []any{link([]string{"svgbob"}, source)}))

	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 1 {
		t.Fatalf("Apply() converted %d, want 1 (errors: %v)", result.Converted, result.Errors)
	}

	name := Fingerprint("x->y\n", BuiltinDefaults(), CacheKeyOptions) + ".svg"
	if _, err := os.Stat(filepath.Join(dir, "svg", name)); err != nil {
		t.Errorf("rendered image missing: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestIntegration_FilterPNG - Real renderer and headless Chrome
// ---------------------------------------------------------------------------

func TestIntegration_FilterPNG(t *testing.T) {
	requireRenderer(t)
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		if _, found := launcher.LookPath(); !found {
			t.Skip("Chrome not installed")
		}
	}

	outDir := t.TempDir()
	f, err := NewFilter(WithOutputDir(outDir), WithFormat(FormatAuto), WithTarget("latex"), WithTimeout(integrationTimeout))
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}
	defer f.Close()

	if got := f.Converter().Format(); got != FormatPNG {
		t.Fatalf("Format() = %q, want %q for latex", got, FormatPNG)
	}

	doc := buildDoc(t, "", codeBlock("", []string{"svgbob"}, ".--.\n'--'\n"))
	result, err := f.Apply(context.Background(), doc)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Converted != 1 {
		t.Fatalf("Apply() converted %d, want 1 (errors: %v)", result.Converted, result.Errors)
	}

	files, _ := filepath.Glob(filepath.Join(outDir, "*.png"))
	if len(files) != 1 {
		t.Fatalf("rasterized %d files, want 1", len(files))
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("%s is not a PNG file", filepath.Base(files[0]))
	}
}
