package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	svgbob "github.com/alnah/pandoc-svgbob"
	"github.com/alnah/pandoc-svgbob/internal/fileutil"
)

// runPreview renders a Markdown file with svgbob fences to standalone HTML.
func runPreview(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parsePreviewFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: preview takes one input file, got %d", ErrUsage, len(positional))
	}
	inputPath := positional[0]
	if err := validateMarkdownExtension(inputPath); err != nil {
		return err
	}

	envCfg := loadEnvConfig()
	logger := newLogger(env.Stderr, logLevel(flags.common, envCfg.LogLevel))
	warnUnknownEnvVars(logger)
	setMaxProcs(logger)

	cfg, err := resolveConfig(flags.common, flags.render, envCfg, logger)
	if err != nil {
		return err
	}
	if flags.style != "" {
		cfg.Preview.Style = flags.style
	}
	if flags.highlight != "" {
		cfg.Preview.Highlight = flags.highlight
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := converterOptions(cfg, env, logger)
	if err != nil {
		return err
	}
	opts = append(opts, svgbob.WithTarget("html"))

	conv, err := svgbob.NewConverter(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	previewer, err := svgbob.NewPreviewer(conv, svgbob.PreviewConfig{
		Style: cfg.Preview.Style,
		Theme: cfg.Preview.Highlight,
	})
	if err != nil {
		return err
	}

	content, err := os.ReadFile(inputPath) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}

	outputPath := resolveHTMLPath(inputPath, flags.output)
	start := time.Now()

	page, err := previewer.Render(ctx, content, filepath.Dir(inputPath), filepath.Dir(outputPath))
	if err != nil {
		return err
	}

	if err := fileutil.EnsureDir(filepath.Dir(outputPath)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteHTML, err)
	}
	if err := fileutil.WriteFileAtomic(outputPath, page); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteHTML, err)
	}

	logger.Info("preview written", "path", outputPath, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// resolveHTMLPath determines the HTML output path. A flag ending in a
// separator, or naming an existing directory, receives <input>.html.
func resolveHTMLPath(inputPath, flagOutput string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".html"

	if flagOutput == "" {
		return filepath.Join(filepath.Dir(inputPath), base)
	}
	if strings.HasSuffix(flagOutput, "/") || strings.HasSuffix(flagOutput, string(filepath.Separator)) {
		return filepath.Join(flagOutput, base)
	}
	if info, err := os.Stat(flagOutput); err == nil && info.IsDir() {
		return filepath.Join(flagOutput, base)
	}
	return flagOutput
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(path string) error {
	ext := filepath.Ext(path)
	if ext != ".md" && ext != ".markdown" {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}
