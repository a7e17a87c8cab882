package main

import (
	"context"
	"errors"
	"fmt"

	svgbob "github.com/alnah/pandoc-svgbob"
	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrReadDocument     = errors.New("failed to read pandoc document")
	ErrWriteDocument    = errors.New("failed to write pandoc document")
	ErrNoInput          = errors.New("no input specified")
	ErrReadMarkdown     = errors.New("failed to read markdown file")
	ErrWriteHTML        = errors.New("failed to write HTML file")
	ErrInvalidExtension = errors.New("file must have .md or .markdown extension")
)

// runFilter reads a pandoc JSON document from stdin, converts its svgbob
// elements and writes the document to stdout. args holds flags and the
// optional target format pandoc passes as its only argument.
//
// A failing element is logged and left unchanged unless fail-fast is set,
// in which case nothing is written.
func runFilter(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseFilterFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	var target string
	if len(positional) > 0 {
		target = positional[0]
	}

	envCfg := loadEnvConfig()
	logger := newLogger(env.Stderr, logLevel(flags.common, envCfg.LogLevel))
	warnUnknownEnvVars(logger)
	setMaxProcs(logger)

	cfg, err := resolveConfig(flags.common, flags.render, envCfg, logger)
	if err != nil {
		return err
	}
	if flags.jobs != jobsUnset {
		cfg.Filter.Jobs = flags.jobs
	}
	if flags.failFast {
		cfg.Filter.FailFast = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := converterOptions(cfg, env, logger)
	if err != nil {
		return err
	}
	opts = append(opts,
		svgbob.WithTarget(target),
		svgbob.WithJobs(cfg.Filter.Jobs),
		svgbob.WithFailFast(cfg.Filter.FailFast),
	)

	// Locate the renderer before consuming stdin so a missing renderer
	// fails without touching the document.
	f, err := svgbob.NewFilter(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	logger.Debug("filter ready",
		"renderer", f.Converter().Renderer(),
		"target", target,
		"format", f.Converter().Format(),
		"jobs", svgbob.ResolveJobs(cfg.Filter.Jobs))

	doc, err := pandoc.ReadDocument(env.Stdin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadDocument, err)
	}

	result, err := f.Apply(ctx, doc)
	if err != nil {
		return err
	}

	if err := pandoc.WriteDocument(env.Stdout, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDocument, err)
	}

	if len(result.Errors) > 0 {
		logger.Warn("some diagrams were left as code", "failed", len(result.Errors), "converted", result.Converted)
	}
	return nil
}
