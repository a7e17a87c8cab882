package svgbob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/pandoc-svgbob/internal/fileutil"
	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// DefaultOutputDir is where images are written, relative to the working directory.
const DefaultOutputDir = "svg"

// linkTitle marks link-sourced images as figures.
const linkTitle = "fig:"

// Converter turns marker-tagged code blocks and links into images.
// It holds no per-document state and is safe for concurrent use.
type Converter struct {
	renderer   renderer
	outputDir  string
	defaults   RenderOptions
	cacheKey   CacheKey
	format     ImageFormat
	reuse      bool
	rasterizer Rasterizer
	logger     *log.Logger
}

// Option configures a Converter or Filter.
type Option func(*settings)

// settings collects options before construction.
type settings struct {
	binary     string
	runner     CommandRunner
	timeout    time.Duration
	outputDir  string
	defaults   RenderOptions
	cacheKey   CacheKey
	format     ImageFormat
	target     string
	reuse      bool
	rasterizer Rasterizer
	logger     *log.Logger
	jobs       int
	failFast   bool
}

// WithBinary sets the renderer name or path. Empty searches svgbob_cli, then svgbob.
func WithBinary(binary string) Option {
	return func(s *settings) { s.binary = binary }
}

// WithRunner sets the command runner. Defaults to ExecRunner.
func WithRunner(r CommandRunner) Option {
	return func(s *settings) { s.runner = r }
}

// WithTimeout bounds each renderer invocation. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithOutputDir sets the image directory. Defaults to DefaultOutputDir.
func WithOutputDir(dir string) Option {
	return func(s *settings) { s.outputDir = dir }
}

// WithDefaults sets project-wide option defaults. Empty fields fall
// through to BuiltinDefaults.
func WithDefaults(d RenderOptions) Option {
	return func(s *settings) { s.defaults = d }
}

// WithCacheKey selects what image file names are derived from.
func WithCacheKey(k CacheKey) Option {
	return func(s *settings) { s.cacheKey = k }
}

// WithFormat sets the image format. FormatAuto is resolved against the
// target given by WithTarget.
func WithFormat(f ImageFormat) Option {
	return func(s *settings) { s.format = f }
}

// WithTarget sets the pandoc output format, as passed to the filter.
func WithTarget(format string) Option {
	return func(s *settings) { s.target = format }
}

// WithReuse skips rendering when the image file already exists.
func WithReuse(reuse bool) Option {
	return func(s *settings) { s.reuse = reuse }
}

// WithRasterizer sets the SVG to PNG backend. Defaults to a RodRasterizer
// when the resolved format is FormatPNG.
func WithRasterizer(r Rasterizer) Option {
	return func(s *settings) { s.rasterizer = r }
}

// WithLogger sets the logger for command traces and warnings.
// Defaults to a logger that discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithJobs sets how many diagrams a Filter renders at once.
// 0 picks a value from GOMAXPROCS; see ResolveJobs.
func WithJobs(n int) Option {
	return func(s *settings) { s.jobs = n }
}

// WithFailFast makes a Filter abort on the first failing diagram instead
// of leaving it unchanged.
func WithFailFast(failFast bool) Option {
	return func(s *settings) { s.failFast = failFast }
}

func newSettings(opts []Option) *settings {
	s := &settings{
		outputDir: DefaultOutputDir,
		cacheKey:  CacheKeyOptions,
		format:    FormatSVG,
		jobs:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewConverter locates the renderer and returns a Converter.
// Returns ErrRendererNotFound if no renderer is available. Nothing is
// written to disk until the first conversion.
func NewConverter(opts ...Option) (*Converter, error) {
	return newConverter(newSettings(opts))
}

func newConverter(s *settings) (*Converter, error) {
	path, err := FindRenderer(s.binary)
	if err != nil {
		return nil, err
	}

	if _, err := ParseCacheKey(string(s.cacheKey)); err != nil {
		return nil, err
	}
	format, err := ParseImageFormat(string(s.format))
	if err != nil {
		return nil, err
	}
	format = format.For(s.target)

	c := &Converter{
		renderer: renderer{
			path:    path,
			runner:  s.runner,
			timeout: s.timeout,
		},
		outputDir:  s.outputDir,
		defaults:   s.defaults,
		cacheKey:   s.cacheKey,
		format:     format,
		reuse:      s.reuse,
		rasterizer: s.rasterizer,
		logger:     s.logger,
	}
	if c.renderer.runner == nil {
		c.renderer.runner = &ExecRunner{}
	}
	if c.outputDir == "" {
		c.outputDir = DefaultOutputDir
	}
	if c.cacheKey == "" {
		c.cacheKey = CacheKeyOptions
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.format == FormatPNG && c.rasterizer == nil {
		c.rasterizer = NewRodRasterizer(s.timeout)
	}
	return c, nil
}

// Renderer returns the resolved renderer executable.
func (c *Converter) Renderer() string {
	return c.renderer.path
}

// Format returns the resolved image format, FormatSVG or FormatPNG.
func (c *Converter) Format() ImageFormat {
	return c.format
}

// Close releases the rasterizer, if any.
func (c *Converter) Close() error {
	if c.rasterizer != nil {
		return c.rasterizer.Close()
	}
	return nil
}

// ConvertCodeBlock renders the block's text and returns
// Para [Image attr [] (url, "")] with the marker class removed.
func (c *Converter) ConvertCodeBlock(ctx context.Context, block pandoc.CodeBlock, meta pandoc.Meta) (map[string]any, error) {
	t, err := c.planCodeBlock(block, meta)
	if err != nil {
		return nil, err
	}
	if _, err := c.run(ctx, t); err != nil {
		return nil, err
	}
	return t.replacement, nil
}

// RenderCodeBlock renders the block's text and returns the image URL
// without building a pandoc node.
func (c *Converter) RenderCodeBlock(ctx context.Context, block pandoc.CodeBlock, meta pandoc.Meta) (string, error) {
	t, err := c.planCodeBlock(block, meta)
	if err != nil {
		return "", err
	}
	if _, err := c.run(ctx, t); err != nil {
		return "", err
	}
	return t.url, nil
}

// ConvertLink renders the file the link points to and returns the inline
// Image attr caption (url, "fig:") with the marker class removed.
func (c *Converter) ConvertLink(ctx context.Context, link pandoc.Link, meta pandoc.Meta) (map[string]any, error) {
	t, err := c.planLink(link, meta)
	if err != nil {
		return nil, err
	}
	if _, err := c.run(ctx, t); err != nil {
		return nil, err
	}
	return t.replacement, nil
}

// task is one planned conversion: the renderer request, where the image
// ends up and the node that replaces the element once it exists.
type task struct {
	kind        string
	req         renderRequest
	svgPath     string // renderer output
	imagePath   string // file referenced by the document
	url         string // imagePath, absolute with forward slashes
	replacement map[string]any
}

func (c *Converter) planCodeBlock(block pandoc.CodeBlock, meta pandoc.Meta) (*task, error) {
	opts := ResolveOptions(block.Attr, meta, c.defaults)
	t, err := c.newTask("codeblock", block.Text, opts)
	if err != nil {
		return nil, err
	}
	t.req.Text = block.Text
	image := pandoc.NewImage(block.Attr.WithoutClass(MarkerClass), nil, pandoc.Target{URL: t.url})
	t.replacement = pandoc.NewPara(image)
	return t, nil
}

func (c *Converter) planLink(link pandoc.Link, meta pandoc.Meta) (*task, error) {
	source := link.Target.URL
	if fileutil.IsURL(source) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteSource, source)
	}
	abs, err := filepath.Abs(filepath.FromSlash(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLinkSource, source, err)
	}
	data, err := os.ReadFile(abs) // #nosec G304 -- link target chosen by the document author
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLinkSource, source, err)
	}

	opts := ResolveOptions(link.Attr, meta, c.defaults)
	t, err := c.newTask("inline", string(data), opts)
	if err != nil {
		return nil, err
	}
	t.req.Source = abs
	t.replacement = pandoc.NewImage(
		link.Attr.WithoutClass(MarkerClass),
		link.Content,
		pandoc.Target{URL: t.url, Title: linkTitle},
	)
	return t, nil
}

func (c *Converter) newTask(kind, text string, opts RenderOptions) (*task, error) {
	name := Fingerprint(text, opts, c.cacheKey)

	svgPath, err := filepath.Abs(filepath.Join(c.outputDir, name+"."+string(FormatSVG)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	imagePath := svgPath
	if c.format == FormatPNG {
		imagePath = strings.TrimSuffix(svgPath, string(FormatSVG)) + string(FormatPNG)
	}

	return &task{
		kind:      kind,
		req:       renderRequest{Output: svgPath, Options: opts},
		svgPath:   svgPath,
		imagePath: imagePath,
		url:       filepath.ToSlash(imagePath),
	}, nil
}

// run produces the task's image. It reports whether an existing image was
// reused instead of rendered.
func (c *Converter) run(ctx context.Context, t *task) (bool, error) {
	if c.reuse && c.reusable(t.imagePath) {
		c.logger.Debug("reusing image", "kind", t.kind, "dest", t.url)
		return true, nil
	}

	if err := fileutil.EnsureDir(c.outputDir); err != nil {
		return false, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	c.logger.Info(c.commandLine(t.req), "kind", t.kind, "dest", t.url)

	start := time.Now()
	if err := c.renderer.render(ctx, t.req); err != nil {
		return false, err
	}
	c.logger.Debug("rendered", "dest", filepath.ToSlash(t.svgPath), "elapsed", time.Since(start))

	if c.format != FormatPNG {
		return false, nil
	}

	png, err := c.rasterizer.Rasterize(ctx, t.svgPath)
	if err != nil {
		return false, err
	}
	if err := fileutil.WriteFileAtomic(t.imagePath, png); err != nil {
		return false, fmt.Errorf("%w: %v", ErrWriteImage, err)
	}
	c.logger.Debug("rasterized", "dest", t.url, "elapsed", time.Since(start))
	return false, nil
}

// reusable reports whether path holds an image from an earlier run.
func (c *Converter) reusable(path string) bool {
	if !fileutil.FileExists(path) {
		return false
	}
	if c.format == FormatPNG {
		info, err := os.Stat(path)
		return err == nil && info.Size() > 0
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path derived from fingerprint
	if err != nil {
		return false
	}
	return ValidateSVG(data) == nil
}

// commandLine renders the invocation the way it would be typed in a shell.
func (c *Converter) commandLine(req renderRequest) string {
	parts := []string{c.renderer.path}
	if req.Source != "" {
		parts = append(parts, req.Source)
	}
	parts = append(parts, req.Options.String(), "-o", filepath.ToSlash(req.Output))
	return strings.Join(parts, " ")
}
