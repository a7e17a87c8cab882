// Package svgbob is a pandoc filter that turns ASCII-art diagrams into
// images with the svgbob renderer.
//
// # Quick Start
//
// Read the document pandoc writes to the filter, apply, and write it back:
//
//	f, err := svgbob.NewFilter(svgbob.WithTarget(os.Args[1]))
//	if err != nil {
//	    log.Fatal(err) // svgbob_cli and svgbob are both missing
//	}
//	defer f.Close()
//
//	doc, err := pandoc.ReadDocument(os.Stdin)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := f.Apply(ctx, doc); err != nil {
//	    log.Fatal(err)
//	}
//	pandoc.WriteDocument(os.Stdout, doc)
//
// # Tagged Elements
//
// A code block with the svgbob class is rendered from its text and
// replaced by a paragraph holding the image:
//
//	```{.svgbob font-size=20}
//	a --> b
//	```
//
// A link with the svgbob class is rendered from the file it points to and
// replaced by an inline image titled "fig:", keeping the link text as the
// caption:
//
//	[Architecture](diagrams/arch.bob){.svgbob}
//
// The marker class is removed from the image; identifier, other classes
// and attributes are kept.
//
// # Options
//
// Each tunable is taken from the first of: the element attribute, the
// document metadata key "svgbob.<name>", the WithDefaults value, and the
// built-in default.
//
//	attribute      metadata               default
//	font-family    svgbob.font-family     Arial
//	font-size      svgbob.font-size       14
//	scale          svgbob.scale           1
//	stroke-width   svgbob.stroke-width    2
//
// # Output Files
//
// Images are written to "svg" under the working directory (WithOutputDir)
// as <fingerprint>.svg, where the fingerprint is the first 8 hex characters
// of the SHA-1 of the diagram text. When the resolved options differ from
// the built-in defaults they are folded into the hash; WithCacheKey
// (CacheKeyContent) turns that off. Files are overwritten, never deleted.
//
// # Image Format
//
// WithFormat(FormatPNG) rasterizes each SVG in headless Chrome (go-rod).
// FormatAuto picks PNG for pandoc targets that cannot embed SVG, such as
// latex and docx. For containers and CI environments, set ROD_NO_SANDBOX=1
// to disable the Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom
// Chrome binary.
//
// # Failures
//
// A diagram that cannot be rendered is left unchanged and reported in
// Result.Errors as a *NodeError. WithFailFast(true) makes Apply return
// the first failure instead. Renderer failures carry a *RenderError with
// the exit code and standard error.
package svgbob
