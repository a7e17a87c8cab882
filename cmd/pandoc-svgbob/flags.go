package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// jobsUnset detects if --jobs was explicitly set.
// Since 0 is a valid value (auto), we use an out-of-range sentinel.
const jobsUnset = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds flags that configure the Converter.
type renderFlags struct {
	binary    string
	timeout   string
	outputDir string
	format    string
	cacheKey  string
	reuse     bool
}

// filterFlags holds all flags for the filter.
type filterFlags struct {
	common   commonFlags
	render   renderFlags
	jobs     int
	failFast bool
}

// previewFlags holds all flags for the preview command.
type previewFlags struct {
	common    commonFlags
	render    renderFlags
	output    string
	style     string
	highlight string
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	config string
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug output")
}

// addRenderFlags adds renderer and output flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVarP(&f.binary, "binary", "b", "", "renderer name or path (default: svgbob_cli, then svgbob)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "timeout per diagram (e.g., 30s, 2m)")
	fs.StringVarP(&f.outputDir, "output-dir", "d", "", "image directory (default: svg)")
	fs.StringVarP(&f.format, "format", "f", "", "image format: svg, png, auto")
	fs.StringVar(&f.cacheKey, "cache-key", "", "file naming: options, content")
	fs.BoolVar(&f.reuse, "reuse", false, "keep images that already exist")
}

// parseFilterFlags parses filter flags and returns positional args.
func parseFilterFlags(args []string, w io.Writer) (*filterFlags, []string, error) {
	fs := flag.NewFlagSet("pandoc-svgbob", flag.ContinueOnError)
	f := &filterFlags{}

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	fs.IntVarP(&f.jobs, "jobs", "j", jobsUnset, "parallel renders (0 = auto)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "stop at the first failing diagram")

	fs.SetOutput(w)
	fs.Usage = func() { printFilterUsage(w) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	if len(fs.Args()) > 1 {
		return nil, nil, fmt.Errorf("%w: expected at most one target format, got %d arguments", ErrUsage, len(fs.Args()))
	}

	return f, fs.Args(), nil
}

// parsePreviewFlags parses preview command flags and returns positional args.
func parsePreviewFlags(args []string, w io.Writer) (*previewFlags, []string, error) {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	f := &previewFlags{}

	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	fs.StringVarP(&f.output, "output", "o", "", "HTML output file (default: input with .html)")
	fs.StringVarP(&f.style, "style", "s", "", "CSS style name or file path")
	fs.StringVar(&f.highlight, "highlight", "", "code highlighting theme")

	fs.SetOutput(w)
	fs.Usage = func() { printPreviewUsage(w) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}

	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, error) {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	f := &doctorFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.json, "json", false, "print results as JSON")

	fs.SetOutput(w)
	fs.Usage = func() { printDoctorUsage(w) }

	if err := fs.Parse(args); err != nil {
		return nil, usageError(err)
	}
	return f, nil
}

// usageError wraps a parse error so it maps to ExitUsage. Help requests
// pass through unchanged.
func usageError(err error) error {
	if err == flag.ErrHelp {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
