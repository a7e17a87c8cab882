package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pandoc-svgbob [flags] [format]")
	fmt.Fprintln(w, "       pandoc-svgbob <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "A pandoc JSON filter rendering svgbob diagrams to images:")
	fmt.Fprintln(w, "  pandoc --filter pandoc-svgbob input.md -o output.html")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  preview    Render a markdown file to HTML without pandoc")
	fmt.Fprintln(w, "  doctor     Check the renderer, browser and configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pandoc-svgbob help filter' for filter flags and environment variables.")
}

// printFilterUsage prints usage for the filter.
func printFilterUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pandoc-svgbob [flags] [format]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Read a pandoc JSON document on stdin, replace code blocks and links")
	fmt.Fprintln(w, "with the svgbob class by images, and write the document to stdout.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  format    Pandoc output format, passed by pandoc (used by --format auto)")
	fmt.Fprintln(w)
	printRenderFlags(w)
	fmt.Fprintln(w, "Filter:")
	fmt.Fprintln(w, "  -j, --jobs <n>            Parallel renders (0 = auto, default: 1)")
	fmt.Fprintln(w, "      --fail-fast           Stop at the first failing diagram")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SVGBOB_CONFIG, SVGBOB_LOG_LEVEL, SVGBOB_BINARY, SVGBOB_TIMEOUT,")
	fmt.Fprintln(w, "  SVGBOB_OUTPUT_DIR, SVGBOB_FORMAT, SVGBOB_CACHE_KEY, SVGBOB_REUSE,")
	fmt.Fprintln(w, "  SVGBOB_JOBS, SVGBOB_FAIL_FAST, SVGBOB_STYLE, SVGBOB_HIGHLIGHT")
	fmt.Fprintln(w, "  Priority: flags > environment > config file > defaults")
}

// printPreviewUsage prints usage for the preview command.
func printPreviewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pandoc-svgbob preview <input.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a markdown file to a standalone HTML page. Fenced svgbob")
	fmt.Fprintln(w, "blocks become images; front matter svgbob keys act as metadata.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Preview:")
	fmt.Fprintln(w, "  -o, --output <path>       HTML file or directory (default: next to input)")
	fmt.Fprintln(w, "  -s, --style <name>        CSS style name or file path (default, github)")
	fmt.Fprintln(w, "      --highlight <name>    Code highlighting theme (e.g., monokai)")
	fmt.Fprintln(w)
	printRenderFlags(w)
	printCommonFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pandoc-svgbob doctor [--json] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the renderer is installed, the configuration loads,")
	fmt.Fprintln(w, "the image directory is writable and Chrome is found when needed.")
}

func printRenderFlags(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -b, --binary <path>       Renderer (default: svgbob_cli, then svgbob)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Timeout per diagram (default: 30s)")
	fmt.Fprintln(w, "  -d, --output-dir <dir>    Image directory (default: svg)")
	fmt.Fprintln(w, "  -f, --format <s>          Image format: svg, png, auto")
	fmt.Fprintln(w, "      --cache-key <s>       File naming: options, content")
	fmt.Fprintln(w, "      --reuse               Keep images that already exist")
	fmt.Fprintln(w)
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug output")
	fmt.Fprintln(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "filter":
		printFilterUsage(env.Stdout)
	case "preview":
		printPreviewUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: pandoc-svgbob version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: pandoc-svgbob help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
