package svgbob

import (
	"strconv"
	"strings"

	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// MarkerClass tags the code blocks and links the filter converts.
const MarkerClass = "svgbob"

// Background is the fill passed to every render.
const Background = "#fdf6e3"

// Attribute keys read from elements. Metadata keys are the same names
// under the "svgbob." prefix.
const (
	KeyFontFamily  = "font-family"
	KeyFontSize    = "font-size"
	KeyScale       = "scale"
	KeyStrokeWidth = "stroke-width"
)

const metaPrefix = "svgbob."

// RenderOptions are the tunables passed to the renderer. Numbers are kept
// in the textual form they were written in.
type RenderOptions struct {
	FontFamily  string
	FontSize    string
	Scale       string
	StrokeWidth string
}

// BuiltinDefaults returns the options used when neither the element, the
// document metadata nor the configuration sets a value.
func BuiltinDefaults() RenderOptions {
	return RenderOptions{
		FontFamily:  "Arial",
		FontSize:    "14",
		Scale:       "1",
		StrokeWidth: "2",
	}
}

// DefaultsFromConfig builds project defaults from configuration values.
// Empty and zero values fall through to BuiltinDefaults.
func DefaultsFromConfig(fontFamily string, fontSize, scale, strokeWidth float64) RenderOptions {
	return RenderOptions{
		FontFamily:  fontFamily,
		FontSize:    formatNumber(fontSize),
		Scale:       formatNumber(scale),
		StrokeWidth: formatNumber(strokeWidth),
	}
}

func formatNumber(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ResolveOptions merges element attributes, document metadata and defaults.
// Per field, the first value found wins: attribute, metadata
// "svgbob.<key>", defaults, then BuiltinDefaults.
func ResolveOptions(attr pandoc.Attr, meta pandoc.Meta, defaults RenderOptions) RenderOptions {
	builtin := BuiltinDefaults()
	resolve := func(key, configured, fallback string) string {
		if v, ok := attr.Get(key); ok {
			return v
		}
		if v, ok := meta.Lookup(metaPrefix + key); ok {
			return v
		}
		if configured != "" {
			return configured
		}
		return fallback
	}

	return RenderOptions{
		FontFamily:  resolve(KeyFontFamily, defaults.FontFamily, builtin.FontFamily),
		FontSize:    resolve(KeyFontSize, defaults.FontSize, builtin.FontSize),
		Scale:       resolve(KeyScale, defaults.Scale, builtin.Scale),
		StrokeWidth: resolve(KeyStrokeWidth, defaults.StrokeWidth, builtin.StrokeWidth),
	}
}

// Args returns the renderer argument vector for these options.
func (o RenderOptions) Args() []string {
	return []string{
		"--font-family", o.FontFamily,
		"--font-size", o.FontSize,
		"--scale", o.Scale,
		"--stroke-width", o.StrokeWidth,
		"--background", Background,
	}
}

// String returns the options as they would be typed in a shell:
//
//	--font-family "Arial" --font-size 14 --scale 1 --stroke-width 2 --background "#fdf6e3"
func (o RenderOptions) String() string {
	var b strings.Builder
	b.WriteString("--font-family ")
	b.WriteString(strconv.Quote(o.FontFamily))
	b.WriteString(" --font-size ")
	b.WriteString(o.FontSize)
	b.WriteString(" --scale ")
	b.WriteString(o.Scale)
	b.WriteString(" --stroke-width ")
	b.WriteString(o.StrokeWidth)
	b.WriteString(" --background ")
	b.WriteString(strconv.Quote(Background))
	return b.String()
}

// IsBuiltin reports whether o equals BuiltinDefaults.
func (o RenderOptions) IsBuiltin() bool {
	return o == BuiltinDefaults()
}
