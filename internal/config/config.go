package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/pandoc-svgbob/internal/fileutil"
	"github.com/alnah/pandoc-svgbob/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// DefaultName is the config file searched for when none is given.
const DefaultName = "pandoc-svgbob"

// appDir is the directory under the user config dir holding config files.
const appDir = "pandoc-svgbob"

// Field length limits.
const (
	MaxPathLength       = 4096 // PATH_MAX on Linux
	MaxFontFamilyLength = 100  // "DejaVu Sans Mono, monospace"
	MaxDurationLength   = 20   // "1m30s"
	MaxStyleLength      = MaxPathLength
	MaxThemeLength      = 64 // chroma style names are short
)

// Numeric limits.
const (
	MaxJobs    = 64
	MaxTimeout = 10 * time.Minute
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatAuto = "auto"
)

// Cache key modes.
const (
	CacheKeyOptions = "options" // fold non-default render options into the fingerprint
	CacheKeyContent = "content" // fingerprint the diagram text only
)

// Config holds all configuration for the filter.
type Config struct {
	Renderer RendererConfig `yaml:"renderer"`
	Output   OutputConfig   `yaml:"output"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Filter   FilterConfig   `yaml:"filter"`
	Preview  PreviewConfig  `yaml:"preview"`
}

// RendererConfig selects and bounds the svgbob executable.
type RendererConfig struct {
	Binary  string `yaml:"binary"`  // Name or path (empty = svgbob_cli, then svgbob)
	Timeout string `yaml:"timeout"` // Go duration per diagram (default: "30s")
}

// OutputConfig defines where and how images are written.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // Relative to the working directory (default: "svg")
	Format   string `yaml:"format"`   // "svg", "png", "auto" (default: "svg")
	Reuse    bool   `yaml:"reuse"`    // Skip rendering when the image already exists
	CacheKey string `yaml:"cacheKey"` // "options" or "content" (default: "options")
}

// DefaultsConfig overrides the built-in render defaults for a project.
// Zero values fall through to the built-in defaults.
type DefaultsConfig struct {
	FontFamily  string  `yaml:"fontFamily"`
	FontSize    float64 `yaml:"fontSize"`
	Scale       float64 `yaml:"scale"`
	StrokeWidth float64 `yaml:"strokeWidth"`
}

// FilterConfig controls the document pass.
type FilterConfig struct {
	FailFast bool `yaml:"failFast"` // Abort on the first failing diagram
	Jobs     int  `yaml:"jobs"`     // Parallel renders (0 = auto, default: 1)
}

// PreviewConfig defines options for the Markdown preview command.
type PreviewConfig struct {
	Style     string `yaml:"style"`     // Embedded style name or path to a .css file
	Highlight string `yaml:"highlight"` // Chroma theme for code blocks
}

// Validate checks field lengths, ranges and enumerations.
// Called automatically by LoadConfig, but available for callers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("renderer.binary", c.Renderer.Binary, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("renderer.timeout", c.Renderer.Timeout, MaxDurationLength); err != nil {
		return err
	}
	if c.Renderer.Timeout != "" {
		if _, err := c.Renderer.TimeoutDuration(); err != nil {
			return err
		}
	}

	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.Format) {
	case "", FormatSVG, FormatPNG, FormatAuto:
		// valid
	default:
		return fmt.Errorf("%w: output.format %q (must be svg, png, or auto)", ErrInvalidValue, c.Output.Format)
	}
	switch strings.ToLower(c.Output.CacheKey) {
	case "", CacheKeyOptions, CacheKeyContent:
		// valid
	default:
		return fmt.Errorf("%w: output.cacheKey %q (must be options or content)", ErrInvalidValue, c.Output.CacheKey)
	}

	if err := validateFieldLength("defaults.fontFamily", c.Defaults.FontFamily, MaxFontFamilyLength); err != nil {
		return err
	}
	if err := validateNonNegative("defaults.fontSize", c.Defaults.FontSize); err != nil {
		return err
	}
	if err := validateNonNegative("defaults.scale", c.Defaults.Scale); err != nil {
		return err
	}
	if err := validateNonNegative("defaults.strokeWidth", c.Defaults.StrokeWidth); err != nil {
		return err
	}

	if c.Filter.Jobs < 0 || c.Filter.Jobs > MaxJobs {
		return fmt.Errorf("%w: filter.jobs must be between 0 and %d, got %d", ErrInvalidValue, MaxJobs, c.Filter.Jobs)
	}

	if err := validateFieldLength("preview.style", c.Preview.Style, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("preview.highlight", c.Preview.Highlight, MaxThemeLength); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration parses Timeout. An empty value returns zero.
func (r RendererConfig) TimeoutDuration() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: renderer.timeout %q: %v", ErrInvalidValue, r.Timeout, err)
	}
	if d <= 0 || d > MaxTimeout {
		return 0, fmt.Errorf("%w: renderer.timeout must be between 0 and %s, got %s", ErrInvalidValue, MaxTimeout, d)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateNonNegative rejects negative numbers; zero means "unset".
func validateNonNegative(fieldName string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidValue, fieldName, value)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Renderer: RendererConfig{Timeout: "30s"},
		Output: OutputConfig{
			Dir:      "svg",
			Format:   FormatSVG,
			CacheKey: CacheKeyOptions,
		},
		Filter: FilterConfig{Jobs: 1},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	return loadFile(configPath)
}

// Discover loads the default config file if one exists in a standard
// location, and returns DefaultConfig otherwise. The returned path is empty
// when no file was found.
func Discover() (*Config, string, error) {
	configPath, err := resolveConfigPath(DefaultName)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultConfig(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadFile(configPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, configPath, nil
}

func loadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\") || strings.HasSuffix(s, ".yaml") || strings.HasSuffix(s, ".yml")
}

// SearchPaths lists the locations tried for a config name, in order.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, user config dir.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDir, name+ext))
		}
	}

	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
