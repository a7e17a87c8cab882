package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/pandoc-svgbob/internal/config"
)

// envConfig holds configuration from environment variables.
// Pandoc runs filters without flags, so these are the main way to tune a
// filter run from a Makefile or CI job.
type envConfig struct {
	ConfigPath string // SVGBOB_CONFIG: config file path
	LogLevel   string // SVGBOB_LOG_LEVEL: debug, info, warn, error

	Binary    string        // SVGBOB_BINARY: renderer name or path
	Timeout   time.Duration // SVGBOB_TIMEOUT: per-diagram timeout
	OutputDir string        // SVGBOB_OUTPUT_DIR: image directory
	Format    string        // SVGBOB_FORMAT: svg, png, auto
	CacheKey  string        // SVGBOB_CACHE_KEY: options, content
	Reuse     *bool         // SVGBOB_REUSE: keep existing images

	Jobs     int   // SVGBOB_JOBS: parallel renders (jobsUnset if absent)
	FailFast *bool // SVGBOB_FAIL_FAST: stop at the first failure

	Style     string // SVGBOB_STYLE: preview CSS style
	Highlight string // SVGBOB_HIGHLIGHT: preview code theme
}

// knownEnvVars lists valid SVGBOB_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"SVGBOB_CONFIG":     true,
	"SVGBOB_LOG_LEVEL":  true,
	"SVGBOB_BINARY":     true,
	"SVGBOB_TIMEOUT":    true,
	"SVGBOB_OUTPUT_DIR": true,
	"SVGBOB_FORMAT":     true,
	"SVGBOB_CACHE_KEY":  true,
	"SVGBOB_REUSE":      true,
	"SVGBOB_JOBS":       true,
	"SVGBOB_FAIL_FAST":  true,
	"SVGBOB_STYLE":      true,
	"SVGBOB_HIGHLIGHT":  true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable numbers, durations and booleans are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("SVGBOB_CONFIG"),
		LogLevel:   os.Getenv("SVGBOB_LOG_LEVEL"),
		Binary:     os.Getenv("SVGBOB_BINARY"),
		OutputDir:  os.Getenv("SVGBOB_OUTPUT_DIR"),
		Format:     os.Getenv("SVGBOB_FORMAT"),
		CacheKey:   os.Getenv("SVGBOB_CACHE_KEY"),
		Reuse:      envBool("SVGBOB_REUSE"),
		Jobs:       jobsUnset,
		FailFast:   envBool("SVGBOB_FAIL_FAST"),
		Style:      os.Getenv("SVGBOB_STYLE"),
		Highlight:  os.Getenv("SVGBOB_HIGHLIGHT"),
	}

	if timeout := os.Getenv("SVGBOB_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if jobs := os.Getenv("SVGBOB_JOBS"); jobs != "" {
		if j, err := strconv.Atoi(jobs); err == nil && j >= 0 {
			cfg.Jobs = j
		}
	}

	return cfg
}

// envBool returns nil when the variable is unset or not a boolean.
func envBool(name string) *bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// warnUnknownEnvVars logs warnings for unrecognized SVGBOB_* variables.
// Helps catch typos like SVGBOB_OUTDIR instead of SVGBOB_OUTPUT_DIR.
func warnUnknownEnvVars(logger *log.Logger) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SVGBOB_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				logger.Warn("unknown environment variable (typo?)", "name", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the config file; CLI flags are applied later
// via mergeFlags, giving: CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Binary != "" {
		cfg.Renderer.Binary = env.Binary
	}
	if env.Timeout > 0 {
		cfg.Renderer.Timeout = env.Timeout.String()
	}

	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Format != "" {
		cfg.Output.Format = env.Format
	}
	if env.CacheKey != "" {
		cfg.Output.CacheKey = env.CacheKey
	}
	if env.Reuse != nil {
		cfg.Output.Reuse = *env.Reuse
	}

	if env.Jobs != jobsUnset {
		cfg.Filter.Jobs = env.Jobs
	}
	if env.FailFast != nil {
		cfg.Filter.FailFast = *env.FailFast
	}

	if env.Style != "" {
		cfg.Preview.Style = env.Style
	}
	if env.Highlight != "" {
		cfg.Preview.Highlight = env.Highlight
	}
}
