package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	svgbob "github.com/alnah/pandoc-svgbob"
	"github.com/alnah/pandoc-svgbob/internal/config"
)

// loadConfig loads the config named by --config or SVGBOB_CONFIG, or
// discovers pandoc-svgbob.yaml in the standard locations. An explicit
// config that cannot be found is an error; a missing default one is not.
func loadConfig(flagConfig, envConfig string) (*config.Config, string, error) {
	name := flagConfig
	if name == "" {
		name = envConfig
	}

	if name == "" {
		cfg, path, err := config.Discover()
		if err != nil {
			return nil, "", fmt.Errorf("loading config: %w", err)
		}
		return cfg, path, nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, name, nil
}

// mergeRenderFlags merges CLI flags into config. CLI values override
// config values.
func mergeRenderFlags(f renderFlags, cfg *config.Config) {
	if f.binary != "" {
		cfg.Renderer.Binary = f.binary
	}
	if f.timeout != "" {
		cfg.Renderer.Timeout = f.timeout
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.cacheKey != "" {
		cfg.Output.CacheKey = f.cacheKey
	}
	if f.reuse {
		cfg.Output.Reuse = true
	}
}

// resolveConfig layers config file, environment and flags, then validates
// the result so bad values from any layer are reported the same way.
func resolveConfig(common commonFlags, render renderFlags, env *envConfig, logger *log.Logger) (*config.Config, error) {
	cfg, path, err := loadConfig(common.config, env.ConfigPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	applyEnvConfig(env, cfg)
	mergeRenderFlags(render, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// converterOptions translates configuration into library options.
func converterOptions(cfg *config.Config, env *Environment, logger *log.Logger) ([]svgbob.Option, error) {
	timeout, err := cfg.Renderer.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	format, err := svgbob.ParseImageFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	cacheKey, err := svgbob.ParseCacheKey(cfg.Output.CacheKey)
	if err != nil {
		return nil, err
	}

	d := cfg.Defaults
	opts := []svgbob.Option{
		svgbob.WithBinary(cfg.Renderer.Binary),
		svgbob.WithTimeout(timeout),
		svgbob.WithOutputDir(cfg.Output.Dir),
		svgbob.WithFormat(format),
		svgbob.WithCacheKey(cacheKey),
		svgbob.WithReuse(cfg.Output.Reuse),
		svgbob.WithDefaults(svgbob.DefaultsFromConfig(d.FontFamily, d.FontSize, d.Scale, d.StrokeWidth)),
		svgbob.WithLogger(logger),
	}
	if env.Runner != nil {
		opts = append(opts, svgbob.WithRunner(env.Runner))
	}
	return opts, nil
}
