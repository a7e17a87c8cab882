package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	svgbob "github.com/alnah/pandoc-svgbob"
	"github.com/alnah/pandoc-svgbob/internal/config"
	"github.com/alnah/pandoc-svgbob/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// versionTimeout bounds the renderer and browser --version probes.
const versionTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"`
	Renderer rendererInfo `json:"renderer"`
	Config   configInfo   `json:"config"`
	Chrome   chromeInfo   `json:"chrome"`
	Output   outputInfo   `json:"output"`
	Env      envInfo      `json:"environment"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// rendererInfo holds svgbob detection results.
type rendererInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
}

// configInfo holds config file detection results.
type configInfo struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Required bool   `json:"required"`
}

// outputInfo holds image directory checks.
type outputInfo struct {
	Dir      string `json:"dir"`
	Writable bool   `json:"writable"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "pandoc-svgbob: %v\n", err)
		return ExitUsage
	}

	result := runDoctor(flags.config, loadEnvConfig())

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(flagConfig string, envCfg *envConfig) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	cfg := checkConfig(result, flagConfig, envCfg)
	checkRenderer(result, cfg.Renderer.Binary)
	checkChrome(result, cfg)
	checkOutput(result, cfg.Output.Dir)
	checkEnvironment(result)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkConfig loads the effective configuration. A broken config file is
// an error; the checks that follow use the defaults instead.
func checkConfig(result *doctorResult, flagConfig string, envCfg *envConfig) *config.Config {
	cfg, path, err := loadConfig(flagConfig, envCfg.ConfigPath)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		cfg = config.DefaultConfig()
	}
	applyEnvConfig(envCfg, cfg)
	if err := cfg.Validate(); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	result.Config.Path = path
	result.Config.Format = cfg.Output.Format
	return cfg
}

// checkRenderer locates svgbob and asks for its version.
func checkRenderer(result *doctorResult, binary string) {
	path, err := svgbob.FindRenderer(binary)
	if err != nil {
		result.Errors = append(result.Errors, err.Error()+hints.ForRendererNotFound())
		return
	}
	result.Renderer.Found = true
	result.Renderer.Path = path

	version, err := probeVersion(path)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get renderer version: %v", err))
		return
	}
	result.Renderer.Version = version
}

// checkChrome detects Chrome/Chromium. It is only required when images
// may be rasterized.
func checkChrome(result *doctorResult, cfg *config.Config) {
	format := strings.ToLower(cfg.Output.Format)
	result.Chrome.Required = format == config.FormatPNG || format == config.FormatAuto

	chromePath := os.Getenv("ROD_BROWSER_BIN")
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			if result.Chrome.Required {
				result.Warnings = append(result.Warnings,
					"Chrome/Chromium not found; rod will download it on first PNG render. Install Chrome or set ROD_BROWSER_BIN")
			}
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		if result.Chrome.Required {
			result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		}
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
}

// checkOutput verifies images can be written to dir, or to the nearest
// existing parent when dir does not exist yet.
func checkOutput(result *doctorResult, dir string) {
	if dir == "" {
		dir = svgbob.DefaultOutputDir
	}
	result.Output.Dir = dir

	probeDir := dir
	for {
		if info, err := os.Stat(probeDir); err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(probeDir)
		if parent == probeDir {
			break
		}
		probeDir = parent
	}

	f, err := os.CreateTemp(probeDir, ".pandoc-svgbob-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Output directory not writable: %s", dir)+hints.ForOutputDirectory())
		return
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	result.Output.Writable = true
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	result.Env.CI = hints.InCI()

	if result.Chrome.Required && (result.Env.Container || result.Env.CI) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for PNG output")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// probeVersion runs "<path> --version" and returns its first line.
func probeVersion(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- located renderer
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return line, nil
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "pandoc-svgbob doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Renderer")
	if r.Renderer.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Renderer.Path)
		if r.Renderer.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Renderer.Version)
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration")
	if r.Config.Path != "" {
		fmt.Fprintf(w, "  [OK] Loaded %s\n", r.Config.Path)
	} else {
		fmt.Fprintln(w, "  [OK] Using defaults")
	}
	fmt.Fprintf(w, "  [OK] Image format: %s\n", r.Config.Format)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	switch {
	case r.Chrome.Found:
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
	case r.Chrome.Required:
		fmt.Fprintln(w, "  [WARN] Not found")
	default:
		fmt.Fprintln(w, "  [OK] Not needed for SVG output")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Output")
	if r.Output.Writable {
		fmt.Fprintf(w, "  [OK] %s: writable\n", r.Output.Dir)
	} else {
		fmt.Fprintf(w, "  [ERROR] %s: not writable\n", r.Output.Dir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to filter")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
