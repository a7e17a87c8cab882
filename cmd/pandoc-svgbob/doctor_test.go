package main

// Notes:
// - Tests go through runDoctorCmd and inspect the JSON output.
// - Chrome detection depends on the machine, so only fields that do not
//   depend on it are asserted.
// - The renderer stub prints nothing for --version, leaving Version empty.

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func doctorConfig(t *testing.T, binary, outDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doctor.yaml")
	content := "renderer:\n  binary: " + binary + "\noutput:\n  dir: " + outDir + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runDoctorJSON(t *testing.T, args ...string) (doctorResult, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &stderr}

	code := runDoctorCmd(append([]string{"--json"}, args...), env)

	var result doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	return result, code
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd - Diagnostics
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_RendererFound(t *testing.T) {
	t.Parallel()

	bin := fakeBinary(t)
	outDir := filepath.Join(t.TempDir(), "images", "svg")
	cfg := doctorConfig(t, bin, outDir)

	result, code := runDoctorJSON(t, "-c", cfg)

	if !result.Renderer.Found || result.Renderer.Path != bin {
		t.Errorf("Renderer = %+v, want found at %s", result.Renderer, bin)
	}
	if result.Config.Path != cfg {
		t.Errorf("Config.Path = %q, want %q", result.Config.Path, cfg)
	}
	if result.Config.Format != "svg" {
		t.Errorf("Config.Format = %q, want svg", result.Config.Format)
	}
	if result.Chrome.Required {
		t.Error("Chrome required for svg output")
	}
	if !result.Output.Writable || result.Output.Dir != outDir {
		t.Errorf("Output = %+v, want writable %s", result.Output, outDir)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("doctor created the output directory")
	}
	if result.Status == statusErrors {
		t.Errorf("Status = errors: %v", result.Errors)
	}
	if code != ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, ExitSuccess)
	}
}

func TestRunDoctorCmd_RendererMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "no-such-svgbob")
	cfg := doctorConfig(t, missing, t.TempDir())

	result, code := runDoctorJSON(t, "-c", cfg)

	if result.Renderer.Found {
		t.Error("missing renderer reported as found")
	}
	if result.Status != statusErrors {
		t.Errorf("Status = %q, want errors", result.Status)
	}
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "hint:") {
		t.Errorf("Errors = %v, want a hint", result.Errors)
	}
}

func TestRunDoctorCmd_BrokenConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: gif\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, code := runDoctorJSON(t, "-c", path)

	if result.Status != statusErrors {
		t.Errorf("Status = %q, want errors", result.Status)
	}
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "output.format") {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want the config error", result.Errors)
	}
}

func TestRunDoctorCmd_TextOutput(t *testing.T) {
	t.Parallel()

	bin := fakeBinary(t)
	cfg := doctorConfig(t, bin, t.TempDir())
	var stdout bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	runDoctorCmd([]string{"-c", cfg}, env)

	out := stdout.String()
	for _, want := range []string{"pandoc-svgbob doctor", "Renderer", "[OK] Found at " + bin, "Configuration", "Output", "Status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunDoctorCmd_BadFlag(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	env := &Environment{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	if code := runDoctorCmd([]string{"--bogus"}, env); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
}
