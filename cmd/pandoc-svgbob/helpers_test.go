package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake renderer
// ---------------------------------------------------------------------------

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="120" height="40"></svg>`

// fakeRunner stands in for svgbob: it records calls and writes testSVG to
// the -o argument, or fails for inputs containing failOn.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdins []string
	failOn string
}

func (r *fakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) (string, string, error) {
	var text string
	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		text = string(data)
	}

	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.stdins = append(r.stdins, text)
	r.mu.Unlock()

	if r.failOn != "" && strings.Contains(text, r.failOn) {
		return "", "syntax error", errors.New("exit status 1")
	}

	out := ""
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			out = args[i+1]
		}
	}
	if err := os.WriteFile(out, []byte(testSVG), 0o644); err != nil {
		return "", err.Error(), err
	}
	return "", "", nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeBinary writes an executable named svgbob_cli so the renderer lookup
// succeeds. The fake runner never executes it.
func fakeBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer stub requires a POSIX system")
	}
	path := filepath.Join(t.TempDir(), "svgbob_cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// emptyConfig writes an empty config file so tests never pick up a
// pandoc-svgbob.yaml from the machine running them.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pandoc-svgbob.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testEnv returns an Environment with buffers and the given runner.
func testEnv(stdin string, runner *fakeRunner) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if runner != nil {
		env.Runner = runner
	}
	return env, &stdout, &stderr
}

// pandocDoc builds a pandoc JSON document around raw block JSON.
func pandocDoc(blocks ...string) string {
	return `{"pandoc-api-version":[1,23,1],"meta":{},"blocks":[` + strings.Join(blocks, ",") + `]}`
}

func svgbobBlock(id, text string) string {
	return `{"t":"CodeBlock","c":[["` + id + `",["svgbob"],[]],"` + text + `"]}`
}
