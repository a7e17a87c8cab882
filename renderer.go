package svgbob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/alnah/pandoc-svgbob/internal/process"
)

// DefaultTimeout bounds a single renderer invocation.
const DefaultTimeout = 30 * time.Second

// rendererNames are searched in order when no binary is configured.
// svgbob_cli is the current name; svgbob is the legacy one.
var rendererNames = []string{"svgbob_cli", "svgbob"}

// waitDelay is how long Wait waits for pipes after the process is killed.
const waitDelay = 2 * time.Second

// FindRenderer resolves the renderer executable. A non-empty binary (name
// or path) is used as given; otherwise svgbob_cli is preferred over svgbob.
func FindRenderer(binary string) (string, error) {
	if binary != "" {
		path, err := exec.LookPath(binary)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrRendererNotFound, binary, err)
		}
		return path, nil
	}

	for _, name := range rendererNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s in PATH", ErrRendererNotFound, strings.Join(rendererNames, ", "))
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The command runs in
// its own process group, which is killed when ctx is done.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- argument vector, no shell
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Compile-time interface check.
var _ CommandRunner = (*ExecRunner)(nil)

// renderRequest describes one renderer invocation. Exactly one of Text and
// Source is used: Text is piped on stdin, Source is passed as a path.
type renderRequest struct {
	Text    string
	Source  string
	Output  string
	Options RenderOptions
}

// args builds the argument vector: [source] options -o output.
func (req renderRequest) args() []string {
	args := make([]string, 0, 13)
	if req.Source != "" {
		args = append(args, req.Source)
	}
	args = append(args, req.Options.Args()...)
	return append(args, "-o", req.Output)
}

// renderer runs the svgbob executable.
type renderer struct {
	path    string
	runner  CommandRunner
	timeout time.Duration
}

// render runs one invocation to completion and checks the written file.
func (r *renderer) render(ctx context.Context, req renderRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdin io.Reader
	if req.Source == "" {
		stdin = strings.NewReader(req.Text)
	}

	_, stderr, err := r.runner.Run(runCtx, stdin, r.path, req.args()...)
	if err != nil {
		// Parent cancellation is reported as is, not as a render failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrRenderTimeout, timeout)
		}
		return newRenderError(r.path, stderr, err)
	}

	data, err := os.ReadFile(req.Output) // #nosec G304 -- path derived from fingerprint
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSVG, err)
	}
	return ValidateSVG(data)
}

func newRenderError(name, stderr string, err error) *RenderError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &RenderError{
		Renderer: name,
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
}

// ValidateSVG checks that data is a document with an <svg> element.
func ValidateSVG(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty output", ErrInvalidSVG)
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSVG, err)
	}
	if findSVG(doc) == nil {
		return fmt.Errorf("%w: no <svg> element", ErrInvalidSVG)
	}
	return nil
}

// findSVG returns the first <svg> element under n.
func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}

// svgSize reads the width and height attributes of the root <svg> element.
// Missing or non-numeric values report ok=false.
func svgSize(data []byte) (width, height float64, ok bool) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	svg := findSVG(doc)
	if svg == nil {
		return 0, 0, false
	}
	var w, h string
	for _, a := range svg.Attr {
		switch a.Key {
		case "width":
			w = a.Val
		case "height":
			h = a.Val
		}
	}
	width, errW := parseLength(w)
	height, errH := parseLength(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// parseLength parses an SVG length in user units or px.
func parseLength(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "px"), 64)
}
