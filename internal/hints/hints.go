// Package hints builds the "hint:" suffixes appended to CLI error messages.
// Every hint reads "\n  hint: <text>" so it lands on its own line under
// the error.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/pandoc-svgbob/internal/fileutil"
)

const prefix = "\n  hint: "

// ciVariables are set by the common CI services.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsInContainer reports whether the process runs inside Docker.
// A variable so tests can replace it.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a CI service variable is set.
func InCI() bool {
	for _, v := range ciVariables {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForRendererNotFound returns hints for a missing svgbob executable.
func ForRendererNotFound() string {
	return join("install it with 'cargo install svgbob_cli'", "or set renderer.binary / SVGBOB_BINARY to its path")
}

// ForRendererFailed returns a hint when the renderer exits with an error.
// Empty stderr usually means the binary is not svgbob at all.
func ForRendererFailed(stderr string) string {
	if strings.TrimSpace(stderr) != "" {
		return ""
	}
	return join("the renderer printed nothing; check that the binary is svgbob")
}

// ForBrowserConnect returns hints for Chrome start-up failures during PNG
// output. Sandbox and binary variables are only suggested when unset.
func ForBrowserConnect() string {
	var parts []string
	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		parts = append(parts, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		parts = append(parts, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	parts = append(parts, "or use --format svg to skip rasterizing")
	return join(parts...)
}

// ForTimeout returns a hint about increasing the renderer timeout.
func ForTimeout() string {
	return join("for large diagrams, use --timeout or renderer.timeout")
}

// ForConfigNotFound suggests --config, and the user config location
// among searched when there is one.
func ForConfigNotFound(searched []string) string {
	hint := "use --config /path/to/file.yaml"
	userDir := "pandoc-svgbob" + string(os.PathSeparator)
	for _, p := range searched {
		if strings.Contains(p, userDir) {
			return join(hint + " or create " + p)
		}
	}
	return join(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return join("check parent directory exists and is writable, or set --output-dir")
}

// ForLinkSource returns hints for unreadable link sources.
func ForLinkSource() string {
	return join("link targets are resolved against the directory pandoc runs in")
}

// ForStyleNotFound lists the embedded styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return join("available: " + strings.Join(available, ", "))
}

// join formats parts as one hint line separated by "; ".
func join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	return prefix + strings.Join(parts, "; ")
}
