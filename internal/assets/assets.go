package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
)

//go:embed styles/*.css templates/*.html
var files embed.FS

// Sentinel errors for asset operations.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name") // empty, or contains separators or dots
	ErrAssetRead        = errors.New("failed to read asset")
)

// Default asset names.
const (
	DefaultStyleName = "default"
	PageTemplateName = "page"
)

// maxStyleFileBytes caps styles read from disk.
const maxStyleFileBytes = 1 << 20

// LoadStyle loads an embedded CSS style by name, without extension.
func LoadStyle(name string) (string, error) {
	return readEmbedded("styles", name, ".css", ErrStyleNotFound)
}

// LoadTemplate loads an embedded HTML template by name, without extension.
func LoadTemplate(name string) (string, error) {
	return readEmbedded("templates", name, ".html", ErrTemplateNotFound)
}

func readEmbedded(dir, name, ext string, notFound error) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	data, err := files.ReadFile(path.Join(dir, name+ext))
	if err != nil {
		return "", fmt.Errorf("%w: %q", notFound, name)
	}
	return string(data), nil
}

// Styles lists the embedded style names, sorted.
func Styles() []string {
	entries, err := fs.ReadDir(files, "styles")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".css"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ResolveStyle loads a style given either an embedded name or a path to a
// .css file. An empty value selects DefaultStyleName.
func ResolveStyle(nameOrPath string) (string, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultStyleName
	}
	if !strings.ContainsAny(nameOrPath, `/\`) && !strings.HasSuffix(nameOrPath, ".css") {
		return LoadStyle(nameOrPath)
	}

	info, err := os.Stat(nameOrPath)
	switch {
	case os.IsNotExist(err):
		return "", fmt.Errorf("%w: %s", ErrStyleNotFound, nameOrPath)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	case info.IsDir():
		return "", fmt.Errorf("%w: %s is a directory", ErrAssetRead, nameOrPath)
	case info.Size() > maxStyleFileBytes:
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetRead, nameOrPath, maxStyleFileBytes)
	}

	data, err := os.ReadFile(nameOrPath) // #nosec G304 -- style path is user-provided
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	return string(data), nil
}
