// Package yamlutil wraps YAML parsing to isolate the external dependency.
// Config files and Markdown front matter both go through it.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize caps the bytes accepted by Unmarshal and UnmarshalStrict.
// Config files and front matter are small; anything larger is a mistake.
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// Unmarshal decodes data into v, ignoring keys v does not declare.
func Unmarshal(data []byte, v any) error {
	return decode(data, v)
}

// UnmarshalStrict decodes data into v and fails on unknown keys.
func UnmarshalStrict(data []byte, v any) error {
	return decode(data, v, yaml.Strict())
}

func decode(data []byte, v any, opts ...yaml.DecodeOption) error {
	switch {
	case len(data) == 0:
		return ErrNilData
	case len(data) > MaxInputSize:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	case v == nil:
		return ErrNilDestination
	}
	if err := yaml.UnmarshalWithOptions(data, v, opts...); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// frontMatterDelim opens and closes a YAML front matter block.
var frontMatterDelim = []byte("---")

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// rest of a Markdown document. ok is false when the document has no front
// matter, in which case body is the whole input. The closing delimiter may
// also be "...", as pandoc allows.
func SplitFrontMatter(content []byte) (front, body []byte, ok bool) {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))

	first, rest, found := bytes.Cut(content, []byte("\n"))
	if !found || !bytes.Equal(bytes.TrimRight(first, " \t\r"), frontMatterDelim) {
		return nil, content, false
	}

	offset := 0
	for offset <= len(rest) {
		line, tail, more := bytes.Cut(rest[offset:], []byte("\n"))
		trimmed := bytes.TrimRight(line, " \t\r")
		if bytes.Equal(trimmed, frontMatterDelim) || bytes.Equal(trimmed, []byte("...")) {
			return rest[:offset], tail, true
		}
		if !more {
			break
		}
		offset += len(line) + 1
	}
	return nil, content, false
}
