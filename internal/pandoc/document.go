// Package pandoc reads and writes the JSON document tree that pandoc
// exchanges with filters.
//
// A filter receives the tree on standard input:
//
//	{"pandoc-api-version":[1,23,1],"meta":{...},"blocks":[...]}
//
// Every element is an object with a "t" (type) key and, for most types, a
// "c" (content) key. Blocks are decoded into generic values so that element
// types this package does not know about round-trip unchanged. Numbers are
// kept as json.Number to avoid float conversion of integer fields.
package pandoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SupportedAPIMajor is the pandoc-types major version this package understands.
const SupportedAPIMajor = 1

// Sentinel errors for document decoding.
var (
	ErrEmptyInput         = errors.New("pandoc: empty input")
	ErrNotPandocJSON      = errors.New("pandoc: input is not a pandoc JSON document")
	ErrUnsupportedVersion = errors.New("pandoc: unsupported pandoc-api-version")
)

// Document is a pandoc document as seen by a JSON filter.
type Document struct {
	APIVersion []int           `json:"pandoc-api-version"`
	Meta       json.RawMessage `json:"meta"`
	Blocks     []any           `json:"blocks"`
}

// Metadata returns the document metadata store.
func (d *Document) Metadata() Meta {
	return NewMeta(d.Meta)
}

// ReadDocument decodes a pandoc JSON document.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pandoc: reading input: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a pandoc JSON document from bytes.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyInput
	}
	// Pandoc < 1.18 emitted [meta, blocks]; no api version to check.
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: legacy array format (pandoc < 1.18)", ErrUnsupportedVersion)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPandocJSON, err)
	}
	if len(doc.APIVersion) == 0 {
		return nil, fmt.Errorf("%w: missing pandoc-api-version", ErrNotPandocJSON)
	}
	if doc.APIVersion[0] != SupportedAPIMajor {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedVersion, doc.APIVersion)
	}
	if doc.Blocks == nil {
		doc.Blocks = []any{}
	}
	return &doc, nil
}

// WriteDocument encodes doc as pandoc JSON followed by a newline.
func WriteDocument(w io.Writer, doc *Document) error {
	out := *doc
	if len(out.Meta) == 0 {
		out.Meta = json.RawMessage("{}")
	}
	if out.Blocks == nil {
		out.Blocks = []any{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("pandoc: encoding document: %w", err)
	}
	return nil
}
