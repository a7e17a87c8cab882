package pandoc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Meta is a read-only view of the document metadata object.
type Meta struct {
	raw []byte
}

// NewMeta wraps the raw JSON of a pandoc "meta" object.
func NewMeta(raw []byte) Meta {
	return Meta{raw: raw}
}

// MetaFromValues builds metadata from a decoded YAML mapping, such as a
// Markdown front matter block. Mappings become MetaMap, sequences
// MetaList, booleans MetaBool and every other scalar MetaString.
func MetaFromValues(values map[string]any) (Meta, error) {
	obj := make(map[string]any, len(values))
	for k, v := range values {
		obj[k] = metaValue(v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return Meta{}, fmt.Errorf("encoding metadata: %w", err)
	}
	return NewMeta(raw), nil
}

func metaValue(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(x))
		for k, vv := range x {
			c[k] = metaValue(vv)
		}
		return NewElement("MetaMap", c)
	case map[any]any:
		c := make(map[string]any, len(x))
		for k, vv := range x {
			c[fmt.Sprint(k)] = metaValue(vv)
		}
		return NewElement("MetaMap", c)
	case []any:
		list := make([]any, len(x))
		for i, vv := range x {
			list[i] = metaValue(vv)
		}
		return NewElement("MetaList", list)
	case bool:
		return NewElement("MetaBool", x)
	case nil:
		return NewElement("MetaString", "")
	case string:
		return NewElement("MetaString", x)
	default:
		return NewElement("MetaString", fmt.Sprint(x))
	}
}

// Lookup returns the scalar value stored under key as text.
//
// A dotted key such as "svgbob.font-size" is looked up first as a literal
// top-level key, then as a path through nested MetaMap values, so both
//
//	svgbob.font-size: 20
//
// and
//
//	svgbob:
//	  font-size: 20
//
// are found. Maps and lists are not scalars and report false.
func (m Meta) Lookup(key string) (string, bool) {
	if len(m.raw) == 0 || key == "" {
		return "", false
	}

	if v := gjson.GetBytes(m.raw, escapePath(key)); v.Exists() {
		return metaScalar(v)
	}

	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return "", false
	}
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = escapePath(p)
	}
	// Nested values live under each MetaMap's "c" object.
	v := gjson.GetBytes(m.raw, strings.Join(escaped, ".c."))
	if !v.Exists() {
		return "", false
	}
	return metaScalar(v)
}

// metaScalar renders a MetaValue as plain text.
func metaScalar(v gjson.Result) (string, bool) {
	c := v.Get("c")
	switch v.Get("t").String() {
	case "MetaString":
		return c.String(), true
	case "MetaBool":
		if c.Bool() {
			return "true", true
		}
		return "false", true
	case "MetaInlines":
		return strings.TrimSpace(inlinesText(c)), true
	case "MetaBlocks":
		var parts []string
		for _, b := range c.Array() {
			switch b.Get("t").String() {
			case "Plain", "Para":
				parts = append(parts, inlinesText(b.Get("c")))
			}
		}
		return strings.TrimSpace(strings.Join(parts, " ")), true
	default:
		return "", false
	}
}

// inlinesText flattens a list of inline elements to text.
func inlinesText(inlines gjson.Result) string {
	var sb strings.Builder
	for _, in := range inlines.Array() {
		c := in.Get("c")
		switch in.Get("t").String() {
		case "Str":
			sb.WriteString(c.String())
		case "Space", "SoftBreak", "LineBreak":
			sb.WriteByte(' ')
		case "Code", "Math", "RawInline":
			sb.WriteString(c.Get("1").String())
		case "Quoted":
			q := `"`
			if c.Get("0.t").String() == "SingleQuote" {
				q = "'"
			}
			sb.WriteString(q + inlinesText(c.Get("1")) + q)
		case "Span", "Link", "Image":
			sb.WriteString(inlinesText(c.Get("1")))
		case "Emph", "Strong", "Underline", "Strikeout", "Superscript", "Subscript", "SmallCaps":
			sb.WriteString(inlinesText(c))
		}
	}
	return sb.String()
}

// escapePath escapes gjson path syntax so key is matched literally.
func escapePath(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
