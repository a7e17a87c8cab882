package pandoc

import (
	"errors"
	"fmt"
	"slices"
)

// Element type names used by the filter.
const (
	TypeCodeBlock = "CodeBlock"
	TypeLink      = "Link"
	TypeImage     = "Image"
	TypePara      = "Para"
	TypeStr       = "Str"
)

// ErrMalformedElement indicates an element whose content does not match
// the shape pandoc defines for its type.
var ErrMalformedElement = errors.New("pandoc: malformed element")

// Node is the closed set of element kinds the filter distinguishes.
// Implementations are CodeBlock, Link and Other.
type Node interface {
	node()
}

// CodeBlock is a block of verbatim text: CodeBlock Attr Text.
type CodeBlock struct {
	Attr Attr
	Text string
}

// Link is an inline hyperlink: Link Attr [Inline] Target.
type Link struct {
	Attr    Attr
	Content []any
	Target  Target
}

// Other is any element the filter leaves untouched.
type Other struct {
	Type string
}

func (CodeBlock) node() {}
func (Link) node()      {}
func (Other) node()     {}

// Target is the (url, title) pair of links and images.
type Target struct {
	URL   string
	Title string
}

// Attr is the identifier, classes and key/value pairs attached to an element.
// Attribute order is preserved.
type Attr struct {
	ID         string
	Classes    []string
	Attributes [][2]string
}

// HasClass reports whether class is present.
func (a Attr) HasClass(class string) bool {
	return slices.Contains(a.Classes, class)
}

// Get returns the value of the first attribute named key.
func (a Attr) Get(key string) (string, bool) {
	for _, kv := range a.Attributes {
		if kv[0] == key {
			return kv[1], true
		}
	}
	return "", false
}

// WithoutClass returns a copy of a with every occurrence of class removed.
// Remaining classes keep their order.
func (a Attr) WithoutClass(class string) Attr {
	classes := make([]string, 0, len(a.Classes))
	for _, c := range a.Classes {
		if c != class {
			classes = append(classes, c)
		}
	}
	return Attr{
		ID:         a.ID,
		Classes:    classes,
		Attributes: slices.Clone(a.Attributes),
	}
}

// Value encodes a in pandoc's [id, [classes], [[k, v]]] form.
func (a Attr) Value() []any {
	classes := make([]any, len(a.Classes))
	for i, c := range a.Classes {
		classes[i] = c
	}
	kvs := make([]any, len(a.Attributes))
	for i, kv := range a.Attributes {
		kvs[i] = []any{kv[0], kv[1]}
	}
	return []any{a.ID, classes, kvs}
}

// Classify maps an element to its Node variant. Unknown element types
// yield Other; known types with an unexpected shape yield an error.
func Classify(elem map[string]any) (Node, error) {
	t, _ := elem["t"].(string)
	switch t {
	case TypeCodeBlock:
		return parseCodeBlock(elem["c"])
	case TypeLink:
		return parseLink(elem["c"])
	default:
		return Other{Type: t}, nil
	}
}

func parseCodeBlock(c any) (Node, error) {
	parts, ok := c.([]any)
	if !ok || len(parts) != 2 {
		return nil, fmt.Errorf("%w: CodeBlock content", ErrMalformedElement)
	}
	attr, err := parseAttr(parts[0])
	if err != nil {
		return nil, err
	}
	text, ok := parts[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: CodeBlock text", ErrMalformedElement)
	}
	return CodeBlock{Attr: attr, Text: text}, nil
}

func parseLink(c any) (Node, error) {
	parts, ok := c.([]any)
	if !ok || len(parts) != 3 {
		return nil, fmt.Errorf("%w: Link content", ErrMalformedElement)
	}
	attr, err := parseAttr(parts[0])
	if err != nil {
		return nil, err
	}
	content, ok := parts[1].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: Link inlines", ErrMalformedElement)
	}
	target, ok := parts[2].([]any)
	if !ok || len(target) != 2 {
		return nil, fmt.Errorf("%w: Link target", ErrMalformedElement)
	}
	url, ok1 := target[0].(string)
	title, ok2 := target[1].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: Link target", ErrMalformedElement)
	}
	return Link{Attr: attr, Content: content, Target: Target{URL: url, Title: title}}, nil
}

func parseAttr(v any) (Attr, error) {
	parts, ok := v.([]any)
	if !ok || len(parts) != 3 {
		return Attr{}, fmt.Errorf("%w: Attr", ErrMalformedElement)
	}

	id, ok := parts[0].(string)
	if !ok {
		return Attr{}, fmt.Errorf("%w: Attr identifier", ErrMalformedElement)
	}

	rawClasses, ok := parts[1].([]any)
	if !ok {
		return Attr{}, fmt.Errorf("%w: Attr classes", ErrMalformedElement)
	}
	classes := make([]string, 0, len(rawClasses))
	for _, rc := range rawClasses {
		s, ok := rc.(string)
		if !ok {
			return Attr{}, fmt.Errorf("%w: Attr class", ErrMalformedElement)
		}
		classes = append(classes, s)
	}

	rawKVs, ok := parts[2].([]any)
	if !ok {
		return Attr{}, fmt.Errorf("%w: Attr attributes", ErrMalformedElement)
	}
	kvs := make([][2]string, 0, len(rawKVs))
	for _, rkv := range rawKVs {
		pair, ok := rkv.([]any)
		if !ok || len(pair) != 2 {
			return Attr{}, fmt.Errorf("%w: Attr key/value", ErrMalformedElement)
		}
		k, ok1 := pair[0].(string)
		val, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return Attr{}, fmt.Errorf("%w: Attr key/value", ErrMalformedElement)
		}
		kvs = append(kvs, [2]string{k, val})
	}

	return Attr{ID: id, Classes: classes, Attributes: kvs}, nil
}

// NewElement builds a generic element. A nil content omits the "c" key,
// as pandoc does for Space and similar nullary elements.
func NewElement(t string, c any) map[string]any {
	if c == nil {
		return map[string]any{"t": t}
	}
	return map[string]any{"t": t, "c": c}
}

// NewImage builds Image Attr [Inline] Target.
func NewImage(attr Attr, caption []any, target Target) map[string]any {
	if caption == nil {
		caption = []any{}
	}
	return NewElement(TypeImage, []any{attr.Value(), caption, []any{target.URL, target.Title}})
}

// NewPara builds Para [Inline].
func NewPara(inlines ...any) map[string]any {
	if inlines == nil {
		inlines = []any{}
	}
	return NewElement(TypePara, inlines)
}

// NewStr builds Str Text.
func NewStr(text string) map[string]any {
	return NewElement(TypeStr, text)
}
