package pandoc

import (
	"maps"
	"slices"
)

// Element is one node of the tree as presented to a Visitor.
type Element struct {
	// Type is the element's "t" value.
	Type string
	// Value is the decoded element object.
	Value map[string]any
	// Seq is the element's position in document order, starting at 0.
	Seq int

	parent   []any
	index    int
	replaced bool
	skip     bool
}

// Node classifies the element. See Classify.
func (e *Element) Node() (Node, error) {
	return Classify(e.Value)
}

// Replace stores v in place of the element. It may be called after the
// walk has returned; the slot stays valid as long as the tree is not
// restructured. The walk does not descend into replacements.
func (e *Element) Replace(v any) {
	e.parent[e.index] = v
	e.replaced = true
}

// SkipChildren stops the walk from descending into the element.
func (e *Element) SkipChildren() {
	e.skip = true
}

// Visitor is called for every element in document order, parents before
// children. A non-nil error stops the walk.
type Visitor func(e *Element) error

// Walk visits every element reachable from blocks, depth-first.
func Walk(blocks []any, visit Visitor) error {
	w := walker{visit: visit}
	return w.slice(blocks)
}

type walker struct {
	visit Visitor
	seq   int
}

func (w *walker) slice(s []any) error {
	for i := range s {
		m, ok := s[i].(map[string]any)
		if !ok {
			if err := w.value(s[i]); err != nil {
				return err
			}
			continue
		}
		t, ok := m["t"].(string)
		if !ok {
			if err := w.value(m); err != nil {
				return err
			}
			continue
		}

		e := &Element{Type: t, Value: m, Seq: w.seq, parent: s, index: i}
		w.seq++
		if err := w.visit(e); err != nil {
			return err
		}
		if e.replaced || e.skip {
			continue
		}
		if err := w.value(m["c"]); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) value(v any) error {
	switch x := v.(type) {
	case []any:
		return w.slice(x)
	case map[string]any:
		// Elements only appear inside arrays; a bare object is a record
		// such as a table cell. Keys are sorted to keep document order stable.
		for _, k := range slices.Sorted(maps.Keys(x)) {
			if err := w.value(x[k]); err != nil {
				return err
			}
		}
	}
	return nil
}
