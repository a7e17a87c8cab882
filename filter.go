package svgbob

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/alnah/pandoc-svgbob/internal/pandoc"
)

// Filter rewrites a pandoc document, replacing marker-tagged code blocks
// and links with images.
//
// A Filter makes a single pass: elements without the marker class,
// including images produced by an earlier run, are left alone.
type Filter struct {
	conv     *Converter
	jobs     int
	failFast bool
	logger   *log.Logger
}

// Result summarizes one Apply call.
type Result struct {
	Converted int     // elements replaced
	Rendered  int     // renderer invocations
	Reused    int     // images kept from an earlier run
	Errors    []error // *NodeError for each element left unchanged
}

// NewFilter locates the renderer and returns a Filter.
// Returns ErrRendererNotFound before anything is written to disk.
func NewFilter(opts ...Option) (*Filter, error) {
	s := newSettings(opts)
	conv, err := newConverter(s)
	if err != nil {
		return nil, err
	}
	return &Filter{
		conv:     conv,
		jobs:     ResolveJobs(s.jobs),
		failFast: s.failFast,
		logger:   conv.logger,
	}, nil
}

// Converter returns the Converter used by the filter.
func (f *Filter) Converter() *Converter {
	return f.conv
}

// Close releases the converter's resources.
func (f *Filter) Close() error {
	return f.conv.Close()
}

// Visit converts a single node. It reports replaced=false, with a nil
// replacement, for nodes the filter does not touch.
func (f *Filter) Visit(ctx context.Context, node pandoc.Node, meta pandoc.Meta) (replacement map[string]any, replaced bool, err error) {
	t, err := f.plan(node, meta)
	if err != nil || t == nil {
		return nil, false, err
	}
	if _, err := f.conv.run(ctx, t); err != nil {
		return nil, false, err
	}
	return t.replacement, true, nil
}

// plan routes a node to the converter. A nil task means the node is not tagged.
func (f *Filter) plan(node pandoc.Node, meta pandoc.Meta) (*task, error) {
	switch n := node.(type) {
	case pandoc.CodeBlock:
		if !n.Attr.HasClass(MarkerClass) {
			return nil, nil
		}
		return f.conv.planCodeBlock(n, meta)
	case pandoc.Link:
		if !n.Attr.HasClass(MarkerClass) {
			return nil, nil
		}
		return f.conv.planLink(n, meta)
	case pandoc.Other:
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled node type %T", node)
	}
}

// pending ties a planned task to the element it replaces.
type pending struct {
	elem  *pandoc.Element
	task  *task
	owner int // index of the pending entry that renders this image
}

// Apply walks doc in document order and replaces every tagged element
// whose image could be produced.
//
// Without fail-fast, a failing element is left unchanged, logged and
// recorded in Result.Errors, and Apply returns a nil error. With
// fail-fast, the first failure is returned and the document must not be
// written.
func (f *Filter) Apply(ctx context.Context, doc *pandoc.Document) (*Result, error) {
	meta := doc.Metadata()
	result := &Result{}

	var work []pending
	owners := make(map[string]int)

	err := pandoc.Walk(doc.Blocks, func(e *pandoc.Element) error {
		node, err := e.Node()
		if err == nil {
			var t *task
			t, err = f.plan(node, meta)
			if err == nil && t != nil {
				e.SkipChildren()
				owner, seen := owners[t.imagePath]
				if !seen {
					owner = len(work)
					owners[t.imagePath] = owner
				}
				work = append(work, pending{elem: e, task: t, owner: owner})
				return nil
			}
		}
		if err != nil {
			e.SkipChildren()
			return f.fail(result, e, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Render each distinct image once.
	var unique []int
	for i, p := range work {
		if p.owner == i {
			unique = append(unique, i)
		}
	}
	outcomes := f.render(ctx, work, unique)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.failFast {
		for _, p := range work {
			if err := outcomes[p.owner].err; err != nil && !errors.Is(err, context.Canceled) {
				return nil, f.fail(result, p.elem, err)
			}
		}
	}

	for _, p := range work {
		if err := outcomes[p.owner].err; err != nil {
			_ = f.fail(result, p.elem, err)
			continue
		}
		p.elem.Replace(p.task.replacement)
		result.Converted++
	}
	for _, i := range unique {
		switch {
		case outcomes[i].err != nil:
		case outcomes[i].reused:
			result.Reused++
		default:
			result.Rendered++
		}
	}

	sortBySeq(result.Errors)

	f.logger.Debug("pass complete",
		"converted", result.Converted,
		"rendered", result.Rendered,
		"reused", result.Reused,
		"failed", len(result.Errors))
	return result, nil
}

// fail records a per-element error. It returns the wrapped error when the
// pass must stop.
func (f *Filter) fail(result *Result, e *pandoc.Element, err error) error {
	nodeErr := &NodeError{Kind: e.Type, ID: elementID(e), Seq: e.Seq, Err: err}
	if f.failFast {
		return nodeErr
	}
	f.logger.Warn("diagram left unchanged", "err", nodeErr)
	result.Errors = append(result.Errors, nodeErr)
	return nil
}

// outcome is the result of rendering one distinct image.
type outcome struct {
	reused bool
	err    error
}

// render runs the tasks at the given indexes and returns outcomes indexed
// like work. With fail-fast, the first error cancels the remaining tasks.
func (f *Filter) render(ctx context.Context, work []pending, indexes []int) []outcome {
	outcomes := make([]outcome, len(work))
	if len(indexes) == 0 {
		return outcomes
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runBatch(runCtx, f.jobs, indexes, func(ctx context.Context, i int) {
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome{err: err}
			return
		}
		reused, err := f.conv.run(ctx, work[i].task)
		outcomes[i] = outcome{reused: reused, err: err}
		if err != nil && f.failFast {
			cancel()
		}
	})

	return outcomes
}

// sortBySeq orders node errors by document position.
func sortBySeq(errs []error) {
	seq := func(err error) int {
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			return nodeErr.Seq
		}
		return -1
	}
	slices.SortStableFunc(errs, func(a, b error) int {
		return seq(a) - seq(b)
	})
}

// elementID returns the element's identifier when it has one.
func elementID(e *pandoc.Element) string {
	node, err := e.Node()
	if err != nil {
		return ""
	}
	switch n := node.(type) {
	case pandoc.CodeBlock:
		return n.Attr.ID
	case pandoc.Link:
		return n.Attr.ID
	default:
		return ""
	}
}
