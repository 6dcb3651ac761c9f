package transforms

import (
	"fmt"
	"sort"
	"strconv"

	"mercator-hq/prism/pkg/attrs"
)

// ReconstructOptions controls Reconstruct.
type ReconstructOptions struct {
	// PreserveAsString lists element-relative leaf paths whose values must
	// stay raw strings. Index segments are ignored when matching, so
	// "content.text" and "content.0.text" are equivalent.
	PreserveAsString []string

	// ParseJSON decodes string leaves holding a JSON object or array.
	// Preserve-as-string leaves are never decoded.
	ParseJSON bool

	// Warn receives non-fatal anomalies (conflicting keys, excessive depth).
	Warn func(format string, args ...any)
}

// node is one position in the tree being rebuilt. A node is either a leaf
// holding a scalar or a container whose children are keyed by segment.
type node struct {
	leaf     bool
	value    any
	children map[string]*node
}

func newContainer() *node {
	return &node{children: make(map[string]*node)}
}

// Reconstruct rebuilds the array flattened under prefix in m. It never
// returns nil: a prefix with no prefix.<n> keys yields an empty array.
func Reconstruct(m attrs.Map, prefix string, opts ReconstructOptions) []any {
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	root := newContainer()
	start := len(prefix) + len(attrs.Separator)

	// WithPrefix is sorted, so a scalar at a.b is always seen before a
	// container at a.b.c; containers replace scalars deterministically.
	for _, key := range m.WithPrefix(prefix) {
		segs := attrs.SplitPath(key[start:])
		if len(segs) == 0 || !attrs.IsIndex(segs[0]) {
			continue
		}
		if len(segs) > attrs.MaxDepth {
			warn("key %q exceeds maximum depth %d", key, attrs.MaxDepth)
			continue
		}
		if hasEmptySegment(segs) {
			warn("key %q has an empty path segment", key)
			continue
		}
		if hasOversizedIndex(segs) {
			warn("key %q has an index above %d", key, attrs.MaxIndex)
			continue
		}
		insert(root, segs, m[key], key, warn)
	}

	preserve := make(map[string]struct{}, len(opts.PreserveAsString))
	for _, p := range opts.PreserveAsString {
		preserve[attrs.FieldPath(attrs.SplitPath(p))] = struct{}{}
	}

	b := &builder{preserve: preserve, parseJSON: opts.ParseJSON}
	return b.array(root, nil)
}

func hasOversizedIndex(segs []string) bool {
	for _, s := range segs {
		if i, ok := attrs.ParseIndex(s); ok && i > attrs.MaxIndex {
			return true
		}
	}
	return false
}

func hasEmptySegment(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return true
		}
	}
	return false
}

// insert writes value at segs below root, creating containers as needed.
func insert(root *node, segs []string, value any, key string, warn func(string, ...any)) {
	cur := root
	for i, s := range segs {
		child := cur.children[s]
		if i == len(segs)-1 {
			if child != nil && !child.leaf {
				warn("scalar at %q conflicts with nested keys; keeping nested keys", key)
				return
			}
			cur.children[s] = &node{leaf: true, value: value}
			return
		}
		if child == nil {
			child = newContainer()
			cur.children[s] = child
		} else if child.leaf {
			warn("nested key %q replaces scalar at %q", key, attrs.JoinPath(segs[:i+1]...))
			child.leaf = false
			child.value = nil
			child.children = make(map[string]*node)
		}
		cur = child
	}
}

type builder struct {
	preserve  map[string]struct{}
	parseJSON bool
}

// value materializes n. path holds the segments below the top-level element
// index and is only used to match preserve-as-string declarations. Recursion
// depth is bounded by attrs.MaxDepth through insert's input check.
func (b *builder) value(n *node, path []string) any {
	if n.leaf {
		return b.leaf(n.value, path)
	}
	if isArray(n) {
		return b.array(n, path)
	}

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(map[string]any, len(keys))
	for _, k := range keys {
		obj[k] = b.value(n.children[k], append(path, k))
	}
	return obj
}

// array materializes a container whose children are all index segments.
// Missing indices below the maximum are filled with empty objects.
func (b *builder) array(n *node, path []string) []any {
	maxIdx := -1
	for k := range n.children {
		if i, ok := attrs.ParseIndex(k); ok && i > maxIdx {
			maxIdx = i
		}
	}

	out := make([]any, maxIdx+1)
	for i := range out {
		child, ok := n.children[strconv.Itoa(i)]
		if !ok {
			out[i] = map[string]any{}
			continue
		}
		var childPath []string
		if path != nil {
			childPath = append(path, strconv.Itoa(i))
		} else {
			// Top-level element: paths below it are element-relative.
			childPath = []string{}
		}
		out[i] = b.value(child, childPath)
	}
	return out
}

func (b *builder) leaf(v any, path []string) any {
	if _, ok := b.preserve[attrs.FieldPath(path)]; ok && len(path) > 0 {
		return PreserveString(v)
	}
	if b.parseJSON {
		if s, ok := v.(string); ok {
			if parsed, ok := decodeJSONText(s); ok {
				return parsed
			}
		}
	}
	return v
}

func isArray(n *node) bool {
	if len(n.children) == 0 {
		return false
	}
	for k := range n.children {
		if !attrs.IsIndex(k) {
			return false
		}
	}
	return true
}

func reconstructArray(in Input) (any, error) {
	prefix, err := stringParam(in.Params, ParamPrefix, "")
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return nil, fmt.Errorf("reconstruct_array requires a prefix")
	}
	preserve, err := stringsParam(in.Params, ParamPreserveAsString)
	if err != nil {
		return nil, err
	}
	parse, err := boolParam(in.Params, ParamParseJSON, false)
	if err != nil {
		return nil, err
	}

	return Reconstruct(in.Attributes, prefix, ReconstructOptions{
		PreserveAsString: preserve,
		ParseJSON:        parse,
		Warn:             in.warn,
	}), nil
}
