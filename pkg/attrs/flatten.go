package attrs

import (
	"fmt"
	"sort"
	"strconv"
)

// Flatten encodes a nested value as a Map under prefix. Objects contribute
// their keys as path segments and arrays their positions; scalars become
// entries. Empty objects and arrays have no leaves and contribute nothing.
//
// The walk is iterative and stops descending at MaxDepth, returning an error
// naming the offending path.
func Flatten(prefix string, v any) (Map, error) {
	out := make(Map)
	if err := FlattenInto(out, prefix, v); err != nil {
		return nil, err
	}
	return out, nil
}

// FlattenInto is Flatten writing into an existing map.
func FlattenInto(out Map, prefix string, v any) error {
	type frame struct {
		path  string
		depth int
		value any
	}

	stack := []frame{{path: prefix, value: v}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > MaxDepth {
			return fmt.Errorf("flatten %q: nesting exceeds %d levels", f.path, MaxDepth)
		}

		switch x := f.value.(type) {
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			// Reverse order so the stack pops keys in ascending order.
			sort.Sort(sort.Reverse(sort.StringSlice(keys)))
			for _, k := range keys {
				stack = append(stack, frame{path: join(f.path, k), depth: f.depth + 1, value: x[k]})
			}
		case []any:
			for i := len(x) - 1; i >= 0; i-- {
				stack = append(stack, frame{path: join(f.path, strconv.Itoa(i)), depth: f.depth + 1, value: x[i]})
			}
		default:
			n, err := Normalize(x)
			if err != nil {
				return fmt.Errorf("flatten %q: %w", f.path, err)
			}
			if f.path == "" {
				return fmt.Errorf("flatten: scalar value requires a prefix")
			}
			out[f.path] = n
		}
	}
	return nil
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + Separator + seg
}
