package transforms

import (
	"fmt"
	"maps"
	"sort"
)

// Parameter names understood by built-in transforms.
const (
	ParamPrefix           = "prefix"
	ParamPreserveAsString = "preserve_as_string"
	ParamParseJSON        = "parse_json"
	ParamSeparator        = "separator"
)

func stringParam(params map[string]any, name, def string) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q: expected string, got %T", name, v)
	}
	return s, nil
}

func boolParam(params map[string]any, name string, def bool) (bool, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %q: expected bool, got %T", name, v)
	}
	return b, nil
}

func stringsParam(params map[string]any, name string) ([]string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []string:
		return x, nil
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("param %q[%d]: expected string, got %T", name, i, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %q: expected list of strings, got %T", name, v)
	}
}

// CheckParams validates params against a definition's schema. Unknown
// parameters and type mismatches are reported; it is used by the compiler so
// that bad parameters fail the build instead of every span.
func CheckParams(d *Definition, params map[string]any) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		typ, ok := d.ParamSchema[name]
		if !ok {
			return fmt.Errorf("transform %q does not accept param %q", d.ID, name)
		}
		var err error
		switch typ {
		case "string":
			_, err = stringParam(params, name, "")
		case "bool":
			_, err = boolParam(params, name, false)
		case "[]string":
			_, err = stringsParam(params, name)
		}
		if err != nil {
			return fmt.Errorf("transform %q: %w", d.ID, err)
		}
	}
	return nil
}

// MergeParams overlays step params on catalog params. Neither input is
// modified.
func MergeParams(base, step map[string]any) map[string]any {
	if len(base) == 0 {
		return step
	}
	if len(step) == 0 {
		return base
	}
	out := maps.Clone(base)
	maps.Copy(out, step)
	return out
}
