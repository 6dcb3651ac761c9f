package transforms

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/prism/pkg/attrs"
)

func builtins() []*Definition {
	return []*Definition{
		{
			ID:          IDDirectCopy,
			Description: "Copy the first input unchanged",
			Fn:          directCopy,
		},
		{
			ID:          IDFirstNonNull,
			Description: "Select the first present, non-null input",
			Fn:          firstNonNull,
		},
		{
			ID:          IDPreserveString,
			Description: "Copy the first input as text without parsing it",
			Fn:          preserveString,
		},
		{
			ID:          IDToString,
			Description: "Alias of preserve_string",
			Fn:          preserveString,
		},
		{
			ID:          IDReconstructArray,
			Description: "Rebuild an array from prefix.N.field flattened keys",
			ParamSchema: map[string]string{
				ParamPrefix:           "string",
				ParamPreserveAsString: "[]string",
				ParamParseJSON:        "bool",
			},
			Fn: reconstructArray,
		},
		{
			ID:          IDParseJSON,
			Description: "Decode a JSON object or array held in a string",
			Fn:          parseJSON,
		},
		{
			ID:          IDJoin,
			Description: "Join present string inputs with a separator",
			ParamSchema: map[string]string{
				ParamSeparator: "string",
			},
			Fn: join,
		},
	}
}

func directCopy(in Input) (any, error) {
	if len(in.Args) == 0 {
		return nil, nil
	}
	return in.Args[0].V, nil
}

func firstNonNull(in Input) (any, error) {
	for _, a := range in.Args {
		if a.Present && a.V != nil {
			return a.V, nil
		}
	}
	return nil, nil
}

func preserveString(in Input) (any, error) {
	if len(in.Args) == 0 {
		return nil, nil
	}
	return PreserveString(in.Args[0].V), nil
}

// PreserveString returns strings verbatim and renders other scalars as text.
// Nil stays nil. Structured values are an anomaly for this transform and are
// encoded as compact JSON so the result is still a string.
func PreserveString(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return attrs.FormatScalar(x)
	}
}

func parseJSON(in Input) (any, error) {
	if len(in.Args) == 0 {
		return nil, nil
	}
	v := in.Args[0].V
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	parsed, ok := decodeJSONText(s)
	if !ok {
		return s, nil
	}
	return parsed, nil
}

// decodeJSONText decodes s when it holds a JSON object or array. Numbers are
// normalized to int64 or float64.
func decodeJSONText(s string) (any, bool) {
	t := strings.TrimSpace(s)
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	n, err := attrs.NormalizeValue(v)
	if err != nil {
		return nil, false
	}
	return n, true
}

func join(in Input) (any, error) {
	sep, err := stringParam(in.Params, ParamSeparator, "")
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(in.Args))
	for _, a := range in.Args {
		if !a.Present || a.V == nil {
			continue
		}
		parts = append(parts, attrs.FormatScalar(a.V))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return strings.Join(parts, sep), nil
}
