package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/prism/pkg/attrs"
)

func TestReconstruct_ToolCalls(t *testing.T) {
	m := attrs.Map{
		"ns.role":                           "assistant",
		"ns.tool_calls.0.id":                "call_1",
		"ns.tool_calls.0.function.name":     "get_weather",
		"ns.tool_calls.0.function.arguments": `{"loc":"SF"}`,
	}

	got := Reconstruct(m, "ns.tool_calls", ReconstructOptions{
		PreserveAsString: []string{"function.arguments"},
		ParseJSON:        true,
	})

	assert.Equal(t, []any{
		map[string]any{
			"id": "call_1",
			"function": map[string]any{
				"name":      "get_weather",
				"arguments": `{"loc":"SF"}`,
			},
		},
	}, got)
}

func TestReconstruct_SparseIndices(t *testing.T) {
	m := attrs.Map{
		"p.0.x": "a",
		"p.2.x": "c",
	}

	got := Reconstruct(m, "p", ReconstructOptions{})

	require.Len(t, got, 3)
	assert.Equal(t, map[string]any{"x": "a"}, got[0])
	assert.Equal(t, map[string]any{}, got[1])
	assert.Equal(t, map[string]any{"x": "c"}, got[2])
}

func TestReconstruct_LeadingZeroSegments(t *testing.T) {
	m := attrs.Map{
		"p.0.x":           "a",
		"p.01.x":          "padded",
		"p.0.items.01":    "first",
		"p.0.items.1":     "second",
		"p.0.nested.00.y": "z",
	}

	got := Reconstruct(m, "p", ReconstructOptions{})

	// "01" is not an index: the top-level key is skipped and nested ones
	// become object keys.
	assert.Equal(t, []any{
		map[string]any{
			"x":      "a",
			"items":  map[string]any{"01": "first", "1": "second"},
			"nested": map[string]any{"00": map[string]any{"y": "z"}},
		},
	}, got)

	_, ok := attrs.ParseIndex("01")
	assert.False(t, ok)
	i, ok := attrs.ParseIndex("0")
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestReconstruct_NoKeysYieldsEmptyArray(t *testing.T) {
	got := Reconstruct(attrs.Map{"other.0.x": "a", "p": "scalar", "p.count": int64(1)}, "p", ReconstructOptions{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReconstruct_NestedArrays(t *testing.T) {
	m := attrs.Map{
		"msgs.0.role":             "user",
		"msgs.0.content.0.type":   "text",
		"msgs.0.content.0.text":   "hi",
		"msgs.0.content.1.type":   "image",
		"msgs.1.role":             "assistant",
		"msgs.1.content.2.text":   "late",
		"msgs.1.tool_calls.0.id":  "t1",
		"msgs.1.tool_calls.0.seq": int64(4),
	}

	got := Reconstruct(m, "msgs", ReconstructOptions{})

	assert.Equal(t, []any{
		map[string]any{
			"role": "user",
			"content": []any{
				map[string]any{"type": "text", "text": "hi"},
				map[string]any{"type": "image"},
			},
		},
		map[string]any{
			"role": "assistant",
			"content": []any{
				map[string]any{},
				map[string]any{},
				map[string]any{"text": "late"},
			},
			"tool_calls": []any{
				map[string]any{"id": "t1", "seq": int64(4)},
			},
		},
	}, got)
}

func TestReconstruct_ScalarElements(t *testing.T) {
	m := attrs.Map{
		"stop.0": "\n",
		"stop.1": "END",
	}
	assert.Equal(t, []any{"\n", "END"}, Reconstruct(m, "stop", ReconstructOptions{}))
}

func TestReconstruct_PreserveAsStringIsVerbatim(t *testing.T) {
	m := attrs.Map{
		"calls.0.args":        `{"a":1}`,
		"calls.0.other":       `{"b":2}`,
		"calls.1.args":        `[1,2]`,
		"calls.1.nested.args": `{"c":3}`,
	}

	got := Reconstruct(m, "calls", ReconstructOptions{
		PreserveAsString: []string{"args"},
		ParseJSON:        true,
	})

	require.Len(t, got, 2)
	first := got[0].(map[string]any)
	assert.Equal(t, `{"a":1}`, first["args"])
	assert.Equal(t, map[string]any{"b": int64(2)}, first["other"])

	second := got[1].(map[string]any)
	assert.Equal(t, `[1,2]`, second["args"])
	assert.Equal(t, map[string]any{"args": map[string]any{"c": int64(3)}}, second["nested"])
}

func TestReconstruct_WithoutParseJSONStringsStayStrings(t *testing.T) {
	m := attrs.Map{"c.0.payload": `{"a":1}`}
	got := Reconstruct(m, "c", ReconstructOptions{})
	assert.Equal(t, []any{map[string]any{"payload": `{"a":1}`}}, got)
}

func TestReconstruct_PreserveIgnoresIndexSegments(t *testing.T) {
	m := attrs.Map{"m.0.content.1.text": `{"x":true}`}
	got := Reconstruct(m, "m", ReconstructOptions{
		PreserveAsString: []string{"content.0.text"},
		ParseJSON:        true,
	})
	content := got[0].(map[string]any)["content"].([]any)
	assert.Equal(t, `{"x":true}`, content[1].(map[string]any)["text"])
}

func TestReconstruct_ConflictContainerWins(t *testing.T) {
	var warnings []string
	m := attrs.Map{
		"p.0.a":   "scalar",
		"p.0.a.b": "nested",
	}

	got := Reconstruct(m, "p", ReconstructOptions{
		Warn: func(format string, args ...any) { warnings = append(warnings, format) },
	})

	assert.Equal(t, []any{map[string]any{"a": map[string]any{"b": "nested"}}}, got)
	assert.Len(t, warnings, 1)
}

func TestReconstruct_IgnoresOversizedIndex(t *testing.T) {
	var warned bool
	m := attrs.Map{
		"p.0.x":         "ok",
		"p.999999999.x": "huge",
	}
	got := Reconstruct(m, "p", ReconstructOptions{Warn: func(string, ...any) { warned = true }})
	assert.Len(t, got, 1)
	assert.True(t, warned)
}

func TestReconstruct_ExplicitNullLeaf(t *testing.T) {
	got := Reconstruct(attrs.Map{"p.0.v": nil}, "p", ReconstructOptions{})
	assert.Equal(t, []any{map[string]any{"v": nil}}, got)
}

func TestReconstruct_RoundTrip(t *testing.T) {
	original := []any{
		map[string]any{
			"id":   "call_1",
			"type": "function",
			"function": map[string]any{
				"name":      "get_weather",
				"arguments": `{"loc":"SF","units":["c","f"]}`,
			},
		},
		map[string]any{
			"id": "call_2",
			"tags": []any{
				"a",
				map[string]any{"k": int64(1), "v": true},
			},
			"score": 0.5,
		},
	}

	flat, err := attrs.Flatten("llm.tool_calls", original)
	require.NoError(t, err)

	got := Reconstruct(flat, "llm.tool_calls", ReconstructOptions{
		PreserveAsString: []string{"function.arguments"},
		ParseJSON:        true,
	})

	assert.Equal(t, original, got)
}

func TestReconstruct_Deterministic(t *testing.T) {
	m := attrs.Map{}
	for _, k := range []string{"p.3.a", "p.1.b.0.c", "p.0.z", "p.1.b.2.c", "p.2"} {
		m[k] = k
	}

	first := Reconstruct(m, "p", ReconstructOptions{})
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Reconstruct(m, "p", ReconstructOptions{}))
	}
}

func TestReconstructArrayTransform(t *testing.T) {
	m := attrs.Map{"x.0.id": "a"}

	got, err := Default().Apply(IDReconstructArray, Input{
		Attributes: m,
		Params:     map[string]any{ParamPrefix: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": "a"}}, got)

	_, err = Default().Apply(IDReconstructArray, Input{Attributes: m})
	assert.Error(t, err)
}
