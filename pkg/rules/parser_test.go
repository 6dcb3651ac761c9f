package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openaiRules = `
provider: openai
description: OpenAI chat completions
transforms:
  coalesce_model:
    implementation: first_non_null
    description: response model, else request model
patterns:
  - id: openai.chat
    source: chat_completion
    required_keys: [gen_ai.system, gen_ai.response.model]
    optional_keys: [gen_ai.request.temperature]
    value_constraints:
      gen_ai.system: openai
    confidence: 0.9
    priority: 10
  - id: openai.embeddings
    source: embeddings
    required_keys: [gen_ai.system, gen_ai.request.model]
extractors:
  chat_completion:
    - {op: direct_copy, source_path: gen_ai.response.model, target: model, fallback: null}
    - {op: direct_copy, source_path: gen_ai.request.temperature, target: temperature, fallback: 1}
    - op: reconstruct_array
      source_path: gen_ai.completion
      target: choices
      params:
        preserve_as_string: [tool_calls.function.arguments]
    - {op: transform, transform: coalesce_model, sources: [model, req_model], target: model_name}
mappings:
  outputs:
    choices: {source: choices, required: true}
    model: model_name
  config:
    temperature: {source: temperature, default: null}
`

func TestParser_ParseBytes(t *testing.T) {
	rs, err := NewParser().ParseBytes([]byte(openaiRules), "openai.yaml")
	require.NoError(t, err)

	assert.Equal(t, "openai", rs.Provider)
	require.Contains(t, rs.Transforms, "coalesce_model")
	assert.Equal(t, "first_non_null", rs.Transforms["coalesce_model"].Implementation)

	require.Len(t, rs.Patterns, 2)
	chat := rs.Patterns[0]
	assert.Equal(t, "openai.chat", chat.ID)
	assert.Equal(t, []string{"gen_ai.system", "gen_ai.response.model"}, chat.RequiredKeys)
	assert.Equal(t, map[string]any{"gen_ai.system": "openai"}, chat.ValueConstraints)
	assert.Equal(t, 0.9, chat.Confidence)
	assert.Equal(t, 10, chat.Priority)
	assert.Equal(t, 9, chat.Location.Line)

	emb := rs.Patterns[1]
	assert.Equal(t, DefaultConfidence, emb.Confidence)
	assert.Equal(t, DefaultPriority, emb.Priority)

	steps := rs.Extractors["chat_completion"]
	require.Len(t, steps, 4)
	assert.Equal(t, Literal{Set: true, Value: nil}, steps[0].Fallback)
	assert.Equal(t, Literal{Set: true, Value: int64(1)}, steps[1].Fallback)
	assert.Equal(t, Literal{}, steps[2].Fallback)
	assert.Equal(t, []any{"tool_calls.function.arguments"}, steps[2].Params["preserve_as_string"])
	assert.Equal(t, []string{"model", "req_model"}, steps[3].Sources)

	outputs := rs.Mappings["outputs"]
	assert.True(t, outputs["choices"].Required)
	assert.Equal(t, "model_name", outputs["model"].Source, "shorthand row")
	assert.Equal(t, Literal{}, outputs["model"].Default)
	assert.Equal(t, Literal{Set: true}, rs.Mappings["config"]["temperature"].Default)
}

func TestParser_StructuralErrors(t *testing.T) {
	src := `
provider: ""
color: blue
patterns:
  - source: s
  - id: p2
    source: s
    value_constraints:
      k: [1, 2]
extractors:
  s:
    - {source_path: a}
mappings:
  inputs:
    prompt: {required: true}
`
	_, err := NewParser().ParseBytes([]byte(src), "bad.yaml")
	require.Error(t, err)

	var el *ErrorList
	require.True(t, errors.As(err, &el))
	assert.Equal(t, 7, el.Count(), err.Error())
	assert.Len(t, el.ByType(ErrorTypeStructural), 7)
	for _, e := range el.Errors {
		assert.Equal(t, "bad.yaml", e.Location.File)
	}
}

func TestParser_SyntaxError(t *testing.T) {
	_, err := NewParser().ParseBytes([]byte("provider: [unclosed"), "broken.yaml")
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrorTypeSyntax, e.Type)
}

func TestParser_MaxFileSize(t *testing.T) {
	_, err := NewParser().WithMaxFileSize(10).ParseBytes([]byte(openaiRules), "big.yaml")
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrorTypeIO, e.Type)
}

func TestParser_ParseAddsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: x\npatterns:\n  - source: s\n"), 0o644))

	_, err := NewParser().Parse(path)
	var el *ErrorList
	require.True(t, errors.As(err, &el))
	require.Equal(t, 1, el.Count())
	assert.Contains(t, el.Errors[0].Context, "-> 3 |   - source: s")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("z.yaml", openaiRules)
	write("a.yml", "provider: anthropic\npatterns:\n  - {id: anthropic.messages, source: messages, required_keys: [gen_ai.system]}\n")
	write("notes.txt", "ignored")

	sets, err := LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "anthropic", sets[0].Provider)
	assert.Equal(t, "openai", sets[1].Provider)
}

func TestLoadDirectory_DuplicateProvider(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(openaiRules), 0o644))
	}

	_, err := LoadDirectory(context.Background(), dir)
	var el *ErrorList
	require.True(t, errors.As(err, &el))
	assert.Contains(t, el.Error(), `Provider "openai" is also declared`)
}

func TestLoadDirectory_Empty(t *testing.T) {
	_, err := LoadDirectory(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestLoadDirectory_MergesErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("patterns: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("provider: [\n"), 0o644))

	_, err := LoadDirectory(context.Background(), dir)
	var el *ErrorList
	require.True(t, errors.As(err, &el))
	assert.Equal(t, 2, el.Count())
}
