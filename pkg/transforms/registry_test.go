package transforms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_IDs(t *testing.T) {
	assert.Equal(t, []string{
		IDDirectCopy,
		IDFirstNonNull,
		IDJoin,
		IDParseJSON,
		IDPreserveString,
		IDReconstructArray,
		IDToString,
	}, Default().IDs())
}

func TestRegistry_UnknownTransform(t *testing.T) {
	_, err := Default().Apply("eval_python", Input{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTransform))
	assert.Nil(t, Default().Lookup("eval_python"))
	assert.False(t, Default().Has("eval_python"))
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	fn := func(Input) (any, error) { return nil, nil }
	_, err := NewRegistry(&Definition{ID: "a", Fn: fn}, &Definition{ID: "a", Fn: fn})
	assert.Error(t, err)

	_, err = NewRegistry(&Definition{ID: "b"})
	assert.Error(t, err)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		args   []Value
		params map[string]any
		want   any
	}{
		{
			name: "direct copy",
			id:   IDDirectCopy,
			args: []Value{{V: "x", Present: true}},
			want: "x",
		},
		{
			name: "direct copy of nothing",
			id:   IDDirectCopy,
			want: nil,
		},
		{
			name: "first non null skips absent and null",
			id:   IDFirstNonNull,
			args: []Value{{}, {V: nil, Present: true}, {V: int64(0), Present: true}, {V: "later", Present: true}},
			want: int64(0),
		},
		{
			name: "first non null of nulls",
			id:   IDFirstNonNull,
			args: []Value{{V: nil, Present: true}},
			want: nil,
		},
		{
			name: "preserve string keeps json text",
			id:   IDPreserveString,
			args: []Value{{V: `{"a":1}`, Present: true}},
			want: `{"a":1}`,
		},
		{
			name: "preserve string renders numbers",
			id:   IDPreserveString,
			args: []Value{{V: 0.7, Present: true}},
			want: "0.7",
		},
		{
			name: "preserve string keeps null",
			id:   IDToString,
			args: []Value{{V: nil, Present: true}},
			want: nil,
		},
		{
			name: "parse json object",
			id:   IDParseJSON,
			args: []Value{{V: `{"loc":"SF","n":2}`, Present: true}},
			want: map[string]any{"loc": "SF", "n": int64(2)},
		},
		{
			name: "parse json leaves plain text",
			id:   IDParseJSON,
			args: []Value{{V: "hello", Present: true}},
			want: "hello",
		},
		{
			name: "parse json rejects trailing data",
			id:   IDParseJSON,
			args: []Value{{V: `{"a":1} {"b":2}`, Present: true}},
			want: `{"a":1} {"b":2}`,
		},
		{
			name:   "join",
			id:     IDJoin,
			args:   []Value{{V: "a", Present: true}, {}, {V: int64(2), Present: true}},
			params: map[string]any{ParamSeparator: "/"},
			want:   "a/2",
		},
		{
			name: "join of nothing",
			id:   IDJoin,
			args: []Value{{}},
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default().Apply(tt.id, Input{Args: tt.args, Params: tt.params})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckParams(t *testing.T) {
	d := Default().Lookup(IDReconstructArray)

	assert.NoError(t, CheckParams(d, map[string]any{
		ParamPreserveAsString: []any{"function.arguments"},
		ParamParseJSON:        true,
	}))
	assert.ErrorContains(t, CheckParams(d, map[string]any{"unknown": 1}), "does not accept")
	assert.ErrorContains(t, CheckParams(d, map[string]any{ParamParseJSON: "yes"}), "expected bool")
	assert.ErrorContains(t, CheckParams(d, map[string]any{ParamPreserveAsString: []any{1}}), "expected string")
}

func TestMergeParams(t *testing.T) {
	base := map[string]any{ParamSeparator: ",", "x": true}
	step := map[string]any{ParamSeparator: "/"}

	merged := MergeParams(base, step)
	assert.Equal(t, map[string]any{ParamSeparator: "/", "x": true}, merged)
	assert.Equal(t, ",", base[ParamSeparator])

	assert.Equal(t, step, MergeParams(nil, step))
	assert.Equal(t, base, MergeParams(base, nil))
}
