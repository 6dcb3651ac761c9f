package otelbridge

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/compiler"
	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/rules"
)

const nsRules = `
provider: ns
patterns:
  - id: ns.message
    source: message
    required_keys: [ns.role]
extractors:
  message:
    - {op: direct_copy, source_path: ns.role, target: role}
    - {op: reconstruct_array, source_path: ns.tags, target: tags}
    - {op: direct_copy, source_path: ns.tokens, target: tokens}
mappings:
  outputs:
    role: role
  metadata:
    tags: tags
    tokens: tokens
`

func TestFromAttributes(t *testing.T) {
	m := FromAttributes([]attribute.KeyValue{
		attribute.String("s", "x"),
		attribute.Int("i", 3),
		attribute.Float64("f", 0.5),
		attribute.Bool("b", true),
		attribute.StringSlice("ss", []string{"a", "b"}),
		attribute.Int64Slice("is", []int64{7}),
		attribute.BoolSlice("bs", []bool{false}),
		attribute.Float64Slice("fs", []float64{1.5, 2.5}),
		{},
	})

	assert.Equal(t, attrs.Map{
		"s":    "x",
		"i":    int64(3),
		"f":    0.5,
		"b":    true,
		"ss.0": "a",
		"ss.1": "b",
		"is.0": int64(7),
		"bs.0": false,
		"fs.0": 1.5,
		"fs.1": 2.5,
	}, m)
}

type recordingSink struct {
	mu      sync.Mutex
	results []*engine.Result
	spans   []trace.SpanContext
}

func (s *recordingSink) Consume(_ context.Context, sc trace.SpanContext, res *engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	s.spans = append(s.spans, sc)
}

func newTranslator(t *testing.T) *engine.Translator {
	t.Helper()
	rs, err := rules.NewParser().ParseBytes([]byte(nsRules), "ns.yaml")
	require.NoError(t, err)
	b, err := compiler.Compile([]*rules.RuleSet{rs})
	require.NoError(t, err)
	return engine.New(b)
}

func TestProcessor(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(newTranslator(t), sink)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "chat")
	span.SetAttributes(
		attribute.String("ns.role", "assistant"),
		attribute.StringSlice("ns.tags", []string{"a", "b"}),
		attribute.Int("ns.tokens", 12),
	)
	span.End()

	_, other := tracer.Start(context.Background(), "http")
	other.SetAttributes(attribute.String("http.method", "GET"))
	other.End()

	require.Len(t, sink.results, 1)
	res := sink.results[0]
	assert.Equal(t, engine.StatusMatched, res.Status)
	assert.Equal(t, "assistant", res.Event.Outputs["role"])
	assert.Equal(t, int64(12), res.Event.Metadata["tokens"])
	assert.Equal(t, []any{"a", "b"}, res.Event.Metadata["tags"])
	assert.Equal(t, span.SpanContext().SpanID(), sink.spans[0].SpanID())
	assert.Equal(t, int64(2), p.Seen())

	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestProcessor_Unmatched(t *testing.T) {
	var got []engine.Status
	p := NewProcessor(newTranslator(t), SinkFunc(func(_ context.Context, _ trace.SpanContext, res *engine.Result) {
		got = append(got, res.Status)
	}), WithUnmatched())
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(p))

	_, span := tp.Tracer("test").Start(context.Background(), "http")
	span.End()
	assert.Equal(t, []engine.Status{engine.StatusUnmatched}, got)

	require.NoError(t, p.Shutdown(context.Background()))
	_, span = tp.Tracer("test").Start(context.Background(), "late")
	span.SetAttributes(attribute.String("ns.role", "user"))
	span.End()
	assert.Len(t, got, 1)
}

func TestProcessor_FlushHonoursContext(t *testing.T) {
	p := NewProcessor(newTranslator(t), SinkFunc(func(context.Context, trace.SpanContext, *engine.Result) {}))
	assert.NoError(t, p.ForceFlush(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.ForceFlush(ctx), context.Canceled)
}
