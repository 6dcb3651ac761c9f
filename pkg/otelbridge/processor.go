package otelbridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/telemetry/logging"
)

// Sink receives translated spans.
type Sink interface {
	Consume(ctx context.Context, sc trace.SpanContext, res *engine.Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sc trace.SpanContext, res *engine.Result)

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, sc trace.SpanContext, res *engine.Result) {
	f(ctx, sc, res)
}

// Option configures a Processor.
type Option func(*Processor)

// WithUnmatched passes unmatched spans to the sink as well. By default only
// matched and failed spans are delivered.
func WithUnmatched() Option {
	return func(p *Processor) {
		p.unmatched = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Processor translates ended spans. It is safe for concurrent use.
type Processor struct {
	tr        *engine.Translator
	sink      Sink
	unmatched bool
	logger    *slog.Logger

	stopped atomic.Bool
	seen    atomic.Int64
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// NewProcessor creates a processor that translates spans with tr and
// delivers results to sink.
func NewProcessor(tr *engine.Translator, sink Sink, opts ...Option) *Processor {
	p := &Processor{
		tr:     tr,
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "otelbridge")
	return p
}

// OnStart does nothing; attributes are read when the span ends.
func (p *Processor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd translates the span and delivers the result.
func (p *Processor) OnEnd(s sdktrace.ReadOnlySpan) {
	if p.stopped.Load() {
		return
	}
	p.seen.Add(1)

	sc := s.SpanContext()
	ctx := context.Background()
	if sc.IsValid() {
		ctx = logging.WithTraceID(ctx, sc.TraceID().String())
		ctx = logging.WithSpanID(ctx, sc.SpanID().String())
	}

	res := p.tr.Translate(ctx, FromAttributes(s.Attributes()))
	if res.Status == engine.StatusUnmatched && !p.unmatched {
		return
	}
	if res.Status == engine.StatusFailed {
		p.logger.WarnContext(ctx, "Span translation failed", "span", s.Name(), "error", res.Err)
	}
	p.sink.Consume(ctx, sc, res)
}

// Seen returns the number of spans processed.
func (p *Processor) Seen() int64 {
	return p.seen.Load()
}

// Shutdown stops the processor. Spans ending afterwards are ignored.
func (p *Processor) Shutdown(ctx context.Context) error {
	p.stopped.Store(true)
	return ctx.Err()
}

// ForceFlush returns immediately; the processor holds no buffered spans.
func (p *Processor) ForceFlush(ctx context.Context) error {
	return ctx.Err()
}
