// Package otelbridge feeds OpenTelemetry spans into the translation engine.
//
// FromAttributes converts span attributes to the flattened map the engine
// reads. Processor is an sdktrace.SpanProcessor that translates every ended
// span and hands the result to a Sink:
//
//	tr := engine.New(b)
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithSpanProcessor(otelbridge.NewProcessor(tr, sink)),
//	)
//
// The processor only reads spans. It does not alter span lifecycle or
// export.
package otelbridge
