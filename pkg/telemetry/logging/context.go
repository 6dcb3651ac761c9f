package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for span IDs.
	SpanIDKey contextKey = "span_id"

	// ProviderKey is the context key for provider ids.
	ProviderKey contextKey = "provider"

	// PatternKey is the context key for detection pattern ids.
	PatternKey contextKey = "pattern"

	// BundleVersionKey is the context key for the serving bundle's version.
	BundleVersionKey contextKey = "bundle_version"
)

// contextKeys is the order fields are attached to records in.
var contextKeys = []contextKey{TraceIDKey, SpanIDKey, ProviderKey, PatternKey, BundleVersionKey}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	return get(ctx, SpanIDKey)
}

// WithProvider adds a provider id to the context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// GetProvider retrieves the provider id from the context.
func GetProvider(ctx context.Context) string {
	return get(ctx, ProviderKey)
}

// WithPattern adds a pattern id to the context.
func WithPattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, PatternKey, pattern)
}

// GetPattern retrieves the pattern id from the context.
func GetPattern(ctx context.Context) string {
	return get(ctx, PatternKey)
}

// WithBundleVersion adds a bundle version to the context.
func WithBundleVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, BundleVersionKey, version)
}

// GetBundleVersion retrieves the bundle version from the context.
func GetBundleVersion(ctx context.Context) string {
	return get(ctx, BundleVersionKey)
}

func get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the known fields present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := get(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
