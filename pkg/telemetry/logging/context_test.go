package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithTraceID(ctx, "trace-abc")
	if got := GetTraceID(ctx); got != "trace-abc" {
		t.Errorf("GetTraceID() = %q, want %q", got, "trace-abc")
	}

	ctx = WithSpanID(ctx, "span-def")
	if got := GetSpanID(ctx); got != "span-def" {
		t.Errorf("GetSpanID() = %q, want %q", got, "span-def")
	}

	ctx = WithProvider(ctx, "openai")
	if got := GetProvider(ctx); got != "openai" {
		t.Errorf("GetProvider() = %q, want %q", got, "openai")
	}

	ctx = WithPattern(ctx, "openai.chat")
	if got := GetPattern(ctx); got != "openai.chat" {
		t.Errorf("GetPattern() = %q, want %q", got, "openai.chat")
	}

	ctx = WithBundleVersion(ctx, "1.2.0")
	if got := GetBundleVersion(ctx); got != "1.2.0" {
		t.Errorf("GetBundleVersion() = %q, want %q", got, "1.2.0")
	}
}

func TestContextKeys_Missing(t *testing.T) {
	ctx := context.Background()
	if got := GetSpanID(ctx); got != "" {
		t.Errorf("GetSpanID() = %q, want empty", got)
	}
}

func TestContextAttrs_Order(t *testing.T) {
	ctx := WithProvider(context.Background(), "openai")
	ctx = WithSpanID(ctx, "s")
	ctx = WithTraceID(ctx, "t")

	got := contextAttrs(ctx)
	want := []slog.Attr{slog.String("trace_id", "t"), slog.String("span_id", "s"), slog.String("provider", "openai")}
	if len(got) != len(want) {
		t.Fatalf("got %d attrs, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("attr %d = %v, want %v", i, got[i], want[i])
		}
	}
}
