package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/config"
	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/telemetry/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslateStream(t *testing.T) {
	b, err := bundle.Load(writeTestBundle(t, bundle.FormatJSON))
	if err != nil {
		t.Fatal(err)
	}

	input := strings.Join([]string{
		`{"ns.role": "assistant", "ns.tool_calls.0.id": "c1"}`,
		``,
		`{not json`,
		`{"ns": {"role": null}}`,
	}, "\n")

	var out bytes.Buffer
	if err := translateStream(context.Background(), engine.New(b), strings.NewReader(input), &out); err != nil {
		t.Fatalf("translateStream() error = %v", err)
	}

	results := decodeResults(t, out.Bytes())
	if len(results) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(results), out.String())
	}
	if results[0]["status"] != "matched" {
		t.Errorf("line 1 status = %v", results[0]["status"])
	}
	if results[1]["line"] != float64(3) || !strings.Contains(results[1]["error"].(string), "invalid JSON") {
		t.Errorf("line 3 = %v", results[1])
	}

	// An explicit null role is still present, so the pattern matches and
	// the null is carried through.
	outputs := results[2]["event"].(map[string]any)["outputs"].(map[string]any)
	if v, ok := outputs["role"]; !ok || v != nil {
		t.Errorf("outputs.role = %v (present %v), want explicit null", v, ok)
	}
}

func TestServe(t *testing.T) {
	for _, mode := range []string{config.ModeEager, config.ModeLazy} {
		mode := mode
		t.Run(mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.Bundle.Path = writeTestBundle(t, bundle.FormatSplit)
			cfg.Bundle.Mode = mode
			cfg.Bundle.Preload = mode == config.ModeLazy

			in := strings.NewReader(`{"gen_ai.system": "anthropic", "gen_ai.response.model": "claude"}` + "\n")
			var out bytes.Buffer
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := serve(ctx, cfg, discardLogger(), in, &out); err != nil {
				t.Fatalf("serve() error = %v", err)
			}
			results := decodeResults(t, out.Bytes())
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0]["bundle_version"] != "1.0.0" {
				t.Errorf("bundle_version = %v", results[0]["bundle_version"])
			}
		})
	}
}

func TestServeMissingBundle(t *testing.T) {
	cfg := config.Default()
	cfg.Bundle.Path = t.TempDir() + "/missing.json"

	err := serve(context.Background(), cfg, discardLogger(), strings.NewReader(""), io.Discard)
	if err == nil {
		t.Error("serve() with missing bundle should return error")
	}
}

func TestTelemetryServer(t *testing.T) {
	b, err := bundle.Load(writeTestBundle(t, bundle.FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
	collector.RecordBundleLoad(config.ModeEager, b, nil)

	h := telemetryServer(":0", "/metrics", collector, bundle.NewHolder(b), discardLogger()).Handler()

	tests := []struct {
		path string
		code int
		body string
	}{
		{path: "/healthz", code: http.StatusOK, body: "ok"},
		{path: "/readyz", code: http.StatusOK, body: "ready"},
		{path: "/metrics", code: http.StatusOK, body: "prism_bundle_info"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestLoaderFor(t *testing.T) {
	path := writeTestBundle(t, bundle.FormatSplit)

	var loads []string
	hook := func(provider string, _ time.Duration, err error) {
		if err == nil {
			loads = append(loads, provider)
		}
	}

	src, err := loaderFor(config.ModeLazy, false, hook, discardLogger())(path)
	if err != nil {
		t.Fatal(err)
	}
	lazy, ok := src.(*bundle.LazyBundle)
	if !ok {
		t.Fatalf("lazy loader returned %T", src)
	}
	if len(lazy.Loaded()) != 0 {
		t.Errorf("Loaded() = %v before any use", lazy.Loaded())
	}
	if _, err := lazy.Provider("ns"); err != nil {
		t.Fatal(err)
	}
	if len(loads) != 1 || loads[0] != "ns" {
		t.Errorf("hook loads = %v", loads)
	}

	src, err = loaderFor(config.ModeLazy, true, nil, discardLogger())(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(src.(*bundle.LazyBundle).Loaded()); got != 3 {
		t.Errorf("preloaded %d providers, want 3", got)
	}

	src, err = loaderFor(config.ModeEager, true, nil, discardLogger())(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*bundle.Bundle); !ok {
		t.Errorf("eager loader returned %T", src)
	}
}
