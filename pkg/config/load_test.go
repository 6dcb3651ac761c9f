package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prism.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
bundle:
  path: ./build/bundle
  mode: lazy
  preload: true
  watch: true
  debounce_interval: 2s
  schedule: "*/5 * * * *"
compiler:
  rules_dir: ./rules
  output: ./build/bundle
  format: split
engine:
  max_diagnostics: 8
  log_diagnostics: false
telemetry:
  listen_address: 127.0.0.1:9464
  logging:
    level: debug
    format: console
    redact: false
    redact_patterns:
      - {name: ticket, pattern: "TKT-[0-9]+", replacement: "TKT-***"}
  metrics:
    enabled: false
    max_providers: 16
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Bundle.Mode != ModeLazy || !cfg.Bundle.Preload || !cfg.Bundle.Watch {
		t.Errorf("bundle = %+v", cfg.Bundle)
	}
	if cfg.Bundle.DebounceInterval != 2*time.Second {
		t.Errorf("DebounceInterval = %v, want 2s", cfg.Bundle.DebounceInterval)
	}
	if cfg.Compiler.Format != "split" {
		t.Errorf("Compiler.Format = %q", cfg.Compiler.Format)
	}

	ec := cfg.Engine.Translator()
	if ec.MaxDiagnostics != 8 || ec.LogDiagnostics {
		t.Errorf("Translator() = %+v", ec)
	}

	lc := cfg.Telemetry.Logging.Logger()
	if lc.Redact || lc.Level != "debug" || len(lc.RedactPatterns) != 1 {
		t.Errorf("Logger() = %+v", lc)
	}

	mc := cfg.Telemetry.Metrics.Collector()
	if mc.Enabled || mc.MaxProviders != 16 || mc.Namespace != DefaultMetricsNamespace {
		t.Errorf("Collector() = %+v", mc)
	}
	if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q", cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bundle.Mode != DefaultBundleMode {
		t.Errorf("Bundle.Mode = %q", cfg.Bundle.Mode)
	}
	if !cfg.Telemetry.Logging.Logger().Redact {
		t.Error("redaction should default to on")
	}
	if !cfg.Engine.Translator().LogDiagnostics {
		t.Error("diagnostic logging should default to on")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error %v does not wrap os.ErrNotExist", err)
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "bundel:\n  path: x\n"))
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "bundle:\n  mode: sometimes\n"))
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Errors[0].Field != "bundle.mode" {
		t.Errorf("Field = %q", ve.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "bundle:\n  path: ./a.json\n")
	t.Setenv("PRISM_BUNDLE_PATH", "./b.json")
	t.Setenv("PRISM_BUNDLE_WATCH", "true")
	t.Setenv("PRISM_BUNDLE_DEBOUNCE_INTERVAL", "250ms")
	t.Setenv("PRISM_ENGINE_MAX_DIAGNOSTICS", "3")
	t.Setenv("PRISM_ENGINE_LOG_DIAGNOSTICS", "false")
	t.Setenv("PRISM_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("PRISM_TELEMETRY_METRICS_ENABLED", "0")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Bundle.Path != "./b.json" || !cfg.Bundle.Watch {
		t.Errorf("bundle = %+v", cfg.Bundle)
	}
	if cfg.Bundle.DebounceInterval != 250*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.Bundle.DebounceInterval)
	}
	if ec := cfg.Engine.Translator(); ec.MaxDiagnostics != 3 || ec.LogDiagnostics {
		t.Errorf("engine = %+v", ec)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Collector().Enabled {
		t.Error("metrics should be disabled by env")
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("PRISM_BUNDLE_MODE", "lazy")
	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Bundle.Mode != ModeLazy {
		t.Errorf("Bundle.Mode = %q", cfg.Bundle.Mode)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValues(t *testing.T) {
	t.Setenv("PRISM_BUNDLE_WATCH", "maybe")
	t.Setenv("PRISM_ENGINE_MAX_DIAGNOSTICS", "many")
	t.Setenv("PRISM_BUNDLE_DEBOUNCE_INTERVAL", "soon")

	_, err := LoadConfigWithEnvOverrides("")
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(ve.Errors), ve)
	}
}

func TestLoadConfig_GitSource(t *testing.T) {
	path := writeConfig(t, `
compiler:
  output: ./bundle.json
  git:
    repository: https://example.com/rules.git
    path: providers
    depth: 1
    auth:
      type: token
      token: abc
`)
	t.Setenv("PRISM_COMPILER_GIT_BRANCH", "release")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	git := cfg.Compiler.Git
	if !git.Enabled() || git.Path != "providers" || git.Depth != 1 {
		t.Errorf("git = %+v", git)
	}
	if git.Branch != "release" {
		t.Errorf("Branch = %q, want release", git.Branch)
	}
	if git.Timeout != DefaultGitTimeout || git.Schedule != DefaultGitSchedule {
		t.Errorf("defaults not applied: %+v", git)
	}
}
