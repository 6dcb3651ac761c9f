package config

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/prism/pkg/telemetry/logging"
)

func TestValidate_Default(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad mode", func(c *Config) { c.Bundle.Mode = "hybrid" }, "bundle.mode"},
		{"preload eager", func(c *Config) { c.Bundle.Preload = true }, "bundle.preload"},
		{"watch without path", func(c *Config) { c.Bundle.Watch = true }, "bundle.path"},
		{"negative debounce", func(c *Config) { c.Bundle.DebounceInterval = -1 }, "bundle.debounce_interval"},
		{"bad schedule", func(c *Config) { c.Bundle.Path = "b.json"; c.Bundle.Schedule = "every day" }, "bundle.schedule"},
		{"bad format", func(c *Config) { c.Compiler.Format = "tar" }, "compiler.format"},
		{"negative diagnostics", func(c *Config) { c.Engine.MaxDiagnostics = -1 }, "engine.max_diagnostics"},
		{"bad level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{
			"bad redact pattern",
			func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []logging.RedactPattern{{Name: "x", Pattern: "[oops"}}
			},
			"telemetry.logging.redact_patterns[0].pattern",
		},
		{
			"unnamed redact pattern",
			func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []logging.RedactPattern{{Pattern: "x"}}
			},
			"telemetry.logging.redact_patterns[0].name",
		},
		{"bad metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"negative max providers", func(c *Config) { c.Telemetry.Metrics.MaxProviders = -1 }, "telemetry.metrics.max_providers"},
		{"git bad auth", func(c *Config) { c.Compiler.Git.Repository = "r"; c.Compiler.Git.Auth.Type = "kerberos" }, "compiler.git.auth.type"},
		{"git token missing", func(c *Config) { c.Compiler.Git.Repository = "r"; c.Compiler.Git.Auth.Type = "token" }, "compiler.git.auth.token"},
		{"git ssh key missing", func(c *Config) { c.Compiler.Git.Repository = "r"; c.Compiler.Git.Auth.Type = "ssh" }, "compiler.git.auth.ssh_key_path"},
		{"git bad schedule", func(c *Config) { c.Compiler.Git.Repository = "r"; c.Compiler.Git.Schedule = "soon" }, "compiler.git.schedule"},
		{"git negative depth", func(c *Config) { c.Compiler.Git.Repository = "r"; c.Compiler.Git.Depth = -1 }, "compiler.git.depth"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := Validate(cfg)
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Errors) != 1 || ve.Errors[0].Field != tt.field {
				t.Errorf("errors = %v, want one on %s", ve.Errors, tt.field)
			}
		})
	}
}

func TestValidate_ValidSchedule(t *testing.T) {
	cfg := Default()
	cfg.Bundle.Path = "bundle.json"
	cfg.Bundle.Schedule = "*/15 * * * *"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate_GitIgnoredWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Compiler.Git.Auth.Type = "kerberos"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "bundle.mode", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: bundle.mode: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("Error() = %q", got)
	}

	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("Error() = %q", got)
	}
}
