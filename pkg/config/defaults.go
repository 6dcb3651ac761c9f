package config

import (
	"time"

	"mercator-hq/prism/pkg/engine"
)

// Default values for configuration fields.
const (
	DefaultBundleMode       = "eager"
	DefaultDebounceInterval = 500 * time.Millisecond

	DefaultRulesDir = "./rules"
	DefaultOutput   = "./bundle.json"

	DefaultGitBranch   = "main"
	DefaultGitTimeout  = 60 * time.Second
	DefaultGitSchedule = "@every 1m"
	DefaultGitAuthType = "none"

	DefaultMaxDiagnostics = engine.DefaultMaxDiagnostics

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace    = "prism"
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsMaxProviders = 256
)

// Bundle modes.
const (
	ModeEager = "eager"
	ModeLazy  = "lazy"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. Boolean fields
// that default to true are pointers so an explicit false survives.
func ApplyDefaults(cfg *Config) {
	if cfg.Bundle.Mode == "" {
		cfg.Bundle.Mode = DefaultBundleMode
	}
	if cfg.Bundle.DebounceInterval == 0 {
		cfg.Bundle.DebounceInterval = DefaultDebounceInterval
	}

	if cfg.Compiler.RulesDir == "" {
		cfg.Compiler.RulesDir = DefaultRulesDir
	}
	if cfg.Compiler.Output == "" {
		cfg.Compiler.Output = DefaultOutput
	}
	git := &cfg.Compiler.Git
	if git.Branch == "" {
		git.Branch = DefaultGitBranch
	}
	if git.Timeout == 0 {
		git.Timeout = DefaultGitTimeout
	}
	if git.Schedule == "" {
		git.Schedule = DefaultGitSchedule
	}
	if git.Auth.Type == "" {
		git.Auth.Type = DefaultGitAuthType
	}

	if cfg.Engine.MaxDiagnostics == 0 {
		cfg.Engine.MaxDiagnostics = DefaultMaxDiagnostics
	}
	if cfg.Engine.LogDiagnostics == nil {
		cfg.Engine.LogDiagnostics = boolPtr(true)
	}

	log := &cfg.Telemetry.Logging
	if log.Level == "" {
		log.Level = DefaultLogLevel
	}
	if log.Format == "" {
		log.Format = DefaultLogFormat
	}
	if log.Redact == nil {
		log.Redact = boolPtr(true)
	}

	m := &cfg.Telemetry.Metrics
	if m.Enabled == nil {
		m.Enabled = boolPtr(true)
	}
	if m.Namespace == "" {
		m.Namespace = DefaultMetricsNamespace
	}
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
	if m.MaxProviders == 0 {
		m.MaxProviders = DefaultMetricsMaxProviders
	}
}

func boolPtr(b bool) *bool {
	return &b
}
