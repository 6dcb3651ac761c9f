package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRISM_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies PRISM_* environment overrides, which take precedence over the
// file. An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies PRISM_SECTION_FIELD overrides. Values that do
// not parse are reported as field errors.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError
	str := func(name string, dst *string) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(name, field string, set func(bool)) {
		val, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || val == "" {
			return
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s%s: %v", EnvPrefix, name, err)})
			return
		}
		set(b)
	}
	integer := func(name, field string, dst *int) {
		val, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || val == "" {
			return
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s%s: %v", EnvPrefix, name, err)})
			return
		}
		*dst = i
	}

	// Bundle overrides
	str("BUNDLE_PATH", &cfg.Bundle.Path)
	str("BUNDLE_MODE", &cfg.Bundle.Mode)
	str("BUNDLE_SCHEDULE", &cfg.Bundle.Schedule)
	boolean("BUNDLE_WATCH", "bundle.watch", func(b bool) { cfg.Bundle.Watch = b })
	boolean("BUNDLE_PRELOAD", "bundle.preload", func(b bool) { cfg.Bundle.Preload = b })
	if val := os.Getenv(EnvPrefix + "BUNDLE_DEBOUNCE_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			errs = append(errs, FieldError{Field: "bundle.debounce_interval", Message: err.Error()})
		} else {
			cfg.Bundle.DebounceInterval = d
		}
	}

	// Compiler overrides
	str("COMPILER_RULES_DIR", &cfg.Compiler.RulesDir)
	str("COMPILER_OUTPUT", &cfg.Compiler.Output)
	str("COMPILER_FORMAT", &cfg.Compiler.Format)
	str("COMPILER_GIT_REPOSITORY", &cfg.Compiler.Git.Repository)
	str("COMPILER_GIT_BRANCH", &cfg.Compiler.Git.Branch)
	str("COMPILER_GIT_PATH", &cfg.Compiler.Git.Path)
	str("COMPILER_GIT_AUTH_TYPE", &cfg.Compiler.Git.Auth.Type)
	str("COMPILER_GIT_AUTH_TOKEN", &cfg.Compiler.Git.Auth.Token)

	// Engine overrides
	integer("ENGINE_MAX_DIAGNOSTICS", "engine.max_diagnostics", &cfg.Engine.MaxDiagnostics)
	boolean("ENGINE_LOG_DIAGNOSTICS", "engine.log_diagnostics", func(b bool) { cfg.Engine.LogDiagnostics = &b })

	// Telemetry overrides
	str("TELEMETRY_LISTEN_ADDRESS", &cfg.Telemetry.ListenAddress)
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_LOGGING_REDACT", "telemetry.logging.redact", func(b bool) { cfg.Telemetry.Logging.Redact = &b })
	boolean("TELEMETRY_METRICS_ENABLED", "telemetry.metrics.enabled", func(b bool) { cfg.Telemetry.Metrics.Enabled = &b })

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
