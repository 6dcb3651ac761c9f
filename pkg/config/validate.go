package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/prism/pkg/bundle"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "bundle.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration. All errors are collected
// and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError
	errs = append(errs, validateBundle(&cfg.Bundle)...)
	errs = append(errs, validateCompiler(&cfg.Compiler)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateBundle(cfg *BundleConfig) []FieldError {
	var errs []FieldError

	if cfg.Mode != ModeEager && cfg.Mode != ModeLazy {
		errs = append(errs, FieldError{
			Field:   "bundle.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'eager' or 'lazy'", cfg.Mode),
		})
	}
	if cfg.Preload && cfg.Mode != ModeLazy {
		errs = append(errs, FieldError{
			Field:   "bundle.preload",
			Message: "preload only applies to lazy mode",
		})
	}
	if (cfg.Watch || cfg.Schedule != "") && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "bundle.path",
			Message: "path is required when watch or schedule is set",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "bundle.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "bundle.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}
	return errs
}

func validateCompiler(cfg *CompilerConfig) []FieldError {
	var errs []FieldError
	if cfg.Format != "" {
		if _, err := bundle.ParseFormat(cfg.Format); err != nil {
			errs = append(errs, FieldError{Field: "compiler.format", Message: err.Error()})
		}
	}
	if cfg.Git.Enabled() {
		errs = append(errs, validateGit(&cfg.Git)...)
	}
	return errs
}

func validateGit(cfg *GitConfig) []FieldError {
	var errs []FieldError

	if cfg.Depth < 0 {
		errs = append(errs, FieldError{Field: "compiler.git.depth", Message: "depth must be >= 0"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "compiler.git.timeout", Message: "timeout must be positive"})
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "compiler.git.schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
		})
	}

	switch cfg.Auth.Type {
	case "none":
	case "token":
		if cfg.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "compiler.git.auth.token", Message: "token auth requires a token"})
		}
	case "ssh":
		if cfg.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "compiler.git.auth.ssh_key_path", Message: "ssh auth requires ssh_key_path"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "compiler.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token' or 'ssh'", cfg.Auth.Type),
		})
	}
	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	if err := cfg.Translator().Validate(); err != nil {
		return []FieldError{{Field: "engine.max_diagnostics", Message: err.Error()}}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		field := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if p.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{Field: field + ".pattern", Message: err.Error()})
		}
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("metrics path %q must start with '/'", cfg.Metrics.Path),
		})
	}
	if cfg.Metrics.MaxProviders < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.max_providers",
			Message: "max providers must be non-negative",
		})
	}
	return errs
}
