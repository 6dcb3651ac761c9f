package config

import (
	"time"

	"mercator-hq/prism/pkg/engine"
	"mercator-hq/prism/pkg/telemetry/logging"
	"mercator-hq/prism/pkg/telemetry/metrics"
)

// Config is the root configuration for the prism command.
type Config struct {
	// Bundle configures how the serving bundle is loaded and reloaded.
	Bundle BundleConfig `yaml:"bundle"`

	// Compiler configures rule compilation.
	Compiler CompilerConfig `yaml:"compiler"`

	// Engine configures the translator.
	Engine EngineConfig `yaml:"engine"`

	// Telemetry configures logging, metrics and probes.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BundleConfig configures bundle loading.
type BundleConfig struct {
	// Path is the bundle artifact: a .json or .json.gz file, or a split
	// directory.
	Path string `yaml:"path"`

	// Mode is "eager" or "lazy". Lazy mode reads provider sections of a
	// split bundle on first use.
	// Default: "eager".
	Mode string `yaml:"mode"`

	// Preload reads every provider section at startup in lazy mode.
	Preload bool `yaml:"preload"`

	// Watch reloads the bundle when it changes on disk.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a watched change reloads.
	// Default: 500ms.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Schedule is a cron expression for periodic reloads.
	Schedule string `yaml:"schedule"`
}

// CompilerConfig configures rule compilation.
type CompilerConfig struct {
	// RulesDir holds one YAML rule set per provider.
	// Default: "./rules".
	RulesDir string `yaml:"rules_dir"`

	// Output is where the compiled bundle is written.
	// Default: "./bundle.json".
	Output string `yaml:"output"`

	// Format is the output layout: "json", "json.gz" or "split". Empty
	// infers it from Output.
	Format string `yaml:"format"`

	// Git fetches rules from a repository instead of RulesDir.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a git rule source. It is enabled when Repository is
// set.
type GitConfig struct {
	// Repository is the clone URL or a local repository path.
	Repository string `yaml:"repository"`

	// Branch is checked out.
	// Default: "main".
	Branch string `yaml:"branch"`

	// Path is the rules directory inside the repository.
	// Default: repository root.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned. An existing clone is
	// reused.
	// Default: a directory under the system temp dir.
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. 0 clones everything.
	Depth int `yaml:"depth"`

	// Timeout bounds each clone or pull.
	// Default: 60s.
	Timeout time.Duration `yaml:"timeout"`

	// Schedule is a cron expression for polling the repository in
	// compile --watch mode.
	// Default: "@every 1m".
	Schedule string `yaml:"schedule"`

	Auth GitAuthConfig `yaml:"auth"`
}

// Enabled reports whether a repository is configured.
func (c GitConfig) Enabled() bool {
	return c.Repository != ""
}

// GitAuthConfig configures repository authentication.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	// Default: "none".
	Type string `yaml:"type"`

	// Token is an access token for HTTPS repositories.
	Token string `yaml:"token"`

	// SSHKeyPath is a private key file with 0600 permissions.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EngineConfig configures the translator.
type EngineConfig struct {
	// MaxDiagnostics bounds diagnostics kept per span.
	// Default: 64.
	MaxDiagnostics int `yaml:"max_diagnostics"`

	// LogDiagnostics logs every diagnostic at debug level.
	// Default: true.
	LogDiagnostics *bool `yaml:"log_diagnostics"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// ListenAddress serves /metrics, /healthz and /readyz for long-running
	// commands. Empty disables the listener.
	ListenAddress string `yaml:"listen_address"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info".
	Level string `yaml:"level"`

	// Format is "json", "text" or "console".
	// Default: "json".
	Format string `yaml:"format"`

	// AddSource includes file and line in records.
	AddSource bool `yaml:"add_source"`

	// Redact scrubs credentials and personal data from log values.
	// Default: true.
	Redact *bool `yaml:"redact"`

	// RedactPatterns adds to the built-in redaction patterns.
	RedactPatterns []logging.RedactPattern `yaml:"redact_patterns"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	// Default: true.
	Enabled *bool `yaml:"enabled"`

	// Namespace prefixes metric names.
	// Default: "prism".
	Namespace string `yaml:"namespace"`

	// Subsystem is inserted between namespace and name.
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path metrics are served on.
	// Default: "/metrics".
	Path string `yaml:"path"`

	// MaxProviders bounds distinct provider label values.
	// Default: 256.
	MaxProviders int `yaml:"max_providers"`
}

// Translator returns the engine configuration.
func (c EngineConfig) Translator() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.MaxDiagnostics = c.MaxDiagnostics
	if c.LogDiagnostics != nil {
		cfg.LogDiagnostics = *c.LogDiagnostics
	}
	return cfg
}

// Logger returns the logger configuration.
func (c LoggingConfig) Logger() logging.Config {
	return logging.Config{
		Level:          c.Level,
		Format:         c.Format,
		AddSource:      c.AddSource,
		Redact:         c.Redact == nil || *c.Redact,
		RedactPatterns: c.RedactPatterns,
	}
}

// Collector returns the metrics collector configuration.
func (c MetricsConfig) Collector() metrics.Config {
	return metrics.Config{
		Enabled:      c.Enabled == nil || *c.Enabled,
		Namespace:    c.Namespace,
		Subsystem:    c.Subsystem,
		MaxProviders: c.MaxProviders,
	}
}
