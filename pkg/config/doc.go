// Package config loads the prism command's configuration.
//
// # Loading
//
// Configuration is read from a YAML file, defaults are applied, PRISM_*
// environment variables are layered on top, and the result is validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("prism.yaml")
//
// The loaded *Config is passed explicitly to the components that need it;
// there is no package-level instance.
//
// # Example
//
//	bundle:
//	  path: ./build/bundle
//	  mode: lazy
//	  watch: true
//	  schedule: "*/15 * * * *"
//	compiler:
//	  rules_dir: ./rules
//	  output: ./build/bundle
//	  format: split
//	engine:
//	  max_diagnostics: 32
//	telemetry:
//	  listen_address: 127.0.0.1:9464
//	  logging:
//	    level: info
//	    format: json
//
// # Environment Variables
//
// Each override is named PRISM_<SECTION>_<FIELD>:
//   - PRISM_BUNDLE_PATH, PRISM_BUNDLE_MODE, PRISM_BUNDLE_WATCH,
//     PRISM_BUNDLE_PRELOAD, PRISM_BUNDLE_SCHEDULE, PRISM_BUNDLE_DEBOUNCE_INTERVAL
//   - PRISM_COMPILER_RULES_DIR, PRISM_COMPILER_OUTPUT, PRISM_COMPILER_FORMAT
//   - PRISM_COMPILER_GIT_REPOSITORY, PRISM_COMPILER_GIT_BRANCH,
//     PRISM_COMPILER_GIT_PATH, PRISM_COMPILER_GIT_AUTH_TYPE,
//     PRISM_COMPILER_GIT_AUTH_TOKEN
//   - PRISM_ENGINE_MAX_DIAGNOSTICS, PRISM_ENGINE_LOG_DIAGNOSTICS
//   - PRISM_TELEMETRY_LISTEN_ADDRESS, PRISM_TELEMETRY_LOGGING_LEVEL,
//     PRISM_TELEMETRY_LOGGING_FORMAT, PRISM_TELEMETRY_LOGGING_REDACT,
//     PRISM_TELEMETRY_METRICS_ENABLED
package config
