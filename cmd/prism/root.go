package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/config"
	"mercator-hq/prism/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Prism - declarative span attribute translation",
	Long: `Prism turns the flat attributes of OpenTelemetry spans emitted by LLM
instrumentation into provider-neutral canonical events.

Provider knowledge lives in YAML rule sets, one per provider, which are
compiled into a versioned bundle:
  - Detection by exact required-key signature, then by fallback order
  - Extraction steps that copy, transform or rebuild nested arrays
  - Mapping of extracted fields into inputs, outputs, config and metadata

Configuration is read from --config and PRISM_* environment variables;
command flags take precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json, text, console")
}

// setup loads the configuration and builds the logger for a command. Logs go
// to the command's stderr so stdout carries only results.
func setup(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	lc := cfg.Telemetry.Logging.Logger()
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	lc.Writer = stderr(cmd)

	logger, err := logging.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func stderr(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
