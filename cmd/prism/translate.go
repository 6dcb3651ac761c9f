package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/prism/pkg/attrs"
	"mercator-hq/prism/pkg/engine"
)

var translateFlags struct {
	bundle string
	attrs  string
	mode   string
}

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate span attributes from a file",
	Long: `Translate one or more attribute documents with a compiled bundle.

The input holds YAML or JSON documents separated by "---". Each document is
either a flat map of dotted attribute keys or a nested object, which is
flattened first. One indented JSON result is written per document.

Examples:
  prism translate --bundle bundle.json --attrs span.yaml
  cat span.json | prism translate --bundle bundle/ --mode lazy --attrs -`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateFlags.bundle, "bundle", "b", "", "bundle file or split directory (default: bundle.path, then compiler.output from config)")
	translateCmd.Flags().StringVarP(&translateFlags.attrs, "attrs", "a", "", "attribute file, or - for stdin")
	translateCmd.Flags().StringVar(&translateFlags.mode, "mode", "", "load mode: eager, lazy (default from config)")
}

// resultLine is a translation result with its error as text.
type resultLine struct {
	*engine.Result
	Error string `json:"error,omitempty"`
}

func newResultLine(res *engine.Result) resultLine {
	line := resultLine{Result: res}
	if res.Err != nil {
		line.Error = res.Err.Error()
	}
	return line
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if translateFlags.attrs == "" {
		return fmt.Errorf("--attrs must be specified")
	}

	path := firstNonEmpty(translateFlags.bundle, cfg.Bundle.Path, cfg.Compiler.Output)
	mode := firstNonEmpty(translateFlags.mode, cfg.Bundle.Mode)
	src, err := loaderFor(mode, false, nil, logger.Slog())(path)
	if err != nil {
		return err
	}

	var in io.Reader
	if translateFlags.attrs == "-" {
		in = os.Stdin
		if cmd != nil {
			in = cmd.InOrStdin()
		}
	} else {
		f, err := os.Open(translateFlags.attrs)
		if err != nil {
			return fmt.Errorf("failed to open attributes: %w", err)
		}
		defer f.Close()
		in = f
	}

	tr := engine.New(src,
		engine.WithLogger(logger.Slog()),
		engine.WithConfig(cfg.Engine.Translator()),
	)
	return translateDocuments(context.Background(), tr, in, stdout(cmd))
}

// translateDocuments translates every YAML or JSON document in r.
func translateDocuments(ctx context.Context, tr *engine.Translator, r io.Reader, w io.Writer) error {
	dec := yaml.NewDecoder(r)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	for n := 1; ; n++ {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("document %d: %w", n, err)
		}
		if doc == nil {
			continue
		}
		m, err := attrs.Flatten("", doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}
		if err := enc.Encode(newResultLine(tr.Translate(ctx, m))); err != nil {
			return err
		}
	}
}
