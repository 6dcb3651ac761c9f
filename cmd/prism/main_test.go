package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/prism/pkg/bundle"
	"mercator-hq/prism/pkg/compiler"
	"mercator-hq/prism/pkg/rules"
)

const (
	testRulesDir    = "../../pkg/conformance/testdata/rules"
	testFixturesDir = "../../pkg/conformance/testdata/fixtures"
)

// testCommand returns a command whose stdout is captured and whose logs are
// discarded.
func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cfgFile, logLevel, logFormat = "", "error", ""

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	return cmd, &out
}

// writeTestBundle compiles the shared test rules into dir in format.
func writeTestBundle(t *testing.T, format bundle.Format) string {
	t.Helper()
	sets, err := rules.LoadDirectory(context.Background(), testRulesDir)
	if err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	b, err := compiler.Compile(sets)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	name := "bundle.json"
	if format == bundle.FormatSplit {
		name = "bundle"
	}
	path := filepath.Join(t.TempDir(), name)
	if err := bundle.Write(path, b, format); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return path
}
