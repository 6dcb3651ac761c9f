package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)

	for _, want := range []string{
		"Prism " + Version,
		"Git Commit: " + GitCommit,
		"Bundle Format: 1.0.0",
		"Go Version: go",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("printVersion() output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestVersionCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "version" {
			found = true
		}
	}
	if !found {
		t.Error("version command not registered on root")
	}
}
