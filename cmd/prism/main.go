// Prism translates OpenTelemetry span attributes into canonical events using
// declarative, per-provider rules compiled into a bundle.
//
// Usage:
//
//	# Compile a rules directory into a bundle
//	prism compile --rules rules/ --out bundle.json
//
//	# Check rules without writing anything
//	prism validate --rules rules/
//
//	# Show what a bundle contains
//	prism inspect --bundle bundle.json
//
//	# Translate attributes read from a file
//	prism translate --bundle bundle.json --attrs span.yaml
//
//	# Run golden fixtures
//	prism conformance --fixtures testdata/fixtures
//
//	# Translate JSON lines from stdin with hot reload and /metrics
//	prism serve --bundle bundle/ --mode lazy --watch --listen :9090
package main

func main() {
	Execute()
}
