// Package telemetry groups prism's observability packages.
//
//   - logging: structured logging with context fields and redaction
//   - metrics: Prometheus metrics for translation and bundle loading
//   - health: liveness and readiness probes
package telemetry
