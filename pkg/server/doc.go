// Package server runs the telemetry HTTP listener of long-running prism
// commands.
//
// It serves Prometheus metrics and the liveness and readiness probes of a
// health.Checker, wraps them in recovery and request logging middleware, and
// manages start and graceful shutdown.
//
// # Basic Usage
//
//	checker := health.New(2 * time.Second)
//	checker.Register("bundle", health.BundleCheck(holder))
//
//	srv := server.New(server.Config{ListenAddress: ":9090"},
//	    collector.Handler(), checker, logger)
//	go func() {
//	    if err := srv.Start(ctx); err != nil {
//	        logger.Error("telemetry listener failed", "error", err)
//	    }
//	}()
//
// Start blocks until ctx is cancelled, Shutdown is called or the listener
// fails.
//
// # Routes
//
//   - /metrics (configurable): Prometheus exposition
//   - /healthz: liveness, always 200 while the process runs
//   - /readyz: readiness, 503 until every registered check passes
package server
