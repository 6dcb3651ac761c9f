// Package health provides liveness and readiness probes for long-running
// prism processes.
//
//	checker := health.New(0)
//	checker.Register("bundle", health.BundleCheck(holder))
//	checker.Mount(mux)
package health
