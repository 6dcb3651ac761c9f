// Package metrics provides Prometheus metrics for span translation.
//
// # Metrics
//
//   - prism_translations_total{provider,status}
//   - prism_translation_duration_seconds{status}
//   - prism_detections_total{provider,path}, path is exact, fallback or none
//   - prism_anomalies_total{provider,kind}
//   - prism_bundle_loads_total{mode,result}
//   - prism_provider_loads_total{provider,result}
//   - prism_bundle_info{version,build_id}
//
// Spans that match no pattern are counted under provider "none". Provider
// labels beyond Config.MaxProviders are folded into "other".
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//
//	lazy, err := bundle.OpenLazy(dir, bundle.WithLoadHook(collector.RecordProviderLoad))
//	collector.RecordBundleLoad("lazy", lazy, err)
//
//	tr := engine.New(lazy, engine.WithRecorder(collector))
//
//	http.Handle("/metrics", collector.Handler())
package metrics
