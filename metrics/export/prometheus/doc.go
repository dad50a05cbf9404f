// Package prometheus renders tokenauth engine metrics in the Prometheus text
// exposition format. Mount [PrometheusExporter.Handler] on a scrape route;
// nothing is registered globally.
//
// Counters are named tokenauth_*_total. The validate and refresh latency
// histograms appear only when the engine records them. An Engine source
// additionally yields gauges for the refresh-token store.
//
// # What this package must NOT do
//
//   - Register collectors in a global registry. Callers mount the Handler.
//   - Mutate engine or refresh-store state.
package prometheus
