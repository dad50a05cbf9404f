// Package otel publishes tokenauth engine metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// Each engine counter becomes an Int64ObservableCounter; each latency
// histogram becomes one cumulative Int64ObservableGauge per bucket plus a
// count gauge.
//
// # What this package must NOT do
//
//   - Create, configure, or shut down a MeterProvider.
//   - Mutate engine or refresh-store state.
package otel
