// Package otel binds goVerify counters and histograms to OpenTelemetry
// instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goVerify.Engine.MetricsSnapshot] on each collection cycle. Callers own the
// MeterProvider.
package otel
