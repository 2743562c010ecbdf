// Package prometheus renders goVerify metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goVerify.Engine] and exposes an
// [http.Handler]. Counter names are prefixed goverify_*_total; the single
// histogram is goverify_verify_latency_seconds. Nothing is registered in a
// global registry; callers mount the Handler.
package prometheus
