// Package internaldefs holds the metric names and histogram buckets shared by
// the Prometheus and OTel exporters, so both expose identical series.
//
// It must not import goVerify or any exporter package.
package internaldefs
