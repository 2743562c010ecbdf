package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	goVerify "github.com/MrEthical07/goVerify"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu              sync.RWMutex
	snapshot        goVerify.MetricsSnapshot
	dropped         uint64
	deliveryDropped uint64
}

func (f *fakeSource) MetricsSnapshot() goVerify.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := goVerify.MetricsSnapshot{
		Counters:   make(map[goVerify.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[goVerify.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) DeliveryDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.deliveryDropped
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goverify-test")

	src := &fakeSource{
		snapshot: goVerify.MetricsSnapshot{
			Counters: map[goVerify.MetricID]uint64{
				goVerify.MetricLoginSuccess:  3,
				goVerify.MetricAccountLocked: 2,
			},
			Histograms: map[goVerify.MetricID][]uint64{
				goVerify.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped:         1,
		deliveryDropped: 4,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := map[string]int64{
		"goverify_login_success_total":                  3,
		"goverify_account_locked_total":                 2,
		"goverify_verify_latency_seconds_bucket_le_1":   7,
		"goverify_verify_latency_seconds_bucket_le_inf": 8,
		"goverify_verify_latency_seconds_count":         8,
		"goverify_audit_dropped_total":                  1,
		"goverify_delivery_dropped_total":               4,
	}
	for name, v := range want {
		got, ok := findInt64(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != v {
			t.Fatalf("metric %s = %d, want %d", name, got, v)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goverify-test")

	if _, err := NewOTelExporterFromSource(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("goverify-test")

	src := &fakeSource{
		snapshot: goVerify.MetricsSnapshot{
			Counters: map[goVerify.MetricID]uint64{
				goVerify.MetricVerifyFailure: 1,
			},
			Histograms: map[goVerify.MetricID][]uint64{
				goVerify.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[goVerify.MetricVerifyFailure] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
