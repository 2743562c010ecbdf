package goVerify

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricVerifySuccess is an exported constant or variable used by the verification engine.
	MetricVerifySuccess MetricID = iota
	// MetricVerifyFailure is an exported constant or variable used by the verification engine.
	MetricVerifyFailure
	// MetricAccountLocked is an exported constant or variable used by the verification engine.
	MetricAccountLocked
	// MetricLockoutRejected is an exported constant or variable used by the verification engine.
	MetricLockoutRejected
	// MetricLockoutProbation is an exported constant or variable used by the verification engine.
	MetricLockoutProbation
	// MetricAccountUnlocked is an exported constant or variable used by the verification engine.
	MetricAccountUnlocked
	// MetricLoginSuccess is an exported constant or variable used by the verification engine.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the verification engine.
	MetricLoginFailure
	// MetricAccountCreated is an exported constant or variable used by the verification engine.
	MetricAccountCreated
	// MetricAccountDuplicate is an exported constant or variable used by the verification engine.
	MetricAccountDuplicate
	// MetricAccountConfirmed is an exported constant or variable used by the verification engine.
	MetricAccountConfirmed
	// MetricPasswordResetRequest is an exported constant or variable used by the verification engine.
	MetricPasswordResetRequest
	// MetricPasswordChanged is an exported constant or variable used by the verification engine.
	MetricPasswordChanged
	// MetricCodeSent is an exported constant or variable used by the verification engine.
	MetricCodeSent
	// MetricCodeDeliveryRateLimited is an exported constant or variable used by the verification engine.
	MetricCodeDeliveryRateLimited
	// MetricCodeVerified is an exported constant or variable used by the verification engine.
	MetricCodeVerified
	// MetricCodeRejected is an exported constant or variable used by the verification engine.
	MetricCodeRejected
	// MetricTOTPSuccess is an exported constant or variable used by the verification engine.
	MetricTOTPSuccess
	// MetricTOTPFailure is an exported constant or variable used by the verification engine.
	MetricTOTPFailure
	// MetricTokenRejected is an exported constant or variable used by the verification engine.
	MetricTokenRejected
	// MetricAccessCodeIssued is an exported constant or variable used by the verification engine.
	MetricAccessCodeIssued
	// MetricAccessCodeRedeemed is an exported constant or variable used by the verification engine.
	MetricAccessCodeRedeemed
	// MetricAccessCodeRejected is an exported constant or variable used by the verification engine.
	MetricAccessCodeRejected
	// MetricAddressCodeVerified is an exported constant or variable used by the verification engine.
	MetricAddressCodeVerified
	// MetricAddressCodeRejected is an exported constant or variable used by the verification engine.
	MetricAddressCodeRejected
	// MetricRequestAccepted is an exported constant or variable used by the verification engine.
	MetricRequestAccepted
	// MetricRequestRejected is an exported constant or variable used by the verification engine.
	MetricRequestRejected
	// MetricReplayDetected is an exported constant or variable used by the verification engine.
	MetricReplayDetected
	// MetricStoreUnavailable is an exported constant or variable used by the verification engine.
	MetricStoreUnavailable
	// MetricVerifyLatency is an exported constant or variable used by the verification engine.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. Each counter sits on its own
// cache line so hot counters do not false-share.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id. Disabled metrics and unknown ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram. Only MetricVerifyLatency has
// buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

// Bucket upper bounds: 5ms 25ms 50ms 100ms 250ms 500ms 1s +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}
