package invoker

import (
	"sync"
	"time"
)

// Metrics accumulates call statistics for one Invoker instance.
type Metrics struct {
	mu             sync.Mutex
	totalCalls     int64
	successes      int64
	failures       int64
	totalLatencyMs int64
	startedAt      time.Time
	now            func() time.Time
}

// MetricsSnapshot is a derived, point-in-time view of the counters.
type MetricsSnapshot struct {
	TotalCalls        int64   `json:"total_calls"`
	Successes         int64   `json:"successes"`
	Failures          int64   `json:"failures"`
	SuccessRate       float64 `json:"success_rate"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{now: time.Now}
	m.startedAt = m.now()
	return m
}

// RecordSuccess adds a successful call with its latency.
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCalls++
	m.successes++
	m.totalLatencyMs += latency.Milliseconds()
}

// RecordFailure adds a failed call with its latency.
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCalls++
	m.failures++
	m.totalLatencyMs += latency.Milliseconds()
}

// Snapshot returns the derived metrics view.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		TotalCalls: m.totalCalls,
		Successes:  m.successes,
		Failures:   m.failures,
	}
	if m.totalCalls > 0 {
		snap.SuccessRate = float64(m.successes) / float64(m.totalCalls)
		snap.AvgLatencyMs = float64(m.totalLatencyMs) / float64(m.totalCalls)
	}
	uptime := m.now().Sub(m.startedAt)
	snap.UptimeSeconds = uptime.Seconds()
	if uptime > 0 {
		snap.RequestsPerMinute = float64(m.totalCalls) / uptime.Minutes()
	}
	return snap
}

// Reset zeroes all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalCalls = 0
	m.successes = 0
	m.failures = 0
	m.totalLatencyMs = 0
	m.startedAt = m.now()
}
