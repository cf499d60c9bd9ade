package metrics

import (
	"sync"
	"time"
)

// Counter metrics
const (
	CounterShipmentsCreated   = "shipments_created_total"
	CounterShipmentsForwarded = "shipments_forwarded_total"
	CounterShipmentsReceived  = "shipments_received_total"
	CounterShipmentsRedeemed  = "shipments_redeemed_total"
	CounterBatchesMinted      = "batches_minted_total"
	CounterLogAppendFailures  = "log_append_failures_total"
	CounterTransitionErrors   = "transition_errors_total"
)

// Gauge metrics
const (
	GaugeActiveShipments = "active_shipments"
)

// Metrics is the main metrics collector
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]int64
	timers   map[string]*timerEntry

	startTime time.Time
}

type timerEntry struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		gauges:    make(map[string]int64),
		timers:    make(map[string]*timerEntry),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// SetGauge sets a gauge to a value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// RecordDuration records a timing sample
func (m *Metrics) RecordDuration(name string, d time.Duration) {
	ms := d.Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.timers[name]
	if !ok {
		entry = &timerEntry{minTimeMs: ms, maxTimeMs: ms}
		m.timers[name] = entry
	}

	entry.count++
	entry.totalTimeMs += ms
	if ms < entry.minTimeMs {
		entry.minTimeMs = ms
	}
	if ms > entry.maxTimeMs {
		entry.maxTimeMs = ms
	}
}

// TimerSnapshot is a point-in-time view of one timer
type TimerSnapshot struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// Snapshot is a point-in-time view of all metrics
type Snapshot struct {
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Counters      map[string]int64         `json:"counters"`
	Gauges        map[string]int64         `json:"gauges"`
	Timers        map[string]TimerSnapshot `json:"timers"`
}

// GetSnapshot returns the current state of all metrics
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		Counters:      make(map[string]int64, len(m.counters)),
		Gauges:        make(map[string]int64, len(m.gauges)),
		Timers:        make(map[string]TimerSnapshot, len(m.timers)),
	}

	for name, value := range m.counters {
		snap.Counters[name] = value
	}
	for name, value := range m.gauges {
		snap.Gauges[name] = value
	}
	for name, entry := range m.timers {
		t := TimerSnapshot{
			Count:       entry.count,
			TotalTimeMs: entry.totalTimeMs,
			MinTimeMs:   entry.minTimeMs,
			MaxTimeMs:   entry.maxTimeMs,
		}
		if entry.count > 0 {
			t.AverageTimeMs = float64(entry.totalTimeMs) / float64(entry.count)
		}
		snap.Timers[name] = t
	}

	return snap
}
