package swx

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the commit-latency histogram buckets in
// nanoseconds, logarithmically spaced from 1us to 10s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks control-plane activity: how many entries flow through
// the staging sets, how many commits succeed or roll back, and how long
// a commit takes end to end (the whole PipelineCommit call, rollfwd0
// through rollfwd2 or rollback).
type Metrics struct {
	EntriesAdded    atomic.Uint64
	EntriesDeleted  atomic.Uint64
	DefaultsUpdated atomic.Uint64

	Commits         atomic.Uint64
	CommitFailures  atomic.Uint64
	CommitRollbacks atomic.Uint64
	Aborts          atomic.Uint64

	TotalCommitLatencyNs atomic.Uint64
	CommitCount          atomic.Uint64
	CommitLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates an empty metrics instance with its start time set
// to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordEntryAdd records one staged table_entry_add.
func (m *Metrics) RecordEntryAdd() { m.EntriesAdded.Add(1) }

// RecordEntryDelete records one staged table_entry_delete.
func (m *Metrics) RecordEntryDelete() { m.EntriesDeleted.Add(1) }

// RecordDefaultUpdate records one staged table_default_entry_add.
func (m *Metrics) RecordDefaultUpdate() { m.DefaultsUpdated.Add(1) }

// RecordCommit records the outcome and latency of one pipeline_commit.
func (m *Metrics) RecordCommit(latencyNs uint64, rolledBack bool, err error) {
	m.Commits.Add(1)
	if err != nil {
		m.CommitFailures.Add(1)
	}
	if rolledBack {
		m.CommitRollbacks.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordAbort records one pipeline_abort call.
func (m *Metrics) RecordAbort() { m.Aborts.Add(1) }

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalCommitLatencyNs.Add(latencyNs)
	m.CommitCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.CommitLatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time read of Metrics, with derived rates.
type MetricsSnapshot struct {
	EntriesAdded    uint64
	EntriesDeleted  uint64
	DefaultsUpdated uint64

	Commits         uint64
	CommitFailures  uint64
	CommitRollbacks uint64
	Aborts          uint64

	AvgCommitLatencyNs uint64
	CommitLatencyHist  [numLatencyBuckets]uint64

	UptimeNs    uint64
	CommitRate  float64 // commits per second
	FailureRate float64 // percentage of commits that failed
}

// Snapshot takes a point-in-time snapshot of m, computing derived rates.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EntriesAdded:    m.EntriesAdded.Load(),
		EntriesDeleted:  m.EntriesDeleted.Load(),
		DefaultsUpdated: m.DefaultsUpdated.Load(),
		Commits:         m.Commits.Load(),
		CommitFailures:  m.CommitFailures.Load(),
		CommitRollbacks: m.CommitRollbacks.Load(),
		Aborts:          m.Aborts.Load(),
	}

	if count := m.CommitCount.Load(); count > 0 {
		snap.AvgCommitLatencyNs = m.TotalCommitLatencyNs.Load() / count
	}
	for i := 0; i < numLatencyBuckets; i++ {
		snap.CommitLatencyHist[i] = m.CommitLatencyBuckets[i].Load()
	}

	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())
	if snap.UptimeNs > 0 {
		snap.CommitRate = float64(snap.Commits) / (float64(snap.UptimeNs) / 1e9)
	}
	if snap.Commits > 0 {
		snap.FailureRate = float64(snap.CommitFailures) / float64(snap.Commits) * 100.0
	}
	return snap
}

// Reset zeroes every counter and restarts the uptime clock. Useful for
// tests that assert on a clean metrics window.
func (m *Metrics) Reset() {
	m.EntriesAdded.Store(0)
	m.EntriesDeleted.Store(0)
	m.DefaultsUpdated.Store(0)
	m.Commits.Store(0)
	m.CommitFailures.Store(0)
	m.CommitRollbacks.Store(0)
	m.Aborts.Store(0)
	m.TotalCommitLatencyNs.Store(0)
	m.CommitCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.CommitLatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
}

// Observer allows pluggable collection of control-plane events, the same
// seam the commit engine's logger uses but for metrics backends (e.g. a
// Prometheus exporter) instead of text logs.
type Observer interface {
	ObserveEntryAdd()
	ObserveEntryDelete()
	ObserveDefaultUpdate()
	ObserveCommit(latencyNs uint64, rolledBack bool, err error)
	ObserveAbort()
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEntryAdd()                  {}
func (NoOpObserver) ObserveEntryDelete()               {}
func (NoOpObserver) ObserveDefaultUpdate()             {}
func (NoOpObserver) ObserveCommit(uint64, bool, error) {}
func (NoOpObserver) ObserveAbort()                     {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver builds an Observer backed by m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEntryAdd()      { o.metrics.RecordEntryAdd() }
func (o *MetricsObserver) ObserveEntryDelete()   { o.metrics.RecordEntryDelete() }
func (o *MetricsObserver) ObserveDefaultUpdate() { o.metrics.RecordDefaultUpdate() }
func (o *MetricsObserver) ObserveCommit(latencyNs uint64, rolledBack bool, err error) {
	o.metrics.RecordCommit(latencyNs, rolledBack, err)
}
func (o *MetricsObserver) ObserveAbort() { o.metrics.RecordAbort() }

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
