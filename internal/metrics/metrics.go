// Package metrics provides Prometheus metrics for a parrotdb store.
//
// Every metric is registered against a private *prometheus.Registry
// created per Metrics instance rather than the global default registerer,
// so that multiple stores opened in the same process (or repeated opens in
// a test binary) never collide on metric names.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric exported by a store.
type Metrics struct {
	registry *prometheus.Registry

	OpsTotal         *prometheus.CounterVec
	OpDuration       *prometheus.HistogramVec
	CommitsTotal     prometheus.Counter
	CommitDuration   prometheus.Histogram
	SplitsTotal      *prometheus.CounterVec
	CorruptionsTotal prometheus.Counter

	PageCount    prometheus.Gauge
	FreelistSize prometheus.Gauge
	TreeHeight   prometheus.Gauge
}

// New creates a Metrics instance and registers every collector against a
// fresh private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parrotdb_operations_total",
				Help: "Total number of Get/Put/Delete/Scan operations.",
			},
			[]string{"operation", "status"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parrotdb_operation_duration_seconds",
				Help:    "Duration of Get/Put/Delete/Scan operations.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"operation"},
		),
		CommitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parrotdb_commits_total",
				Help: "Total number of completed commits.",
			},
		),
		CommitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parrotdb_commit_duration_seconds",
				Help:    "Duration of the commit protocol (freelist write, meta write, fsync).",
				Buckets: prometheus.DefBuckets,
			},
		),
		SplitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parrotdb_splits_total",
				Help: "Total number of page splits, by kind (leaf/branch).",
			},
			[]string{"kind"},
		),
		CorruptionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parrotdb_corruptions_total",
				Help: "Total number of checksum or structural corruption errors detected.",
			},
		),
		PageCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parrotdb_page_count",
				Help: "Total number of pages in the database file.",
			},
		),
		FreelistSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parrotdb_freelist_size",
				Help: "Number of pages currently on the in-memory freelist.",
			},
		),
		TreeHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "parrotdb_tree_height",
				Help: "Height of the B+ tree rooted at the active meta page.",
			},
		),
	}
}

// Registry returns the private registry every collector is registered
// against, for an embedder to expose however it serves metrics; this
// package itself opens no network listener.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOp records the outcome and latency of a single operation.
func (m *Metrics) RecordOp(operation, status string, duration time.Duration) {
	m.OpsTotal.WithLabelValues(operation, status).Inc()
	m.OpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCommit records a completed commit.
func (m *Metrics) RecordCommit(duration time.Duration) {
	m.CommitsTotal.Inc()
	m.CommitDuration.Observe(duration.Seconds())
}

// RecordSplit records a page split of the given kind ("leaf" or "branch").
func (m *Metrics) RecordSplit(kind string) {
	m.SplitsTotal.WithLabelValues(kind).Inc()
}

// RecordCorruption records a detected corruption event.
func (m *Metrics) RecordCorruption() {
	m.CorruptionsTotal.Inc()
}

// UpdateGauges refreshes the point-in-time gauges from current pager/tree
// state.
func (m *Metrics) UpdateGauges(pageCount, freelistSize uint32, treeHeight int) {
	m.PageCount.Set(float64(pageCount))
	m.FreelistSize.Set(float64(freelistSize))
	m.TreeHeight.Set(float64(treeHeight))
}
