// Package observability exports the health of the telemetry pipeline itself.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics methods are safe on a nil receiver so components can run without
// a registry (tests, one-shot mode).
type Metrics struct {
	built      prometheus.Counter
	buildTime  prometheus.Histogram
	overwrites prometheus.Counter
	emitted    prometheus.Counter
	empty      prometheus.Counter
	dropped    prometheus.Counter
	tracked    prometheus.Gauge
	subs       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		built: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysmoni_snapshots_built_total",
			Help: "Snapshots produced by the sampler.",
		}),
		buildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sysmoni_snapshot_build_seconds",
			Help:    "Time spent querying the platform for one snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		overwrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysmoni_cache_overwrites_total",
			Help: "Samples replaced in the latest-value cache before the aggregator read them.",
		}),
		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysmoni_windows_emitted_total",
			Help: "Aggregated snapshots published.",
		}),
		empty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysmoni_windows_empty_total",
			Help: "Emission windows skipped because no sample was folded.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sysmoni_publish_dropped_total",
			Help: "Published snapshots dropped because a subscriber was not keeping up.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysmoni_tracked_processes",
			Help: "Entries in the per-process smoothing table.",
		}),
		subs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysmoni_subscribers",
			Help: "Listeners currently attached to the publish hub.",
		}),
	}
	reg.MustRegister(m.built, m.buildTime, m.overwrites, m.emitted, m.empty, m.dropped, m.tracked, m.subs)
	return m
}

func (m *Metrics) SnapshotBuilt(d time.Duration) {
	if m == nil {
		return
	}
	m.built.Inc()
	m.buildTime.Observe(d.Seconds())
}

func (m *Metrics) CacheOverwritten() {
	if m == nil {
		return
	}
	m.overwrites.Inc()
}

func (m *Metrics) WindowEmitted() {
	if m == nil {
		return
	}
	m.emitted.Inc()
}

func (m *Metrics) WindowEmpty() {
	if m == nil {
		return
	}
	m.empty.Inc()
}

func (m *Metrics) PublishDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) SetTrackedProcesses(n int) {
	if m == nil {
		return
	}
	m.tracked.Set(float64(n))
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subs.Set(float64(n))
}
