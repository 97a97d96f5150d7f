package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the page host exports.
type Metrics struct {
	registry *prometheus.Registry

	// Host call metrics
	HostCalls    *prometheus.CounterVec
	HostDuration *prometheus.HistogramVec

	// Pod metrics
	PodRoundTrips *prometheus.CounterVec
	PodDuration   *prometheus.HistogramVec
	SessionsOpen  prometheus.Gauge
	SlicesStaged  prometheus.Gauge
	SyncConflicts prometheus.Counter

	// UI metrics
	Viewports prometheus.Gauge
	Elements  prometheus.Gauge

	// Event loop metrics
	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram

	// Text cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the debug API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON debug endpoint.
type Snapshot struct {
	HostCalls     int64   `json:"host_calls"`
	HostErrors    int64   `json:"host_errors"`
	PodRoundTrips int64   `json:"pod_round_trips"`
	OpenSessions  int64   `json:"open_sessions"`
	TotalTickSecs float64 `json:"total_tick_seconds"`
	TickCount     int64   `json:"tick_count"`
}

// NewMetrics creates a metrics collector on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		HostCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrbhost_calls_total",
				Help: "Total number of host calls by operation and outcome",
			},
			[]string{"op", "status"},
		),
		HostDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wrbhost_call_duration_seconds",
				Help:    "Host call duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"op"},
		),

		PodRoundTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrbhost_pod_round_trips_total",
				Help: "Total number of storage node round trips",
			},
			[]string{"op", "status"},
		),
		PodDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wrbhost_pod_duration_seconds",
				Help:    "Storage node round trip duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		SessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wrbhost_pod_sessions_open",
				Help: "Number of open pod sessions",
			},
		),
		SlicesStaged: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wrbhost_pod_slices_staged",
				Help: "Number of slices staged for sync",
			},
		),
		SyncConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wrbhost_pod_sync_conflicts_total",
				Help: "Total number of version conflicts during slot sync",
			},
		),

		Viewports: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wrbhost_viewports",
				Help: "Number of registered viewports",
			},
		),
		Elements: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wrbhost_elements",
				Help: "Number of stored UI elements",
			},
		),

		Ticks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wrbhost_event_ticks_total",
				Help: "Total number of event loop ticks",
			},
		),
		TickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wrbhost_event_tick_duration_seconds",
				Help:    "Event loop tick duration in seconds",
				Buckets: []float64{.0001, .001, .005, .01, .033, .1, .25, 1},
			},
		),

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wrbhost_textcache_hits_total",
				Help: "Total number of text cache fast-path hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wrbhost_textcache_misses_total",
				Help: "Total number of text cache fast-path misses",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wrbhost_uptime_seconds",
				Help: "Page host uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHostCall records one host call with its outcome.
func (m *Metrics) RecordHostCall(op, status string, duration time.Duration) {
	m.HostCalls.WithLabelValues(op, status).Inc()
	m.HostDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.HostCalls++
	if status != "ok" {
		m.snapshot.HostErrors++
	}
	m.mu.Unlock()
}

// RecordPodRoundTrip records one storage node round trip.
func (m *Metrics) RecordPodRoundTrip(op, status string, duration time.Duration) {
	m.PodRoundTrips.WithLabelValues(op, status).Inc()
	m.PodDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.PodRoundTrips++
	m.mu.Unlock()
}

// RecordTick records one event loop tick.
func (m *Metrics) RecordTick(duration time.Duration) {
	m.Ticks.Inc()
	m.TickDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TickCount++
	m.snapshot.TotalTickSecs += duration.Seconds()
	m.mu.Unlock()
}

// SetSessionsOpen sets the open pod session gauge.
func (m *Metrics) SetSessionsOpen(count int) {
	m.SessionsOpen.Set(float64(count))
	m.mu.Lock()
	m.snapshot.OpenSessions = int64(count)
	m.mu.Unlock()
}

// SetViewports sets the registered viewport gauge.
func (m *Metrics) SetViewports(count int) {
	m.Viewports.Set(float64(count))
}

// SetElements sets the stored element gauge.
func (m *Metrics) SetElements(count int) {
	m.Elements.Set(float64(count))
}

// SetSlicesStaged sets the staged slice gauge.
func (m *Metrics) SetSlicesStaged(count int) {
	m.SlicesStaged.Set(float64(count))
}

// IncSyncConflict counts one stale-version rejection during sync.
func (m *Metrics) IncSyncConflict() {
	m.SyncConflicts.Inc()
}

// IncCacheHit counts one text cache fast-path hit.
func (m *Metrics) IncCacheHit() {
	m.CacheHits.Inc()
}

// IncCacheMiss counts one text cache fast-path miss.
func (m *Metrics) IncCacheMiss() {
	m.CacheMisses.Inc()
}

// GetSnapshot returns current values for the JSON debug endpoint.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
