// Package metrics exposes Prometheus collectors for the generators.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache labels.
const (
	CacheFactory  = "factory"
	CacheEvent    = "event"
	CacheListener = "listener"
	CacheAdapter  = "adapter"
)

// Metrics holds the generator collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	failures       *prometheus.CounterVec
	installs       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. When reg is nil a
// private registry is created.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "cache_hits_total",
				Help:      "Generation cache hits",
			},
			[]string{"cache"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "cache_misses_total",
				Help:      "Generation cache misses that ran a synthesis",
			},
			[]string{"cache"},
		),
		cacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "cache_evictions_total",
				Help:      "Stale generation cache entries evicted",
			},
			[]string{"cache"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "syntheses_failed_total",
				Help:      "Failed syntheses",
			},
			[]string{"kind"},
		),
		installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "artifacts_installed_total",
				Help:      "Artifacts installed into a loader",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventsys",
				Subsystem: "gen",
				Name:      "synthesis_duration_seconds",
				Help:      "Duration of syntheses in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	if reg == nil {
		r := prometheus.NewRegistry()
		reg = r
		m.registry = r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheEvictions, m.failures, m.installs, m.duration)
	return m
}

// Gatherer returns the registry the collectors were registered on, or nil
// when it cannot gather.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// CacheEvictions records n evictions.
func (m *Metrics) CacheEvictions(cache string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheEvictions.WithLabelValues(cache).Add(float64(n))
}

// SynthesisFailed records a failed synthesis.
func (m *Metrics) SynthesisFailed(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// Installed records an installed artifact.
func (m *Metrics) Installed(kind string) {
	if m == nil {
		return
	}
	m.installs.WithLabelValues(kind).Inc()
}

// ObserveSynthesis records how long a synthesis took.
func (m *Metrics) ObserveSynthesis(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}
