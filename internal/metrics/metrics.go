// Package metrics exposes the Prometheus collectors of the search service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nl2sparql"

// Metrics groups every collector
type Metrics struct {
	Translations     *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	BuilderFallbacks prometheus.Counter
	StoreRequests    *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Questions translated to SPARQL, by entity kind and analyzer mode.",
		}, []string{"entity_kind", "mode"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_hits_total",
			Help:      "Translations served from the cache.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_cache_misses_total",
			Help:      "Translations computed because the cache had no entry.",
		}),
		BuilderFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_fallbacks_total",
			Help:      "Intents the query builder downgraded to the minimal query.",
		}),
		StoreRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Requests sent to the triple store, by operation and outcome.",
		}, []string{"operation", "status"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Triple store round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// ObserveTranslation counts one translation
func (m *Metrics) ObserveTranslation(kind, mode string) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(kind, mode).Inc()
}

// CacheHit counts a translation served from the cache
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// CacheMiss counts a translation computed because the cache had no entry
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// BuilderFallback counts a query downgraded to the minimal form
func (m *Metrics) BuilderFallback() {
	if m == nil {
		return
	}
	m.BuilderFallbacks.Inc()
}

// ObserveStore records one store request; err decides the status label
func (m *Metrics) ObserveStore(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreRequests.WithLabelValues(operation, status).Inc()
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
