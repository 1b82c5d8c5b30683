// Package metrics holds the Prometheus instruments for the site server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
	ResultError  = "error"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	ContentFetchTotal       *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec
	ComponentUnresolved     *prometheus.CounterVec
	PreviewTransitionsTotal *prometheus.CounterVec
}

// New registers the site metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitezone_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitezone_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ContentFetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitezone_content_fetch_total",
			Help: "CMS fetches by kind and cache result.",
		}, []string{"kind", "result"}),
		CacheInvalidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitezone_cache_invalidations_total",
			Help: "Cache tags invalidated by tag kind.",
		}, []string{"tag_kind"}),
		ComponentUnresolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitezone_component_unresolved_total",
			Help: "Zone modules with no registered component, by render mode.",
		}, []string{"mode"}),
		PreviewTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitezone_preview_transitions_total",
			Help: "Preview mode transitions by outcome.",
		}, []string{"transition", "outcome"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ContentFetch(kind, result string) {
	if m == nil {
		return
	}
	m.ContentFetchTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheInvalidation(tagKind string) {
	if m == nil {
		return
	}
	m.CacheInvalidationsTotal.WithLabelValues(tagKind).Inc()
}

func (m *Metrics) UnresolvedComponent(mode string) {
	if m == nil {
		return
	}
	m.ComponentUnresolved.WithLabelValues(mode).Inc()
}

func (m *Metrics) PreviewTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.PreviewTransitionsTotal.WithLabelValues(transition, outcome).Inc()
}
