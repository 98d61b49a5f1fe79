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

const namespace = "adsafe"

// Collector owns a private registry with the resolver and HTTP metrics.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry           *prometheus.Registry
	resolutions        *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	resolvedRules      prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_resolutions_total",
			Help:      "Number of rule set resolutions by the source that produced them",
		}, []string{"source"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_resolution_fallbacks_total",
			Help:      "Number of times a resolution stage was skipped, by reason",
		}, []string{"reason"}),
		resolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rule_resolution_duration_seconds",
			Help:      "Time taken to resolve the effective rule set",
			Buckets:   prometheus.DefBuckets,
		}),
		resolvedRules: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolved_rules",
			Help:      "Number of rules in the cached effective rule set",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordResolution records a completed resolution
func (c *Collector) RecordResolution(source string, rules int, duration time.Duration) {
	if c == nil {
		return
	}
	c.resolutions.WithLabelValues(source).Inc()
	c.resolutionDuration.Observe(duration.Seconds())
	c.resolvedRules.Set(float64(rules))
}

// RecordFallback records why a resolution stage did not produce the result
func (c *Collector) RecordFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records a served request. route is the matched route pattern.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
