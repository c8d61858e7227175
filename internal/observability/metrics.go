package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homehealth"

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics collects Prometheus metrics for the API.
type Metrics struct {
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	baasRequests    *prometheus.CounterVec
	baasDuration    *prometheus.HistogramVec
	rateLimitHits   *prometheus.CounterVec
}

// NewMetrics builds a private registry with the API collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   histogramBuckets,
		}, []string{"method", "route"}),
		baasRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "baas_requests_total",
			Help:      "Auth server calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		baasDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "baas_request_duration_seconds",
			Help:      "Latency distribution of auth server calls.",
			Buckets:   histogramBuckets,
		}, []string{"operation"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses.",
		}, []string{"scope"}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.baasRequests,
		m.baasDuration,
		m.rateLimitHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Status(http.StatusServiceUnavailable)
		}
	}
	return gin.WrapH(m.handler)
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveBaaS records one auth server call.
func (m *Metrics) ObserveBaaS(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.baasRequests.WithLabelValues(operation, outcome).Inc()
	m.baasDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RateLimited counts a throttled request for scope.
func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(scope).Inc()
}
