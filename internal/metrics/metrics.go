// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records HTTP traffic and generation-provider outcomes.
type Collector struct {
	registry    *prometheus.Registry
	httpStatus  *prometheus.CounterVec
	genLatency  *prometheus.HistogramVec
	genFailures *prometheus.CounterVec
	activeTurns prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textgen_http_responses_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		genLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "textgen_generation_latency_seconds",
			Help:    "Latency of generation provider calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		genFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "textgen_generation_failures_total",
			Help: "Failed generation provider calls",
		}, []string{"kind"}),
		activeTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "textgen_chat_turns_in_flight",
			Help: "Chat turns currently waiting on the provider",
		}),
	}

	c.registry.MustRegister(c.httpStatus, c.genLatency, c.genFailures, c.activeTurns)
	return c
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordGeneration(kind string, duration time.Duration, err error) {
	c.genLatency.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		c.genFailures.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) TurnStarted()  { c.activeTurns.Inc() }
func (c *Collector) TurnFinished() { c.activeTurns.Dec() }

// Handler serves the exposition endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware counts response status codes for every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.RecordHTTPStatus(sw.status)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
