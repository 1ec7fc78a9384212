// Package metrics exposes Prometheus collectors for the function host.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"echo-func/internal/echo"
	"echo-func/pkg/handler"
)

const namespace = "echo_func"

// Collector owns a private registry so tests and multiple hosts in one
// process do not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	content     *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Function invocations by function, method and status code.",
		}, []string{"function", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Function invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
		content: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_content_total",
			Help:      "Request bodies by parse outcome.",
		}, []string{"status"}),
	}

	c.registry.MustRegister(
		c.invocations,
		c.duration,
		c.content,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// TrackRequest records one finished invocation.
func (c *Collector) TrackRequest(inv handler.Invocation) {
	c.invocations.WithLabelValues(inv.Function, inv.Method, strconv.Itoa(inv.StatusCode)).Inc()
	c.duration.WithLabelValues(inv.Function).Observe(inv.Duration.Seconds())
}

func (c *Collector) ObserveContent(status echo.ContentStatus) {
	c.content.WithLabelValues(status.String()).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
