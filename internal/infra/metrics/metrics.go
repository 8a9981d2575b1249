// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jerseyprint"

// Artifact kinds.
const (
	KindRasterBack   = "raster_back"
	KindRasterFront  = "raster_front"
	KindTemplateSVG  = "template_svg"
	KindCompositeSVG = "composite_svg"
)

// Metrics is a registry plus the collectors the service updates. A nil
// *Metrics ignores every observation.
type Metrics struct {
	Registry *prometheus.Registry

	artifacts     *prometheus.CounterVec
	renderSeconds *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      "Rendered artifacts by kind and outcome.",
		}, []string{"kind", "status"}),
		renderSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of artifact rendering.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Order notifications by channel and outcome.",
		}, []string{"channel", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}
	m.Registry.MustRegister(
		m.artifacts,
		m.renderSeconds,
		m.notifications,
		m.httpRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRender records one render attempt.
func (m *Metrics) ObserveRender(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(kind, status(err)).Inc()
	m.renderSeconds.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// ObserveNotification records one notification attempt.
func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status(err)).Inc()
}

// ObserveRequest counts an HTTP response.
func (m *Metrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(strings.ToUpper(method), strconv.Itoa(code)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
