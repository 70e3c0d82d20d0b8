// Package metrics holds the Prometheus collectors of the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

const namespace = "igramrelay"

// Pipeline stages observed by StageDuration.
const (
	StageScrape   = "scrape"
	StageDownload = "download"
	StageUpload   = "upload"
	StageTotal    = "total"
)

// Metrics bundles the collectors on their own registry.
type Metrics struct {
	Registry       *prometheus.Registry
	Messages       *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	BrowserSession prometheus.Gauge
}

// New registers all collectors on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Handled chat messages by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 45, 90, 180, 600},
		}, []string{"stage"}),
		BrowserSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_active",
			Help:      "Browser sessions currently open.",
		}),
	}
	reg.MustRegister(
		m.Messages,
		m.StageDuration,
		m.BrowserSession,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts one finished message.
func (m *Metrics) ObserveOutcome(o domain.Outcome) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(string(o)).Inc()
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
