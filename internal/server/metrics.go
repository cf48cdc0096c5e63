package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	filesParsed *prometheus.CounterVec
	exports     *prometheus.CounterVec
	events      *prometheus.CounterVec
}

func NewMetrics(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sift",
			Name:      "files_parsed_total",
			Help:      "Uploaded files by format and parse result.",
		}, []string{"format", "result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sift",
			Name:      "exports_total",
			Help:      "Generated exports by format.",
		}, []string{"format"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sift",
			Name:      "events_total",
			Help:      "Applied file events by type and result.",
		}, []string{"type", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesParsed,
		m.exports,
		m.events,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sift",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) }),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
