// Package metrics exposes dispatch counters to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lease_notifier"

// DispatchMetrics implements app.DispatchRecorder.
type DispatchMetrics struct {
	registry      *prometheus.Registry
	obligations   *prometheus.CounterVec
	runs          *prometheus.CounterVec
	lastDispatch  prometheus.Gauge
	lastProcessed prometheus.Gauge
}

func NewDispatchMetrics(registry *prometheus.Registry) (*DispatchMetrics, error) {
	m := &DispatchMetrics{
		registry: registry,
		obligations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "obligations_total",
			Help:      "Obligations handled by the expiry dispatcher, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_runs_total",
			Help:      "Expiry dispatch runs, by result.",
		}, []string{"result"}),
		lastDispatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_dispatch_timestamp_seconds",
			Help:      "Unix time of the last completed dispatch run.",
		}),
		lastProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_dispatch_processed",
			Help:      "Obligations processed by the last dispatch run.",
		}),
	}
	for _, c := range []prometheus.Collector{m.obligations, m.runs, m.lastDispatch, m.lastProcessed} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register dispatch metrics: %w", err)
		}
	}
	return m, nil
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}))
	return registry
}

func (m *DispatchMetrics) ObligationDone(kind notification.Kind, outcome string) {
	m.obligations.WithLabelValues(string(kind), outcome).Inc()
}

func (m *DispatchMetrics) RunDone(stats app.Stats, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.lastDispatch.SetToCurrentTime()
	m.lastProcessed.Set(float64(stats.Processed))
}

func (m *DispatchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
