// Package metrics exposes Prometheus counters for the face.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the face collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	registry        *prometheus.Registry
	syncUpdates     *prometheus.CounterVec
	transportErrors prometheus.Counter
	redraws         prometheus.Counter
	weatherRequests prometheus.Counter
	droppedEvents   prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchface_sync_updates_total",
				Help: "Inbound sync updates by field and outcome",
			},
			[]string{"field", "outcome"},
		),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchface_sync_transport_errors_total",
			Help: "Sync payloads that could not be decoded or delivered",
		}),
		redraws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchface_redraws_total",
			Help: "Draw passes over dirty regions",
		}),
		weatherRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchface_weather_requests_total",
			Help: "Outbound weather requests",
		}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchface_dropped_events_total",
			Help: "Events dropped because the loop queue was full",
		}),
	}

	m.registry.MustRegister(
		m.syncUpdates,
		m.transportErrors,
		m.redraws,
		m.weatherRequests,
		m.droppedEvents,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) SyncUpdate(field, outcome string) {
	if m == nil {
		return
	}
	m.syncUpdates.WithLabelValues(field, outcome).Inc()
}

func (m *Metrics) TransportError() {
	if m == nil {
		return
	}
	m.transportErrors.Inc()
}

func (m *Metrics) Redraw() {
	if m == nil {
		return
	}
	m.redraws.Inc()
}

func (m *Metrics) WeatherRequest() {
	if m == nil {
		return
	}
	m.weatherRequests.Inc()
}

func (m *Metrics) DroppedEvent() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
