package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the host's Prometheus collectors. Each Server owns its own
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SpawnFailures   prometheus.Counter
	SessionExits    *prometheus.CounterVec

	OutputBytes prometheus.Counter
	InputBytes  prometheus.Counter
	InputDenied prometheus.Counter
	FSEvents    prometheus.Counter

	WSConnections prometheus.Gauge
	WSDropped     prometheus.Counter
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terminalone_sessions_active",
			Help: "Number of registered terminal sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_sessions_created_total",
			Help: "Total number of terminal sessions created",
		}),
		SpawnFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_spawn_failures_total",
			Help: "Total number of failed shell spawns",
		}),
		SessionExits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "terminalone_session_exits_total",
			Help: "Shell exits by result",
		}, []string{"result"}),

		OutputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_pty_output_bytes_total",
			Help: "Bytes read from PTYs",
		}),
		InputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_pty_input_bytes_total",
			Help: "Bytes written to PTYs",
		}),
		InputDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_input_rate_limited_total",
			Help: "Input requests rejected by the rate limiter",
		}),
		FSEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_fs_change_events_total",
			Help: "Debounced filesystem change events delivered",
		}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terminalone_ws_connections",
			Help: "Open websocket connections",
		}),
		WSDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "terminalone_ws_slow_consumers_total",
			Help: "Websocket clients closed for falling behind",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func exitResult(success bool, signal string) string {
	switch {
	case signal != "":
		return "signaled"
	case success:
		return "success"
	default:
		return "failure"
	}
}
