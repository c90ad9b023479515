package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric name.
const namespace = "ice_station"

// Metrics holds the station collectors registered on one registry.
type Metrics struct {
	// Registry is what /metrics serves.
	Registry *prometheus.Registry

	// Events counts processed events by type and verdict.
	Events *prometheus.CounterVec
	// Duplicates counts events absorbed by id.
	Duplicates prometheus.Counter
	// Replayed counts snapshot events replayed through the pipeline.
	Replayed prometheus.Counter
	// Alerts counts raised alerts by source tag.
	Alerts *prometheus.CounterVec
	// CommandsRejected counts user commands refused at the boundary.
	CommandsRejected *prometheus.CounterVec
	// ArmState is 0 disarmed, 1 armed, 2 armed standalone.
	ArmState prometheus.Gauge
	// HubConnected is 1 while the liveness monitor reports a live link.
	HubConnected prometheus.Gauge
	// HubConnects counts established hub sockets.
	HubConnects prometheus.Counter
	// CameraConnected is 1 while the camera session is connected.
	CameraConnected prometheus.Gauge
	// CameraRestarts counts full signaling restarts.
	CameraRestarts prometheus.Counter
}

// New creates the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of processed events, labelled by type and verdict.",
		}, []string{"type", "verdict"}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_duplicate_total",
			Help:      "Total number of inbound events absorbed as duplicates.",
		}),
		Replayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_replayed_total",
			Help:      "Total number of snapshot events replayed through the pipeline.",
		}),
		Alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Total number of raised alerts, labelled by source tag.",
		}, []string{"tag"}),
		CommandsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Total number of rejected user commands, labelled by command.",
		}, []string{"command"}),
		ArmState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arm_state",
			Help:      "Current arm state: 0 disarmed, 1 armed, 2 armed standalone.",
		}),
		HubConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_connected",
			Help:      "Whether the hub link is live.",
		}),
		HubConnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_connects_total",
			Help:      "Total number of established hub channels.",
		}),
		CameraConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_connected",
			Help:      "Whether the camera session is connected.",
		}),
		CameraRestarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_restarts_total",
			Help:      "Total number of camera session restarts.",
		}),
	}
}

// Bool converts a flag to a gauge value.
func Bool(v bool) float64 {
	if v {
		return 1
	}

	return 0
}
