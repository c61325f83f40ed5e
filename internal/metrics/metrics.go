package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_events_received_total",
		Help: "Total number of inbound platform events, labelled by event name.",
	}, []string{"event_name"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_events_rejected_total",
		Help: "Total number of events rejected before acknowledgment, labelled by reason.",
	}, []string{"reason"})

	WorkflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_workflow_outcomes_total",
		Help: "Terminal workflow statuses reported to the platform, labelled by event name and status.",
	}, []string{"event_name", "status"})

	ConnectionCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_connection_callbacks_total",
		Help: "Aggregator connection-synced callbacks, labelled by outcome.",
	}, []string{"outcome"})

	WorkflowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "connector_workflow_duration_ms",
		Help:    "Detached workflow duration in milliseconds.",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
)
