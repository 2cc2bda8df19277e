package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RTDBCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "windai_rtdb_calls_total",
			Help: "Total Realtime Database REST calls",
		},
		[]string{"endpoint", "status"},
	)

	RTDBLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "windai_rtdb_latency_seconds",
			Help:    "Realtime Database call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "windai_records_ingested_total",
			Help: "Telemetry records accepted into the store across refreshes",
		},
	)

	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "windai_records_dropped_total",
			Help: "Malformed raw samples dropped during refresh",
		},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "windai_tool_calls_total",
			Help: "Tool invocations requested by the model",
		},
		[]string{"tool", "status"},
	)

	TurnLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "windai_turn_latency_seconds",
			Help:    "End-to-end latency of one conversation turn",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "windai_turns_total",
			Help: "Conversation turns handled",
		},
		[]string{"status"},
	)
)
