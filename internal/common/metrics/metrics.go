// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Total number of messages accepted by the email transport",
		},
		[]string{"trigger_type"},
	)

	MessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_failed_total",
			Help: "Total number of message send attempts that failed",
		},
		[]string{"trigger_type", "error_code"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "messaging_dispatch_duration_seconds",
			Help: "Duration of a single dispatch attempt in seconds",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "messaging_sweep_duration_seconds",
			Help: "Duration of a scheduled-trigger sweep in seconds",
		},
	)

	SweepPairsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_sweep_pairs_processed_total",
			Help: "Total (trigger, booking) pairs examined by sweeps",
		},
		[]string{"outcome"},
	)
)
