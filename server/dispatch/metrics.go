package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibox_dispatch_total",
			Help: "Total dispatches by event kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	deliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibox_delivery_total",
			Help: "Total delivery attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medibox_delivery_duration_seconds",
			Help:    "Duration of push and sms delivery calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)
	triggerResetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medibox_trigger_reset_total",
			Help: "Trigger resets by result: reset, superseded (newer trigger kept) or error.",
		},
		[]string{"trigger", "result"},
	)
)
