package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalFlow/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal  *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	cooldownSkips *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_signals_total",
				Help: "Total number of signals fired",
			},
			[]string{"rule", "table", "direction"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalflow_poll_cycle_duration_seconds",
				Help:    "Duration of one table poll cycle in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table"},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_fetch_errors_total",
				Help: "Total number of snapshot fetch errors",
			},
			[]string{"table"},
		),
		deliveries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_deliveries_total",
				Help: "Total number of signal deliveries by outcome",
			},
			[]string{"consumer", "status"},
		),
		cooldownSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_cooldown_skips_total",
				Help: "Total number of signals suppressed by cooldown",
			},
			[]string{"rule"},
		),
	}
}

// RecordSignal records one fired signal.
func (r *Recorder) RecordSignal(rule, table string, direction models.Direction) {
	r.signalsTotal.WithLabelValues(rule, table, string(direction)).Inc()
}

// RecordCycle records one completed poll cycle for a table.
func (r *Recorder) RecordCycle(table string, seconds float64) {
	r.cycleDuration.WithLabelValues(table).Observe(seconds)
}

// RecordFetchError records a failed snapshot fetch for a table.
func (r *Recorder) RecordFetchError(table string) {
	r.fetchErrors.WithLabelValues(table).Inc()
}

// RecordDelivery records a delivery attempt outcome.
func (r *Recorder) RecordDelivery(consumer, status string) {
	r.deliveries.WithLabelValues(consumer, status).Inc()
}

// RecordCooldownSkip records a cooldown suppression.
func (r *Recorder) RecordCooldownSkip(rule string) {
	r.cooldownSkips.WithLabelValues(rule).Inc()
}
