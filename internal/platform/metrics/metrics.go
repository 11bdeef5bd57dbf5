package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	MintsTotal     *prometheus.CounterVec
	UpdatesTotal   prometheus.Counter
	MintRejections *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MintsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgemint_mints_total",
			Help: "Total identity records minted, by tier",
		}, []string{"tier"}),
		UpdatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "badgemint_updates_total",
			Help: "Total identity record updates",
		}),
		MintRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgemint_mint_rejections_total",
			Help: "Rejected mint attempts, by error code",
		}, []string{"code"}),
		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgemint_operation_duration_seconds",
			Help:    "Latency of registry operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// ObserveMint records a committed mint for the given tier.
func (m *Metrics) ObserveMint(tier string) {
	if m != nil {
		m.MintsTotal.WithLabelValues(tier).Inc()
	}
}

// ObserveUpdate records a committed update.
func (m *Metrics) ObserveUpdate() {
	if m != nil {
		m.UpdatesTotal.Inc()
	}
}

// ObserveMintRejection records a failed mint attempt by error code.
func (m *Metrics) ObserveMintRejection(code string) {
	if m != nil {
		m.MintRejections.WithLabelValues(code).Inc()
	}
}

// ObserveDuration records latency for a named operation.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m != nil {
		m.OpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
