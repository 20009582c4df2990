package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics exposes counters/histograms for validation and mutations.
type SchedulingMetrics struct {
	validations  *prometheus.CounterVec
	mutations    *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "appointments",
			Name:      "validations_total",
			Help:      "Appointment validations by result code",
		}, []string{"code"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "appointments",
			Name:      "mutations_total",
			Help:      "Committed appointment mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "store",
			Name:      "call_latency_seconds",
			Help:      "Latency of appointment store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.validations, m.mutations, m.storeLatency)
	return m
}

// ObserveValidation records a validator result; an empty code means valid.
func (m *SchedulingMetrics) ObserveValidation(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "valid"
	}
	m.validations.WithLabelValues(code).Inc()
}

func (m *SchedulingMetrics) ObserveMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveStoreCall(op string, started time.Time) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
