package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics counts classification outcomes per disposition kind and
// match reason. NoDuplicate outcomes carry an empty reason.
type PrometheusMetrics struct {
	dispositions *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the classifier metrics
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		dispositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "racunko",
			Subsystem: "reconciliation",
			Name:      "dispositions_total",
			Help:      "Classification outcomes by disposition kind and match reason",
		}, []string{"kind", "reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.dispositions)
	}
	return m
}

// RecordDisposition implements Metrics
func (m *PrometheusMetrics) RecordDisposition(kind DispositionKind, reason string) {
	m.dispositions.WithLabelValues(kind.String(), reason).Inc()
}
