// Package metrics holds the Prometheus instruments for the attendance
// subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Punches      *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	LateArrivals prometheus.Counter
}

// New creates and registers all attendance metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Punches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "staffops_attendance_punches_total",
			Help: "Accepted punch transitions by action.",
		}, []string{"action"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "staffops_attendance_punch_rejections_total",
			Help: "Rejected punch attempts by reason.",
		}, []string{"reason"}),
		LateArrivals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "staffops_attendance_late_arrivals_total",
			Help: "Punch-ins recorded past the grace window.",
		}),
	}
}

func (m *Metrics) RecordPunch(action string) {
	if m == nil {
		return
	}
	m.Punches.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordLateArrival() {
	if m == nil {
		return
	}
	m.LateArrivals.Inc()
}
