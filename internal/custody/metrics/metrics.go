// Package metrics holds the Prometheus instruments for the custody
// subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations prometheus.Counter
	Movements     *prometheus.CounterVec
	Amendments    prometheus.Counter
}

// New creates and registers all custody metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "staffops_custody_registrations_total",
			Help: "Credentials taken into custody.",
		}),
		Movements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "staffops_custody_movements_total",
			Help: "Recorded handovers by movement type.",
		}, []string{"movement_type"}),
		Amendments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "staffops_custody_amendments_total",
			Help: "In-place corrections to movement entries.",
		}),
	}
}

func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) RecordMovement(movementType string) {
	if m == nil {
		return
	}
	m.Movements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) RecordAmendment() {
	if m == nil {
		return
	}
	m.Amendments.Inc()
}
