package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts stock ledger activity.
type LedgerMetrics struct {
	movements     *prometheus.CounterVec
	units         *prometheus.CounterVec
	negativeStock prometheus.Counter
	conflicts     prometheus.Counter
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "movements_total",
			Help:      "Stock movements appended, by type.",
		}, []string{"type"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "units_total",
			Help:      "Absolute stock units moved, by type.",
		}, []string{"type"}),
		negativeStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "negative_stock_total",
			Help:      "Movements that left a product with negative stock.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "concurrent_conflicts_total",
			Help:      "Stock writes rejected because stock changed underneath them.",
		}),
	}
	reg.MustRegister(m.movements, m.units, m.negativeStock, m.conflicts)
	return m
}

// ObserveMovement records an appended movement and its signed delta.
func (m *LedgerMetrics) ObserveMovement(movementType string, delta int) {
	if m == nil || m.movements == nil {
		return
	}
	label := normalizeLabel(movementType)
	m.movements.WithLabelValues(label).Inc()
	if delta < 0 {
		delta = -delta
	}
	m.units.WithLabelValues(label).Add(float64(delta))
}

func (m *LedgerMetrics) IncNegativeStock() {
	if m == nil || m.negativeStock == nil {
		return
	}
	m.negativeStock.Inc()
}

func (m *LedgerMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}
