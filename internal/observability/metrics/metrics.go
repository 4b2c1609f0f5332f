package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking lifecycle.
type BookingMetrics struct {
	createdTotal   *prometheus.CounterVec
	decisionTotal  *prometheus.CounterVec
	conflictsTotal prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emprendigo",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Bookings created by source",
		}, []string{"source"}),
		decisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emprendigo",
			Subsystem: "bookings",
			Name:      "decision_total",
			Help:      "Owner decisions on pending bookings",
		}, []string{"decision"}), // approved, rejected, cancelled
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emprendigo",
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts refused because the slot was taken",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.decisionTotal, m.conflictsTotal)
	return m
}

func (m *BookingMetrics) ObserveCreated(source string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisionTotal.WithLabelValues(decision).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

// PaymentMetrics exposes counters for the manual payment track.
type PaymentMetrics struct {
	proofsTotal    prometheus.Counter
	decisionsTotal *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		proofsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emprendigo",
			Subsystem: "payments",
			Name:      "proofs_total",
			Help:      "Payment proofs uploaded",
		}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emprendigo",
			Subsystem: "payments",
			Name:      "verification_total",
			Help:      "Payment verification outcomes",
		}, []string{"outcome"}), // paid, rejected
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.proofsTotal, m.decisionsTotal)
	return m
}

func (m *PaymentMetrics) ObserveProof() {
	if m == nil {
		return
	}
	m.proofsTotal.Inc()
}

func (m *PaymentMetrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(outcome).Inc()
}
