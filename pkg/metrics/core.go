package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics counts the observable effects of the transactional core.
type CoreMetrics struct {
	ordersCreated  prometheus.Counter
	payments       *prometheus.CounterVec
	stockMovements *prometheus.CounterVec
}

// NewCoreMetrics registers the counters on the provided registerer. A nil
// registerer yields a no-op instance, which tests rely on.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders persisted by the order builder.",
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmations by outcome.",
	}, []string{"outcome"})
	stockMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Inventory movements by transaction type.",
	}, []string{"type"})
	reg.MustRegister(ordersCreated, payments, stockMovements)
	return &CoreMetrics{
		ordersCreated:  ordersCreated,
		payments:       payments,
		stockMovements: stockMovements,
	}
}

// IncOrderCreated counts a persisted order.
func (m *CoreMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// IncPayment counts a payment confirmation outcome
// (new, duplicate, failed, rejected).
func (m *CoreMetrics) IncPayment(outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.payments.WithLabelValues(outcome).Inc()
}

// IncStockMovement counts an applied inventory movement.
func (m *CoreMetrics) IncStockMovement(transactionType string) {
	if m == nil || m.stockMovements == nil {
		return
	}
	if transactionType == "" {
		transactionType = "unknown"
	}
	m.stockMovements.WithLabelValues(transactionType).Inc()
}
