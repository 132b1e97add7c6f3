package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы оформления заказа для foodorder_place_order_total.
const (
	ResultPlaced       = "placed"
	ResultRejected     = "rejected"
	ResultCompensated  = "compensated"
	ResultReconcileDue = "reconcile_required"
)

// WorkflowMetrics содержит метрики жизненного цикла корзины и заказа.
// Все методы безопасны для nil-получателя.
type WorkflowMetrics struct {
	placeOrder      *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
	cartOperations  *prometheus.CounterVec
	pendingReconcil prometheus.Gauge
	degradedReads   prometheus.Counter
}

// NewWorkflowMetrics регистрирует метрики в registerer (nil — DefaultRegisterer).
func NewWorkflowMetrics(registerer prometheus.Registerer) *WorkflowMetrics {
	return &WorkflowMetrics{
		placeOrder: register(registerer, "foodorder_place_order_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodorder_place_order_total",
			Help: "Order placement attempts grouped by result.",
		}, []string{"result"})),
		statusChanges: register(registerer, "foodorder_order_status_changes_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodorder_order_status_changes_total",
			Help: "Order status transitions grouped by target status.",
		}, []string{"status"})),
		stepDuration: register(registerer, "foodorder_workflow_step_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodorder_workflow_step_duration_seconds",
			Help:    "Duration of individual order workflow steps in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"})),
		compensations: register(registerer, "foodorder_compensations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodorder_compensations_total",
			Help: "Compensating actions grouped by result.",
		}, []string{"result"})),
		cartOperations: register(registerer, "foodorder_cart_operations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodorder_cart_operations_total",
			Help: "Cart mutations grouped by operation and result.",
		}, []string{"operation", "result"})),
		pendingReconcil: register(registerer, "foodorder_reconcile_pending", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foodorder_reconcile_pending",
			Help: "Compensations awaiting manual or background reconciliation.",
		})),
		degradedReads: register(registerer, "foodorder_snapshot_degraded_reads_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foodorder_snapshot_degraded_reads_total",
			Help: "Orders returned with an unreadable cart snapshot.",
		})),
	}
}

// RecordPlaceOrder фиксирует исход оформления заказа.
func (m *WorkflowMetrics) RecordPlaceOrder(result string) {
	if m == nil {
		return
	}
	m.placeOrder.WithLabelValues(result).Inc()
}

// RecordStatusChange фиксирует переход заказа в новый статус.
func (m *WorkflowMetrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// ObserveStep записывает длительность шага workflow.
func (m *WorkflowMetrics) ObserveStep(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordCompensation фиксирует результат компенсирующего действия ("applied" или "failed").
func (m *WorkflowMetrics) RecordCompensation(result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(result).Inc()
}

// RecordCartOperation фиксирует мутацию корзины.
func (m *WorkflowMetrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartOperations.WithLabelValues(operation, result).Inc()
}

// SetPendingReconcile выставляет число записей, ожидающих сверки.
func (m *WorkflowMetrics) SetPendingReconcile(n int) {
	if m == nil {
		return
	}
	m.pendingReconcil.Set(float64(n))
}

// RecordDegradedRead фиксирует чтение заказа с нечитаемым снимком.
func (m *WorkflowMetrics) RecordDegradedRead() {
	if m == nil {
		return
	}
	m.degradedReads.Inc()
}
