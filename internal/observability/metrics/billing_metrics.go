package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics counts billing-core business events.
type BillingMetrics struct {
	invoicesCreated         *prometheus.CounterVec
	invoiceNumberCollisions prometheus.Counter
	invoiceNumberFallbacks  prometheus.Counter
	invoiceInsertRetries    prometheus.Counter
	subscriptionTransitions *prometheus.CounterVec
	usageDenied             *prometheus.CounterVec
	refunds                 prometheus.Counter
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide billing metrics registered on the default registerer.
func Billing(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = NewBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

// ResetBillingMetricsForTest resets the billing metrics singleton for tests.
func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func NewBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	m := &BillingMetrics{
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "restobill_invoices_created_total",
			Help:        "Invoices created by initial payment status.",
			ConstLabels: labels,
		}, []string{"payment_status"}),
		invoiceNumberCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "restobill_invoice_number_collisions_total",
			Help:        "Invoice number probes that hit an existing number.",
			ConstLabels: labels,
		}),
		invoiceNumberFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "restobill_invoice_number_fallbacks_total",
			Help:        "Invoice numbers allocated from the timestamp fallback.",
			ConstLabels: labels,
		}),
		invoiceInsertRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "restobill_invoice_insert_retries_total",
			Help:        "Invoice inserts retried after a unique violation on the number.",
			ConstLabels: labels,
		}),
		subscriptionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "restobill_subscription_transitions_total",
			Help:        "Subscription status transitions.",
			ConstLabels: labels,
		}, []string{"from", "to"}),
		usageDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "restobill_usage_denied_total",
			Help:        "Usage gate denials by limit or reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "restobill_refunds_total",
			Help:        "Refund transactions recorded.",
			ConstLabels: labels,
		}),
	}

	registerer.MustRegister(
		m.invoicesCreated,
		m.invoiceNumberCollisions,
		m.invoiceNumberFallbacks,
		m.invoiceInsertRetries,
		m.subscriptionTransitions,
		m.usageDenied,
		m.refunds,
	)
	return m
}

func (m *BillingMetrics) IncInvoiceCreated(paymentStatus string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(paymentStatus).Inc()
}

func (m *BillingMetrics) AddInvoiceNumberCollisions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invoiceNumberCollisions.Add(float64(n))
}

func (m *BillingMetrics) IncInvoiceNumberFallback() {
	if m == nil {
		return
	}
	m.invoiceNumberFallbacks.Inc()
}

func (m *BillingMetrics) IncInvoiceInsertRetry() {
	if m == nil {
		return
	}
	m.invoiceInsertRetries.Inc()
}

func (m *BillingMetrics) IncSubscriptionTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.subscriptionTransitions.WithLabelValues(from, to).Inc()
}

func (m *BillingMetrics) IncUsageDenied(reason string) {
	if m == nil {
		return
	}
	m.usageDenied.WithLabelValues(reason).Inc()
}

func (m *BillingMetrics) IncRefund() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}
