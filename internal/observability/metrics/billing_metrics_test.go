package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBillingMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBillingMetrics(registry, Config{ServiceName: "restobill", Environment: "test"})

	m.IncInvoiceCreated("paid")
	m.IncInvoiceCreated("paid")
	m.AddInvoiceNumberCollisions(3)
	m.AddInvoiceNumberCollisions(0)
	m.IncSubscriptionTransition("active", "expired")
	m.IncSubscriptionTransition("active", "active")
	m.IncUsageDenied("maxStaff")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoicesCreated.WithLabelValues("paid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.invoiceNumberCollisions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptionTransitions.WithLabelValues("active", "expired")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.subscriptionTransitions.WithLabelValues("active", "active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.usageDenied.WithLabelValues("maxStaff")))
}

func TestBillingMetricsNilSafe(t *testing.T) {
	var m *BillingMetrics
	assert.NotPanics(t, func() {
		m.IncInvoiceCreated("paid")
		m.IncRefund()
		m.IncInvoiceNumberFallback()
	})
}
