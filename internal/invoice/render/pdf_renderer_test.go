package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() invoicedomain.Invoice {
	issued := time.Date(2025, 4, 12, 13, 30, 0, 0, time.UTC)
	return invoicedomain.Invoice{
		InvoiceNumber: "INV-202504-0007",
		InvoiceDate:   issued,
		DueDate:       issued,
		Restaurant:    invoicedomain.RestaurantSnapshot{Name: "Spice Route", GSTNumber: "29ABCDE1234F1Z5"},
		Customer:      invoicedomain.CustomerSnapshot{Name: "Walk-in Customer"},
		Items: []invoicedomain.Item{{
			Name:       "Paneer Tikka",
			Quantity:   2,
			UnitPrice:  decimal.NewFromInt(150),
			LineAmount: decimal.NewFromInt(300),
			HSNCode:    "996331",
		}},
		Subtotal:           decimal.NewFromInt(300),
		Discount:           decimal.NewFromInt(30),
		DiscountPercentage: decimal.NewFromInt(10),
		TaxDetails: invoicedomain.TaxDetails{
			CGST: invoicedomain.TaxComponent{Rate: decimal.RequireFromString("2.5"), Amount: decimal.RequireFromString("6.75")},
			SGST: invoicedomain.TaxComponent{Rate: decimal.RequireFromString("2.5"), Amount: decimal.RequireFromString("6.75")},
		},
		TotalTax:       decimal.RequireFromString("13.5"),
		TotalAmount:    decimal.RequireFromString("283.5"),
		RoundOff:       decimal.RequireFromString("0.5"),
		GrandTotal:     decimal.NewFromInt(284),
		PaymentMethod:  invoicedomain.PaymentMethodPending,
		PaidAmount:     decimal.Zero,
		UPIID:          "spiceroute@upi",
		UPIPaymentLink: "upi://pay?am=284&cu=INR&pa=spiceroute%40upi&pn=Spice%20Route",
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "pdf", r.Extension())
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer().Render(ctx, sampleInvoice())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummaryRows(t *testing.T) {
	inv := sampleInvoice()
	rows := summaryRows(inv)

	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.label)
	}
	assert.Equal(t, []string{
		"Subtotal",
		"Discount (10%)",
		"CGST @ 2.5%",
		"SGST @ 2.5%",
		"Round off",
		"Grand total",
		"Paid (pending)",
		"Balance due",
	}, labels)

	inv.InterState = true
	inv.RoundOff = decimal.Zero
	inv.TaxDetails.IGST = invoicedomain.TaxComponent{Rate: decimal.NewFromInt(5), Amount: decimal.RequireFromString("13.5")}
	rows = summaryRows(inv)
	assert.Equal(t, "IGST @ 5%", rows[2].label)
	assert.Equal(t, "Grand total", rows[3].label)
}
