package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issued = time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC)

func TestFormatInvoiceNumber(t *testing.T) {
	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, 7)
	require.NoError(t, err)
	assert.Equal(t, "INV-202502-0007", got)

	got, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, 12345)
	require.NoError(t, err)
	assert.Equal(t, "INV-202502-12345", got)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("INV-{Q}-{SEQ4}", issued, 1)
	assert.Error(t, err)
}

func TestNumberPrefixAndFallback(t *testing.T) {
	assert.Equal(t, "INV-202502-", NumberPrefix(DefaultInvoiceNumberTemplate, issued))
	fallback := FallbackInvoiceNumber(DefaultInvoiceNumberTemplate, issued)
	assert.Regexp(t, `^INV-202502-\d{6}$`, fallback)
}

func TestINR(t *testing.T) {
	cases := map[string]string{
		"0":        "₹0.00",
		"999":      "₹999.00",
		"1050":     "₹1,050.00",
		"123456.5": "₹1,23,456.50",
		"12345678": "₹1,23,45,678.00",
		"-0.055":   "-₹0.06",
	}
	for in, want := range cases {
		assert.Equal(t, want, INR(decimal.RequireFromString(in)), in)
	}
}
