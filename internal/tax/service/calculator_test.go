package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/config"
	taxdomain "github.com/smallbiznis/restobill/internal/tax/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCalculator(rate float64) taxdomain.Calculator {
	cfg := config.DefaultInvoiceConfig()
	cfg.GSTRate = rate
	return NewCalculator(Params{Config: config.NewStaticInvoiceConfigHolder(cfg)})
}

func TestCalculateIntraStateRoundNumbers(t *testing.T) {
	out, err := newTestCalculator(5).Calculate(taxdomain.Input{Subtotal: d("1000")})
	require.NoError(t, err)

	assert.True(t, out.CGST.Amount.Equal(d("25")), out.CGST.Amount.String())
	assert.True(t, out.SGST.Amount.Equal(d("25")))
	assert.True(t, out.CGST.Rate.Equal(d("2.5")))
	assert.True(t, out.IGST.Amount.IsZero())
	assert.True(t, out.TotalTax.Equal(d("50")))
	assert.True(t, out.GrandTotal.Equal(d("1050")))
	assert.True(t, out.RoundOff.IsZero())
}

func TestCalculatePercentageDiscountWithRoundOff(t *testing.T) {
	out, err := newTestCalculator(5).Calculate(taxdomain.Input{
		Subtotal:           d("999"),
		Discount:           d("500"),
		DiscountPercentage: d("10"),
	})
	require.NoError(t, err)

	assert.True(t, out.Discount.Equal(d("99.9")), out.Discount.String())
	assert.True(t, out.AmountAfterDiscount.Equal(d("899.1")))
	assert.True(t, out.TotalTax.Equal(d("44.955")), out.TotalTax.String())
	assert.True(t, out.TotalAmount.Equal(d("944.055")))
	assert.True(t, out.GrandTotal.Equal(d("944")))
	assert.True(t, out.RoundOff.Equal(d("-0.055")), out.RoundOff.String())
}

func TestCalculateInterStateUsesIGST(t *testing.T) {
	out, err := newTestCalculator(5).Calculate(taxdomain.Input{Subtotal: d("200"), InterState: true})
	require.NoError(t, err)

	assert.True(t, out.IGST.Rate.Equal(d("5")))
	assert.True(t, out.IGST.Amount.Equal(d("10")))
	assert.True(t, out.CGST.Amount.IsZero())
	assert.True(t, out.SGST.Amount.IsZero())
	assert.True(t, out.GrandTotal.Equal(d("210")))
}

func TestCalculateClampsAfterDiscount(t *testing.T) {
	out, err := newTestCalculator(5).Calculate(taxdomain.Input{Subtotal: d("100"), Discount: d("150")})
	require.NoError(t, err)

	assert.True(t, out.AmountAfterDiscount.IsZero())
	assert.True(t, out.GrandTotal.IsZero())
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	calc := newTestCalculator(5)
	cases := []taxdomain.Input{
		{Subtotal: d("-1")},
		{Subtotal: d("10"), Discount: d("-1")},
		{Subtotal: d("10"), DiscountPercentage: d("-5")},
		{Subtotal: d("10"), DiscountPercentage: d("101")},
	}
	for _, in := range cases {
		_, err := calc.Calculate(in)
		assert.True(t, errs.IsInvalidInput(err), "%+v", in)
	}
}

func TestCalculateFollowsConfiguredRate(t *testing.T) {
	out, err := newTestCalculator(18).Calculate(taxdomain.Input{Subtotal: d("100")})
	require.NoError(t, err)
	assert.True(t, out.CGST.Rate.Equal(d("9")))
	assert.True(t, out.GrandTotal.Equal(d("118")))
}

func TestCalculateRoundingInvariant(t *testing.T) {
	calc := newTestCalculator(5)
	for sub := int64(0); sub <= 2000; sub += 37 {
		for pct := int64(0); pct <= 100; pct += 9 {
			subtotal := decimal.New(sub*7+3, -1)
			out, err := calc.Calculate(taxdomain.Input{Subtotal: subtotal, DiscountPercentage: decimal.NewFromInt(pct)})
			require.NoError(t, err)

			raw := out.AmountAfterDiscount.Add(out.TotalTax)
			assert.True(t, out.GrandTotal.Equal(raw.Round(0)))
			assert.True(t, out.RoundOff.Equal(out.GrandTotal.Sub(raw)))
			assert.True(t, out.RoundOff.Abs().LessThan(decimal.NewFromInt(1)))
		}
	}
}
