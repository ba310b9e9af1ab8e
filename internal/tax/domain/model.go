package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/pkg/errs"
)

var (
	ErrNegativeSubtotal   = errs.InvalidInput("negative_subtotal")
	ErrNegativeDiscount   = errs.InvalidInput("negative_discount")
	ErrInvalidDiscountPct = errs.InvalidInput("invalid_discount_percentage")
)

// Input is the subtotal and discount data a breakdown is computed from.
type Input struct {
	Subtotal           decimal.Decimal
	Discount           decimal.Decimal
	DiscountPercentage decimal.Decimal
	InterState         bool
}

// Component is one GST component. Rate is a percentage.
type Component struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Breakdown is the itemized result of a GST calculation. Component amounts
// are unrounded; only GrandTotal is rounded to the nearest rupee.
type Breakdown struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	Discount            decimal.Decimal `json:"discount"`
	DiscountPercentage  decimal.Decimal `json:"discountPercentage"`
	AmountAfterDiscount decimal.Decimal `json:"amountAfterDiscount"`
	InterState          bool            `json:"interState"`
	CGST                Component       `json:"cgst"`
	SGST                Component       `json:"sgst"`
	IGST                Component       `json:"igst"`
	TotalTax            decimal.Decimal `json:"totalTax"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	RoundOff            decimal.Decimal `json:"roundOff"`
	GrandTotal          decimal.Decimal `json:"grandTotal"`
}

// Calculator computes GST breakdowns. Implementations are pure apart from
// reading the configured rate.
type Calculator interface {
	Calculate(in Input) (Breakdown, error)
}
