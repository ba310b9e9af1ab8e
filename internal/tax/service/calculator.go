package service

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/config"
	taxdomain "github.com/smallbiznis/restobill/internal/tax/domain"
	"go.uber.org/fx"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	Config *config.InvoiceConfigHolder
}

type calculator struct {
	cfg *config.InvoiceConfigHolder
}

func NewCalculator(p Params) taxdomain.Calculator {
	return &calculator{cfg: p.Config}
}

// Calculate applies the currently configured total GST rate.
func (c *calculator) Calculate(in taxdomain.Input) (taxdomain.Breakdown, error) {
	rate := decimal.NewFromFloat(config.DefaultInvoiceConfig().GSTRate)
	if c.cfg != nil {
		rate = decimal.NewFromFloat(c.cfg.Get().GSTRate)
	}
	return Compute(in, rate)
}

// Compute returns the GST breakdown for the given total rate (percent).
// A positive discount percentage overrides the flat discount.
func Compute(in taxdomain.Input, totalRate decimal.Decimal) (taxdomain.Breakdown, error) {
	if in.Subtotal.IsNegative() {
		return taxdomain.Breakdown{}, taxdomain.ErrNegativeSubtotal
	}
	if in.Discount.IsNegative() {
		return taxdomain.Breakdown{}, taxdomain.ErrNegativeDiscount
	}
	if in.DiscountPercentage.IsNegative() || in.DiscountPercentage.GreaterThan(hundred) {
		return taxdomain.Breakdown{}, taxdomain.ErrInvalidDiscountPct
	}

	discount := in.Discount
	if in.DiscountPercentage.IsPositive() {
		discount = in.Subtotal.Mul(in.DiscountPercentage).Div(hundred)
	}

	after := in.Subtotal.Sub(discount)
	if after.IsNegative() {
		after = decimal.Zero
	}

	out := taxdomain.Breakdown{
		Subtotal:            in.Subtotal,
		Discount:            discount,
		DiscountPercentage:  in.DiscountPercentage,
		AmountAfterDiscount: after,
		InterState:          in.InterState,
		CGST:                taxdomain.Component{Rate: decimal.Zero, Amount: decimal.Zero},
		SGST:                taxdomain.Component{Rate: decimal.Zero, Amount: decimal.Zero},
		IGST:                taxdomain.Component{Rate: decimal.Zero, Amount: decimal.Zero},
	}

	if in.InterState {
		out.IGST = component(after, totalRate)
		out.TotalTax = out.IGST.Amount
	} else {
		half := totalRate.Div(decimal.NewFromInt(2))
		out.CGST = component(after, half)
		out.SGST = component(after, half)
		out.TotalTax = out.CGST.Amount.Add(out.SGST.Amount)
	}

	out.TotalAmount = after.Add(out.TotalTax)
	out.GrandTotal = out.TotalAmount.Round(0)
	out.RoundOff = out.GrandTotal.Sub(out.TotalAmount)
	return out, nil
}

func component(base, rate decimal.Decimal) taxdomain.Component {
	return taxdomain.Component{
		Rate:   rate,
		Amount: base.Mul(rate).Div(hundred),
	}
}
