// Package render produces downloadable invoice documents.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/restobill/internal/invoice/format"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
)

const dateLayout = "02 Jan 2006"

type PDFRenderer struct{}

func NewRenderer() invoicedomain.Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Extension() string { return "pdf" }

// Render lays out a GST tax invoice from the stored snapshot only.
func (r *PDFRenderer) Render(ctx context.Context, inv invoicedomain.Invoice) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, inv.Restaurant.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "TAX INVOICE", props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(22,
		col.New(8).Add(
			text.New(inv.Restaurant.Address, props.Text{Size: 9}),
			text.New(joinNonEmpty(" | ", inv.Restaurant.Phone, inv.Restaurant.Email), props.Text{Size: 9, Top: 5}),
			text.New(labelled("GSTIN: ", inv.Restaurant.GSTNumber), props.Text{Size: 9, Top: 10}),
		),
		col.New(4).Add(
			text.New("Invoice number: "+inv.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+inv.InvoiceDate.Format(dateLayout), props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Due: "+inv.DueDate.Format(dateLayout), props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New(labelled("Table: ", inv.TableNumber), props.Text{Size: 9, Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(20,
		col.New(12).Add(
			text.New("Bill to", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.New(inv.Customer.Name, props.Text{Size: 9, Top: 5}),
			text.New(joinNonEmpty(" | ", inv.Customer.Phone, inv.Customer.Email), props.Text{Size: 9, Top: 10}),
			text.New(labelled("GSTIN: ", inv.Customer.GSTIN), props.Text{Size: 9, Top: 15}),
		),
	)

	m.AddRow(8,
		text.NewCol(5, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "HSN/SAC", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	for _, item := range inv.Items {
		m.AddRow(7,
			text.NewCol(5, item.Name, props.Text{Size: 9}),
			text.NewCol(2, item.HSNCode, props.Text{Size: 9}),
			text.NewCol(1, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, format.INR(item.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, format.INR(item.LineAmount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))

	for _, row := range summaryRows(inv) {
		style := fontstyle.Normal
		if row.bold {
			style = fontstyle.Bold
		}
		m.AddRow(6,
			col.New(7),
			text.NewCol(3, row.label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, row.value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	if inv.UPIPaymentLink != "" {
		m.AddRow(40,
			code.NewQrCol(3, inv.UPIPaymentLink, props.Rect{Center: true, Percent: 90}),
			text.NewCol(9, "Scan to pay with any UPI app ("+inv.UPIID+")", props.Text{Size: 9, Top: 15}),
		)
	}

	if inv.Notes != "" {
		m.AddRow(10, text.NewCol(12, "Notes: "+inv.Notes, props.Text{Size: 8}))
	}
	m.AddRow(10, text.NewCol(12, inv.TermsAndConditions, props.Text{Size: 8, Align: align.Center}))

	doc, err := m.Generate()
	if err != nil {
		return nil, errs.Dependency(err, "render_invoice_pdf")
	}
	return doc.GetBytes(), nil
}

type summaryRow struct {
	label string
	value string
	bold  bool
}

func summaryRows(inv invoicedomain.Invoice) []summaryRow {
	rows := []summaryRow{{label: "Subtotal", value: format.INR(inv.Subtotal)}}
	if inv.Discount.IsPositive() {
		label := "Discount"
		if inv.DiscountPercentage.IsPositive() {
			label = "Discount (" + inv.DiscountPercentage.String() + "%)"
		}
		rows = append(rows, summaryRow{label: label, value: "-" + format.INR(inv.Discount)})
	}
	if inv.InterState {
		rows = append(rows, summaryRow{
			label: "IGST @ " + inv.TaxDetails.IGST.Rate.String() + "%",
			value: format.INR(inv.TaxDetails.IGST.Amount),
		})
	} else {
		rows = append(rows,
			summaryRow{label: "CGST @ " + inv.TaxDetails.CGST.Rate.String() + "%", value: format.INR(inv.TaxDetails.CGST.Amount)},
			summaryRow{label: "SGST @ " + inv.TaxDetails.SGST.Rate.String() + "%", value: format.INR(inv.TaxDetails.SGST.Amount)},
		)
	}
	if !inv.RoundOff.IsZero() {
		rows = append(rows, summaryRow{label: "Round off", value: format.INR(inv.RoundOff)})
	}
	rows = append(rows,
		summaryRow{label: "Grand total", value: format.INR(inv.GrandTotal), bold: true},
		summaryRow{label: "Paid (" + string(inv.PaymentMethod) + ")", value: format.INR(inv.PaidAmount)},
		summaryRow{label: "Balance due", value: format.INR(inv.Outstanding()), bold: true},
	)
	return rows
}

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + value
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
