package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

// Insert writes the invoice and its items.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.find(db.WithContext(ctx), restaurantID, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), restaurantID, id)
}

func (r *repo) find(db *gorm.DB, restaurantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

// Update rewrites the mutable columns when the stored version matches.
// Items are immutable after creation.
func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice, expectedVersion int64) (bool, error) {
	next := expectedVersion + 1
	result := db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("id = ? AND restaurant_id = ? AND version = ?", invoice.ID, invoice.RestaurantID, expectedVersion).
		Updates(map[string]any{
			"due_date":             invoice.DueDate,
			"customer_name":        invoice.Customer.Name,
			"customer_phone":       invoice.Customer.Phone,
			"customer_email":       invoice.Customer.Email,
			"customer_gstin":       invoice.Customer.GSTIN,
			"discount":             invoice.Discount,
			"discount_percentage":  invoice.DiscountPercentage,
			"cgst_rate":            invoice.TaxDetails.CGST.Rate,
			"cgst_amount":          invoice.TaxDetails.CGST.Amount,
			"sgst_rate":            invoice.TaxDetails.SGST.Rate,
			"sgst_amount":          invoice.TaxDetails.SGST.Amount,
			"igst_rate":            invoice.TaxDetails.IGST.Rate,
			"igst_amount":          invoice.TaxDetails.IGST.Amount,
			"total_tax":            invoice.TotalTax,
			"total_amount":         invoice.TotalAmount,
			"round_off":            invoice.RoundOff,
			"grand_total":          invoice.GrandTotal,
			"payment_method":       invoice.PaymentMethod,
			"payment_status":       invoice.PaymentStatus,
			"paid_amount":          invoice.PaidAmount,
			"paid_at":              invoice.PaidAt,
			"upi_payment_link":     invoice.UPIPaymentLink,
			"notes":                invoice.Notes,
			"terms_and_conditions": invoice.TermsAndConditions,
			"email_sent":           invoice.EmailSent,
			"email_sent_at":        invoice.EmailSentAt,
			"version":              next,
			"updated_at":           invoice.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	invoice.Version = next
	return true, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE invoice_id = ? AND restaurant_id = ?`,
		id,
		restaurantID,
	).Error; err != nil {
		return false, err
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE id = ? AND restaurant_id = ?`,
		id,
		restaurantID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) CountNumbersWithPrefix(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("restaurant_id = ? AND invoice_number LIKE ?", restaurantID, prefix+"%").
		Count(&count).Error
	return count, err
}

func (r *repo) NumberExists(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, number string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("restaurant_id = ? AND invoice_number = ?", restaurantID, number).
		Count(&count).Error
	return count > 0, err
}

type totalsRow struct {
	TotalInvoices int64
	TotalRevenue  decimal.NullDecimal
	TotalPaid     decimal.NullDecimal
	TotalUnpaid   decimal.NullDecimal
	TotalPartial  decimal.NullDecimal
	TotalTax      decimal.NullDecimal
	TotalDiscount decimal.NullDecimal
}

type methodRow struct {
	PaymentMethod invoicedomain.PaymentMethod
	Count         int64
	Amount        decimal.NullDecimal
}

type statusRow struct {
	PaymentStatus invoicedomain.PaymentStatus
	Count         int64
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, from, to *time.Time) (invoicedomain.Stats, error) {
	scope := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&invoicedomain.Invoice{}).Where("restaurant_id = ?", restaurantID)
		if from != nil {
			q = q.Where("invoice_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("invoice_date <= ?", *to)
		}
		return q
	}

	var totals totalsRow
	err := scope().Select(
		`COUNT(*) AS total_invoices,
		 SUM(grand_total) AS total_revenue,
		 SUM(CASE WHEN payment_status = ? THEN grand_total ELSE 0 END) AS total_paid,
		 SUM(CASE WHEN payment_status = ? THEN grand_total ELSE 0 END) AS total_unpaid,
		 SUM(CASE WHEN payment_status = ? THEN grand_total - paid_amount ELSE 0 END) AS total_partial,
		 SUM(total_tax) AS total_tax,
		 SUM(discount) AS total_discount`,
		invoicedomain.PaymentStatusPaid,
		invoicedomain.PaymentStatusUnpaid,
		invoicedomain.PaymentStatusPartial,
	).Scan(&totals).Error
	if err != nil {
		return invoicedomain.Stats{}, err
	}

	var methods []methodRow
	err = scope().
		Select("payment_method, COUNT(*) AS count, SUM(grand_total) AS amount").
		Group("payment_method").
		Scan(&methods).Error
	if err != nil {
		return invoicedomain.Stats{}, err
	}

	var statuses []statusRow
	err = scope().
		Select("payment_status, COUNT(*) AS count").
		Group("payment_status").
		Scan(&statuses).Error
	if err != nil {
		return invoicedomain.Stats{}, err
	}

	stats := invoicedomain.Stats{
		TotalInvoices:          totals.TotalInvoices,
		TotalRevenue:           totals.TotalRevenue.Decimal,
		TotalPaid:              totals.TotalPaid.Decimal,
		TotalUnpaid:            totals.TotalUnpaid.Decimal,
		TotalPartial:           totals.TotalPartial.Decimal,
		TotalTax:               totals.TotalTax.Decimal,
		TotalDiscount:          totals.TotalDiscount.Decimal,
		PaymentMethodBreakdown: make(map[invoicedomain.PaymentMethod]invoicedomain.MethodBreakdown, len(methods)),
		StatusBreakdown:        make(map[invoicedomain.PaymentStatus]int64, len(statuses)),
	}
	for _, m := range methods {
		stats.PaymentMethodBreakdown[m.PaymentMethod] = invoicedomain.MethodBreakdown{Count: m.Count, Amount: m.Amount.Decimal}
	}
	for _, s := range statuses {
		stats.StatusBreakdown[s.PaymentStatus] = s.Count
	}
	return stats, nil
}
