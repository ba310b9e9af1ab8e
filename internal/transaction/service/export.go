package service

import (
	"context"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	transactiondomain "github.com/smallbiznis/restobill/internal/transaction/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
	"gorm.io/gorm"
)

type csvRecord struct {
	Date          string `csv:"date"`
	Reference     string `csv:"transaction_id"`
	RestaurantID  string `csv:"restaurant_id"`
	Type          string `csv:"type"`
	Amount        string `csv:"amount"`
	Currency      string `csv:"currency"`
	Status        string `csv:"status"`
	PaymentMethod string `csv:"payment_method"`
	Plan          string `csv:"plan"`
	Description   string `csv:"description"`
}

// ExportCSV writes the filtered transactions, newest first, ignoring the
// page token. At most exportLimit rows are written.
func (s *Service) ExportCSV(ctx context.Context, req transactiondomain.ListTransactionRequest, w io.Writer) error {
	req.PageToken = ""
	items, err := s.find(ctx, req, limitOption(exportLimit))
	if err != nil {
		return err
	}

	records := lo.Map(items, func(t *transactiondomain.Transaction, _ int) csvRecord {
		return csvRecord{
			Date:          t.CreatedAt.UTC().Format("2006-01-02"),
			Reference:     t.Reference,
			RestaurantID:  t.RestaurantID.String(),
			Type:          string(t.Type),
			Amount:        t.Amount.StringFixed(2),
			Currency:      t.Currency,
			Status:        string(t.Status),
			PaymentMethod: string(t.PaymentMethod),
			Plan:          lo.Ternary(t.Plan == "", "N/A", t.Plan),
			Description:   t.Description,
		}
	})
	if err := gocsv.Marshal(records, w); err != nil {
		return errs.Dependency(err, "export_transactions_csv")
	}
	return nil
}

type limitOption int

func (l limitOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(int(l))
}
