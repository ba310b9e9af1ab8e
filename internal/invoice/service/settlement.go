package service

import (
	"context"

	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/smallbiznis/restobill/internal/observability/logger"
	"github.com/smallbiznis/restobill/internal/pos"
	"github.com/smallbiznis/restobill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SettlerParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Invoices invoicedomain.Service
	Orders   pos.Writer
}

// Settler records invoice payments and marks the originating order paid
// once the invoice is fully settled.
type Settler struct {
	db       *gorm.DB
	log      *zap.Logger
	invoices invoicedomain.Service
	orders   pos.Writer
}

func NewSettler(p SettlerParam) *Settler {
	return &Settler{
		db:       p.DB,
		log:      p.Log.Named("invoice.settler"),
		invoices: p.Invoices,
		orders:   p.Orders,
	}
}

func (s *Settler) RecordPayment(ctx context.Context, id string, req invoicedomain.UpdatePaymentRequest) (invoicedomain.PaymentUpdate, error) {
	update, err := s.invoices.UpdatePaymentStatus(ctx, id, req)
	if err != nil {
		return invoicedomain.PaymentUpdate{}, err
	}
	if !update.OrderSettled {
		return update, nil
	}

	inv := update.Invoice
	if err := s.orders.MarkOrderPaid(ctx, s.db, inv.RestaurantID, inv.OrderID); err != nil {
		// The invoice is already paid; a retry only repeats the order write.
		logger.WithContext(ctx, s.log).Warn("mark order paid failed",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("order_id", inv.OrderID.String()),
			zap.Error(err),
		)
		return update, errs.Dependency(err, "mark_order_paid")
	}
	return update, nil
}
