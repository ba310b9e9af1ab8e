// Package numbering hands out per-restaurant monthly invoice numbers.
package numbering

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/config"
	"github.com/smallbiznis/restobill/internal/invoice/format"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultMaxProbes = 100

type Allocator struct {
	log      *zap.Logger
	repo     invoicedomain.Repository
	cfg      *config.InvoiceConfigHolder
	metrics  *metrics.BillingMetrics
	template string
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    invoicedomain.Repository
	Config  *config.InvoiceConfigHolder
	Metrics *metrics.BillingMetrics `optional:"true"`
}

func NewAllocator(p Params) *Allocator {
	return &Allocator{
		log:      p.Log.Named("invoice.numbering"),
		repo:     p.Repo,
		cfg:      p.Config,
		metrics:  p.Metrics,
		template: format.DefaultInvoiceNumberTemplate,
	}
}

// Allocate returns the first free INV-YYYYMM-NNNN number for the month of
// at. The probe is an optimization: the (restaurant_id, invoice_number)
// unique index decides, and callers retry on a violation.
func (a *Allocator) Allocate(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, at time.Time) (string, error) {
	at = at.UTC()
	prefix := format.NumberPrefix(a.template, at)

	issued, err := a.repo.CountNumbersWithPrefix(ctx, db, restaurantID, prefix)
	if err != nil {
		return "", errs.Dependency(err, "count_invoice_numbers")
	}

	probes := a.maxProbes()
	// Numbers freed by a delete are not reused; probing moves past any gap.
	seq := issued + 1
	for attempt := 0; attempt < probes; attempt++ {
		candidate, err := format.FormatInvoiceNumber(a.template, at, seq)
		if err != nil {
			return "", err
		}
		exists, err := a.repo.NumberExists(ctx, db, restaurantID, candidate)
		if err != nil {
			return "", errs.Dependency(err, "probe_invoice_number")
		}
		if !exists {
			a.metrics.AddInvoiceNumberCollisions(attempt)
			return candidate, nil
		}
		seq++
	}

	a.metrics.AddInvoiceNumberCollisions(probes)
	a.metrics.IncInvoiceNumberFallback()
	fallback := format.FallbackInvoiceNumber(a.template, at)
	a.log.Warn("invoice number probes exhausted, using fallback",
		zap.String("restaurant_id", restaurantID.String()),
		zap.String("invoice_number", fallback),
		zap.Int("probes", probes),
	)
	return fallback, nil
}

func (a *Allocator) maxProbes() int {
	if a.cfg == nil {
		return defaultMaxProbes
	}
	if n := a.cfg.Get().MaxNumberProbes; n > 0 {
		return n
	}
	return defaultMaxProbes
}
