package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/config"
	invoicedomain "github.com/smallbiznis/restobill/internal/invoice/domain"
	"github.com/smallbiznis/restobill/internal/invoice/numbering"
	"github.com/smallbiznis/restobill/internal/observability/logger"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/observability/tracing"
	"github.com/smallbiznis/restobill/internal/pos"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	taxdomain "github.com/smallbiznis/restobill/internal/tax/domain"
	"github.com/smallbiznis/restobill/pkg/db"
	"github.com/smallbiznis/restobill/pkg/db/option"
	"github.com/smallbiznis/restobill/pkg/db/pagination"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/smallbiznis/restobill/pkg/rls"
	"github.com/smallbiznis/restobill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       invoicedomain.Repository
	Allocator  *numbering.Allocator
	Calculator taxdomain.Calculator
	POS        pos.Reader
	Renderer   invoicedomain.Renderer
	Config     *config.InvoiceConfigHolder
	Metrics    *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	repo        invoicedomain.Repository
	invoicerepo repository.Finder[invoicedomain.Invoice]
	allocator   *numbering.Allocator
	calculator  taxdomain.Calculator
	pos         pos.Reader
	renderer    invoicedomain.Renderer
	cfg         *config.InvoiceConfigHolder
	metrics     *metrics.BillingMetrics
	validate    *validator.Validate
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		allocator:   p.Allocator,
		calculator:  p.Calculator,
		pos:         p.POS,
		renderer:    p.Renderer,
		cfg:         p.Config,
		metrics:     p.Metrics,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	ctx, span := tracing.Start(ctx, "invoice.create")
	defer span.End()

	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := s.validateRequest(req); err != nil {
		return invoicedomain.Invoice{}, err
	}
	orderID, err := parseID(req.OrderID, invoicedomain.ErrInvalidOrderID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	paid := decimal.Zero
	if req.PaidAmount != nil {
		paid = *req.PaidAmount
	}
	if paid.IsNegative() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidPaidAmount
	}

	restaurant, err := s.pos.FindRestaurant(ctx, s.db, restaurantID)
	if err != nil {
		return invoicedomain.Invoice{}, errs.Dependency(err, "find_restaurant")
	}
	if restaurant == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrRestaurantNotFound
	}
	order, err := s.pos.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return invoicedomain.Invoice{}, errs.Dependency(err, "find_order")
	}
	// An order of another restaurant is indistinguishable from a missing one.
	if order == nil || order.RestaurantID != restaurantID {
		return invoicedomain.Invoice{}, invoicedomain.ErrOrderNotFound
	}

	cfg := s.invoiceConfig()
	now := s.clock.Now()
	invoiceID := s.genID.Generate()

	items, subtotal, err := s.snapshotItems(invoiceID, restaurantID, order.Items, cfg.DefaultHSNCode)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	breakdown, err := s.calculator.Calculate(taxdomain.Input{
		Subtotal:           subtotal,
		Discount:           req.Discount,
		DiscountPercentage: req.DiscountPercentage,
		InterState:         req.InterState,
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = invoicedomain.PaymentMethodPending
	}
	upiID := strings.TrimSpace(req.UPIID)
	if upiID == "" {
		upiID = strings.TrimSpace(restaurant.UPIID)
	}
	customerName := strings.TrimSpace(req.Customer.Name)
	if customerName == "" {
		customerName = cfg.DefaultCustomerName
	}
	terms := strings.TrimSpace(req.TermsAndConditions)
	if terms == "" {
		terms = cfg.DefaultTerms
	}
	dueDate := now.AddDate(0, 0, cfg.DueDays)
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	}

	invoice := invoicedomain.Invoice{
		ID:           invoiceID,
		RestaurantID: restaurantID,
		OrderID:      order.ID,
		InvoiceDate:  now,
		DueDate:      dueDate,
		TableNumber:  order.TableNumber,
		Restaurant: invoicedomain.RestaurantSnapshot{
			Name:      restaurant.Name,
			Address:   restaurant.Address,
			Phone:     restaurant.Phone,
			Email:     restaurant.Email,
			GSTNumber: restaurant.GSTNumber,
			Logo:      restaurant.Logo,
		},
		Customer: invoicedomain.CustomerSnapshot{
			Name:  customerName,
			Phone: strings.TrimSpace(req.Customer.Phone),
			Email: strings.TrimSpace(req.Customer.Email),
			GSTIN: strings.ToUpper(strings.TrimSpace(req.Customer.GSTIN)),
		},
		Items:              items,
		InterState:         req.InterState,
		PaymentMethod:      method,
		PaidAmount:         paid,
		UPIID:              upiID,
		Notes:              strings.TrimSpace(req.Notes),
		TermsAndConditions: terms,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	applyBreakdown(&invoice, breakdown)
	s.settle(&invoice, now)

	if err := s.insertWithNumber(ctx, &invoice, cfg.MaxInsertAttempts); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.IncInvoiceCreated(string(invoice.PaymentStatus))
	logger.WithContext(ctx, s.log).Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("order_id", invoice.OrderID.String()),
		zap.String("grand_total", invoice.GrandTotal.String()),
		zap.String("payment_status", string(invoice.PaymentStatus)),
	)
	return invoice, nil
}

// insertWithNumber allocates a number and inserts in one transaction,
// retrying with a fresh number when the unique index rejects the insert.
func (s *Service) insertWithNumber(ctx context.Context, invoice *invoicedomain.Invoice, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultInvoiceConfig().MaxInsertAttempts
	}
	for attempt := 1; ; attempt++ {
		err := s.inRestaurant(ctx, invoice.RestaurantID, func(tx *gorm.DB) error {
			number, err := s.allocator.Allocate(ctx, tx, invoice.RestaurantID, invoice.InvoiceDate)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
			return s.repo.Insert(ctx, tx, invoice)
		})
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return errs.Dependency(err, "insert_invoice")
		}
		if attempt >= maxAttempts {
			return errors.WithSecondaryError(invoicedomain.ErrInvoiceNumberExhausted, err)
		}
		s.metrics.IncInvoiceInsertRetry()
		s.log.Debug("invoice number taken, retrying",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *Service) snapshotItems(invoiceID, restaurantID snowflake.ID, lines []pos.OrderItem, hsnCode string) ([]invoicedomain.Item, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, invoicedomain.ErrEmptyOrder
	}
	subtotal := decimal.Zero
	items := make([]invoicedomain.Item, 0, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, invoicedomain.ErrInvalidItemQuantity
		}
		if line.UnitPrice.IsNegative() {
			return nil, decimal.Zero, invoicedomain.ErrInvalidItemPrice
		}
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(amount)
		items = append(items, invoicedomain.Item{
			ID:           s.genID.Generate(),
			InvoiceID:    invoiceID,
			RestaurantID: restaurantID,
			Position:     i + 1,
			Name:         line.Name,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineAmount:   amount,
			HSNCode:      hsnCode,
		})
	}
	return items, subtotal, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var item *invoicedomain.Invoice
	err = s.inRestaurant(ctx, restaurantID, func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, restaurantID, invoiceID)
		if err != nil {
			return errs.Dependency(err, "find_invoice")
		}
		item = found
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	if err := validateRange(req.From, req.To); err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	filter := &invoicedomain.Invoice{RestaurantID: restaurantID}
	if req.PaymentStatus != nil {
		switch *req.PaymentStatus {
		case invoicedomain.PaymentStatusPaid, invoicedomain.PaymentStatusUnpaid, invoicedomain.PaymentStatusPartial:
			filter.PaymentStatus = *req.PaymentStatus
		default:
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPaymentStatus
		}
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
		option.ApplyPagination(req.Pagination),
		option.QueryOptionFunc(func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") })
		}),
	}
	if req.From != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "invoice_date",
			Operator: option.GTE,
			Value:    req.From.UTC(),
		}))
	}
	if req.To != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "invoice_date",
			Operator: option.LTE,
			Value:    req.To.UTC(),
		}))
	}
	if len(req.PaymentMethods) > 0 {
		for _, method := range req.PaymentMethods {
			if !method.Valid() {
				return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPaymentMethod
			}
		}
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "payment_method",
			Operator: option.IN,
			Value:    lo.Uniq(req.PaymentMethods),
		}))
	}

	var items []*invoicedomain.Invoice
	err = s.inRestaurant(ctx, restaurantID, func(tx *gorm.DB) error {
		found, err := s.invoicerepo.WithTrx(tx).Find(ctx, filter, options...)
		if err != nil {
			return errs.Dependency(err, "list_invoices")
		}
		items = found
		return nil
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	page, info := pagination.BuildCursorPageInfo(items, req.Pagination.Size(), func(inv *invoicedomain.Invoice) string {
		return pagination.CursorFor(inv.ID.String(), inv.CreatedAt)
	})
	invoices := make([]invoicedomain.Invoice, 0, len(page))
	for _, item := range page {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: info, Invoices: invoices}, nil
}

func (s *Service) Update(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := s.validateRequest(req); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.mutate(ctx, id, "update", func(inv *invoicedomain.Invoice, now time.Time) error {
		if req.CustomerName != nil {
			inv.Customer.Name = strings.TrimSpace(*req.CustomerName)
			if inv.Customer.Name == "" {
				inv.Customer.Name = s.invoiceConfig().DefaultCustomerName
			}
		}
		if req.CustomerPhone != nil {
			inv.Customer.Phone = strings.TrimSpace(*req.CustomerPhone)
		}
		if req.CustomerEmail != nil {
			inv.Customer.Email = strings.TrimSpace(*req.CustomerEmail)
		}
		if req.CustomerGSTIN != nil {
			inv.Customer.GSTIN = strings.ToUpper(strings.TrimSpace(*req.CustomerGSTIN))
		}
		if req.Notes != nil {
			inv.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.TermsAndConditions != nil {
			inv.TermsAndConditions = strings.TrimSpace(*req.TermsAndConditions)
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate.UTC()
		}

		if req.Discount == nil && req.DiscountPercentage == nil {
			return nil
		}
		discount, pct := inv.Discount, inv.DiscountPercentage
		if req.Discount != nil {
			discount = *req.Discount
		}
		if req.DiscountPercentage != nil {
			pct = *req.DiscountPercentage
		}
		breakdown, err := s.calculator.Calculate(taxdomain.Input{
			Subtotal:           inv.Subtotal,
			Discount:           discount,
			DiscountPercentage: pct,
			InterState:         inv.InterState,
		})
		if err != nil {
			return err
		}
		applyBreakdown(inv, breakdown)
		s.settle(inv, now)
		return nil
	})
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, req invoicedomain.UpdatePaymentRequest) (invoicedomain.PaymentUpdate, error) {
	if !req.PaymentMethod.Valid() {
		return invoicedomain.PaymentUpdate{}, invoicedomain.ErrInvalidPaymentMethod
	}
	if req.PaidAmount.IsNegative() {
		return invoicedomain.PaymentUpdate{}, invoicedomain.ErrInvalidPaidAmount
	}

	inv, err := s.mutate(ctx, id, "payment", func(inv *invoicedomain.Invoice, now time.Time) error {
		inv.PaymentMethod = req.PaymentMethod
		inv.PaidAmount = req.PaidAmount
		s.settle(inv, now)
		return nil
	})
	if err != nil {
		return invoicedomain.PaymentUpdate{}, err
	}
	return invoicedomain.PaymentUpdate{
		Invoice:      inv,
		OrderSettled: inv.PaymentStatus == invoicedomain.PaymentStatusPaid,
	}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return err
	}

	err = s.inRestaurant(ctx, restaurantID, func(tx *gorm.DB) error {
		inv, err := s.repo.FindByIDForUpdate(ctx, tx, restaurantID, invoiceID)
		if err != nil {
			return errs.Dependency(err, "lock_invoice")
		}
		if inv == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if inv.PaymentStatus == invoicedomain.PaymentStatusPaid {
			return invoicedomain.ErrCannotDeletePaidInvoice
		}
		ok, err := s.repo.Delete(ctx, tx, restaurantID, invoiceID)
		if err != nil {
			return errs.Dependency(err, "delete_invoice")
		}
		if !ok {
			return invoicedomain.ErrInvoiceNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx, s.log).Info("invoice deleted", zap.String("invoice_id", invoiceID.String()))
	return nil
}

func (s *Service) GenerateDocument(ctx context.Context, id string) (invoicedomain.Document, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	content, err := s.renderer.Render(ctx, inv)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	return invoicedomain.Document{
		FileName:    documentFileName(inv, s.renderer.Extension()),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

func (s *Service) Stats(ctx context.Context, req invoicedomain.StatsRequest) (invoicedomain.Stats, error) {
	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Stats{}, err
	}
	if err := validateRange(req.From, req.To); err != nil {
		return invoicedomain.Stats{}, err
	}
	var stats invoicedomain.Stats
	err = s.inRestaurant(ctx, restaurantID, func(tx *gorm.DB) error {
		out, err := s.repo.Stats(ctx, tx, restaurantID, req.From, req.To)
		if err != nil {
			return errs.Dependency(err, "invoice_stats")
		}
		stats = out
		return nil
	})
	if err != nil {
		return invoicedomain.Stats{}, err
	}
	return stats, nil
}

func (s *Service) MarkEmailSent(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, id, "email_sent", func(inv *invoicedomain.Invoice, now time.Time) error {
		sentAt := now
		inv.EmailSent = true
		inv.EmailSentAt = &sentAt
		return nil
	})
}

// mutate locks the invoice by (id, restaurant) and writes it back with a
// version guard.
func (s *Service) mutate(ctx context.Context, id, op string, apply func(*invoicedomain.Invoice, time.Time) error) (invoicedomain.Invoice, error) {
	restaurantID, err := s.restaurantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var out invoicedomain.Invoice
	err = s.inRestaurant(ctx, restaurantID, func(tx *gorm.DB) error {
		inv, err := s.repo.FindByIDForUpdate(ctx, tx, restaurantID, invoiceID)
		if err != nil {
			return errs.Dependency(err, "lock_invoice")
		}
		if inv == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		now := s.clock.Now()
		version := inv.Version
		if err := apply(inv, now); err != nil {
			return err
		}
		inv.UpdatedAt = now

		ok, err := s.repo.Update(ctx, tx, inv, version)
		if err != nil {
			return errs.Dependency(err, "update_invoice")
		}
		if !ok {
			return invoicedomain.ErrConcurrentModification
		}
		out = *inv
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	logger.WithContext(ctx, s.log).Info("invoice updated",
		zap.String("op", op),
		zap.String("invoice_id", out.ID.String()),
		zap.String("payment_status", string(out.PaymentStatus)),
		zap.Int64("version", out.Version),
	)
	return out, nil
}

// inRestaurant runs fn in a transaction pinned to the restaurant. The invoice
// tables enforce row level security on postgres, so every read and write
// goes through here.
func (s *Service) inRestaurant(ctx context.Context, restaurantID snowflake.ID, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithRestaurant(tx, int64(restaurantID)); err != nil {
			return errs.Dependency(err, "scope_restaurant")
		}
		return fn(tx)
	})
}

// settle derives the payment status and the fields that follow from it.
func (s *Service) settle(inv *invoicedomain.Invoice, now time.Time) {
	inv.PaymentStatus = invoicedomain.DerivePaymentStatus(inv.PaidAmount, inv.GrandTotal)
	if inv.PaymentStatus == invoicedomain.PaymentStatusPaid {
		if inv.PaidAt == nil {
			paidAt := now
			inv.PaidAt = &paidAt
		}
	} else {
		inv.PaidAt = nil
	}
	inv.UPIPaymentLink = upiPaymentLink(inv.UPIID, inv.Restaurant.Name, inv.GrandTotal, inv.PaymentStatus)
}

func applyBreakdown(inv *invoicedomain.Invoice, b taxdomain.Breakdown) {
	inv.Subtotal = b.Subtotal
	inv.Discount = b.Discount
	inv.DiscountPercentage = b.DiscountPercentage
	inv.TaxDetails = invoicedomain.TaxDetails{
		CGST: invoicedomain.TaxComponent{Rate: b.CGST.Rate, Amount: b.CGST.Amount},
		SGST: invoicedomain.TaxComponent{Rate: b.SGST.Rate, Amount: b.SGST.Amount},
		IGST: invoicedomain.TaxComponent{Rate: b.IGST.Rate, Amount: b.IGST.Amount},
	}
	inv.TotalTax = b.TotalTax
	inv.TotalAmount = b.TotalAmount
	inv.RoundOff = b.RoundOff
	inv.GrandTotal = b.GrandTotal
}

// upiPaymentLink builds the UPI deep link encoded into the payment QR. No
// link is issued without a UPI id or once the invoice is paid.
func upiPaymentLink(upiID, payeeName string, amount decimal.Decimal, status invoicedomain.PaymentStatus) string {
	if upiID == "" || status == invoicedomain.PaymentStatusPaid {
		return ""
	}
	params := url.Values{}
	params.Set("pa", upiID)
	params.Set("pn", payeeName)
	params.Set("am", amount.String())
	params.Set("cu", "INR")
	// UPI apps expect %20 rather than the form encoding of spaces.
	return "upi://pay?" + strings.ReplaceAll(params.Encode(), "+", "%20")
}

func documentFileName(inv invoicedomain.Invoice, ext string) string {
	name := slug.Make(inv.Restaurant.Name)
	if name == "" {
		name = "restaurant"
	}
	return "invoice-" + name + "-" + inv.InvoiceNumber + "." + ext
}

func (s *Service) invoiceConfig() config.InvoiceConfig {
	if s.cfg == nil {
		return config.DefaultInvoiceConfig()
	}
	return s.cfg.Get()
}

func (s *Service) validateRequest(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return errors.WithSecondaryError(invoicedomain.ErrInvalidRequest, err)
	}
	return nil
}

func (s *Service) restaurantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	restaurantID, ok := restaurantctx.RestaurantIDFromContext(ctx)
	if !ok || restaurantID == 0 {
		return 0, invoicedomain.ErrMissingRestaurantContext
	}
	return restaurantID, nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return invoicedomain.ErrInvalidDateRange
	}
	return nil
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
