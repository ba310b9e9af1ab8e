package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/observability/logger"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/observability/tracing"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	transactiondomain "github.com/smallbiznis/restobill/internal/transaction/domain"
	"github.com/smallbiznis/restobill/pkg/db"
	"github.com/smallbiznis/restobill/pkg/db/option"
	"github.com/smallbiznis/restobill/pkg/db/pagination"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/smallbiznis/restobill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const exportLimit = 10000

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    transactiondomain.Repository
	Metrics *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     transactiondomain.Repository
	txnrepo  repository.Finder[transactiondomain.Transaction]
	metrics  *metrics.BillingMetrics
	validate *validator.Validate
}

func NewService(p ServiceParam) transactiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("transaction.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		txnrepo:  repository.ProvideStore[transactiondomain.Transaction](p.DB),
		metrics:  p.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, req transactiondomain.CreateTransactionRequest) (transactiondomain.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return transactiondomain.Transaction{}, errors.WithSecondaryError(transactiondomain.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Reference) == "" {
		return transactiondomain.Transaction{}, transactiondomain.ErrInvalidReference
	}
	restaurantID, err := parseID(req.RestaurantID, transactiondomain.ErrInvalidRestaurantID)
	if err != nil {
		return transactiondomain.Transaction{}, err
	}
	if !req.Type.Valid() {
		return transactiondomain.Transaction{}, transactiondomain.ErrInvalidType
	}
	if !req.Amount.IsPositive() {
		return transactiondomain.Transaction{}, transactiondomain.ErrInvalidAmount
	}

	status := lo.Ternary(req.Status == "", transactiondomain.StatusPending, req.Status)
	if !status.Valid() {
		return transactiondomain.Transaction{}, transactiondomain.ErrInvalidStatus
	}
	method := lo.Ternary(req.PaymentMethod == "", transactiondomain.PaymentMethodUPI, req.PaymentMethod)
	if !method.Valid() {
		return transactiondomain.Transaction{}, transactiondomain.ErrInvalidPaymentMethod
	}
	planCode := ""
	if strings.TrimSpace(req.Plan) != "" {
		code, err := plan.ParseCode(req.Plan)
		if err != nil {
			return transactiondomain.Transaction{}, transactiondomain.ErrInvalidPlan
		}
		planCode = string(code)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = transactiondomain.DefaultCurrency
	}

	now := s.clock.Now()
	txn := transactiondomain.Transaction{
		ID:            s.genID.Generate(),
		RestaurantID:  restaurantID,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        status,
		PaymentMethod: method,
		Reference:     strings.TrimSpace(req.Reference),
		Plan:          planCode,
		Description:   strings.TrimSpace(req.Description),
		Metadata:      toMetadata(req.Metadata),
		ProcessedBy:   s.processedBy(ctx, req.ProcessedBy),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &txn); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return transactiondomain.Transaction{}, transactiondomain.ErrDuplicateReference
		}
		return transactiondomain.Transaction{}, errs.Dependency(err, "insert_transaction")
	}

	logger.WithContext(ctx, s.log).Info("transaction recorded",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("reference", txn.Reference),
		zap.String("type", string(txn.Type)),
		zap.String("status", string(txn.Status)),
		zap.String("amount", txn.Amount.String()),
	)
	return txn, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (transactiondomain.Transaction, error) {
	txnID, err := parseID(id, transactiondomain.ErrInvalidTransactionID)
	if err != nil {
		return transactiondomain.Transaction{}, err
	}
	txn, err := s.repo.FindByID(ctx, s.db, txnID)
	if err != nil {
		return transactiondomain.Transaction{}, errs.Dependency(err, "find_transaction")
	}
	if txn == nil {
		return transactiondomain.Transaction{}, transactiondomain.ErrTransactionNotFound
	}
	return *txn, nil
}

func (s *Service) List(ctx context.Context, req transactiondomain.ListTransactionRequest) (transactiondomain.ListTransactionResponse, error) {
	items, err := s.find(ctx, req, option.ApplyPagination(req.Pagination))
	if err != nil {
		return transactiondomain.ListTransactionResponse{}, err
	}

	page, info := pagination.BuildCursorPageInfo(items, req.Pagination.Size(), func(t *transactiondomain.Transaction) string {
		return pagination.CursorFor(t.ID.String(), t.CreatedAt)
	})
	return transactiondomain.ListTransactionResponse{
		PageInfo: info,
		Transactions: lo.FilterMap(page, func(t *transactiondomain.Transaction, _ int) (transactiondomain.Transaction, bool) {
			if t == nil {
				return transactiondomain.Transaction{}, false
			}
			return *t, true
		}),
	}, nil
}

func (s *Service) find(ctx context.Context, req transactiondomain.ListTransactionRequest, extra ...option.QueryOption) ([]*transactiondomain.Transaction, error) {
	filter := &transactiondomain.Transaction{}
	if strings.TrimSpace(req.RestaurantID) != "" {
		restaurantID, err := parseID(req.RestaurantID, transactiondomain.ErrInvalidRestaurantID)
		if err != nil {
			return nil, err
		}
		filter.RestaurantID = restaurantID
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, transactiondomain.ErrInvalidType
		}
		filter.Type = *req.Type
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, transactiondomain.ErrInvalidStatus
		}
		filter.Status = *req.Status
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, transactiondomain.ErrInvalidDateRange
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	}
	if req.From != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    req.From.UTC(),
		}))
	}
	if req.To != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.LTE,
			Value:    req.To.UTC(),
		}))
	}
	options = append(options, extra...)

	items, err := s.txnrepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, errs.Dependency(err, "list_transactions")
	}
	return items, nil
}

// Refund creates a completed refund row and flips the original to refunded
// in one transaction. The status-filtered update makes a second refund of the
// same transaction fail with ErrAlreadyRefunded.
func (s *Service) Refund(ctx context.Context, id string, req transactiondomain.RefundRequest) (transactiondomain.RefundResult, error) {
	ctx, span := tracing.Start(ctx, "transaction.refund")
	defer span.End()

	txnID, err := parseID(id, transactiondomain.ErrInvalidTransactionID)
	if err != nil {
		return transactiondomain.RefundResult{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return transactiondomain.RefundResult{}, errors.WithSecondaryError(transactiondomain.ErrInvalidRequest, err)
	}

	var result transactiondomain.RefundResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.repo.FindByIDForUpdate(ctx, tx, txnID)
		if err != nil {
			return errs.Dependency(err, "lock_transaction")
		}
		if original == nil {
			return transactiondomain.ErrTransactionNotFound
		}
		if original.Status == transactiondomain.StatusRefunded {
			return transactiondomain.ErrAlreadyRefunded
		}
		if original.Type == transactiondomain.TypeRefund {
			return transactiondomain.ErrRefundOfRefund
		}

		amount := original.Amount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if !amount.IsPositive() {
			return transactiondomain.ErrInvalidAmount
		}
		if amount.GreaterThan(original.Amount) {
			return transactiondomain.ErrRefundExceedsAmount
		}

		now := s.clock.Now()
		reason := strings.TrimSpace(req.Reason)
		processedBy := s.processedBy(ctx, req.ProcessedBy)

		ok, err := s.repo.MarkRefunded(ctx, tx, original.ID, reason, processedBy, now)
		if err != nil {
			return errs.Dependency(err, "mark_refunded")
		}
		if !ok {
			return transactiondomain.ErrAlreadyRefunded
		}

		refund := transactiondomain.Transaction{
			ID:            s.genID.Generate(),
			RestaurantID:  original.RestaurantID,
			Type:          transactiondomain.TypeRefund,
			Amount:        amount,
			Currency:      original.Currency,
			Status:        transactiondomain.StatusCompleted,
			PaymentMethod: original.PaymentMethod,
			Reference:     refundReference(now),
			Plan:          original.Plan,
			Description:   "Refund for " + original.Reference,
			Metadata: datatypes.JSONMap{
				transactiondomain.MetadataOriginalTransaction: original.ID.String(),
			},
			RefundReason: reason,
			ProcessedBy:  processedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Insert(ctx, tx, &refund); err != nil {
			return errs.Dependency(err, "insert_refund")
		}

		refundedAt := now
		original.Status = transactiondomain.StatusRefunded
		original.RefundedAt = &refundedAt
		original.RefundReason = reason
		original.ProcessedBy = processedBy
		original.UpdatedAt = now

		result = transactiondomain.RefundResult{Original: *original, Refund: refund}
		return nil
	})
	if err != nil {
		return transactiondomain.RefundResult{}, err
	}

	s.metrics.IncRefund()
	logger.WithContext(ctx, s.log).Info("transaction refunded",
		zap.String("transaction_id", result.Original.ID.String()),
		zap.String("refund_id", result.Refund.ID.String()),
		zap.String("amount", result.Refund.Amount.String()),
	)
	return result, nil
}

// FinancialSummary aggregates completed transactions created in [from, to).
func (s *Service) FinancialSummary(ctx context.Context, from, to time.Time) (transactiondomain.FinancialSummary, error) {
	if !to.After(from) {
		return transactiondomain.FinancialSummary{}, transactiondomain.ErrInvalidDateRange
	}
	rows, err := s.repo.Summarize(ctx, s.db, from.UTC(), to.UTC())
	if err != nil {
		return transactiondomain.FinancialSummary{}, errs.Dependency(err, "summarize_transactions")
	}
	return summarize(rows), nil
}

func summarize(rows []transactiondomain.SummaryRow) transactiondomain.FinancialSummary {
	out := transactiondomain.FinancialSummary{
		TotalRevenue:    decimal.Zero,
		TotalRefunds:    decimal.Zero,
		ByType:          map[transactiondomain.Type]transactiondomain.Bucket{},
		ByPlan:          map[string]transactiondomain.Bucket{},
		ByPaymentMethod: map[transactiondomain.PaymentMethod]transactiondomain.Bucket{},
	}
	add := func(b transactiondomain.Bucket, count int64, amount decimal.Decimal) transactiondomain.Bucket {
		return transactiondomain.Bucket{Count: b.Count + count, Amount: b.Amount.Add(amount)}
	}

	for _, row := range rows {
		amount := row.Amount.Decimal
		if row.Type == transactiondomain.TypeRefund {
			out.TotalRefunds = out.TotalRefunds.Add(amount)
		} else {
			out.TotalRevenue = out.TotalRevenue.Add(amount)
		}
		out.TransactionCount += row.Count
		out.ByType[row.Type] = add(out.ByType[row.Type], row.Count, amount)
		if row.Plan != "" {
			out.ByPlan[row.Plan] = add(out.ByPlan[row.Plan], row.Count, amount)
		}
		out.ByPaymentMethod[row.PaymentMethod] = add(out.ByPaymentMethod[row.PaymentMethod], row.Count, amount)
	}
	out.NetRevenue = out.TotalRevenue.Sub(out.TotalRefunds)
	return out
}

// RevenueTrends returns one summary per calendar month (UTC), oldest first,
// ending with the current month.
func (s *Service) RevenueTrends(ctx context.Context, months int) ([]transactiondomain.MonthlyRevenue, error) {
	if months == 0 {
		months = transactiondomain.DefaultTrendMonths
	}
	if months < 0 || months > transactiondomain.MaxTrendMonths {
		return nil, transactiondomain.ErrInvalidMonths
	}

	now := s.clock.Now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	trends := make([]transactiondomain.MonthlyRevenue, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		summary, err := s.FinancialSummary(ctx, start, start.AddDate(0, 1, 0))
		if err != nil {
			return nil, err
		}
		trends = append(trends, transactiondomain.MonthlyRevenue{
			Month:        start.Format("Jan 2006"),
			Start:        start,
			Revenue:      summary.TotalRevenue,
			Refunds:      summary.TotalRefunds,
			NetRevenue:   summary.NetRevenue,
			Transactions: summary.TransactionCount,
		})
	}
	return trends, nil
}

func (s *Service) processedBy(ctx context.Context, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if actor, ok := restaurantctx.ActorFromContext(ctx); ok {
		return actor.ID
	}
	return ""
}

func refundReference(now time.Time) string {
	return "REFUND-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func toMetadata(in map[string]string) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range in {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
