package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/pkg/db/pagination"
	"github.com/smallbiznis/restobill/pkg/errs"
)

var (
	ErrInvalidRequest       = errs.InvalidInput("invalid_transaction_request")
	ErrInvalidTransactionID = errs.InvalidInput("invalid_transaction_id")
	ErrInvalidRestaurantID  = errs.InvalidInput("invalid_restaurant_id")
	ErrInvalidType          = errs.InvalidInput("invalid_transaction_type")
	ErrInvalidStatus        = errs.InvalidInput("invalid_transaction_status")
	ErrInvalidPaymentMethod = errs.InvalidInput("invalid_payment_method")
	ErrInvalidAmount        = errs.InvalidInput("invalid_amount")
	ErrInvalidReference     = errs.InvalidInput("invalid_transaction_reference")
	ErrInvalidPlan          = errs.InvalidInput("invalid_plan")
	ErrInvalidDateRange     = errs.InvalidInput("invalid_date_range")
	ErrInvalidMonths        = errs.InvalidInput("invalid_months")
	ErrRefundExceedsAmount  = errs.InvalidInput("refund_exceeds_amount")
	ErrRefundOfRefund       = errs.InvalidInput("cannot_refund_refund")
	ErrTransactionNotFound  = errs.NotFound("transaction_not_found")
	ErrDuplicateReference   = errs.AlreadyExists("transaction_reference_exists")
	ErrAlreadyRefunded      = errs.Conflict("transaction_already_refunded")
)

const (
	DefaultTrendMonths = 12
	MaxTrendMonths     = 60
)

type CreateTransactionRequest struct {
	RestaurantID  string            `json:"restaurantId" validate:"required"`
	Type          Type              `json:"type" validate:"required"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Status        Status            `json:"status"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Reference     string            `json:"transactionId" validate:"required,max=191"`
	Plan          string            `json:"plan"`
	Description   string            `json:"description" validate:"omitempty,max=500"`
	Metadata      map[string]string `json:"metadata"`
	ProcessedBy   string            `json:"processedBy"`
}

type ListTransactionRequest struct {
	pagination.Pagination
	RestaurantID string
	Type         *Type
	Status       *Status
	From         *time.Time
	To           *time.Time
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

// RefundRequest refunds the full original amount when Amount is nil.
type RefundRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Reason      string           `json:"reason" validate:"omitempty,max=500"`
	ProcessedBy string           `json:"processedBy"`
}

type RefundResult struct {
	Original Transaction `json:"original"`
	Refund   Transaction `json:"refund"`
}

type Bucket struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// FinancialSummary covers completed transactions only. Refund rows count
// toward TotalRefunds, every other type toward TotalRevenue.
type FinancialSummary struct {
	TotalRevenue     decimal.Decimal          `json:"totalRevenue"`
	TotalRefunds     decimal.Decimal          `json:"totalRefunds"`
	NetRevenue       decimal.Decimal          `json:"netRevenue"`
	TransactionCount int64                    `json:"transactionCount"`
	ByType           map[Type]Bucket          `json:"byType"`
	ByPlan           map[string]Bucket        `json:"byPlan"`
	ByPaymentMethod  map[PaymentMethod]Bucket `json:"byPaymentMethod"`
}

type MonthlyRevenue struct {
	Month        string          `json:"month"`
	Start        time.Time       `json:"start"`
	Revenue      decimal.Decimal `json:"revenue"`
	Refunds      decimal.Decimal `json:"refunds"`
	NetRevenue   decimal.Decimal `json:"netRevenue"`
	Transactions int64           `json:"transactions"`
}

type Service interface {
	Create(ctx context.Context, req CreateTransactionRequest) (Transaction, error)
	GetByID(ctx context.Context, id string) (Transaction, error)
	List(ctx context.Context, req ListTransactionRequest) (ListTransactionResponse, error)
	Refund(ctx context.Context, id string, req RefundRequest) (RefundResult, error)
	FinancialSummary(ctx context.Context, from, to time.Time) (FinancialSummary, error)
	RevenueTrends(ctx context.Context, months int) ([]MonthlyRevenue, error)
	ExportCSV(ctx context.Context, req ListTransactionRequest, w io.Writer) error
}
