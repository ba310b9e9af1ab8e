package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/pkg/db/pagination"
	"github.com/smallbiznis/restobill/pkg/errs"
)

var (
	ErrMissingRestaurantContext = errs.InvalidInput("missing_restaurant_context")
	ErrInvalidInvoiceID         = errs.InvalidInput("invalid_invoice_id")
	ErrInvalidOrderID           = errs.InvalidInput("invalid_order_id")
	ErrInvalidPaymentMethod     = errs.InvalidInput("invalid_payment_method")
	ErrInvalidPaidAmount        = errs.InvalidInput("invalid_paid_amount")
	ErrInvalidPaymentStatus     = errs.InvalidInput("invalid_payment_status")
	ErrEmptyOrder               = errs.InvalidInput("order_has_no_items")
	ErrInvalidItemQuantity      = errs.InvalidInput("invalid_item_quantity")
	ErrInvalidItemPrice         = errs.InvalidInput("invalid_item_price")
	ErrInvalidRequest           = errs.InvalidInput("invalid_invoice_request")
	ErrInvalidDateRange         = errs.InvalidInput("invalid_date_range")
	ErrInvoiceNotFound          = errs.NotFound("invoice_not_found")
	ErrOrderNotFound            = errs.NotFound("order_not_found")
	ErrRestaurantNotFound       = errs.NotFound("restaurant_not_found")
	ErrCannotDeletePaidInvoice  = errs.Conflict("cannot_delete_paid_invoice")
	ErrConcurrentModification   = errs.Conflict("invoice_version_mismatch")
	ErrInvoiceNumberExhausted   = errs.Conflict("invoice_number_exhausted")
)

// CustomerInput overrides the walk-in customer defaults.
type CustomerInput struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Email string `json:"email" validate:"omitempty,email"`
	GSTIN string `json:"gstin" validate:"omitempty,len=15,alphanum"`
}

type CreateInvoiceRequest struct {
	OrderID            string           `json:"orderId" validate:"required"`
	Customer           CustomerInput    `json:"customer"`
	Discount           decimal.Decimal  `json:"discount"`
	DiscountPercentage decimal.Decimal  `json:"discountPercentage"`
	InterState         bool             `json:"interState"`
	PaymentMethod      PaymentMethod    `json:"paymentMethod" validate:"omitempty,oneof=cash card upi wallet pending"`
	PaidAmount         *decimal.Decimal `json:"paidAmount,omitempty"`
	UPIID              string           `json:"upiId" validate:"omitempty,max=100"`
	Notes              string           `json:"notes" validate:"omitempty,max=2000"`
	TermsAndConditions string           `json:"termsAndConditions" validate:"omitempty,max=2000"`
	DueDate            *time.Time       `json:"dueDate,omitempty"`
}

// UpdateInvoiceRequest changes only the non-nil fields.
type UpdateInvoiceRequest struct {
	CustomerName       *string          `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerPhone      *string          `json:"customerPhone,omitempty" validate:"omitempty,max=32"`
	CustomerEmail      *string          `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerGSTIN      *string          `json:"customerGstin,omitempty" validate:"omitempty,len=15,alphanum"`
	Discount           *decimal.Decimal `json:"discount,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	Notes              *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TermsAndConditions *string          `json:"termsAndConditions,omitempty" validate:"omitempty,max=2000"`
	DueDate            *time.Time       `json:"dueDate,omitempty"`
}

type UpdatePaymentRequest struct {
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=cash card upi wallet pending"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
}

// PaymentUpdate tells the caller whether the originating order must now be
// marked paid.
type PaymentUpdate struct {
	Invoice      Invoice `json:"invoice"`
	OrderSettled bool    `json:"orderSettled"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	PaymentStatus  *PaymentStatus
	PaymentMethods []PaymentMethod
	From           *time.Time
	To             *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type StatsRequest struct {
	From *time.Time
	To   *time.Time
}

type MethodBreakdown struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Stats struct {
	TotalInvoices          int64                             `json:"totalInvoices"`
	TotalRevenue           decimal.Decimal                   `json:"totalRevenue"`
	TotalPaid              decimal.Decimal                   `json:"totalPaid"`
	TotalUnpaid            decimal.Decimal                   `json:"totalUnpaid"`
	TotalPartial           decimal.Decimal                   `json:"totalPartial"`
	TotalTax               decimal.Decimal                   `json:"totalTax"`
	TotalDiscount          decimal.Decimal                   `json:"totalDiscount"`
	PaymentMethodBreakdown map[PaymentMethod]MethodBreakdown `json:"paymentMethodBreakdown"`
	StatusBreakdown        map[PaymentStatus]int64           `json:"statusBreakdown"`
}

// Document is a rendered invoice ready for download.
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	UpdatePaymentStatus(ctx context.Context, id string, req UpdatePaymentRequest) (PaymentUpdate, error)
	Delete(ctx context.Context, id string) error
	GenerateDocument(ctx context.Context, id string) (Document, error)
	Stats(ctx context.Context, req StatsRequest) (Stats, error)
	MarkEmailSent(ctx context.Context, id string) (Invoice, error)
}

// Renderer turns a finalized invoice into a document.
type Renderer interface {
	Render(ctx context.Context, invoice Invoice) ([]byte, error)
	ContentType() string
	Extension() string
}
