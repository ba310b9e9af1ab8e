package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodUPI     PaymentMethod = "upi"
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodPending PaymentMethod = "pending"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet, PaymentMethodPending:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
)

// DerivePaymentStatus is the only source of an invoice payment status.
// A zero grand total counts as paid.
func DerivePaymentStatus(paidAmount, grandTotal decimal.Decimal) PaymentStatus {
	switch {
	case paidAmount.GreaterThanOrEqual(grandTotal):
		return PaymentStatusPaid
	case paidAmount.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// RestaurantSnapshot freezes the seller details at issue time.
type RestaurantSnapshot struct {
	Name      string `json:"name" gorm:"type:text;not null"`
	Address   string `json:"address,omitempty" gorm:"type:text"`
	Phone     string `json:"phone,omitempty" gorm:"type:text"`
	Email     string `json:"email,omitempty" gorm:"type:text"`
	GSTNumber string `json:"gstNumber,omitempty" gorm:"column:gst_number;type:text"`
	Logo      string `json:"logo,omitempty" gorm:"type:text"`
}

type CustomerSnapshot struct {
	Name  string `json:"name" gorm:"type:text;not null"`
	Phone string `json:"phone,omitempty" gorm:"type:text"`
	Email string `json:"email,omitempty" gorm:"type:text"`
	GSTIN string `json:"gstin,omitempty" gorm:"column:gstin;type:text"`
}

type TaxComponent struct {
	Rate   decimal.Decimal `json:"rate" gorm:"type:numeric;not null"`
	Amount decimal.Decimal `json:"amount" gorm:"type:numeric;not null"`
}

type TaxDetails struct {
	CGST TaxComponent `json:"cgst" gorm:"embedded;embeddedPrefix:cgst_"`
	SGST TaxComponent `json:"sgst" gorm:"embedded;embeddedPrefix:sgst_"`
	IGST TaxComponent `json:"igst" gorm:"embedded;embeddedPrefix:igst_"`
}

type Invoice struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	RestaurantID  snowflake.ID `json:"restaurantId" gorm:"not null;uniqueIndex:ux_invoices_restaurant_number,priority:1;index:ix_invoices_restaurant_created,priority:1"`
	OrderID       snowflake.ID `json:"orderId" gorm:"not null;index"`
	InvoiceNumber string       `json:"invoiceNumber" gorm:"type:text;not null;uniqueIndex:ux_invoices_restaurant_number,priority:2"`
	InvoiceDate   time.Time    `json:"invoiceDate" gorm:"not null"`
	DueDate       time.Time    `json:"dueDate" gorm:"not null"`
	TableNumber   string       `json:"tableNumber,omitempty" gorm:"type:text"`

	Restaurant RestaurantSnapshot `json:"restaurant" gorm:"embedded;embeddedPrefix:restaurant_"`
	Customer   CustomerSnapshot   `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Items      []Item             `json:"items" gorm:"foreignKey:InvoiceID"`

	Subtotal           decimal.Decimal `json:"subtotal" gorm:"type:numeric;not null"`
	Discount           decimal.Decimal `json:"discount" gorm:"type:numeric;not null"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage" gorm:"type:numeric;not null"`
	InterState         bool            `json:"interState" gorm:"not null;default:false"`
	TaxDetails         TaxDetails      `json:"taxDetails" gorm:"embedded"`
	TotalTax           decimal.Decimal `json:"totalTax" gorm:"type:numeric;not null"`
	TotalAmount        decimal.Decimal `json:"totalAmount" gorm:"type:numeric;not null"`
	RoundOff           decimal.Decimal `json:"roundOff" gorm:"type:numeric;not null"`
	GrandTotal         decimal.Decimal `json:"grandTotal" gorm:"type:numeric;not null"`

	PaymentMethod  PaymentMethod   `json:"paymentMethod" gorm:"type:text;not null"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus" gorm:"type:text;not null;index"`
	PaidAmount     decimal.Decimal `json:"paidAmount" gorm:"type:numeric;not null"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	UPIID          string          `json:"upiId,omitempty" gorm:"column:upi_id;type:text"`
	UPIPaymentLink string          `json:"upiPaymentLink,omitempty" gorm:"column:upi_payment_link;type:text"`

	Notes              string     `json:"notes,omitempty" gorm:"type:text"`
	TermsAndConditions string     `json:"termsAndConditions" gorm:"type:text"`
	EmailSent          bool       `json:"emailSent" gorm:"not null;default:false"`
	EmailSentAt        *time.Time `json:"emailSentAt,omitempty"`

	Version   int64     `json:"version" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:ix_invoices_restaurant_created,priority:2"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

type Item struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID    snowflake.ID    `json:"invoiceId" gorm:"not null;index"`
	RestaurantID snowflake.ID    `json:"restaurantId" gorm:"not null"`
	Position     int             `json:"position" gorm:"not null"`
	Name         string          `json:"name" gorm:"type:text;not null"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPrice    decimal.Decimal `json:"unitPrice" gorm:"type:numeric;not null"`
	LineAmount   decimal.Decimal `json:"lineAmount" gorm:"type:numeric;not null"`
	HSNCode      string          `json:"hsnCode" gorm:"column:hsn_code;type:text;not null"`
}

func (Item) TableName() string { return "invoice_items" }

// Outstanding is the unpaid remainder, never negative.
func (i Invoice) Outstanding() decimal.Decimal {
	rest := i.GrandTotal.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
