package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Type string

const (
	TypePayment      Type = "payment"
	TypeRefund       Type = "refund"
	TypeSubscription Type = "subscription"
	TypeUpgrade      Type = "upgrade"
	TypeDowngrade    Type = "downgrade"
)

func (t Type) Valid() bool {
	switch t {
	case TypePayment, TypeRefund, TypeSubscription, TypeUpgrade, TypeDowngrade:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodNetBanking PaymentMethod = "net_banking"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodOther      PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetBanking, PaymentMethodWallet, PaymentMethodOther:
		return true
	default:
		return false
	}
}

// MetadataOriginalTransaction links a refund to the transaction it reverses.
const MetadataOriginalTransaction = "original_transaction_id"

const DefaultCurrency = "INR"

// Transaction is a platform-level money movement. Rows are never deleted; a
// refund is a new row plus a status flip on the original.
type Transaction struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	RestaurantID  snowflake.ID      `json:"restaurantId" gorm:"not null;index:ix_transactions_restaurant_created,priority:1"`
	Type          Type              `json:"type" gorm:"type:text;not null;index"`
	Amount        decimal.Decimal   `json:"amount" gorm:"type:numeric;not null"`
	Currency      string            `json:"currency" gorm:"type:text;not null"`
	Status        Status            `json:"status" gorm:"type:text;not null;index"`
	PaymentMethod PaymentMethod     `json:"paymentMethod" gorm:"type:text;not null"`
	Reference     string            `json:"transactionId" gorm:"column:transaction_ref;type:varchar(191);not null;uniqueIndex:ux_transactions_ref"`
	Plan          string            `json:"plan,omitempty" gorm:"type:text"`
	Description   string            `json:"description,omitempty" gorm:"type:text"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	RefundReason  string            `json:"refundReason,omitempty" gorm:"type:text"`
	RefundedAt    *time.Time        `json:"refundedAt,omitempty"`
	ProcessedBy   string            `json:"processedBy,omitempty" gorm:"type:text"`
	CreatedAt     time.Time         `json:"createdAt" gorm:"not null;index:ix_transactions_restaurant_created,priority:2"`
	UpdatedAt     time.Time         `json:"updatedAt" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// OriginalTransactionID returns the id a refund points at, if any.
func (t Transaction) OriginalTransactionID() string {
	if t.Metadata == nil {
		return ""
	}
	id, _ := t.Metadata[MetadataOriginalTransaction].(string)
	return id
}
