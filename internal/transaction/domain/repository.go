package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SummaryRow is one (type, plan, method) group of completed transactions.
type SummaryRow struct {
	Type          Type
	Plan          string
	PaymentMethod PaymentMethod
	Count         int64
	Amount        decimal.NullDecimal
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, processedBy string, at time.Time) (bool, error)
	Summarize(ctx context.Context, db *gorm.DB, from, to time.Time) ([]SummaryRow, error)
}
