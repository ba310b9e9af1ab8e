package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	transactiondomain "github.com/smallbiznis/restobill/internal/transaction/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() transactiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *transactiondomain.Transaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transactiondomain.Transaction, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*transactiondomain.Transaction, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) find(db *gorm.DB, id snowflake.ID) (*transactiondomain.Transaction, error) {
	var txn transactiondomain.Transaction
	if err := db.Where("id = ?", id).Limit(1).Find(&txn).Error; err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

// MarkRefunded flips a transaction to refunded unless it already is. It
// reports false when no row changed.
func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, processedBy string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?, refunded_at = ?, refund_reason = ?, processed_by = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		transactiondomain.StatusRefunded,
		at,
		reason,
		processedBy,
		at,
		id,
		transactiondomain.StatusRefunded,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Summarize groups completed transactions created in [from, to).
func (r *repo) Summarize(ctx context.Context, db *gorm.DB, from, to time.Time) ([]transactiondomain.SummaryRow, error) {
	var rows []transactiondomain.SummaryRow
	err := db.WithContext(ctx).Raw(
		`SELECT type, plan, payment_method, COUNT(*) AS count, SUM(amount) AS amount
		 FROM transactions
		 WHERE status = ? AND created_at >= ? AND created_at < ?
		 GROUP BY type, plan, payment_method`,
		transactiondomain.StatusCompleted,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
