package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/plan"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByRestaurantID(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) (*Subscription, error)
	FindByRestaurantIDForUpdate(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, sub *Subscription, expectedVersion int64) (bool, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, usageType UsageType, now time.Time) (bool, error)
	IncrementUsageWithinLimit(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, limit plan.LimitType, now time.Time) (bool, error)
	ResetMonthlyUsage(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

	ListExpiredCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Subscription, error)
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	ListTrialsEnding(ctx context.Context, db *gorm.DB, from, until time.Time) ([]Subscription, error)

	InsertNotification(ctx context.Context, db *gorm.DB, n *Notification) error
	ListNotifications(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, unreadOnly bool, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID, now time.Time) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, now time.Time) (int64, error)
	HasNotificationSince(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, notificationType NotificationType, since time.Time) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, p *Payment) error
	ListPayments(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) ([]Payment, error)

	Statistics(ctx context.Context, db *gorm.DB) (Statistics, error)
}
