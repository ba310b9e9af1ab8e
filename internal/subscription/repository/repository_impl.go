package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/plan"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) FindByRestaurantID(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(db.WithContext(ctx), restaurantID)
}

func (r *repo) FindByRestaurantIDForUpdate(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), restaurantID)
}

func (r *repo) find(db *gorm.DB, restaurantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.Where("restaurant_id = ?", restaurantID).Limit(1).Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

// Update writes every mutable column when the stored version still matches.
// The in-memory version is bumped only on success.
func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription, expectedVersion int64) (bool, error) {
	next := expectedVersion + 1
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, expectedVersion).
		Updates(map[string]any{
			"plan":                        sub.Plan,
			"status":                      sub.Status,
			"trial_start":                 sub.TrialStart,
			"trial_end":                   sub.TrialEnd,
			"trial_active":                sub.TrialActive,
			"current_period_start":        sub.CurrentPeriodStart,
			"current_period_end":          sub.CurrentPeriodEnd,
			"billing_cycle":               sub.BillingCycle,
			"amount":                      sub.Amount,
			"currency":                    sub.Currency,
			"payment_method":              sub.PaymentMethod,
			"last_payment_date":           sub.LastPaymentDate,
			"next_billing_date":           sub.NextBillingDate,
			"auto_renew":                  sub.AutoRenew,
			"cancelled_at":                sub.CancelledAt,
			"cancel_reason":               sub.CancelReason,
			"usage_restaurants_count":     sub.Usage.RestaurantsCount,
			"usage_orders_this_month":     sub.Usage.OrdersThisMonth,
			"usage_staff_count":           sub.Usage.StaffCount,
			"usage_tables_count":          sub.Usage.TablesCount,
			"usage_menu_items_count":      sub.Usage.MenuItemsCount,
			"limit_max_restaurants":       sub.Limits.MaxRestaurants,
			"limit_max_orders":            sub.Limits.MaxOrders,
			"limit_max_staff":             sub.Limits.MaxStaff,
			"limit_max_tables":            sub.Limits.MaxTables,
			"limit_max_menu_items":        sub.Limits.MaxMenuItems,
			"feature_basic_features":      sub.Features.BasicFeatures,
			"feature_kitchen_display":     sub.Features.KitchenDisplay,
			"feature_analytics":           sub.Features.Analytics,
			"feature_table_management":    sub.Features.TableManagement,
			"feature_staff_management":    sub.Features.StaffManagement,
			"feature_payment_integration": sub.Features.PaymentIntegration,
			"feature_custom_branding":     sub.Features.CustomBranding,
			"feature_api_access":          sub.Features.APIAccess,
			"feature_priority_support":    sub.Features.PrioritySupport,
			"feature_dedicated_manager":   sub.Features.DedicatedManager,
			"version":                     next,
			"updated_at":                  sub.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	sub.Version = next
	return true, nil
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, usageType subscriptiondomain.UsageType, now time.Time) (bool, error) {
	column := usageType.Column()
	if column == "" {
		return false, subscriptiondomain.ErrInvalidUsageType
	}
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("restaurant_id = ?", restaurantID).
		Updates(map[string]any{
			column:       gorm.Expr(column + " + 1"),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementUsageWithinLimit counts one unit only while the counter is below
// its cap. Checking and counting happen in the same UPDATE.
func (r *repo) IncrementUsageWithinLimit(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, limit plan.LimitType, now time.Time) (bool, error) {
	usage := subscriptiondomain.UsageFor(limit).Column()
	capColumn := subscriptiondomain.LimitColumn(limit)
	if usage == "" || capColumn == "" {
		return false, subscriptiondomain.ErrInvalidUsageType
	}
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("restaurant_id = ?", restaurantID).
		Where(fmt.Sprintf("(%s < 0 OR %s < %s)", capColumn, usage, capColumn)).
		Updates(map[string]any{
			usage:        gorm.Expr(usage + " + 1"),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ResetMonthlyUsage(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET usage_orders_this_month = 0, version = version + 1, updated_at = ?
		 WHERE usage_orders_this_month <> 0`,
		now,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListExpiredCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]subscriptiondomain.Subscription, error) {
	var items []subscriptiondomain.Subscription
	query := db.WithContext(ctx).
		Where("status = ? AND current_period_end < ?", subscriptiondomain.StatusActive, now).
		Order("current_period_end ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkExpired reports false when another sweep or a renewal got there first.
func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND current_period_end < ?`,
		subscriptiondomain.StatusExpired,
		now,
		id,
		subscriptiondomain.StatusActive,
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ListTrialsEnding(ctx context.Context, db *gorm.DB, from, until time.Time) ([]subscriptiondomain.Subscription, error) {
	var items []subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("trial_active = ? AND trial_end >= ? AND trial_end <= ?", true, from, until).
		Order("trial_end ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertNotification(ctx context.Context, db *gorm.DB, n *subscriptiondomain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) ListNotifications(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, unreadOnly bool, limit int) ([]subscriptiondomain.Notification, error) {
	var items []subscriptiondomain.Notification
	query := db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("sent_at DESC").Order("id DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkNotificationRead(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Notification{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&subscriptiondomain.Notification{}).
		Where("restaurant_id = ? AND is_read = ?", restaurantID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	return result.RowsAffected, result.Error
}

func (r *repo) HasNotificationSince(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, notificationType subscriptiondomain.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&subscriptiondomain.Notification{}).
		Where("restaurant_id = ? AND type = ? AND sent_at >= ?", restaurantID, notificationType, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *subscriptiondomain.Payment) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID) ([]subscriptiondomain.Payment, error) {
	var items []subscriptiondomain.Payment
	err := db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("paid_at DESC").
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type statusRow struct {
	Total     int64
	Active    int64
	Trials    int64
	Cancelled int64
	Expired   int64
	Revenue   decimal.NullDecimal
}

type planRow struct {
	Plan    plan.Code
	Count   int64
	Revenue decimal.NullDecimal
}

func (r *repo) Statistics(ctx context.Context, db *gorm.DB) (subscriptiondomain.Statistics, error) {
	var totals statusRow
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		 COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active,
		 COALESCE(SUM(CASE WHEN trial_active = ? THEN 1 ELSE 0 END), 0) AS trials,
		 COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled,
		 COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS expired,
		 SUM(CASE WHEN status = ? THEN amount ELSE 0 END) AS revenue
		 FROM subscriptions`,
		subscriptiondomain.StatusActive,
		true,
		subscriptiondomain.StatusCancelled,
		subscriptiondomain.StatusExpired,
		subscriptiondomain.StatusActive,
	).Scan(&totals).Error
	if err != nil {
		return subscriptiondomain.Statistics{}, err
	}

	var rows []planRow
	err = db.WithContext(ctx).Raw(
		`SELECT plan, COUNT(*) AS count, SUM(amount) AS revenue
		 FROM subscriptions GROUP BY plan ORDER BY plan`,
	).Scan(&rows).Error
	if err != nil {
		return subscriptiondomain.Statistics{}, err
	}

	stats := subscriptiondomain.Statistics{
		Total:          totals.Total,
		Active:         totals.Active,
		Trials:         totals.Trials,
		Cancelled:      totals.Cancelled,
		Expired:        totals.Expired,
		MonthlyRevenue: totals.Revenue.Decimal,
		PlanBreakdown:  make([]subscriptiondomain.PlanStat, 0, len(rows)),
	}
	for _, row := range rows {
		stats.PlanBreakdown = append(stats.PlanBreakdown, subscriptiondomain.PlanStat{
			Plan:    row.Plan,
			Count:   row.Count,
			Revenue: row.Revenue.Decimal,
		})
	}
	return stats, nil
}
