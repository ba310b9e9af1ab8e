package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/pkg/errs"
)

var (
	ErrMissingRestaurantContext = errs.InvalidInput("missing_restaurant_context")
	ErrInvalidPaymentStatus     = errs.InvalidInput("invalid_payment_status")
	ErrInvalidPaymentMethod     = errs.InvalidInput("invalid_payment_method")
	ErrInvalidPaymentAmount     = errs.InvalidInput("invalid_payment_amount")
	ErrRenewalPaymentRequired   = errs.InvalidInput("renewal_payment_not_successful")
	ErrInvalidUsageType         = errs.InvalidInput("invalid_usage_type")
	ErrInvalidNotificationType  = errs.InvalidInput("invalid_notification_type")
	ErrInvalidNotificationID    = errs.InvalidInput("invalid_notification_id")
	ErrSubscriptionExists       = errs.AlreadyExists("subscription_already_exists")
	ErrSubscriptionNotFound     = errs.NotFound("subscription_not_found")
	ErrNotificationNotFound     = errs.NotFound("notification_not_found")
	ErrConcurrentModification   = errs.Conflict("subscription_version_mismatch")
)

// PaymentData describes a payment attached to an upgrade or renewal.
// Amount defaults to the plan price and Status to success.
type PaymentData struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        PaymentStatus    `json:"status,omitempty"`
	Method        PaymentMethod    `json:"method,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	InvoiceURL    string           `json:"invoiceUrl,omitempty"`
	PaidAt        *time.Time       `json:"paidAt,omitempty"`
}

type ListNotificationsRequest struct {
	UnreadOnly bool
	Limit      int
}

// PlanStat is one row of the per-plan breakdown.
type PlanStat struct {
	Plan    plan.Code       `json:"plan"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Statistics struct {
	Total          int64           `json:"total"`
	Active         int64           `json:"active"`
	Trials         int64           `json:"trials"`
	Cancelled      int64           `json:"cancelled"`
	Expired        int64           `json:"expired"`
	PlanBreakdown  []PlanStat      `json:"planBreakdown"`
	MonthlyRevenue decimal.Decimal `json:"monthlyRevenue"`
}

// Service owns the subscription lifecycle. Tenant scoped methods read the
// restaurant from the context.
type Service interface {
	CreateSubscription(ctx context.Context) (Subscription, error)
	Get(ctx context.Context) (Subscription, error)
	UpgradePlan(ctx context.Context, rawPlan string, payment *PaymentData) (Subscription, error)
	DowngradePlan(ctx context.Context, rawPlan string) (Subscription, error)
	CancelSubscription(ctx context.Context, reason string) (Subscription, error)
	RenewSubscription(ctx context.Context, payment PaymentData) (Subscription, error)

	CheckLimit(ctx context.Context, limitType plan.LimitType) (LimitCheck, error)
	HasFeature(ctx context.Context, feature plan.Feature) (bool, error)
	IncrementUsage(ctx context.Context, usageType UsageType) (Subscription, error)
	ConsumeUsage(ctx context.Context, limitType plan.LimitType) (Subscription, bool, error)
	ResetMonthlyUsage(ctx context.Context) (int64, error)

	AddNotification(ctx context.Context, notificationType NotificationType, message string) error
	ListNotifications(ctx context.Context, req ListNotificationsRequest) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	ListPaymentHistory(ctx context.Context) ([]Payment, error)

	SweepExpired(ctx context.Context, now time.Time) ([]Subscription, error)
	SweepTrialsEnding(ctx context.Context, now time.Time, thresholdDays int) ([]Subscription, error)
	NotifyTrialEnding(ctx context.Context, sub Subscription, now time.Time) (bool, error)
	NotifyTrialsEnding(ctx context.Context, thresholdDays int) (int, error)

	Statistics(ctx context.Context) (Statistics, error)
}
