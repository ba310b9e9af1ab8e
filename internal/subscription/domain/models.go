// Package domain contains the subscription entity, its child logs and the
// pure predicates evaluated over them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/plan"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusPastDue   Status = "past_due"
)

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodNone       PaymentMethod = "none"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet, PaymentMethodNone:
		return true
	default:
		return false
	}
}

// Usage holds the per-restaurant usage counters.
type Usage struct {
	RestaurantsCount int `json:"restaurantsCount" gorm:"column:restaurants_count;not null;default:0"`
	OrdersThisMonth  int `json:"ordersThisMonth" gorm:"column:orders_this_month;not null;default:0"`
	StaffCount       int `json:"staffCount" gorm:"column:staff_count;not null;default:0"`
	TablesCount      int `json:"tablesCount" gorm:"column:tables_count;not null;default:0"`
	MenuItemsCount   int `json:"menuItemsCount" gorm:"column:menu_items_count;not null;default:0"`
}

type UsageType string

const (
	UsageRestaurants UsageType = "restaurantsCount"
	UsageOrders      UsageType = "ordersThisMonth"
	UsageStaff       UsageType = "staffCount"
	UsageTables      UsageType = "tablesCount"
	UsageMenuItems   UsageType = "menuItemsCount"
)

// Column returns the persisted column of the counter, or "" when unknown.
func (t UsageType) Column() string {
	switch t {
	case UsageRestaurants:
		return "usage_restaurants_count"
	case UsageOrders:
		return "usage_orders_this_month"
	case UsageStaff:
		return "usage_staff_count"
	case UsageTables:
		return "usage_tables_count"
	case UsageMenuItems:
		return "usage_menu_items_count"
	default:
		return ""
	}
}

// LimitColumn returns the persisted cap column of the limit, or "" when unknown.
func LimitColumn(limit plan.LimitType) string {
	switch limit {
	case plan.LimitRestaurants:
		return "limit_max_restaurants"
	case plan.LimitOrders:
		return "limit_max_orders"
	case plan.LimitStaff:
		return "limit_max_staff"
	case plan.LimitTables:
		return "limit_max_tables"
	case plan.LimitMenuItems:
		return "limit_max_menu_items"
	default:
		return ""
	}
}

// UsageFor maps a limit onto the counter it caps.
func UsageFor(limit plan.LimitType) UsageType {
	switch limit {
	case plan.LimitRestaurants:
		return UsageRestaurants
	case plan.LimitOrders:
		return UsageOrders
	case plan.LimitStaff:
		return UsageStaff
	case plan.LimitTables:
		return UsageTables
	case plan.LimitMenuItems:
		return UsageMenuItems
	default:
		return ""
	}
}

func (u Usage) Of(t UsageType) int {
	switch t {
	case UsageRestaurants:
		return u.RestaurantsCount
	case UsageOrders:
		return u.OrdersThisMonth
	case UsageStaff:
		return u.StaffCount
	case UsageTables:
		return u.TablesCount
	case UsageMenuItems:
		return u.MenuItemsCount
	default:
		return 0
	}
}

// Subscription is the single billing agreement of a restaurant.
type Subscription struct {
	ID                 snowflake.ID    `json:"id" gorm:"primaryKey"`
	RestaurantID       snowflake.ID    `json:"restaurantId" gorm:"not null;uniqueIndex:ux_subscriptions_restaurant"`
	Plan               plan.Code       `json:"plan" gorm:"type:text;not null"`
	Status             Status          `json:"status" gorm:"type:text;not null;index:ix_subscriptions_status_period,priority:1"`
	TrialStart         *time.Time      `json:"trialStart,omitempty"`
	TrialEnd           *time.Time      `json:"trialEnd,omitempty" gorm:"index"`
	TrialActive        bool            `json:"trialActive" gorm:"not null;default:false"`
	CurrentPeriodStart time.Time       `json:"currentPeriodStart" gorm:"not null"`
	CurrentPeriodEnd   time.Time       `json:"currentPeriodEnd" gorm:"not null;index:ix_subscriptions_status_period,priority:2"`
	BillingCycle       BillingCycle    `json:"billingCycle" gorm:"type:text;not null"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric;not null"`
	Currency           string          `json:"currency" gorm:"type:text;not null"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod" gorm:"type:text;not null"`
	LastPaymentDate    *time.Time      `json:"lastPaymentDate,omitempty"`
	NextBillingDate    *time.Time      `json:"nextBillingDate,omitempty"`
	AutoRenew          bool            `json:"autoRenew" gorm:"not null;default:true"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CancelReason       string          `json:"cancelReason,omitempty" gorm:"type:text"`
	Usage              Usage           `json:"usage" gorm:"embedded;embeddedPrefix:usage_"`
	Limits             plan.Limits     `json:"limits" gorm:"embedded;embeddedPrefix:limit_"`
	Features           plan.Features   `json:"features" gorm:"embedded;embeddedPrefix:feature_"`
	Version            int64           `json:"version" gorm:"not null;default:0"`
	CreatedAt          time.Time       `json:"createdAt" gorm:"not null"`
	UpdatedAt          time.Time       `json:"updatedAt" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

type NotificationType string

const (
	NotificationPaymentDue            NotificationType = "payment_due"
	NotificationPaymentFailed         NotificationType = "payment_failed"
	NotificationTrialEnding           NotificationType = "trial_ending"
	NotificationSubscriptionRenewed   NotificationType = "subscription_renewed"
	NotificationSubscriptionCancelled NotificationType = "subscription_cancelled"
	NotificationLimitReached          NotificationType = "limit_reached"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPaymentDue, NotificationPaymentFailed, NotificationTrialEnding,
		NotificationSubscriptionRenewed, NotificationSubscriptionCancelled, NotificationLimitReached:
		return true
	default:
		return false
	}
}

// Notification is append-only apart from its read flag.
type Notification struct {
	ID             snowflake.ID     `json:"id" gorm:"primaryKey"`
	SubscriptionID snowflake.ID     `json:"subscriptionId" gorm:"not null;index"`
	RestaurantID   snowflake.ID     `json:"restaurantId" gorm:"not null;index:ix_notifications_restaurant_sent,priority:1"`
	Type           NotificationType `json:"type" gorm:"type:text;not null"`
	Message        string           `json:"message" gorm:"type:text;not null"`
	SentAt         time.Time        `json:"sentAt" gorm:"not null;index:ix_notifications_restaurant_sent,priority:2"`
	Read           bool             `json:"read" gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
}

func (Notification) TableName() string { return "subscription_notifications" }

type PaymentStatus string

const (
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusPending, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Payment is one entry of the append-only payment history.
type Payment struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	SubscriptionID snowflake.ID    `json:"subscriptionId" gorm:"not null;index"`
	RestaurantID   snowflake.ID    `json:"restaurantId" gorm:"not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric;not null"`
	Currency       string          `json:"currency" gorm:"type:text;not null"`
	Status         PaymentStatus   `json:"status" gorm:"type:text;not null"`
	Method         PaymentMethod   `json:"method" gorm:"type:text;not null"`
	TransactionID  string          `json:"transactionId,omitempty" gorm:"type:text"`
	InvoiceURL     string          `json:"invoiceUrl,omitempty" gorm:"type:text"`
	PaidAt         time.Time       `json:"paidAt" gorm:"not null"`
	CreatedAt      time.Time       `json:"createdAt" gorm:"not null"`
}

func (Payment) TableName() string { return "subscription_payments" }
