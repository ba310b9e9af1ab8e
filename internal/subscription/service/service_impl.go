package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/cache"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/observability/logger"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/observability/tracing"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/smallbiznis/restobill/pkg/db"
	"github.com/smallbiznis/restobill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
	expirySweepBatch         = 500
	trialNoticeDedupWindow   = 24 * time.Hour
	defaultTrialNoticeDays   = 3
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	catalog *plan.Catalog
	cache   cache.SubscriptionCache
	metrics *metrics.BillingMetrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Catalog *plan.Catalog
	Cache   cache.SubscriptionCache
	Metrics *metrics.BillingMetrics `optional:"true"`
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	subCache := p.Cache
	if subCache == nil {
		subCache = cache.NoopSubscriptionCache{}
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		catalog: p.Catalog,
		cache:   subCache,
		metrics: p.Metrics,
	}
}

// mutation carries the log rows a state change appends in its transaction.
type mutation struct {
	payments      []subscriptiondomain.Payment
	notifications []subscriptiondomain.Notification
}

func (s *Service) CreateSubscription(ctx context.Context) (subscriptiondomain.Subscription, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	existing, err := s.repo.FindByRestaurantID(ctx, s.db, restaurantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, errs.Dependency(err, "find_subscription")
	}
	if existing != nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionExists
	}

	sub, err := s.newTrialSubscription(restaurantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if err := s.repo.Insert(ctx, s.db, &sub); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionExists
		}
		return subscriptiondomain.Subscription{}, errs.Dependency(err, "insert_subscription")
	}

	logger.WithContext(ctx, s.log).Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", string(sub.Plan)),
		zap.Timep("trial_end", sub.TrialEnd),
	)
	return sub, nil
}

func (s *Service) Get(ctx context.Context) (subscriptiondomain.Subscription, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return s.ensure(ctx, restaurantID)
}

func (s *Service) UpgradePlan(ctx context.Context, rawPlan string, payment *subscriptiondomain.PaymentData) (subscriptiondomain.Subscription, error) {
	ctx, span := tracing.Start(ctx, "subscription.upgrade")
	defer span.End()

	target, err := s.catalog.Resolve(rawPlan)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if payment != nil {
		if err := validatePayment(*payment); err != nil {
			return subscriptiondomain.Subscription{}, err
		}
	}

	return s.mutate(ctx, "upgrade", func(sub *subscriptiondomain.Subscription, now time.Time) (mutation, error) {
		sub.ApplyPlan(target)
		if target.Code == plan.FreeTrial {
			sub.StartTrial(now, trialDays(target))
		} else {
			sub.StartPaidPeriod(now)
		}

		var m mutation
		if payment != nil {
			p := s.buildPayment(*sub, *payment, now)
			sub.RecordPayment(p)
			m.payments = append(m.payments, p)
		}
		m.notifications = append(m.notifications, s.buildNotification(*sub,
			subscriptiondomain.NotificationSubscriptionRenewed,
			"Your subscription has been upgraded to "+string(target.Code)+" plan", now))
		return m, nil
	})
}

func (s *Service) DowngradePlan(ctx context.Context, rawPlan string) (subscriptiondomain.Subscription, error) {
	target, err := s.catalog.Resolve(rawPlan)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	return s.mutate(ctx, "downgrade", func(sub *subscriptiondomain.Subscription, now time.Time) (mutation, error) {
		sub.ApplyPlan(target)
		return mutation{notifications: []subscriptiondomain.Notification{
			s.buildNotification(*sub, subscriptiondomain.NotificationSubscriptionRenewed,
				"Your subscription has been changed to "+string(target.Code)+" plan", now),
		}}, nil
	})
}

func (s *Service) CancelSubscription(ctx context.Context, reason string) (subscriptiondomain.Subscription, error) {
	reason = strings.TrimSpace(reason)
	return s.mutate(ctx, "cancel", func(sub *subscriptiondomain.Subscription, now time.Time) (mutation, error) {
		sub.Cancel(now, reason)
		return mutation{notifications: []subscriptiondomain.Notification{
			s.buildNotification(*sub, subscriptiondomain.NotificationSubscriptionCancelled,
				"Your subscription has been cancelled", now),
		}}, nil
	})
}

// RenewSubscription extends the period from its current end on a successful
// payment. Any other status is still recorded, raises a payment_failed
// notification and returns the unchanged subscription with
// ErrRenewalPaymentRequired.
func (s *Service) RenewSubscription(ctx context.Context, payment subscriptiondomain.PaymentData) (subscriptiondomain.Subscription, error) {
	if payment.Status == "" {
		payment.Status = subscriptiondomain.PaymentStatusSuccess
	}
	if err := validatePayment(payment); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if payment.Status != subscriptiondomain.PaymentStatusSuccess {
		sub, err := s.mutate(ctx, "renew_failed", func(sub *subscriptiondomain.Subscription, now time.Time) (mutation, error) {
			p := s.buildPayment(*sub, payment, now)
			sub.RecordPayment(p)
			return mutation{
				payments: []subscriptiondomain.Payment{p},
				notifications: []subscriptiondomain.Notification{
					s.buildNotification(*sub, subscriptiondomain.NotificationPaymentFailed,
						"Your subscription renewal payment was not successful", now),
				},
			}, nil
		})
		if err != nil {
			return subscriptiondomain.Subscription{}, err
		}
		return sub, subscriptiondomain.ErrRenewalPaymentRequired
	}

	return s.mutate(ctx, "renew", func(sub *subscriptiondomain.Subscription, now time.Time) (mutation, error) {
		p := s.buildPayment(*sub, payment, now)
		sub.RecordPayment(p)
		return mutation{
			payments: []subscriptiondomain.Payment{p},
			notifications: []subscriptiondomain.Notification{
				s.buildNotification(*sub, subscriptiondomain.NotificationSubscriptionRenewed,
					"Your subscription has been renewed successfully", now),
			},
		}, nil
	})
}

func (s *Service) CheckLimit(ctx context.Context, limitType plan.LimitType) (subscriptiondomain.LimitCheck, error) {
	if _, err := plan.ParseLimitType(string(limitType)); err != nil {
		return subscriptiondomain.LimitCheck{}, err
	}
	sub, err := s.Get(ctx)
	if err != nil {
		return subscriptiondomain.LimitCheck{}, err
	}
	return sub.CheckLimit(limitType), nil
}

func (s *Service) HasFeature(ctx context.Context, feature plan.Feature) (bool, error) {
	if _, err := plan.ParseFeature(string(feature)); err != nil {
		return false, err
	}
	sub, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return sub.Features.Has(feature), nil
}

func (s *Service) IncrementUsage(ctx context.Context, usageType subscriptiondomain.UsageType) (subscriptiondomain.Subscription, error) {
	if usageType.Column() == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidUsageType
	}
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if _, err := s.ensure(ctx, restaurantID); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	var out subscriptiondomain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.IncrementUsage(ctx, tx, restaurantID, usageType, s.clock.Now())
		if err != nil {
			return errs.Dependency(err, "increment_usage")
		}
		if !ok {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		sub, err := s.repo.FindByRestaurantID(ctx, tx, restaurantID)
		if err != nil {
			return errs.Dependency(err, "find_subscription")
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		out = *sub
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	s.cache.Invalidate(restaurantID)
	return out, nil
}

// ConsumeUsage counts one unit against the limit unless the counter already
// reached its cap. It reports whether the unit was counted and returns the
// stored subscription either way.
func (s *Service) ConsumeUsage(ctx context.Context, limitType plan.LimitType) (subscriptiondomain.Subscription, bool, error) {
	if _, err := plan.ParseLimitType(string(limitType)); err != nil {
		return subscriptiondomain.Subscription{}, false, err
	}
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, false, err
	}
	if _, err := s.ensure(ctx, restaurantID); err != nil {
		return subscriptiondomain.Subscription{}, false, err
	}

	var (
		out      subscriptiondomain.Subscription
		consumed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.IncrementUsageWithinLimit(ctx, tx, restaurantID, limitType, s.clock.Now())
		if err != nil {
			return errs.Dependency(err, "consume_usage")
		}
		sub, err := s.repo.FindByRestaurantID(ctx, tx, restaurantID)
		if err != nil {
			return errs.Dependency(err, "find_subscription")
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		out, consumed = *sub, ok
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, false, err
	}
	if consumed {
		s.cache.Invalidate(restaurantID)
	}
	return out, consumed, nil
}

// ResetMonthlyUsage zeroes the monthly order counter across all tenants.
func (s *Service) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	affected, err := s.repo.ResetMonthlyUsage(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, errs.Dependency(err, "reset_monthly_usage")
	}
	s.cache.Flush()
	s.log.Info("monthly usage reset", zap.Int64("subscriptions", affected))
	return affected, nil
}

// mutate loads (creating lazily), locks and rewrites the subscription in one
// transaction. A version mismatch on the final write is a Conflict.
func (s *Service) mutate(ctx context.Context, op string, apply func(*subscriptiondomain.Subscription, time.Time) (mutation, error)) (subscriptiondomain.Subscription, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if _, err := s.ensure(ctx, restaurantID); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	var (
		before subscriptiondomain.Status
		out    subscriptiondomain.Subscription
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByRestaurantIDForUpdate(ctx, tx, restaurantID)
		if err != nil {
			return errs.Dependency(err, "lock_subscription")
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		now := s.clock.Now()
		before = sub.Status
		version := sub.Version
		m, err := apply(sub, now)
		if err != nil {
			return err
		}
		sub.UpdatedAt = now

		ok, err := s.repo.Update(ctx, tx, sub, version)
		if err != nil {
			return errs.Dependency(err, "update_subscription")
		}
		if !ok {
			return subscriptiondomain.ErrConcurrentModification
		}
		for i := range m.payments {
			if err := s.repo.InsertPayment(ctx, tx, &m.payments[i]); err != nil {
				return errs.Dependency(err, "insert_payment")
			}
		}
		for i := range m.notifications {
			if err := s.repo.InsertNotification(ctx, tx, &m.notifications[i]); err != nil {
				return errs.Dependency(err, "insert_notification")
			}
		}
		out = *sub
		return nil
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.cache.Invalidate(restaurantID)
	s.metrics.IncSubscriptionTransition(string(before), string(out.Status))
	logger.WithContext(ctx, s.log).Info("subscription updated",
		zap.String("op", op),
		zap.String("subscription_id", out.ID.String()),
		zap.String("plan", string(out.Plan)),
		zap.String("status_from", string(before)),
		zap.String("status_to", string(out.Status)),
		zap.Time("period_end", out.CurrentPeriodEnd),
	)
	return out, nil
}

// ensure returns the subscription, creating the default trial when a legacy
// tenant has none. Losing the insert race re-reads the winner.
func (s *Service) ensure(ctx context.Context, restaurantID snowflake.ID) (subscriptiondomain.Subscription, error) {
	sub, err := s.repo.FindByRestaurantID(ctx, s.db, restaurantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, errs.Dependency(err, "find_subscription")
	}
	if sub != nil {
		return *sub, nil
	}

	created, err := s.newTrialSubscription(restaurantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if err := s.repo.Insert(ctx, s.db, &created); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return subscriptiondomain.Subscription{}, errs.Dependency(err, "insert_subscription")
		}
		sub, err = s.repo.FindByRestaurantID(ctx, s.db, restaurantID)
		if err != nil {
			return subscriptiondomain.Subscription{}, errs.Dependency(err, "find_subscription")
		}
		if sub == nil {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
		}
		return *sub, nil
	}

	logger.WithContext(ctx, s.log).Info("subscription lazily created",
		zap.String("subscription_id", created.ID.String()),
	)
	return created, nil
}

func (s *Service) newTrialSubscription(restaurantID snowflake.ID) (subscriptiondomain.Subscription, error) {
	trial, err := s.catalog.Lookup(plan.FreeTrial)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	now := s.clock.Now()
	sub := subscriptiondomain.Subscription{
		ID:            s.genID.Generate(),
		RestaurantID:  restaurantID,
		Status:        subscriptiondomain.StatusActive,
		BillingCycle:  subscriptiondomain.BillingCycleMonthly,
		PaymentMethod: subscriptiondomain.PaymentMethodNone,
		AutoRenew:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sub.ApplyPlan(trial)
	sub.StartTrial(now, trialDays(trial))
	return sub, nil
}

func (s *Service) buildPayment(sub subscriptiondomain.Subscription, data subscriptiondomain.PaymentData, now time.Time) subscriptiondomain.Payment {
	amount := sub.Amount
	if data.Amount != nil {
		amount = *data.Amount
	}
	status := data.Status
	if status == "" {
		status = subscriptiondomain.PaymentStatusSuccess
	}
	method := data.Method
	if method == "" {
		method = sub.PaymentMethod
	}
	paidAt := now
	if data.PaidAt != nil && !data.PaidAt.IsZero() {
		paidAt = data.PaidAt.UTC()
	}
	return subscriptiondomain.Payment{
		ID:             s.genID.Generate(),
		SubscriptionID: sub.ID,
		RestaurantID:   sub.RestaurantID,
		Amount:         amount,
		Currency:       sub.Currency,
		Status:         status,
		Method:         method,
		TransactionID:  strings.TrimSpace(data.TransactionID),
		InvoiceURL:     strings.TrimSpace(data.InvoiceURL),
		PaidAt:         paidAt,
		CreatedAt:      now,
	}
}

func (s *Service) buildNotification(sub subscriptiondomain.Subscription, notificationType subscriptiondomain.NotificationType, message string, now time.Time) subscriptiondomain.Notification {
	return subscriptiondomain.Notification{
		ID:             s.genID.Generate(),
		SubscriptionID: sub.ID,
		RestaurantID:   sub.RestaurantID,
		Type:           notificationType,
		Message:        message,
		SentAt:         now,
	}
}

func (s *Service) restaurantID(ctx context.Context) (snowflake.ID, error) {
	restaurantID, ok := restaurantctx.RestaurantIDFromContext(ctx)
	if !ok || restaurantID == 0 {
		return 0, subscriptiondomain.ErrMissingRestaurantContext
	}
	return restaurantID, nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func validatePayment(p subscriptiondomain.PaymentData) error {
	if p.Status != "" && !p.Status.Valid() {
		return subscriptiondomain.ErrInvalidPaymentStatus
	}
	if p.Method != "" && !p.Method.Valid() {
		return subscriptiondomain.ErrInvalidPaymentMethod
	}
	if p.Amount != nil && p.Amount.LessThan(decimal.Zero) {
		return subscriptiondomain.ErrInvalidPaymentAmount
	}
	return nil
}

func trialDays(p plan.Plan) int {
	if p.TrialDays > 0 {
		return p.TrialDays
	}
	return plan.DefaultTrialDays
}
