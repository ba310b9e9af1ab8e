// Package usagegate decides whether a restaurant may act under its
// subscription before a resource is created.
package usagegate

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/smallbiznis/restobill/internal/cache"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/observability/logger"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrSubscriptionInactive = errs.Conflict("subscription_inactive")
	ErrFeatureUnavailable   = errs.Conflict("feature_unavailable")
	ErrLimitReached         = errs.Conflict("limit_reached")
)

const (
	ReasonExpired            = "expired"
	ReasonFeatureUnavailable = "feature_unavailable"
	ReasonLimitReached       = "limit_reached"
)

const expiredMessage = "Your subscription has expired. Please renew to continue."

var Module = fx.Module("usagegate",
	fx.Provide(New),
)

// Access is the outcome of an access check. Message is user facing.
type Access struct {
	Allowed      bool
	Reason       string
	Message      string
	Subscription subscriptiondomain.Subscription
}

// LimitError carries the failing check. It matches ErrLimitReached.
type LimitError struct {
	Check   subscriptiondomain.LimitCheck
	Message string
}

func (e *LimitError) Error() string { return e.Message }

func (e *LimitError) Unwrap() error { return ErrLimitReached }

type Gate struct {
	log          *zap.Logger
	clock        clock.Clock
	subscription subscriptiondomain.Service
	cache        cache.SubscriptionCache
	metrics      *metrics.BillingMetrics
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Subscription subscriptiondomain.Service
	Cache        cache.SubscriptionCache
	Metrics      *metrics.BillingMetrics `optional:"true"`
}

func New(p Params) *Gate {
	subCache := p.Cache
	if subCache == nil {
		subCache = cache.NoopSubscriptionCache{}
	}
	return &Gate{
		log:          p.Log.Named("usagegate"),
		clock:        p.Clock,
		subscription: p.Subscription,
		cache:        subCache,
		metrics:      p.Metrics,
	}
}

// CheckAccess grants access to a valid trial, otherwise to an active
// subscription still inside its period.
func (g *Gate) CheckAccess(ctx context.Context) (Access, error) {
	sub, err := g.load(ctx)
	if err != nil {
		return Access{}, err
	}
	if sub.IsActive(g.clock.Now()) {
		return Access{Allowed: true, Subscription: sub}, nil
	}
	g.metrics.IncUsageDenied(ReasonExpired)
	return Access{
		Allowed:      false,
		Reason:       ReasonExpired,
		Message:      expiredMessage,
		Subscription: sub,
	}, nil
}

// RequireAccess returns ErrSubscriptionInactive with a user facing hint
// when access is denied.
func (g *Gate) RequireAccess(ctx context.Context) (subscriptiondomain.Subscription, error) {
	access, err := g.CheckAccess(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if !access.Allowed {
		return access.Subscription, errors.WithHint(ErrSubscriptionInactive, access.Message)
	}
	return access.Subscription, nil
}

func (g *Gate) RequireFeature(ctx context.Context, feature plan.Feature) error {
	if _, err := plan.ParseFeature(string(feature)); err != nil {
		return err
	}
	sub, err := g.RequireAccess(ctx)
	if err != nil {
		return err
	}
	if sub.Features.Has(feature) {
		return nil
	}
	g.metrics.IncUsageDenied(ReasonFeatureUnavailable)
	return errors.WithHint(ErrFeatureUnavailable,
		"This feature is not available in your current plan. Please upgrade to access "+feature.Words()+".")
}

// CheckLimit reads fresh counters. A denial appends a limit_reached
// notification and returns a *LimitError.
func (g *Gate) CheckLimit(ctx context.Context, limitType plan.LimitType) (subscriptiondomain.LimitCheck, error) {
	check, err := g.subscription.CheckLimit(ctx, limitType)
	if err != nil {
		return subscriptiondomain.LimitCheck{}, err
	}
	if check.Allowed {
		return check, nil
	}

	return check, g.denyLimit(ctx, limitType, check)
}

// Consume counts one unit against the limit. The counter is only
// incremented while it is below the cap, so concurrent callers cannot push
// it past the limit.
func (g *Gate) Consume(ctx context.Context, limitType plan.LimitType) (subscriptiondomain.LimitCheck, error) {
	check, err := g.CheckLimit(ctx, limitType)
	if err != nil {
		return check, err
	}
	sub, consumed, err := g.subscription.ConsumeUsage(ctx, limitType)
	if err != nil {
		return check, err
	}
	after := sub.CheckLimit(limitType)
	if !consumed {
		return after, g.denyLimit(ctx, limitType, after)
	}
	return after, nil
}

func (g *Gate) denyLimit(ctx context.Context, limitType plan.LimitType, check subscriptiondomain.LimitCheck) error {
	g.metrics.IncUsageDenied(ReasonLimitReached)
	message := "You have reached your " + limitType.Label() + " limit. Please upgrade your plan."
	if err := g.subscription.AddNotification(ctx, subscriptiondomain.NotificationLimitReached, message); err != nil {
		logger.WithContext(ctx, g.log).Warn("failed to record limit notification",
			zap.String("limit_type", string(limitType)),
			zap.Error(err),
		)
	}
	return errors.WithHint(&LimitError{Check: check, Message: message}, message)
}

func (g *Gate) load(ctx context.Context) (subscriptiondomain.Subscription, error) {
	if restaurantID, ok := restaurantctx.RestaurantIDFromContext(ctx); ok {
		if sub, hit := g.cache.Get(restaurantID); hit {
			return sub, nil
		}
	}
	sub, err := g.subscription.Get(ctx)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	g.cache.Set(sub)
	return sub, nil
}
