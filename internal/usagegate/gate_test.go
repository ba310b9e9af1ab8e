package usagegate

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/restobill/internal/cache"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/restaurantctx"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/smallbiznis/restobill/internal/subscription/repository"
	"github.com/smallbiznis/restobill/internal/subscription/service"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	clock *clock.FakeClock
	subs  subscriptiondomain.Service
	gate  *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Notification{},
		&subscriptiondomain.Payment{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fc := clock.NewFakeClock(start)
	subCache := cache.NewSubscriptionCache(time.Minute)
	billing := metrics.NewBillingMetrics(prometheus.NewRegistry(), metrics.Config{})

	subs := service.NewService(service.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fc,
		Repo:    repository.Provide(),
		Catalog: plan.DefaultCatalog(),
		Cache:   subCache,
		Metrics: billing,
	})
	gate := New(Params{
		Log:          zap.NewNop(),
		Clock:        fc,
		Subscription: subs,
		Cache:        subCache,
		Metrics:      billing,
	})
	return &fixture{clock: fc, subs: subs, gate: gate}
}

func tenant(id int64) context.Context {
	return restaurantctx.WithRestaurantID(context.Background(), id)
}

func TestCheckAccessDuringTrial(t *testing.T) {
	f := newFixture(t)
	access, err := f.gate.CheckAccess(tenant(1))
	require.NoError(t, err)
	assert.True(t, access.Allowed)
	assert.True(t, access.Subscription.TrialActive)
}

func TestCheckAccessAfterTrialExpires(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(2)
	_, err := f.gate.CheckAccess(ctx)
	require.NoError(t, err)

	f.clock.Advance(6 * 24 * time.Hour)
	access, err := f.gate.CheckAccess(ctx)
	require.NoError(t, err)
	assert.False(t, access.Allowed)
	assert.Equal(t, ReasonExpired, access.Reason)

	_, err = f.gate.RequireAccess(ctx)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
	assert.True(t, errs.IsConflict(err))
	assert.Contains(t, errors.FlattenHints(err), "Your subscription has expired. Please renew to continue.")
}

func TestUpgradeInvalidatesCachedAccess(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(3)
	_, err := f.gate.CheckAccess(ctx)
	require.NoError(t, err)

	f.clock.Advance(6 * 24 * time.Hour)
	_, err = f.subs.UpgradePlan(ctx, "basic", nil)
	require.NoError(t, err)

	access, err := f.gate.CheckAccess(ctx)
	require.NoError(t, err)
	assert.True(t, access.Allowed)
	assert.Equal(t, plan.Basic, access.Subscription.Plan)
}

func TestRequireFeature(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(4)

	err := f.gate.RequireFeature(ctx, plan.FeatureKitchenDisplay)
	assert.ErrorIs(t, err, ErrFeatureUnavailable)
	assert.Contains(t, errors.FlattenHints(err), "Please upgrade to access kitchen display.")

	_, err = f.subs.UpgradePlan(ctx, "professional", nil)
	require.NoError(t, err)
	assert.NoError(t, f.gate.RequireFeature(ctx, plan.FeatureKitchenDisplay))

	err = f.gate.RequireFeature(ctx, plan.Feature("teleport"))
	assert.ErrorIs(t, err, plan.ErrInvalidFeature)
}

func TestConsumeUntilLimitReached(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(5)

	for i := 0; i < 5; i++ {
		_, err := f.gate.Consume(ctx, plan.LimitStaff)
		require.NoError(t, err)
	}

	check, err := f.gate.Consume(ctx, plan.LimitStaff)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.False(t, check.Allowed)
	assert.Equal(t, 5, check.Current)

	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "You have reached your staff limit. Please upgrade your plan.", limitErr.Message)

	notes, err := f.subs.ListNotifications(ctx, subscriptiondomain.ListNotificationsRequest{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, subscriptiondomain.NotificationLimitReached, notes[0].Type)

	sub, err := f.subs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.Usage.StaffCount)
}

func TestConcurrentConsumeNeverExceedsLimit(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(7)
	_, err := f.subs.Get(ctx)
	require.NoError(t, err)

	const n = 10
	granted := make([]bool, n)
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Go(func() {
			_, err := f.gate.Consume(ctx, plan.LimitStaff)
			if err == nil {
				granted[i] = true
				return
			}
			assert.ErrorIs(t, err, ErrLimitReached)
		})
	}
	wg.Wait()

	count := 0
	for _, ok := range granted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 5, count)

	sub, err := f.subs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.Usage.StaffCount)
}

func TestUnlimitedPlanNeverDenies(t *testing.T) {
	f := newFixture(t)
	ctx := tenant(6)
	_, err := f.subs.UpgradePlan(ctx, "enterprise", nil)
	require.NoError(t, err)

	check, err := f.gate.Consume(ctx, plan.LimitOrders)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, -1, check.Remaining)
}
