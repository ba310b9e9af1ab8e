package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/restobill/internal/clock"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 7, 1, 0, 5, 0, 0, time.UTC)

type subscriptionsMock struct {
	subscriptiondomain.Service
	mock.Mock
}

func (m *subscriptionsMock) SweepExpired(ctx context.Context, at time.Time) ([]subscriptiondomain.Subscription, error) {
	args := m.Called(ctx, at)
	subs, _ := args.Get(0).([]subscriptiondomain.Subscription)
	return subs, args.Error(1)
}

func (m *subscriptionsMock) SweepTrialsEnding(ctx context.Context, at time.Time, days int) ([]subscriptiondomain.Subscription, error) {
	args := m.Called(ctx, at, days)
	subs, _ := args.Get(0).([]subscriptiondomain.Subscription)
	return subs, args.Error(1)
}

func (m *subscriptionsMock) NotifyTrialEnding(ctx context.Context, sub subscriptiondomain.Subscription, at time.Time) (bool, error) {
	args := m.Called(ctx, sub, at)
	return args.Bool(0), args.Error(1)
}

func (m *subscriptionsMock) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newScheduler(t *testing.T, subs subscriptiondomain.Service, locker Locker) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	s, err := New(Params{
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clock.NewFakeClock(now),
		Subscriptions: subs,
		Config:        DefaultConfig(),
		Locker:        locker,
	})
	require.NoError(t, err)
	return s
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestExpireJobSweepsAtClockNow(t *testing.T) {
	subs := &subscriptionsMock{}
	subs.On("SweepExpired", mock.Anything, now).
		Return([]subscriptiondomain.Subscription{{ID: 1}, {ID: 2}}, nil).Once()

	s := newScheduler(t, subs, nil)
	require.NoError(t, s.RunJob(context.Background(), JobExpireSubscriptions))
	subs.AssertExpectations(t)
}

func TestTrialNoticesFanOut(t *testing.T) {
	candidates := []subscriptiondomain.Subscription{
		{ID: 11, RestaurantID: 101},
		{ID: 12, RestaurantID: 102},
		{ID: 13, RestaurantID: 103},
	}
	subs := &subscriptionsMock{}
	subs.On("SweepTrialsEnding", mock.Anything, now, 2).Return(candidates, nil).Once()
	subs.On("NotifyTrialEnding", mock.Anything, candidates[0], now).Return(true, nil).Once()
	subs.On("NotifyTrialEnding", mock.Anything, candidates[1], now).Return(false, nil).Once()
	subs.On("NotifyTrialEnding", mock.Anything, candidates[2], now).Return(true, nil).Once()

	s := newScheduler(t, subs, nil)
	require.NoError(t, s.RunJob(context.Background(), JobTrialNotices))
	subs.AssertExpectations(t)
}

func TestTrialNoticeFailureIsReported(t *testing.T) {
	sub := subscriptiondomain.Subscription{ID: 21, RestaurantID: 201}
	subs := &subscriptionsMock{}
	subs.On("SweepTrialsEnding", mock.Anything, now, 2).Return([]subscriptiondomain.Subscription{sub}, nil)
	subs.On("NotifyTrialEnding", mock.Anything, sub, now).Return(false, errs.Dependency(errors.New("db down"), "insert_notification"))

	err := newScheduler(t, subs, nil).RunJob(context.Background(), JobTrialNotices)
	require.Error(t, err)
	assert.True(t, errs.IsDependency(err))
}

func TestMonthlyResetPropagatesErrors(t *testing.T) {
	subs := &subscriptionsMock{}
	subs.On("ResetMonthlyUsage", mock.Anything).Return(int64(0), errs.Dependency(errors.New("io"), "reset")).Once()

	err := newScheduler(t, subs, nil).RunJob(context.Background(), JobMonthlyUsageReset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMonthlyUsageReset)
}

func TestDeadlineIsSoftFailure(t *testing.T) {
	subs := &subscriptionsMock{}
	subs.On("SweepExpired", mock.Anything, now).Return(nil, context.DeadlineExceeded).Once()

	assert.NoError(t, newScheduler(t, subs, nil).RunJob(context.Background(), JobExpireSubscriptions))
}

func TestLeaseSkipsOverlappingRun(t *testing.T) {
	locker, _ := newRedisLocker(t)
	subs := &subscriptionsMock{}
	s := newScheduler(t, subs, locker)

	token, ok, err := locker.TryLock(context.Background(), JobExpireSubscriptions, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.RunJob(context.Background(), JobExpireSubscriptions))
	subs.AssertNotCalled(t, "SweepExpired", mock.Anything, mock.Anything)

	require.NoError(t, locker.Release(context.Background(), JobExpireSubscriptions, token))
	subs.On("SweepExpired", mock.Anything, now).Return(nil, nil).Once()
	require.NoError(t, s.RunJob(context.Background(), JobExpireSubscriptions))
	subs.AssertExpectations(t)

	_, ok, err = locker.TryLock(context.Background(), JobExpireSubscriptions, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lease released after the run")
}

func TestRedisLockerReleaseChecksToken(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "job", "someone-else"))
	assert.True(t, mr.Exists(leaseKeyPrefix+"job"))

	require.NoError(t, locker.Release(ctx, "job", token))
	assert.False(t, mr.Exists(leaseKeyPrefix+"job"))

	_, _, err = locker.TryLock(ctx, "", time.Minute)
	assert.Error(t, err)
}

func TestNewRejectsBadSpec(t *testing.T) {
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.ExpirySweepSpec = "every now and then"

	_, err = New(Params{
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clock.NewFakeClock(now),
		Subscriptions: &subscriptionsMock{},
		Config:        cfg,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestUnknownJob(t *testing.T) {
	assert.Error(t, newScheduler(t, &subscriptionsMock{}, nil).RunJob(context.Background(), "nope"))
}
