// Package scheduler triggers the subscription sweeps on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/observability/metrics"
	"github.com/smallbiznis/restobill/internal/observability/tracing"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireSubscriptions = "expire_subscriptions"
	JobTrialNotices        = "trial_notices"
	JobMonthlyUsageReset   = "monthly_usage_reset"
)

var ErrInvalidConfig = errors.New("invalid scheduler config")

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Subscriptions subscriptiondomain.Service
	Config        Config
	Locker        Locker                    `optional:"true"`
	Metrics       *metrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	subscriptions subscriptiondomain.Service
	locker        Locker
	metrics       *metrics.SchedulerMetrics
	cron          *cron.Cron
}

type job struct {
	name string
	spec string
	run  func(context.Context, *jobRun) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Subscriptions == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		subscriptions: p.Subscriptions,
		locker:        p.Locker,
		metrics:       p.Metrics,
		cron:          cron.New(cron.WithLocation(time.UTC)),
	}

	for _, j := range s.jobs() {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() {
			if err := s.RunJob(context.Background(), j.name); err != nil {
				s.log.Warn("scheduler run failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("%w: %s spec %q: %v", ErrInvalidConfig, j.name, j.spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobExpireSubscriptions, spec: s.cfg.ExpirySweepSpec, run: s.expireSubscriptions},
		{name: JobTrialNotices, spec: s.cfg.TrialNoticeSpec, run: s.sendTrialNotices},
		{name: JobMonthlyUsageReset, spec: s.cfg.MonthlyResetSpec, run: s.resetMonthlyUsage},
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("expiry_sweep", s.cfg.ExpirySweepSpec),
		zap.String("trial_notice", s.cfg.TrialNoticeSpec),
		zap.String("monthly_reset", s.cfg.MonthlyResetSpec),
		zap.Bool("leases", s.locker != nil),
	)
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs every job in order, used for one-shot invocations.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, j := range s.jobs() {
		err = errors.Join(err, s.RunJob(ctx, j.name))
	}
	return err
}

// RunJob runs one named job under a timeout and, when leases are enabled,
// only if no other instance holds the job lease. Deadline overruns are
// logged and counted but not returned.
func (s *Scheduler) RunJob(parent context.Context, name string) error {
	var target *job
	for _, j := range s.jobs() {
		if j.name == name {
			j := j
			target = &j
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown scheduler job %q", name)
	}

	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()
	ctx, span := tracing.Start(ctx, "scheduler.run", attribute.String("job", name))
	defer span.End()
	ctx, run := s.newJobRun(ctx, name)

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, name, s.cfg.LockTTL)
		if err != nil {
			s.metrics.IncJobError(name, err)
			return fmt.Errorf("%s: acquire lease: %w", name, err)
		}
		if !ok {
			s.metrics.IncJobSkipped(name)
			s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", name))
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.Background(), name, token); err != nil {
				s.log.Warn("release lease failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)
	start := s.clock.Now()

	err := target.run(ctx, run)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
