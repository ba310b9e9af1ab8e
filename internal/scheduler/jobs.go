package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/restobill/internal/restaurantctx"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

func (s *Scheduler) expireSubscriptions(ctx context.Context, run *jobRun) error {
	expired, err := s.subscriptions.SweepExpired(ctx, s.clock.Now())
	run.AddProcessed(len(expired))
	s.metrics.AddBatchProcessed(run.job, "subscriptions", len(expired))
	if err != nil {
		s.logJobError(ctx, run, "scheduler.expire.failed", err)
		return err
	}
	return nil
}

// sendTrialNotices fans the per-restaurant notices out over a bounded pool.
// Each notice is deduplicated by the subscription engine, so a rerun after a
// partial failure is safe.
func (s *Scheduler) sendTrialNotices(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	candidates, err := s.subscriptions.SweepTrialsEnding(ctx, now, s.cfg.TrialNoticeDays)
	if err != nil {
		s.logJobError(ctx, run, "scheduler.trial_notice.sweep_failed", err)
		return err
	}

	var sent atomic.Int64
	p := pool.New().WithMaxGoroutines(s.cfg.TrialNoticeWorkers).WithContext(ctx)
	for _, sub := range candidates {
		sub := sub
		p.Go(func(ctx context.Context) error {
			subCtx := restaurantctx.WithRestaurantID(ctx, int64(sub.RestaurantID))
			ok, err := s.subscriptions.NotifyTrialEnding(subCtx, sub, now)
			if err != nil {
				s.logger(subCtx).Error("scheduler.trial_notice.failed",
					zap.String("job", run.job),
					zap.String("run_id", run.runID),
					zap.String("subscription_id", sub.ID.String()),
					zap.Error(err),
				)
				return err
			}
			if ok {
				sent.Add(1)
			}
			return nil
		})
	}
	err = p.Wait()
	if err != nil {
		run.IncError()
	}

	run.AddProcessed(int(sent.Load()))
	s.metrics.AddBatchProcessed(run.job, "notifications", int(sent.Load()))
	return err
}

func (s *Scheduler) resetMonthlyUsage(ctx context.Context, run *jobRun) error {
	n, err := s.subscriptions.ResetMonthlyUsage(ctx)
	if err != nil {
		s.logJobError(ctx, run, "scheduler.monthly_reset.failed", err)
		return err
	}
	run.AddProcessed(int(n))
	s.metrics.AddBatchProcessed(run.job, "subscriptions", int(n))
	return nil
}

