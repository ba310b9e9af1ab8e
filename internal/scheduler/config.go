package scheduler

import (
	"time"

	"github.com/smallbiznis/restobill/internal/config"
)

// Config controls job triggers, timeouts and worker counts.
type Config struct {
	Enabled            bool
	ExpirySweepSpec    string
	TrialNoticeSpec    string
	MonthlyResetSpec   string
	TrialNoticeDays    int
	JobTimeout         time.Duration
	LockTTL            time.Duration
	TrialNoticeWorkers int
}

func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		ExpirySweepSpec:    "@every 15m",
		TrialNoticeSpec:    "0 9 * * *",
		MonthlyResetSpec:   "5 0 1 * *",
		TrialNoticeDays:    2,
		JobTimeout:         2 * time.Minute,
		LockTTL:            5 * time.Minute,
		TrialNoticeWorkers: 4,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:            cfg.Scheduler.Enabled,
		ExpirySweepSpec:    cfg.Scheduler.ExpirySweepSpec,
		TrialNoticeSpec:    cfg.Scheduler.TrialNoticeSpec,
		MonthlyResetSpec:   cfg.Scheduler.MonthlyResetSpec,
		TrialNoticeDays:    cfg.Scheduler.TrialNoticeDays,
		JobTimeout:         cfg.Scheduler.JobTimeout,
		LockTTL:            cfg.Scheduler.LockTTL,
		TrialNoticeWorkers: cfg.Scheduler.TrialNoticeWorkers,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ExpirySweepSpec == "" {
		c.ExpirySweepSpec = defaults.ExpirySweepSpec
	}
	if c.TrialNoticeSpec == "" {
		c.TrialNoticeSpec = defaults.TrialNoticeSpec
	}
	if c.MonthlyResetSpec == "" {
		c.MonthlyResetSpec = defaults.MonthlyResetSpec
	}
	if c.TrialNoticeDays <= 0 {
		c.TrialNoticeDays = defaults.TrialNoticeDays
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.TrialNoticeWorkers <= 0 {
		c.TrialNoticeWorkers = defaults.TrialNoticeWorkers
	}
	return c
}
