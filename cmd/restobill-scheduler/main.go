package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/cache"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/config"
	"github.com/smallbiznis/restobill/internal/observability"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/scheduler"
	"github.com/smallbiznis/restobill/internal/subscription"
	"github.com/smallbiznis/restobill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "run every job once and exit")
	job := flag.String("job", "", "run a single job once and exit")
	flag.Parse()

	modules := []fx.Option{
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		plan.Module,
		cache.Module,
		subscription.Module,
	}

	if !*once && *job == "" {
		app := fx.New(append(modules, scheduler.Module)...)
		app.Run()
		return
	}

	if err := runOnce(modules, *job); err != nil {
		os.Exit(1)
	}
}

// runOnce starts the graph without the cron loop, runs the requested jobs
// and stops.
func runOnce(modules []fx.Option, job string) error {
	var s *scheduler.Scheduler
	var log *zap.Logger
	app := fx.New(append(modules,
		fx.Provide(scheduler.ProvideConfig, scheduler.ProvideLocker, scheduler.New),
		fx.Populate(&s, &log),
	)...)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	var err error
	if job != "" {
		err = s.RunJob(context.Background(), job)
	} else {
		err = s.RunOnce(context.Background())
	}
	if err != nil {
		log.Error("scheduler run failed", zap.String("job", job), zap.Error(err))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return errors.Join(err, app.Stop(stopCtx))
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
