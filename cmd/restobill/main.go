package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/cache"
	"github.com/smallbiznis/restobill/internal/clock"
	"github.com/smallbiznis/restobill/internal/config"
	"github.com/smallbiznis/restobill/internal/invoice"
	"github.com/smallbiznis/restobill/internal/migration"
	"github.com/smallbiznis/restobill/internal/observability"
	"github.com/smallbiznis/restobill/internal/plan"
	"github.com/smallbiznis/restobill/internal/pos"
	"github.com/smallbiznis/restobill/internal/scheduler"
	"github.com/smallbiznis/restobill/internal/subscription"
	"github.com/smallbiznis/restobill/internal/transaction"
	"github.com/smallbiznis/restobill/internal/usagegate"
	"github.com/smallbiznis/restobill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		plan.Module,
		cache.Module,
		pos.Module,
		subscription.Module,
		usagegate.Module,
		invoice.Module,
		transaction.Module,
		scheduler.Module,

		fx.Invoke(logCatalog),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

func logCatalog(catalog *plan.Catalog, log *zap.Logger) {
	plans := catalog.GetPricingPlans()
	codes := make([]string, 0, len(plans))
	for _, p := range plans {
		codes = append(codes, string(p.Code))
	}
	log.Info("billing core ready", zap.Strings("plans", codes))
}
