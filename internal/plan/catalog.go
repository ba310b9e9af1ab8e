package plan

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DefaultTrialDays is the trial window length for new and re-trialed subscriptions.
const DefaultTrialDays = 5

// Catalog is the immutable plan table. It is built once and shared.
type Catalog struct {
	order []Code
	plans map[Code]Plan
}

var Module = fx.Module("plan",
	fx.Provide(ProvideCatalog),
)

func NewCatalog(plans []Plan) *Catalog {
	c := &Catalog{plans: make(map[Code]Plan, len(plans))}
	for _, p := range plans {
		c.order = append(c.order, p.Code)
		c.plans[p.Code] = p.clone()
	}
	return c
}

// DefaultCatalog returns the built-in four plan table.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultPlans())
}

// Lookup returns a copy of the plan or ErrUnknownPlan.
func (c *Catalog) Lookup(code Code) (Plan, error) {
	p, ok := c.plans[code]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p.clone(), nil
}

// Resolve parses raw input and looks it up.
func (c *Catalog) Resolve(raw string) (Plan, error) {
	code, err := ParseCode(raw)
	if err != nil {
		return Plan{}, err
	}
	return c.Lookup(code)
}

// GetPricingPlans returns the catalog in display order, safe for public use.
func (c *Catalog) GetPricingPlans() []Plan {
	return lo.Map(c.order, func(code Code, _ int) Plan {
		return c.plans[code].clone()
	})
}

type fileOverride struct {
	Price       *float64 `mapstructure:"price"`
	TrialDays   *int     `mapstructure:"trial_days"`
	Duration    string   `mapstructure:"duration"`
	Description string   `mapstructure:"description"`
	Features    []string `mapstructure:"features"`
	Limits      *Limits  `mapstructure:"limits"`
}

// ProvideCatalog builds the catalog once at startup, applying optional
// overrides from the plan file. The file is never re-read.
func ProvideCatalog(cfg config.Config, log *zap.Logger) (*Catalog, error) {
	plans := DefaultPlans()
	if strings.TrimSpace(cfg.PlanCatalogFile) == "" {
		return NewCatalog(plans), nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.PlanCatalogFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var overrides map[string]fileOverride
	if err := v.UnmarshalKey("plans", &overrides); err != nil {
		return nil, err
	}

	for i := range plans {
		o, ok := overrides[string(plans[i].Code)]
		if !ok {
			continue
		}
		applyOverride(&plans[i], o)
		log.Info("plan catalog override applied", zap.String("plan", string(plans[i].Code)))
	}
	return NewCatalog(plans), nil
}

func applyOverride(p *Plan, o fileOverride) {
	if o.Price != nil && *o.Price >= 0 {
		p.MonthlyPrice = decimal.NewFromFloat(*o.Price)
	}
	if o.TrialDays != nil && *o.TrialDays > 0 {
		p.TrialDays = *o.TrialDays
	}
	if o.Duration != "" {
		p.Duration = o.Duration
	}
	if o.Description != "" {
		p.Description = o.Description
	}
	if len(o.Features) > 0 {
		p.FeatureList = o.Features
	}
	if o.Limits != nil {
		p.Limits = *o.Limits
	}
}

func DefaultPlans() []Plan {
	return []Plan{
		{
			Code:         FreeTrial,
			Name:         "FREE_TRIAL",
			MonthlyPrice: decimal.Zero,
			Currency:     DefaultCurrency,
			TrialDays:    DefaultTrialDays,
			Duration:     "5 days only",
			Description:  "Try all features free for 5 days",
			FeatureList: []string{
				"Full access to all features",
				"Test all premium tools",
				"No payment required",
				"5 days to explore",
				"Email support",
			},
			Limits:          Limits{MaxRestaurants: 1, MaxOrders: 50, MaxStaff: 5, MaxTables: 10, MaxMenuItems: 50},
			Features:        Features{BasicFeatures: true},
			RequiresPayment: false,
		},
		{
			Code:         Basic,
			Name:         "BASIC",
			MonthlyPrice: decimal.NewFromInt(999),
			Currency:     DefaultCurrency,
			TrialDays:    DefaultTrialDays,
			Duration:     "per month",
			Description:  "Perfect for small restaurants",
			FeatureList: []string{
				"1 restaurant",
				"500 orders/month",
				"All core features",
				"Kitchen display",
				"Payment integration",
				"Email support",
			},
			Limits: Limits{MaxRestaurants: 1, MaxOrders: 500, MaxStaff: 10, MaxTables: 20, MaxMenuItems: 100},
			Features: Features{
				BasicFeatures:      true,
				KitchenDisplay:     true,
				PaymentIntegration: true,
			},
			RequiresPayment: true,
		},
		{
			Code:         Professional,
			Name:         "PROFESSIONAL",
			MonthlyPrice: decimal.NewFromInt(2999),
			Currency:     DefaultCurrency,
			TrialDays:    DefaultTrialDays,
			Duration:     "per month",
			Description:  "For growing restaurant businesses",
			FeatureList: []string{
				"3 restaurants",
				"Unlimited orders",
				"All features",
				"Analytics dashboard",
				"Table management",
				"Staff management",
				"Priority support",
				"Custom branding",
			},
			Limits: Limits{MaxRestaurants: 3, MaxOrders: Unlimited, MaxStaff: 50, MaxTables: 100, MaxMenuItems: 500},
			Features: Features{
				BasicFeatures:      true,
				KitchenDisplay:     true,
				Analytics:          true,
				TableManagement:    true,
				StaffManagement:    true,
				PaymentIntegration: true,
				CustomBranding:     true,
				PrioritySupport:    true,
			},
			Popular:         true,
			RequiresPayment: true,
		},
		{
			Code:         Enterprise,
			Name:         "ENTERPRISE",
			MonthlyPrice: decimal.NewFromInt(9999),
			Currency:     DefaultCurrency,
			TrialDays:    DefaultTrialDays,
			Duration:     "per month",
			Description:  "For large restaurant chains",
			FeatureList: []string{
				"Unlimited restaurants",
				"Unlimited orders",
				"All features",
				"Multi-branch support",
				"API access",
				"Dedicated account manager",
				"Custom development",
				"24/7 support",
			},
			Limits: Limits{MaxRestaurants: Unlimited, MaxOrders: Unlimited, MaxStaff: Unlimited, MaxTables: Unlimited, MaxMenuItems: Unlimited},
			Features: Features{
				BasicFeatures:      true,
				KitchenDisplay:     true,
				Analytics:          true,
				TableManagement:    true,
				StaffManagement:    true,
				PaymentIntegration: true,
				CustomBranding:     true,
				APIAccess:          true,
				PrioritySupport:    true,
				DedicatedManager:   true,
			},
			RequiresPayment: true,
		},
	}
}
