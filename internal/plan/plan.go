// Package plan holds the immutable table of subscription plans.
package plan

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/restobill/pkg/errs"
)

type Code string

const (
	FreeTrial    Code = "free_trial"
	Basic        Code = "basic"
	Professional Code = "professional"
	Enterprise   Code = "enterprise"
)

// Unlimited is the limit sentinel meaning no cap.
const Unlimited = -1

const DefaultCurrency = "INR"

var (
	ErrInvalidPlan      = errs.InvalidInput("invalid_plan")
	ErrUnknownPlan      = errs.Conflict("unknown_plan")
	ErrInvalidLimitType = errs.InvalidInput("invalid_limit_type")
	ErrInvalidFeature   = errs.InvalidInput("invalid_feature")
)

var codePattern = regexp.MustCompile(`^[a-z][a-z_]{0,31}$`)

// ParseCode normalizes raw input. Garbled input is InvalidInput; a well-formed
// code absent from the catalog is reported later by Catalog.Lookup.
func ParseCode(raw string) (Code, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if !codePattern.MatchString(value) {
		return "", ErrInvalidPlan
	}
	return Code(value), nil
}

// Limits caps the usage counters. Unlimited (-1) disables a cap.
type Limits struct {
	MaxRestaurants int `json:"maxRestaurants" gorm:"column:max_restaurants;not null"`
	MaxOrders      int `json:"maxOrders" gorm:"column:max_orders;not null"`
	MaxStaff       int `json:"maxStaff" gorm:"column:max_staff;not null"`
	MaxTables      int `json:"maxTables" gorm:"column:max_tables;not null"`
	MaxMenuItems   int `json:"maxMenuItems" gorm:"column:max_menu_items;not null"`
}

// LimitType names a limit the way collaborators refer to it.
type LimitType string

const (
	LimitRestaurants LimitType = "maxRestaurants"
	LimitOrders      LimitType = "maxOrders"
	LimitStaff       LimitType = "maxStaff"
	LimitTables      LimitType = "maxTables"
	LimitMenuItems   LimitType = "maxMenuItems"
)

func ParseLimitType(raw string) (LimitType, error) {
	switch t := LimitType(strings.TrimSpace(raw)); t {
	case LimitRestaurants, LimitOrders, LimitStaff, LimitTables, LimitMenuItems:
		return t, nil
	default:
		return "", ErrInvalidLimitType
	}
}

// Of returns the cap for the given limit type.
func (l Limits) Of(t LimitType) int {
	switch t {
	case LimitRestaurants:
		return l.MaxRestaurants
	case LimitOrders:
		return l.MaxOrders
	case LimitStaff:
		return l.MaxStaff
	case LimitTables:
		return l.MaxTables
	case LimitMenuItems:
		return l.MaxMenuItems
	default:
		return 0
	}
}

// Label is the human name used in limit messages ("staff", "menu items").
func (t LimitType) Label() string {
	switch t {
	case LimitRestaurants:
		return "restaurants"
	case LimitOrders:
		return "orders"
	case LimitStaff:
		return "staff"
	case LimitTables:
		return "tables"
	case LimitMenuItems:
		return "menu items"
	default:
		return string(t)
	}
}

type Features struct {
	BasicFeatures      bool `json:"basicFeatures" gorm:"column:basic_features;not null"`
	KitchenDisplay     bool `json:"kitchenDisplay" gorm:"column:kitchen_display;not null"`
	Analytics          bool `json:"analytics" gorm:"column:analytics;not null"`
	TableManagement    bool `json:"tableManagement" gorm:"column:table_management;not null"`
	StaffManagement    bool `json:"staffManagement" gorm:"column:staff_management;not null"`
	PaymentIntegration bool `json:"paymentIntegration" gorm:"column:payment_integration;not null"`
	CustomBranding     bool `json:"customBranding" gorm:"column:custom_branding;not null"`
	APIAccess          bool `json:"apiAccess" gorm:"column:api_access;not null"`
	PrioritySupport    bool `json:"prioritySupport" gorm:"column:priority_support;not null"`
	DedicatedManager   bool `json:"dedicatedManager" gorm:"column:dedicated_manager;not null"`
}

type Feature string

const (
	FeatureBasic              Feature = "basicFeatures"
	FeatureKitchenDisplay     Feature = "kitchenDisplay"
	FeatureAnalytics          Feature = "analytics"
	FeatureTableManagement    Feature = "tableManagement"
	FeatureStaffManagement    Feature = "staffManagement"
	FeaturePaymentIntegration Feature = "paymentIntegration"
	FeatureCustomBranding     Feature = "customBranding"
	FeatureAPIAccess          Feature = "apiAccess"
	FeaturePrioritySupport    Feature = "prioritySupport"
	FeatureDedicatedManager   Feature = "dedicatedManager"
)

func ParseFeature(raw string) (Feature, error) {
	f := Feature(strings.TrimSpace(raw))
	if _, ok := (Features{}).lookup(f); !ok {
		return "", ErrInvalidFeature
	}
	return f, nil
}

// Has reports whether the feature is enabled. Unknown names are disabled.
func (f Features) Has(name Feature) bool {
	enabled, _ := f.lookup(name)
	return enabled
}

func (f Features) lookup(name Feature) (bool, bool) {
	switch name {
	case FeatureBasic:
		return f.BasicFeatures, true
	case FeatureKitchenDisplay:
		return f.KitchenDisplay, true
	case FeatureAnalytics:
		return f.Analytics, true
	case FeatureTableManagement:
		return f.TableManagement, true
	case FeatureStaffManagement:
		return f.StaffManagement, true
	case FeaturePaymentIntegration:
		return f.PaymentIntegration, true
	case FeatureCustomBranding:
		return f.CustomBranding, true
	case FeatureAPIAccess:
		return f.APIAccess, true
	case FeaturePrioritySupport:
		return f.PrioritySupport, true
	case FeatureDedicatedManager:
		return f.DedicatedManager, true
	default:
		return false, false
	}
}

// Words splits a camelCase feature name for messages ("kitchen display").
func (name Feature) Words() string {
	var b strings.Builder
	for i, r := range string(name) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Plan is one row of the catalog together with its public pricing metadata.
type Plan struct {
	Code            Code            `json:"id"`
	Name            string          `json:"name"`
	MonthlyPrice    decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	TrialDays       int             `json:"trialDays"`
	Duration        string          `json:"duration"`
	Description     string          `json:"description"`
	FeatureList     []string        `json:"features"`
	Limits          Limits          `json:"limits"`
	Features        Features        `json:"featureFlags"`
	Popular         bool            `json:"popular"`
	RequiresPayment bool            `json:"requiresPayment"`
}

func (p Plan) clone() Plan {
	out := p
	out.FeatureList = append([]string(nil), p.FeatureList...)
	return out
}
