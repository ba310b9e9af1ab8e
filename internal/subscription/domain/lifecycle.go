package domain

import (
	"math"
	"time"

	"github.com/smallbiznis/restobill/internal/plan"
)

// TrialValid reports an active trial window that has not ended yet.
func (s Subscription) TrialValid(now time.Time) bool {
	return s.TrialActive && s.TrialEnd != nil && now.Before(*s.TrialEnd)
}

// PeriodActive reports a paid period in force: status active and before period end.
func (s Subscription) PeriodActive(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.CurrentPeriodEnd)
}

// IsActive reports whether the restaurant may use the product right now.
// A valid trial grants access regardless of status or period end.
func (s Subscription) IsActive(now time.Time) bool {
	return s.PeriodActive(now) || s.TrialValid(now)
}

// TrialDaysRemaining rounds partial days up and never goes below zero.
func (s Subscription) TrialDaysRemaining(now time.Time) int {
	if !s.TrialActive || s.TrialEnd == nil {
		return 0
	}
	diff := s.TrialEnd.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// LimitCheck is the result of comparing a counter to its cap. Remaining is
// -1 when the limit is unlimited.
type LimitCheck struct {
	LimitType plan.LimitType `json:"limitType"`
	Allowed   bool           `json:"allowed"`
	Remaining int            `json:"remaining"`
	Limit     int            `json:"limit"`
	Current   int            `json:"current"`
}

func (s Subscription) CheckLimit(limitType plan.LimitType) LimitCheck {
	limit := s.Limits.Of(limitType)
	current := s.Usage.Of(UsageFor(limitType))
	if limit == plan.Unlimited {
		return LimitCheck{LimitType: limitType, Allowed: true, Remaining: -1, Limit: limit, Current: current}
	}
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return LimitCheck{
		LimitType: limitType,
		Allowed:   current < limit,
		Remaining: remaining,
		Limit:     limit,
		Current:   current,
	}
}

// ApplyPlan overwrites plan-derived fields from the catalog row.
func (s *Subscription) ApplyPlan(p plan.Plan) {
	s.Plan = p.Code
	s.Amount = p.MonthlyPrice
	s.Currency = p.Currency
	s.Limits = p.Limits
	s.Features = p.Features
}

// StartTrial resets the trial window and ties the period to it.
func (s *Subscription) StartTrial(now time.Time, days int) {
	start := now
	end := now.AddDate(0, 0, days)
	s.TrialActive = true
	s.TrialStart = &start
	s.TrialEnd = &end
	s.CurrentPeriodStart = now
	s.CurrentPeriodEnd = end
	s.NextBillingDate = nil
}

// StartPaidPeriod forces an active one month period beginning now.
func (s *Subscription) StartPaidPeriod(now time.Time) {
	end := now.AddDate(0, 1, 0)
	s.Status = StatusActive
	s.TrialActive = false
	s.CurrentPeriodStart = now
	s.CurrentPeriodEnd = end
	s.NextBillingDate = &end
}

// RecordPayment applies a payment to the period. A successful payment
// extends the period end by one month from its current value.
func (s *Subscription) RecordPayment(p Payment) {
	if p.Method != "" {
		s.PaymentMethod = p.Method
	}
	if p.Status != PaymentStatusSuccess {
		return
	}
	paidAt := p.PaidAt
	end := s.CurrentPeriodEnd.AddDate(0, 1, 0)
	s.LastPaymentDate = &paidAt
	s.Status = StatusActive
	s.CurrentPeriodEnd = end
	s.NextBillingDate = &end
}

// Cancel moves the subscription to cancelled without touching usage.
func (s *Subscription) Cancel(now time.Time, reason string) {
	cancelledAt := now
	s.Status = StatusCancelled
	s.AutoRenew = false
	s.CancelledAt = &cancelledAt
	s.CancelReason = reason
}
