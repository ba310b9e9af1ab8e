package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/restobill/internal/observability/logger"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/smallbiznis/restobill/pkg/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) AddNotification(ctx context.Context, notificationType subscriptiondomain.NotificationType, message string) error {
	if !notificationType.Valid() {
		return subscriptiondomain.ErrInvalidNotificationType
	}
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return err
	}
	sub, err := s.ensure(ctx, restaurantID)
	if err != nil {
		return err
	}

	n := s.buildNotification(sub, notificationType, strings.TrimSpace(message), s.clock.Now())
	if err := s.repo.InsertNotification(ctx, s.db, &n); err != nil {
		return errs.Dependency(err, "insert_notification")
	}
	return nil
}

func (s *Service) ListNotifications(ctx context.Context, req subscriptiondomain.ListNotificationsRequest) ([]subscriptiondomain.Notification, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	items, err := s.repo.ListNotifications(ctx, s.db, restaurantID, req.UnreadOnly, limit)
	if err != nil {
		return nil, errs.Dependency(err, "list_notifications")
	}
	return items, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return err
	}
	notificationID, err := s.parseID(id, subscriptiondomain.ErrInvalidNotificationID)
	if err != nil {
		return err
	}

	ok, err := s.repo.MarkNotificationRead(ctx, s.db, restaurantID, notificationID, s.clock.Now())
	if err != nil {
		return errs.Dependency(err, "mark_notification_read")
	}
	if !ok {
		return subscriptiondomain.ErrNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := s.repo.MarkAllNotificationsRead(ctx, s.db, restaurantID, s.clock.Now())
	if err != nil {
		return 0, errs.Dependency(err, "mark_all_notifications_read")
	}
	return affected, nil
}

func (s *Service) ListPaymentHistory(ctx context.Context) ([]subscriptiondomain.Payment, error) {
	restaurantID, err := s.restaurantID(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListPayments(ctx, s.db, restaurantID)
	if err != nil {
		return nil, errs.Dependency(err, "list_payments")
	}
	return items, nil
}

// SweepExpired expires active subscriptions whose period ended before now.
// Only rows this call actually transitioned are returned and notified.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) ([]subscriptiondomain.Subscription, error) {
	now = now.UTC()
	var expired []subscriptiondomain.Subscription

	for {
		candidates, err := s.repo.ListExpiredCandidates(ctx, s.db, now, expirySweepBatch)
		if err != nil {
			return expired, errs.Dependency(err, "list_expired_candidates")
		}

		transitioned := 0
		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return expired, err
			}
			ok, err := s.expireOne(ctx, candidate, now)
			if err != nil {
				return expired, err
			}
			if !ok {
				continue
			}
			transitioned++
			candidate.Status = subscriptiondomain.StatusExpired
			candidate.Version++
			expired = append(expired, candidate)
		}

		// A short page means the backlog is drained; a page with no
		// transitions means the rest belongs to a concurrent sweep.
		if len(candidates) < expirySweepBatch || transitioned == 0 {
			break
		}
	}

	if len(expired) > 0 {
		s.log.Info("subscriptions expired", zap.Int("count", len(expired)), zap.Time("now", now))
	}
	return expired, nil
}

func (s *Service) expireOne(ctx context.Context, sub subscriptiondomain.Subscription, now time.Time) (bool, error) {
	var transitioned bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.MarkExpired(ctx, tx, sub.ID, now)
		if err != nil {
			return errs.Dependency(err, "mark_expired")
		}
		if !ok {
			return nil
		}
		n := s.buildNotification(sub, subscriptiondomain.NotificationSubscriptionCancelled,
			"Your subscription has expired", now)
		if err := s.repo.InsertNotification(ctx, tx, &n); err != nil {
			return errs.Dependency(err, "insert_notification")
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if transitioned {
		s.cache.Invalidate(sub.RestaurantID)
		s.metrics.IncSubscriptionTransition(string(subscriptiondomain.StatusActive), string(subscriptiondomain.StatusExpired))
	}
	return transitioned, nil
}

// SweepTrialsEnding lists trials ending within thresholdDays of now. It does
// not write anything.
func (s *Service) SweepTrialsEnding(ctx context.Context, now time.Time, thresholdDays int) ([]subscriptiondomain.Subscription, error) {
	if thresholdDays <= 0 {
		thresholdDays = defaultTrialNoticeDays
	}
	now = now.UTC()
	items, err := s.repo.ListTrialsEnding(ctx, s.db, now, now.AddDate(0, 0, thresholdDays))
	if err != nil {
		return nil, errs.Dependency(err, "list_trials_ending")
	}
	return items, nil
}

// NotifyTrialEnding appends a trial_ending notification unless one was sent
// in the last 24 hours. It reports whether a notification was written. The
// subscription row is locked so concurrent runs write at most one notice.
func (s *Service) NotifyTrialEnding(ctx context.Context, sub subscriptiondomain.Subscription, now time.Time) (bool, error) {
	now = now.UTC()
	written := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByRestaurantIDForUpdate(ctx, tx, sub.RestaurantID)
		if err != nil {
			return errs.Dependency(err, "lock_subscription")
		}
		if locked == nil {
			return nil
		}
		sent, err := s.repo.HasNotificationSince(ctx, tx, sub.RestaurantID,
			subscriptiondomain.NotificationTrialEnding, now.Add(-trialNoticeDedupWindow))
		if err != nil {
			return errs.Dependency(err, "find_trial_notice")
		}
		if sent {
			return nil
		}

		message := fmt.Sprintf("Your trial period ends in %d days. Please subscribe to continue using the service.",
			locked.TrialDaysRemaining(now))
		n := s.buildNotification(*locked, subscriptiondomain.NotificationTrialEnding, message, now)
		if err := s.repo.InsertNotification(ctx, tx, &n); err != nil {
			return errs.Dependency(err, "insert_notification")
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

func (s *Service) NotifyTrialsEnding(ctx context.Context, thresholdDays int) (int, error) {
	now := s.clock.Now()
	items, err := s.SweepTrialsEnding(ctx, now, thresholdDays)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, sub := range items {
		ok, err := s.NotifyTrialEnding(ctx, sub, now)
		if err != nil {
			return notified, err
		}
		if ok {
			notified++
		}
	}
	logger.WithContext(ctx, s.log).Debug("trial notices sent", zap.Int("candidates", len(items)), zap.Int("notified", notified))
	return notified, nil
}

func (s *Service) Statistics(ctx context.Context) (subscriptiondomain.Statistics, error) {
	stats, err := s.repo.Statistics(ctx, s.db)
	if err != nil {
		return subscriptiondomain.Statistics{}, errs.Dependency(err, "subscription_statistics")
	}
	return stats, nil
}
