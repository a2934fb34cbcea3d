package entitlement

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/types"
)

// HandleSubscriptionUpdated reconciles ongoing subscription state changes:
// renewals, pending cancellations, reactivations and transitions into bad
// statuses.
func (s *Service) HandleSubscriptionUpdated(ctx context.Context, ev *SubscriptionEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	sub, err := s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("subscription_update_unknown", "subscription_id", ev.SubscriptionID)
		return nil
	}

	s.locks.Lock(sub.UserID)
	defer s.locks.Unlock(sub.UserID)

	// Re-read under the user lock; a concurrent event may have just written.
	sub, err = s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("subscription_update_vanished", "subscription_id", ev.SubscriptionID)
		return nil
	}

	switch ev.Status.Class() {
	case types.StatusClassBad:
		// "canceled" arrives twice: once through this update event while the
		// subscription still logically exists, and once as the dedicated
		// deletion event. Once the provider has stamped the deletion
		// timestamp the terminal transition belongs to the deletion handler.
		if ev.Status == types.SubscriptionStatusCanceled && ev.CanceledAt > 0 {
			log.Infow("subscription_update_cancellation_deferred_to_deletion",
				"subscription_id", ev.SubscriptionID, "user_id", sub.UserID)
			return nil
		}
		return s.downgradeToFree(ctx, sub, ev.Status, "customer.subscription.updated")
	case types.StatusClassActive:
		return s.reconcileActive(ctx, sub, ev)
	default:
		log.Warnw("subscription_update_unhandled_status", "status", ev.Status, "subscription_id", ev.SubscriptionID)
		return nil
	}
}

// reconcileActive applies the healthy-path entitlement delta. Caller holds the
// user lock.
func (s *Service) reconcileActive(ctx context.Context, sub *models.Subscription, ev *SubscriptionEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	item := s.table.ByPriceID(ev.PriceID)
	if item == nil {
		log.Errorw("subscription_update_unmapped_price", "price_id", ev.PriceID, "subscription_id", ev.SubscriptionID)
		return nil
	}

	previousPlan := sub.PlanOrFree()
	wasInCancelledState := sub.CancelAtPeriodEnd
	change := computeActiveChange(previousPlan, wasInCancelledState, ev, item, s.table, s.now())

	var beforeSnap, afterSnap *models.EntitlementSnapshot

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadOrInitUser(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		beforeSnap = entitlementSnapshot(sub, user)

		sub.Plan = item.Plan
		sub.Status = ev.Status
		sub.PlanPrice = item.Price
		sub.TokensIncluded = item.TokensIncluded
		sub.CancelAtPeriodEnd = change.CancelAtPeriodEnd
		sub.CurrentPeriodEnd = change.CurrentPeriodEnd
		if err := tx.WithContext(ctx).Save(sub).Error; err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}

		user.SetPlan(item.Plan)
		user.Tokens += change.GrantTokens
		if err := tx.WithContext(ctx).Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user entitlements: %w", err)
		}

		if err := s.enqueueNotification(ctx, tx, sub.UserID, change.Notification, string(item.Plan), change.CurrentPeriodEnd, map[string]any{
			"subscription_id": ev.SubscriptionID,
		}); err != nil {
			return err
		}

		afterSnap = entitlementSnapshot(sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile active subscription update: %w", err)
	}

	s.logEntitlementChange(ctx, sub.UserID, "customer.subscription.updated", change.Notification, beforeSnap, afterSnap)
	log.Infow("subscription_update_reconciled",
		"user_id", sub.UserID,
		"plan", item.Plan,
		"cancel_at_period_end", change.CancelAtPeriodEnd,
		"granted_tokens", change.GrantTokens,
		"notification", change.Notification,
	)
	return nil
}

// applyDowngradeTx forces the pair onto the free tier within the caller's
// transaction. Token balance is untouched: this subsystem only ever adds
// tokens. Shared by bad-status updates and invoice-failure escalation.
func (s *Service) applyDowngradeTx(ctx context.Context, tx *gorm.DB, sub *models.Subscription, user *models.User, status types.SubscriptionStatus) error {
	sub.Status = status
	sub.Plan = types.PlanFree
	sub.PlanPrice = 0
	sub.TokensIncluded = 0
	if err := tx.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("failed to downgrade subscription: %w", err)
	}

	user.SetPlan(types.PlanFree)
	if err := tx.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to downgrade user entitlements: %w", err)
	}

	return s.enqueueNotification(ctx, tx, sub.UserID, types.NotificationTypeDowngrade, string(types.PlanFree), sub.CurrentPeriodEnd, map[string]any{
		"status": string(status),
	})
}

// downgradeToFree runs the downgrade path in its own transaction. Caller holds
// the user lock.
func (s *Service) downgradeToFree(ctx context.Context, sub *models.Subscription, status types.SubscriptionStatus, reason string) error {
	var beforeSnap, afterSnap *models.EntitlementSnapshot

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadOrInitUser(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		beforeSnap = entitlementSnapshot(sub, user)

		if err := s.applyDowngradeTx(ctx, tx, sub, user, status); err != nil {
			return err
		}

		afterSnap = entitlementSnapshot(sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply downgrade: %w", err)
	}

	s.logEntitlementChange(ctx, sub.UserID, reason, types.NotificationTypeDowngrade, beforeSnap, afterSnap)
	logctx.FromCtx(ctx, s.log).Infow("subscription_downgraded", "user_id", sub.UserID, "status", status)
	return nil
}
