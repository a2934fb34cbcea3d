package entitlement

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/types"
)

// terminalizeSubscription applies the terminal cleanup: the record drops to
// the free tier, the cancellation countdown stops and the external id is
// released so a future checkout can bind a fresh provider subscription.
func terminalizeSubscription(sub *models.Subscription, now time.Time) {
	sub.Status = types.SubscriptionStatusCanceled
	sub.Plan = types.PlanFree
	sub.PlanPrice = 0
	sub.TokensIncluded = 0
	sub.CanceledAt = &now
	// Nothing left to count down to.
	sub.CancelAtPeriodEnd = false
	sub.SubscriptionID = nil
}

// HandleSubscriptionDeleted performs terminal cleanup when the provider
// removes a subscription. The external id is cleared so a later checkout can
// upsert a fresh subscription cleanly; the token balance is preserved.
func (s *Service) HandleSubscriptionDeleted(ctx context.Context, ev *SubscriptionEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	sub, err := s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("subscription_deleted_unknown", "subscription_id", ev.SubscriptionID)
		return nil
	}

	s.locks.Lock(sub.UserID)
	defer s.locks.Unlock(sub.UserID)

	sub, err = s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("subscription_deleted_vanished", "subscription_id", ev.SubscriptionID)
		return nil
	}

	var beforeSnap, afterSnap *models.EntitlementSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadOrInitUser(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		beforeSnap = entitlementSnapshot(sub, user)

		terminalizeSubscription(sub, s.now())
		if err := tx.WithContext(ctx).Save(sub).Error; err != nil {
			return fmt.Errorf("failed to finalize subscription deletion: %w", err)
		}

		user.SetPlan(types.PlanFree)
		if err := tx.WithContext(ctx).Save(user).Error; err != nil {
			return fmt.Errorf("failed to downgrade user entitlements: %w", err)
		}

		if err := s.enqueueNotification(ctx, tx, sub.UserID, types.NotificationTypeDowngrade, string(types.PlanFree), nil, map[string]any{
			"subscription_id": ev.SubscriptionID,
			"terminal":        true,
		}); err != nil {
			return err
		}

		afterSnap = entitlementSnapshot(sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile subscription deletion: %w", err)
	}

	s.logEntitlementChange(ctx, sub.UserID, "customer.subscription.deleted", types.NotificationTypeDowngrade, beforeSnap, afterSnap)
	log.Infow("subscription_deleted_reconciled", "user_id", sub.UserID, "subscription_id", ev.SubscriptionID)
	return nil
}
