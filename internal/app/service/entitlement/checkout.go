package entitlement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/tool"
	"github.com/tailhaven/billing/pkg/types"
)

// HandleCheckoutCompleted converts a completed checkout session into an active
// subscription record and grants initial plan entitlements.
//
// The guards short-circuit with a logged no-op: redelivery would reproduce the
// same missing precondition, so failing the event would only cause useless
// retries. Everything after the guards returns errors so the provider
// redelivers the whole event.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, ev *CheckoutSessionEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	if ev.UserID == "" {
		log.Warnw("checkout_completed_missing_user", "session_id", ev.SessionID)
		return nil
	}
	if ev.SubscriptionID == "" {
		log.Warnw("checkout_completed_missing_subscription", "session_id", ev.SessionID, "user_id", ev.UserID)
		return nil
	}

	s.locks.Lock(ev.UserID)
	defer s.locks.Unlock(ev.UserID)

	existing, err := s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	return s.completeCheckout(ctx, ev, existing)
}

// completeCheckout runs under the user lock once the event shape checks out.
// A non-nil existing record already referencing this provider subscription
// means the session was processed before: the redelivery is acknowledged
// without touching state, so the record stays singular and the grant happens
// at most once.
func (s *Service) completeCheckout(ctx context.Context, ev *CheckoutSessionEvent, existing *models.Subscription) error {
	log := logctx.FromCtx(ctx, s.log)

	if existing != nil {
		log.Warnw("checkout_completed_duplicate", "subscription_id", ev.SubscriptionID, "user_id", ev.UserID)
		return nil
	}

	snap, err := s.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription detail: %w", err)
	}

	item := s.table.ByPriceID(snap.PriceID)
	if item == nil {
		log.Errorw("checkout_completed_unmapped_price", "price_id", snap.PriceID, "subscription_id", ev.SubscriptionID)
		return nil
	}

	periodEnd := snap.CurrentPeriodEnd
	if periodEnd == nil {
		// Defensive default for malformed provider payloads.
		t := s.now().Add(defaultPeriod)
		periodEnd = &t
	}

	customerID := ev.CustomerID
	if customerID == "" {
		customerID = snap.CustomerID
	}

	var beforeSnap, afterSnap *models.EntitlementSnapshot
	var notif types.NotificationType

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Upsert keyed by user id: at most one subscription record per user.
		var original models.Subscription
		origErr := tx.WithContext(ctx).Where("user_id = ?", ev.UserID).First(&original).Error
		if origErr != nil && !errors.Is(origErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load original subscription: %w", origErr)
		}

		user, err := s.loadOrInitUser(ctx, tx, ev.UserID)
		if err != nil {
			return err
		}

		var beforeSub *models.Subscription
		if original.ID != "" {
			beforeSub = &original
		}
		beforeSnap = entitlementSnapshot(beforeSub, user)
		previousPlan := beforeSub.PlanOrFree()

		sub := models.Subscription{
			ID:                original.ID,
			UserID:            ev.UserID,
			Plan:              item.Plan,
			Status:            snap.Status,
			PlanPrice:         item.Price,
			TokensIncluded:    item.TokensIncluded,
			CurrentPeriodEnd:  periodEnd,
			CancelAtPeriodEnd: snap.CancelAtPeriodEnd,
			SubscriptionID:    &ev.SubscriptionID,
			Extra:             original.Extra,
			CreatedAt:         original.CreatedAt,
		}
		if sub.ID == "" {
			sub.ID = tool.GenerateUUIDV7()
		}
		if err := tx.WithContext(ctx).Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if customerID != "" {
			user.StripeCustomerID = &customerID
		}
		user.SetPlan(item.Plan)
		if item.TokensIncluded > 0 {
			// Increment, never set: the balance survives plan churn.
			user.Tokens += item.TokensIncluded
		}
		if err := tx.WithContext(ctx).Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user entitlements: %w", err)
		}

		notif = DecideNotification(s.table, previousPlan, item.Plan, snap.CancelAtPeriodEnd, false)
		if err := s.enqueueNotification(ctx, tx, ev.UserID, notif, string(item.Plan), periodEnd, map[string]any{
			"subscription_id": ev.SubscriptionID,
		}); err != nil {
			return err
		}

		afterSnap = entitlementSnapshot(&sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile checkout completion: %w", err)
	}

	s.logEntitlementChange(ctx, ev.UserID, "checkout.session.completed", notif, beforeSnap, afterSnap)
	log.Infow("checkout_completed_reconciled", "user_id", ev.UserID, "plan", item.Plan, "subscription_id", ev.SubscriptionID)
	return nil
}
