package entitlement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/internal/platform/stripeapi"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/tool"
	"github.com/tailhaven/billing/pkg/types"
)

// HandleInvoicePaid records a successful charge and realigns the stored plan
// with what the provider actually billed. The authoritative plan is resolved
// from the live subscription's price, by id first and nickname as fallback; if
// neither maps to the plan table the payment is still recorded but the stored
// plan is left untouched rather than guessing a tier.
func (s *Service) HandleInvoicePaid(ctx context.Context, ev *InvoiceEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	if ev.SubscriptionID == "" {
		// One-off invoices carry no subscription; nothing to reconcile.
		log.Warnw("invoice_paid_no_subscription", "invoice_id", ev.InvoiceID)
		return nil
	}

	sub, err := s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("invoice_paid_unknown_subscription", "subscription_id", ev.SubscriptionID, "invoice_id", ev.InvoiceID)
		return nil
	}

	s.locks.Lock(sub.UserID)
	defer s.locks.Unlock(sub.UserID)

	sub, err = s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("invoice_paid_subscription_vanished", "subscription_id", ev.SubscriptionID, "invoice_id", ev.InvoiceID)
		return nil
	}

	snap, err := s.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription detail: %w", err)
	}

	item := s.resolvePlan(snap, ev)
	if item == nil {
		log.Errorw("invoice_paid_unresolvable_plan",
			"invoice_id", ev.InvoiceID,
			"price_id", snap.PriceID,
			"price_nickname", snap.PriceNickname,
			"user_id", sub.UserID,
		)
	}

	customerEmail := s.customerEmail(ctx, snap.CustomerID)

	previousPrice := sub.PlanPrice
	notif := types.NotificationTypePaymentSucceeded

	var beforeSnap, afterSnap *models.EntitlementSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadOrInitUser(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		beforeSnap = entitlementSnapshot(sub, user)

		plan := sub.PlanOrFree()
		if item != nil {
			plan = item.Plan
		}
		if err := s.upsertPayment(ctx, tx, &models.Payment{
			UserID:       sub.UserID,
			ProviderID:   types.PaymentProviderStripe,
			InvoiceID:    ev.InvoiceID,
			Currency:     ev.Currency,
			Amount:       ev.Amount,
			Plan:         plan,
			Status:       models.PaymentStatusPaid,
			AttemptCount: ev.AttemptCount,
		}); err != nil {
			return err
		}

		if item != nil {
			switch {
			case item.Price > previousPrice:
				notif = types.NotificationTypeUpgrade
			case item.Price < previousPrice:
				notif = types.NotificationTypeDowngrade
			}

			sub.Plan = item.Plan
			sub.PlanPrice = item.Price
			sub.TokensIncluded = item.TokensIncluded
			sub.Status = snap.Status
			sub.CancelAtPeriodEnd = snap.CancelAtPeriodEnd
			if snap.CurrentPeriodEnd != nil {
				sub.CurrentPeriodEnd = snap.CurrentPeriodEnd
			}
			if err := tx.WithContext(ctx).Save(sub).Error; err != nil {
				return fmt.Errorf("failed to update subscription: %w", err)
			}

			user.SetPlan(item.Plan)
		}
		if customerEmail != "" && user.Email == "" {
			user.Email = customerEmail
		}
		if err := tx.WithContext(ctx).Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user entitlements: %w", err)
		}

		if err := s.enqueueNotification(ctx, tx, sub.UserID, notif, string(sub.PlanOrFree()), sub.CurrentPeriodEnd, map[string]any{
			"invoice_id": ev.InvoiceID,
			"amount":     ev.Amount,
			"currency":   ev.Currency,
			"email":      customerEmail,
		}); err != nil {
			return err
		}

		afterSnap = entitlementSnapshot(sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile paid invoice: %w", err)
	}

	s.logEntitlementChange(ctx, sub.UserID, "invoice.paid", notif, beforeSnap, afterSnap)
	log.Infow("invoice_paid_reconciled",
		"user_id", sub.UserID,
		"invoice_id", ev.InvoiceID,
		"amount", ev.Amount,
		"notification", notif,
	)
	return nil
}

// HandleInvoicePaymentFailed records the failed charge and runs dunning:
// attempts one through three produce a payment-failed notification (the third
// flagged as last); from the third attempt on, or once the provider reports
// the subscription unpaid, the user is escalated to the downgrade path.
func (s *Service) HandleInvoicePaymentFailed(ctx context.Context, ev *InvoiceEvent) error {
	log := logctx.FromCtx(ctx, s.log)

	if ev.SubscriptionID == "" {
		log.Warnw("invoice_failed_no_subscription", "invoice_id", ev.InvoiceID)
		return nil
	}

	sub, err := s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("invoice_failed_unknown_subscription", "subscription_id", ev.SubscriptionID, "invoice_id", ev.InvoiceID)
		return nil
	}

	s.locks.Lock(sub.UserID)
	defer s.locks.Unlock(sub.UserID)

	sub, err = s.subscriptionByExternalID(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warnw("invoice_failed_subscription_vanished", "subscription_id", ev.SubscriptionID, "invoice_id", ev.InvoiceID)
		return nil
	}

	snap, err := s.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription detail: %w", err)
	}

	action := decideInvoiceFailure(ev.AttemptCount, snap.Status)
	customerEmail := s.customerEmail(ctx, snap.CustomerID)

	var beforeSnap, afterSnap *models.EntitlementSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadOrInitUser(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		beforeSnap = entitlementSnapshot(sub, user)

		if err := s.upsertPayment(ctx, tx, &models.Payment{
			UserID:       sub.UserID,
			ProviderID:   types.PaymentProviderStripe,
			InvoiceID:    ev.InvoiceID,
			Currency:     ev.Currency,
			Amount:       ev.Amount,
			Plan:         sub.PlanOrFree(),
			Status:       models.PaymentStatusFailed,
			AttemptCount: ev.AttemptCount,
		}); err != nil {
			return err
		}

		if action.SendEmail {
			if err := s.enqueueNotification(ctx, tx, sub.UserID, types.NotificationTypePaymentFailed, string(sub.PlanOrFree()), sub.CurrentPeriodEnd, map[string]any{
				"invoice_id":      ev.InvoiceID,
				"attempt_count":   ev.AttemptCount,
				"is_last_attempt": action.IsLastAttempt,
				"email":           customerEmail,
			}); err != nil {
				return err
			}
		}

		if action.Escalate {
			status := snap.Status
			if status.Class() != types.StatusClassBad {
				status = types.SubscriptionStatusUnpaid
			}
			if err := s.applyDowngradeTx(ctx, tx, sub, user, status); err != nil {
				return err
			}
		}

		afterSnap = entitlementSnapshot(sub, user)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reconcile failed invoice: %w", err)
	}

	notif := types.NotificationTypePaymentFailed
	if action.Escalate {
		notif = types.NotificationTypeDowngrade
	}
	s.logEntitlementChange(ctx, sub.UserID, "invoice.payment_failed", notif, beforeSnap, afterSnap)
	log.Infow("invoice_failed_reconciled",
		"user_id", sub.UserID,
		"invoice_id", ev.InvoiceID,
		"attempt_count", ev.AttemptCount,
		"escalated", action.Escalate,
	)
	return nil
}

// resolvePlan maps the billed price to a configured plan: live price id first,
// then live nickname, then the nickname carried in the invoice payload itself.
func (s *Service) resolvePlan(snap *stripeapi.SubscriptionSnapshot, ev *InvoiceEvent) *types.PlanItem {
	if item := s.table.ByPriceID(snap.PriceID); item != nil {
		return item
	}
	if item := s.table.ByNickname(snap.PriceNickname); item != nil {
		return item
	}
	if item := s.table.ByPriceID(ev.PriceID); item != nil {
		return item
	}
	return s.table.ByNickname(ev.PriceNickname)
}

// customerEmail is best-effort enrichment for notification copy; a lookup
// failure never blocks reconciliation.
func (s *Service) customerEmail(ctx context.Context, customerID string) string {
	if customerID == "" {
		return ""
	}
	cust, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("customer_lookup_failed", "customer_id", customerID, "err", err)
		return ""
	}
	return cust.Email
}

// upsertPayment is idempotent on (provider, invoice id): redelivered invoice
// events overwrite the prior row instead of duplicating it.
func (s *Service) upsertPayment(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	var original models.Payment
	err := tx.WithContext(ctx).
		Where("provider_id = ? AND invoice_id = ?", p.ProviderID, p.InvoiceID).
		First(&original).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load original payment: %w", err)
	}

	p.ID = original.ID
	p.CreatedAt = original.CreatedAt
	p.Extra = original.Extra
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	if p.Status == models.PaymentStatusPaid {
		now := s.now()
		p.PaidAt = &now
	}
	if err := tx.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}
