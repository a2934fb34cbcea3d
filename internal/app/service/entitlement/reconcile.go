package entitlement

import (
	"time"

	"github.com/tailhaven/billing/pkg/types"
)

const defaultPeriod = 30 * 24 * time.Hour

// activeChange is the computed outcome of reconciling a healthy subscription
// update, before anything is persisted.
type activeChange struct {
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	GrantTokens       int64
	Notification      types.NotificationType
}

// computeActiveChange applies the active-path rules:
//
// Branch A — the provider reports cancel_at_period_end: keep the subscription
// active and persist the countdown boundary (synthetic now+30d when the
// provider omits it).
// Branch B — not cancelling but the local record was in a pending
// cancellation: reactivation; the boundary is cleared outright so stale
// countdown state cannot survive, whatever boundary the provider reports.
// Branch C — ordinary renewal: persist the provider boundary as-is; a
// non-positive timestamp becomes nil here, never a synthetic date.
//
// Tokens are granted only when all three hold: the plan actually changed, the
// new plan carries a grant, and this update is not itself a cancellation.
// Reconfirming the same plan (routine renewal, duplicate delivery) never
// re-grants.
func computeActiveChange(previousPlan types.PlanTier, wasInCancelledState bool, ev *SubscriptionEvent, item *types.PlanItem, table *types.PlanTable, now time.Time) activeChange {
	var periodEnd *time.Time
	switch {
	case ev.CancelAtPeriodEnd:
		if ev.CurrentPeriodEnd > 0 {
			t := time.Unix(ev.CurrentPeriodEnd, 0)
			periodEnd = &t
		} else {
			t := now.Add(defaultPeriod)
			periodEnd = &t
		}
	case wasInCancelledState:
		periodEnd = nil
	default:
		if ev.CurrentPeriodEnd > 0 {
			t := time.Unix(ev.CurrentPeriodEnd, 0)
			periodEnd = &t
		}
	}

	var grant int64
	if item.Plan != previousPlan && item.TokensIncluded > 0 && !ev.CancelAtPeriodEnd {
		grant = item.TokensIncluded
	}

	return activeChange{
		CancelAtPeriodEnd: ev.CancelAtPeriodEnd,
		CurrentPeriodEnd:  periodEnd,
		GrantTokens:       grant,
		Notification:      DecideNotification(table, previousPlan, item.Plan, ev.CancelAtPeriodEnd, wasInCancelledState),
	}
}

// invoiceFailureAction is the decided handling of a failed invoice payment.
type invoiceFailureAction struct {
	SendEmail     bool
	IsLastAttempt bool
	Escalate      bool
}

// decideInvoiceFailure: the provider drives attempt_count. Attempts 1-3 get a
// dunning email, the third flagged as last. From the third attempt on, or as
// soon as the subscription reports unpaid, the user is escalated to the
// downgrade path.
func decideInvoiceFailure(attemptCount int64, status types.SubscriptionStatus) invoiceFailureAction {
	return invoiceFailureAction{
		SendEmail:     attemptCount >= 1 && attemptCount <= 3,
		IsLastAttempt: attemptCount >= 3,
		Escalate:      attemptCount >= 3 || status == types.SubscriptionStatusUnpaid,
	}
}
