package entitlement

import "github.com/tailhaven/billing/pkg/types"

// DecideNotification classifies a reconciled state change for notification
// copy. Priority order, first match wins:
//  1. coming out of any prior pending cancellation counts as reactivation,
//     even when re-cancelling immediately;
//  2. a pending cancellation now counts as cancellation;
//  3. otherwise price levels decide upgrade vs. downgrade (free is level 0).
//
// The result is advisory; it never gates the entitlement write itself.
func DecideNotification(table *types.PlanTable, previousPlan, newPlan types.PlanTier, cancelAtPeriodEnd, wasInCancelledState bool) types.NotificationType {
	if wasInCancelledState {
		return types.NotificationTypeReactivation
	}
	if cancelAtPeriodEnd {
		return types.NotificationTypeCancellation
	}
	if table.PriceLevel(newPlan) > table.PriceLevel(previousPlan) {
		return types.NotificationTypeUpgrade
	}
	return types.NotificationTypeDowngrade
}
