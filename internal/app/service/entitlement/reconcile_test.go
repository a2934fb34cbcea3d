package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/pkg/types"
)

func comfortItem(t *testing.T) *types.PlanItem {
	t.Helper()
	item := testPlanTable().ByPlan(types.PlanComfort)
	require.NotNil(t, item)
	return item
}

func TestComputeActiveChange_PendingCancellationKeepsProviderBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	boundary := now.Add(14 * 24 * time.Hour)

	change := computeActiveChange(types.PlanComfort, false, &SubscriptionEvent{
		Status:            types.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  boundary.Unix(),
	}, comfortItem(t), testPlanTable(), now)

	require.True(t, change.CancelAtPeriodEnd)
	require.NotNil(t, change.CurrentPeriodEnd)
	require.Equal(t, boundary.Unix(), change.CurrentPeriodEnd.Unix())
	require.Equal(t, types.NotificationTypeCancellation, change.Notification)
	require.Zero(t, change.GrantTokens)
}

func TestComputeActiveChange_PendingCancellationSynthesizesMissingBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	change := computeActiveChange(types.PlanComfort, false, &SubscriptionEvent{
		Status:            types.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  0,
	}, comfortItem(t), testPlanTable(), now)

	require.NotNil(t, change.CurrentPeriodEnd)
	require.Equal(t, now.Add(defaultPeriod).Unix(), change.CurrentPeriodEnd.Unix())
}

func TestComputeActiveChange_ReactivationClearsBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	change := computeActiveChange(types.PlanComfort, true, &SubscriptionEvent{
		Status:            types.SubscriptionStatusActive,
		CancelAtPeriodEnd: false,
		CurrentPeriodEnd:  now.Add(20 * 24 * time.Hour).Unix(),
	}, comfortItem(t), testPlanTable(), now)

	require.False(t, change.CancelAtPeriodEnd)
	// The boundary is cleared even though the provider reported one.
	require.Nil(t, change.CurrentPeriodEnd)
	require.Equal(t, types.NotificationTypeReactivation, change.Notification)
}

func TestComputeActiveChange_RenewalKeepsBoundaryAsIs(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	boundary := now.Add(30 * 24 * time.Hour)

	change := computeActiveChange(types.PlanComfort, false, &SubscriptionEvent{
		Status:           types.SubscriptionStatusActive,
		CurrentPeriodEnd: boundary.Unix(),
	}, comfortItem(t), testPlanTable(), now)

	require.NotNil(t, change.CurrentPeriodEnd)
	require.Equal(t, boundary.Unix(), change.CurrentPeriodEnd.Unix())
}

func TestComputeActiveChange_RenewalMissingBoundaryStaysNil(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	change := computeActiveChange(types.PlanComfort, false, &SubscriptionEvent{
		Status:           types.SubscriptionStatusActive,
		CurrentPeriodEnd: 0,
	}, comfortItem(t), testPlanTable(), now)

	// No synthetic date on the renewal path.
	require.Nil(t, change.CurrentPeriodEnd)
}

func TestComputeActiveChange_GrantRequiresAllThreeConditions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	table := testPlanTable()
	comfort := comfortItem(t)
	legacy := table.ByPlan(types.PlanLegacy)
	require.NotNil(t, legacy)

	// Plan changed, token-bearing tier, not cancelling: grant.
	change := computeActiveChange(types.PlanFree, false, &SubscriptionEvent{
		Status: types.SubscriptionStatusActive,
	}, comfort, table, now)
	require.Equal(t, comfort.TokensIncluded, change.GrantTokens)

	// Same plan reconfirmed: no grant.
	change = computeActiveChange(types.PlanComfort, false, &SubscriptionEvent{
		Status: types.SubscriptionStatusActive,
	}, comfort, table, now)
	require.Zero(t, change.GrantTokens)

	// Legacy is unlimited, carries no grant.
	change = computeActiveChange(types.PlanFree, false, &SubscriptionEvent{
		Status: types.SubscriptionStatusActive,
	}, legacy, table, now)
	require.Zero(t, change.GrantTokens)

	// Cancelling suppresses the grant even on a plan change.
	change = computeActiveChange(types.PlanFree, false, &SubscriptionEvent{
		Status:            types.SubscriptionStatusActive,
		CancelAtPeriodEnd: true,
	}, comfort, table, now)
	require.Zero(t, change.GrantTokens)
}

func TestDecideInvoiceFailure_DunningWindow(t *testing.T) {
	a := decideInvoiceFailure(1, types.SubscriptionStatusPastDue)
	require.True(t, a.SendEmail)
	require.False(t, a.IsLastAttempt)
	require.False(t, a.Escalate)

	a = decideInvoiceFailure(2, types.SubscriptionStatusPastDue)
	require.True(t, a.SendEmail)
	require.False(t, a.IsLastAttempt)
	require.False(t, a.Escalate)

	a = decideInvoiceFailure(3, types.SubscriptionStatusPastDue)
	require.True(t, a.SendEmail)
	require.True(t, a.IsLastAttempt)
	require.True(t, a.Escalate)

	a = decideInvoiceFailure(4, types.SubscriptionStatusPastDue)
	require.False(t, a.SendEmail)
	require.True(t, a.Escalate)
}

func TestDecideInvoiceFailure_UnpaidEscalatesImmediately(t *testing.T) {
	a := decideInvoiceFailure(1, types.SubscriptionStatusUnpaid)
	require.True(t, a.SendEmail)
	require.True(t, a.Escalate)
}
