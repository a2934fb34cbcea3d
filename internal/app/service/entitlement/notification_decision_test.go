package entitlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/pkg/types"
)

func testPlanTable() *types.PlanTable {
	return types.NewPlanTable([]*types.PlanItem{
		{Plan: types.PlanComfort, ProviderPriceID: "price_comfort", PriceNickname: "comfort_monthly", Price: 999, TokensIncluded: 12000},
		{Plan: types.PlanLegacy, ProviderPriceID: "price_legacy", PriceNickname: "legacy_monthly", Price: 499, TokensIncluded: 0},
	})
}

func TestDecideNotification_ReactivationWinsOverEverything(t *testing.T) {
	table := testPlanTable()

	// Even a re-cancellation in the same event counts as reactivation first.
	got := DecideNotification(table, types.PlanComfort, types.PlanComfort, true, true)
	require.Equal(t, types.NotificationTypeReactivation, got)

	got = DecideNotification(table, types.PlanComfort, types.PlanFree, false, true)
	require.Equal(t, types.NotificationTypeReactivation, got)
}

func TestDecideNotification_CancellationBeatsPriceComparison(t *testing.T) {
	table := testPlanTable()

	// Comfort -> legacy would read as downgrade by price, but the pending
	// cancellation takes priority.
	got := DecideNotification(table, types.PlanComfort, types.PlanLegacy, true, false)
	require.Equal(t, types.NotificationTypeCancellation, got)
}

func TestDecideNotification_PriceComparison(t *testing.T) {
	table := testPlanTable()

	require.Equal(t, types.NotificationTypeUpgrade,
		DecideNotification(table, types.PlanFree, types.PlanComfort, false, false))
	require.Equal(t, types.NotificationTypeUpgrade,
		DecideNotification(table, types.PlanLegacy, types.PlanComfort, false, false))
	require.Equal(t, types.NotificationTypeDowngrade,
		DecideNotification(table, types.PlanComfort, types.PlanLegacy, false, false))
	// Same plan reconfirmed: not an upgrade.
	require.Equal(t, types.NotificationTypeDowngrade,
		DecideNotification(table, types.PlanComfort, types.PlanComfort, false, false))
}
