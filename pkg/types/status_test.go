package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionStatusClass(t *testing.T) {
	require.Equal(t, StatusClassActive, SubscriptionStatusActive.Class())

	for _, s := range []SubscriptionStatus{
		SubscriptionStatusPastDue,
		SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
		SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid,
	} {
		require.Equal(t, StatusClassBad, s.Class(), "status %s", s)
	}

	require.Equal(t, StatusClassOther, SubscriptionStatusTrialing.Class())
	require.Equal(t, StatusClassOther, SubscriptionStatusPaused.Class())
	require.Equal(t, StatusClassOther, SubscriptionStatus("made_up").Class())
}

func TestPlanTierRole(t *testing.T) {
	require.Equal(t, "FREE", PlanFree.Role())
	require.Equal(t, "COMFORT", PlanComfort.Role())
	require.Equal(t, "LEGACY", PlanLegacy.Role())
	require.Equal(t, "FREE", PlanTier("junk").Role())
}

func TestPlanTableLookups(t *testing.T) {
	table := NewPlanTable([]*PlanItem{
		{Plan: PlanComfort, ProviderPriceID: "price_1", PriceNickname: "comfort_monthly", Price: 999, TokensIncluded: 12000},
		{Plan: PlanLegacy, ProviderPriceID: "price_2", PriceNickname: "legacy_monthly", Price: 499},
	})

	require.Equal(t, PlanComfort, table.ByPriceID("price_1").Plan)
	require.Nil(t, table.ByPriceID("price_3"))
	require.Nil(t, table.ByPriceID(""))

	require.Equal(t, PlanLegacy, table.ByNickname("legacy_monthly").Plan)
	require.Nil(t, table.ByNickname(""))

	require.EqualValues(t, 0, table.PriceLevel(PlanFree))
	require.EqualValues(t, 999, table.PriceLevel(PlanComfort))
	require.EqualValues(t, 499, table.PriceLevel(PlanLegacy))
}
