package entitlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/internal/platform/stripeapi"
	"github.com/tailhaven/billing/pkg/types"
)

func TestResolvePlan_PriceIDWins(t *testing.T) {
	s := &Service{table: testPlanTable()}

	item := s.resolvePlan(&stripeapi.SubscriptionSnapshot{
		PriceID:       "price_comfort",
		PriceNickname: "legacy_monthly",
	}, &InvoiceEvent{})
	require.NotNil(t, item)
	require.Equal(t, types.PlanComfort, item.Plan)
}

func TestResolvePlan_NicknameFallback(t *testing.T) {
	s := &Service{table: testPlanTable()}

	item := s.resolvePlan(&stripeapi.SubscriptionSnapshot{
		PriceID:       "price_retired_2023",
		PriceNickname: "legacy_monthly",
	}, &InvoiceEvent{})
	require.NotNil(t, item)
	require.Equal(t, types.PlanLegacy, item.Plan)
}

func TestResolvePlan_InvoicePayloadFallback(t *testing.T) {
	s := &Service{table: testPlanTable()}

	item := s.resolvePlan(&stripeapi.SubscriptionSnapshot{}, &InvoiceEvent{
		PriceID: "price_comfort",
	})
	require.NotNil(t, item)
	require.Equal(t, types.PlanComfort, item.Plan)

	item = s.resolvePlan(&stripeapi.SubscriptionSnapshot{}, &InvoiceEvent{
		PriceNickname: "comfort_monthly",
	})
	require.NotNil(t, item)
	require.Equal(t, types.PlanComfort, item.Plan)
}

func TestResolvePlan_Unresolvable(t *testing.T) {
	s := &Service{table: testPlanTable()}

	item := s.resolvePlan(&stripeapi.SubscriptionSnapshot{
		PriceID:       "price_unknown",
		PriceNickname: "mystery",
	}, &InvoiceEvent{PriceID: "price_unknown", PriceNickname: "mystery"})
	require.Nil(t, item)
}
