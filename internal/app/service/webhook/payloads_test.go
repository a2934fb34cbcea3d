package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/tailhaven/billing/pkg/types"
)

func eventWithRaw(t *testing.T, eventType string, raw string) *stripe.Event {
	t.Helper()
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestParseCheckoutSession(t *testing.T) {
	ev, err := parseCheckoutSession(eventWithRaw(t, "checkout.session.completed", `{
		"id": "cs_123",
		"client_reference_id": "user-1",
		"customer": "cus_1",
		"subscription": "sub_1"
	}`))
	require.NoError(t, err)
	require.Equal(t, "cs_123", ev.SessionID)
	require.Equal(t, "user-1", ev.UserID)
	require.Equal(t, "cus_1", ev.CustomerID)
	require.Equal(t, "sub_1", ev.SubscriptionID)
}

func TestParseCheckoutSession_MetadataFallback(t *testing.T) {
	ev, err := parseCheckoutSession(eventWithRaw(t, "checkout.session.completed", `{
		"id": "cs_123",
		"metadata": {"user_id": "user-2"}
	}`))
	require.NoError(t, err)
	require.Equal(t, "user-2", ev.UserID)
}

func TestParseSubscription_TopLevelPeriodEnd(t *testing.T) {
	ev, err := parseSubscription(eventWithRaw(t, "customer.subscription.updated", `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"cancel_at_period_end": true,
		"current_period_end": 1700000000,
		"items": {"data": [{"price": {"id": "price_1", "nickname": "comfort_monthly"}}]}
	}`))
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, ev.Status)
	require.True(t, ev.CancelAtPeriodEnd)
	require.EqualValues(t, 1700000000, ev.CurrentPeriodEnd)
	require.Equal(t, "price_1", ev.PriceID)
}

func TestParseSubscription_ItemLevelPeriodEnd(t *testing.T) {
	ev, err := parseSubscription(eventWithRaw(t, "customer.subscription.updated", `{
		"id": "sub_1",
		"status": "active",
		"items": {"data": [{"current_period_end": 1700000000, "price": {"id": "price_1"}}]}
	}`))
	require.NoError(t, err)
	require.EqualValues(t, 1700000000, ev.CurrentPeriodEnd)
}

func TestParseInvoice_FlatSubscriptionField(t *testing.T) {
	ev, err := parseInvoice(eventWithRaw(t, "invoice.paid", `{
		"id": "in_1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"amount_paid": 999,
		"currency": "usd",
		"attempt_count": 1,
		"lines": {"data": [{"price": {"id": "price_1", "nickname": "comfort_monthly"}}]}
	}`))
	require.NoError(t, err)
	require.Equal(t, "sub_1", ev.SubscriptionID)
	require.EqualValues(t, 999, ev.Amount)
	require.Equal(t, "price_1", ev.PriceID)
	require.Equal(t, "comfort_monthly", ev.PriceNickname)
}

func TestParseInvoice_NestedParentForm(t *testing.T) {
	ev, err := parseInvoice(eventWithRaw(t, "invoice.paid", `{
		"id": "in_1",
		"parent": {"subscription_details": {"subscription": "sub_2"}},
		"amount_due": 499,
		"lines": {"data": [{"pricing": {"price_details": {"price": "price_2"}}}]}
	}`))
	require.NoError(t, err)
	require.Equal(t, "sub_2", ev.SubscriptionID)
	require.EqualValues(t, 499, ev.Amount)
	require.Equal(t, "price_2", ev.PriceID)
}
