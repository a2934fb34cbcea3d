package entitlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/internal/platform/stripeapi"
)

type fakeProviderClient struct {
	subscription      *stripeapi.SubscriptionSnapshot
	customer          *stripeapi.CustomerSnapshot
	subscriptionCalls int
	customerCalls     int
}

func (f *fakeProviderClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripeapi.SubscriptionSnapshot, error) {
	f.subscriptionCalls++
	return f.subscription, nil
}

func (f *fakeProviderClient) GetCustomer(ctx context.Context, customerID string) (*stripeapi.CustomerSnapshot, error) {
	f.customerCalls++
	return f.customer, nil
}

func TestHandleCheckoutCompleted_MissingUserIsNoOp(t *testing.T) {
	s := &Service{log: zap.NewNop().Sugar()}

	err := s.HandleCheckoutCompleted(context.Background(), &CheckoutSessionEvent{
		SessionID:      "cs_1",
		SubscriptionID: "sub_1",
	})
	require.NoError(t, err)
}

func TestHandleCheckoutCompleted_MissingSubscriptionIsNoOp(t *testing.T) {
	s := &Service{log: zap.NewNop().Sugar()}

	err := s.HandleCheckoutCompleted(context.Background(), &CheckoutSessionEvent{
		SessionID: "cs_1",
		UserID:    "u-1",
	})
	require.NoError(t, err)
}

func TestCompleteCheckout_DuplicateSubscriptionIsNoOp(t *testing.T) {
	provider := &fakeProviderClient{}
	s := &Service{log: zap.NewNop().Sugar(), table: testPlanTable(), provider: provider}

	existing := &models.Subscription{ID: "sub-row-1", UserID: "u-1"}
	err := s.completeCheckout(context.Background(), &CheckoutSessionEvent{
		SessionID:      "cs_replay",
		UserID:         "u-1",
		SubscriptionID: "sub_1",
	}, existing)

	// Acknowledged without re-fetching or re-granting anything.
	require.NoError(t, err)
	require.Zero(t, provider.subscriptionCalls)
}

func TestCompleteCheckout_UnmappedPriceIsNoOp(t *testing.T) {
	provider := &fakeProviderClient{
		subscription: &stripeapi.SubscriptionSnapshot{ID: "sub_1", PriceID: "price_unknown"},
	}
	s := &Service{log: zap.NewNop().Sugar(), table: testPlanTable(), provider: provider}

	err := s.completeCheckout(context.Background(), &CheckoutSessionEvent{
		SessionID:      "cs_1",
		UserID:         "u-1",
		SubscriptionID: "sub_1",
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 1, provider.subscriptionCalls)
}
