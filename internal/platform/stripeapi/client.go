package stripeapi

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/pkg/config"
	"github.com/tailhaven/billing/pkg/types"
)

// SubscriptionSnapshot is the service-owned view of a provider subscription.
// Handlers work against this instead of SDK structs.
type SubscriptionSnapshot struct {
	ID                string
	CustomerID        string
	Status            types.SubscriptionStatus
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	CanceledAt        *time.Time
	PriceID           string
	PriceNickname     string
	// PriceAmount in minor currency units.
	PriceAmount int64
	Currency    string
}

type CustomerSnapshot struct {
	ID    string
	Email string
}

// Client fetches billing detail from the provider by id.
type Client interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	GetCustomer(ctx context.Context, customerID string) (*CustomerSnapshot, error)
}

type stripeClient struct {
	log *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) Client {
	stripe.Key = cfg.Stripe.APIKey
	return &stripeClient{log: log}
}

func (c *stripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get stripe subscription %s: %w", subscriptionID, err)
	}
	return snapshotFromSubscription(sub), nil
}

func (c *stripeClient) GetCustomer(ctx context.Context, customerID string) (*CustomerSnapshot, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := customer.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get stripe customer %s: %w", customerID, err)
	}
	return &CustomerSnapshot{ID: cust.ID, Email: cust.Email}, nil
}

func snapshotFromSubscription(sub *stripe.Subscription) *SubscriptionSnapshot {
	snap := &SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            types.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		snap.CanceledAt = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0)
			snap.CurrentPeriodEnd = &t
		}
		if item.Price != nil {
			snap.PriceID = item.Price.ID
			snap.PriceNickname = item.Price.Nickname
			snap.PriceAmount = item.Price.UnitAmount
			snap.Currency = string(item.Price.Currency)
		}
	}
	return snap
}
