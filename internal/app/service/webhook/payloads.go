package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/tailhaven/billing/internal/app/service/entitlement"
	"github.com/tailhaven/billing/pkg/types"
)

// Payload structs are decoded straight from event.Data.Raw instead of the SDK
// event structs: webhook payload shapes drift across provider API versions and
// we only depend on the handful of fields the pipeline reads.

type checkoutSessionPayload struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

func (p *checkoutSessionPayload) userID() string {
	if p.ClientReferenceID != "" {
		return p.ClientReferenceID
	}
	return p.Metadata["user_id"]
}

type subscriptionPayload struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	CanceledAt        int64  `json:"canceled_at"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd tolerates both payload generations: older API versions carry
// current_period_end at the subscription level, newer ones on each item.
func (p *subscriptionPayload) periodEnd() int64 {
	if p.CurrentPeriodEnd > 0 {
		return p.CurrentPeriodEnd
	}
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].CurrentPeriodEnd
	}
	return 0
}

func (p *subscriptionPayload) priceID() string {
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].Price.ID
	}
	return ""
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	AttemptCount int64  `json:"attempt_count"`
	Lines        struct {
		Data []struct {
			Price *struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"price"`
			Pricing *struct {
				PriceDetails *struct {
					Price string `json:"price"`
				} `json:"price_details"`
			} `json:"pricing"`
		} `json:"data"`
	} `json:"lines"`
}

// subscriptionID tolerates both payload generations: the flat subscription
// field, or the nested parent.subscription_details form newer API versions use.
func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return p.Subscription
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return p.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

func (p *invoicePayload) priceID() string {
	for _, line := range p.Lines.Data {
		if line.Price != nil && line.Price.ID != "" {
			return line.Price.ID
		}
		if line.Pricing != nil && line.Pricing.PriceDetails != nil && line.Pricing.PriceDetails.Price != "" {
			return line.Pricing.PriceDetails.Price
		}
	}
	return ""
}

func (p *invoicePayload) priceNickname() string {
	for _, line := range p.Lines.Data {
		if line.Price != nil && line.Price.Nickname != "" {
			return line.Price.Nickname
		}
	}
	return ""
}

func parseCheckoutSession(event *stripe.Event) (*entitlement.CheckoutSessionEvent, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}
	return &entitlement.CheckoutSessionEvent{
		SessionID:      p.ID,
		UserID:         p.userID(),
		CustomerID:     p.Customer,
		SubscriptionID: p.Subscription,
	}, nil
}

func parseSubscription(event *stripe.Event) (*entitlement.SubscriptionEvent, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse subscription payload: %w", err)
	}
	return &entitlement.SubscriptionEvent{
		SubscriptionID:    p.ID,
		CustomerID:        p.Customer,
		Status:            types.SubscriptionStatus(p.Status),
		CancelAtPeriodEnd: p.CancelAtPeriodEnd,
		CurrentPeriodEnd:  p.periodEnd(),
		CanceledAt:        p.CanceledAt,
		PriceID:           p.priceID(),
	}, nil
}

func parseInvoice(event *stripe.Event) (*entitlement.InvoiceEvent, error) {
	var p invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse invoice payload: %w", err)
	}
	amount := p.AmountPaid
	if amount == 0 {
		amount = p.AmountDue
	}
	return &entitlement.InvoiceEvent{
		InvoiceID:      p.ID,
		CustomerID:     p.Customer,
		SubscriptionID: p.subscriptionID(),
		Amount:         amount,
		Currency:       p.Currency,
		AttemptCount:   p.AttemptCount,
		PriceID:        p.priceID(),
		PriceNickname:  p.priceNickname(),
	}, nil
}
