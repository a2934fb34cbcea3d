package entitlement

import "github.com/tailhaven/billing/pkg/types"

// CheckoutSessionEvent is the decoded checkout.session.completed payload.
type CheckoutSessionEvent struct {
	SessionID      string
	UserID         string
	CustomerID     string
	SubscriptionID string
}

// SubscriptionEvent is the decoded customer.subscription.* payload. Timestamps
// are raw unix seconds; zero or negative means the provider omitted them.
type SubscriptionEvent struct {
	SubscriptionID    string
	CustomerID        string
	Status            types.SubscriptionStatus
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  int64
	CanceledAt        int64
	PriceID           string
}

// InvoiceEvent is the decoded invoice.paid / invoice.payment_failed payload.
type InvoiceEvent struct {
	InvoiceID      string
	CustomerID     string
	SubscriptionID string
	Amount         int64
	Currency       string
	AttemptCount   int64
	PriceID        string
	PriceNickname  string
}
