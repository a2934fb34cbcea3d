package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tailhaven/billing/pkg/types"
)

// Subscription stores the local mirror of a user's billing state. One row per
// user; never hard-deleted, only degraded to the free tier when the provider
// removes the subscription.
type Subscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Plan   types.PlanTier           `gorm:"column:plan;type:varchar(32);not null" json:"plan"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	// PlanPrice is the minor-currency-unit price snapshot taken at the last
	// reconciliation.
	PlanPrice int64 `gorm:"column:plan_price;type:bigint;not null;default:0" json:"plan_price"`
	// TokensIncluded is the grant size of the current plan; 0 means unlimited.
	TokensIncluded int64 `gorm:"column:tokens_included;type:bigint;not null;default:0" json:"tokens_included"`
	// CurrentPeriodEnd is the provider's billing boundary. Nil means no defined
	// boundary (cleared on reactivation to reset the UI countdown).
	CurrentPeriodEnd *time.Time `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	// CancelAtPeriodEnd set means the subscription lapses at CurrentPeriodEnd
	// but is still otherwise active.
	CancelAtPeriodEnd bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CanceledAt        *time.Time `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	// SubscriptionID is the provider identifier; cleared once the provider
	// confirms deletion so a later checkout can upsert cleanly.
	SubscriptionID *string        `gorm:"column:subscription_id;type:varchar(128);index" json:"subscription_id"`
	Extra          datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// PlanOrFree normalizes a missing plan to the free tier.
func (s *Subscription) PlanOrFree() types.PlanTier {
	if s == nil || s.Plan == "" {
		return types.PlanFree
	}
	return s.Plan
}
