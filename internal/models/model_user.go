package models

import (
	"time"

	"github.com/tailhaven/billing/pkg/types"
)

// User carries the entitlement subset of the application's user record. Only
// this pipeline writes the plan flags and the grant side of the token balance;
// consumption elsewhere only decrements tokens.
type User struct {
	ID    string `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email string `gorm:"column:email;type:varchar(255)" json:"email"`
	// Role mirrors the plan tier for authorization checks elsewhere in the app.
	Role string `gorm:"column:role;type:varchar(32);not null;default:'FREE'" json:"role"`
	// Exactly one of the three flags is true at any time.
	IsFreeUser    bool `gorm:"column:is_free_user;not null;default:true" json:"is_free_user"`
	IsComfortUser bool `gorm:"column:is_comfort_user;not null;default:false" json:"is_comfort_user"`
	IsLegacyUser  bool `gorm:"column:is_legacy_user;not null;default:false" json:"is_legacy_user"`
	// Tokens is the consumable balance. Grants add; nothing in this pipeline
	// ever subtracts.
	Tokens int64 `gorm:"column:tokens;type:bigint;not null;default:0" json:"tokens"`
	// TokensUsed is the lifetime consumption counter, read-only here.
	TokensUsed       int64     `gorm:"column:tokens_used;type:bigint;not null;default:0" json:"tokens_used"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id;type:varchar(128);index" json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

// SetPlan applies a tier to the role and the mutually exclusive plan flags.
// Token balance is deliberately untouched.
func (u *User) SetPlan(plan types.PlanTier) {
	u.Role = plan.Role()
	u.IsFreeUser = plan == types.PlanFree
	u.IsComfortUser = plan == types.PlanComfort
	u.IsLegacyUser = plan == types.PlanLegacy
}
