package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tailhaven/billing/pkg/types"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

// Payment records an invoice outcome reported by the provider.
type Payment struct {
	ID         string                `gorm:"column:id;type:uuid;primary_key;index:idx_payment_user_id_id,priority:2,sort:desc" json:"id"`
	UserID     string                `gorm:"column:user_id;type:varchar(64);not null;index:idx_payment_user_id_id,priority:1" json:"user_id"`
	ProviderID types.PaymentProvider `gorm:"column:provider_id;type:varchar(64);not null;uniqueIndex:unique_provider_id_invoice_id,priority:1" json:"provider_id"`
	InvoiceID  string                `gorm:"column:invoice_id;type:varchar(128);not null;uniqueIndex:unique_provider_id_invoice_id,priority:2" json:"invoice_id"`
	Currency   string                `gorm:"column:currency;type:varchar(16)" json:"currency"`
	// Amount in minor currency units.
	Amount int64          `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Plan   types.PlanTier `gorm:"column:plan;type:varchar(32)" json:"plan"`
	Status PaymentStatus  `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// AttemptCount is provider-driven; meaningful for failed payments only.
	AttemptCount int64          `gorm:"column:attempt_count;type:bigint;not null;default:0" json:"attempt_count"`
	PaidAt       *time.Time     `gorm:"column:paid_at;default:null" json:"paid_at"`
	Extra        datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }
