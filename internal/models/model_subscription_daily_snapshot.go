package models

import (
	"time"

	"github.com/tailhaven/billing/pkg/types"
)

// SubscriptionDailySnapshot is a daily per-user subscription snapshot for
// analytics.
type SubscriptionDailySnapshot struct {
	ID                string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID            string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_user_id_snapshot_date,priority:1" json:"user_id"`
	Plan              types.PlanTier           `gorm:"column:plan;type:varchar(32);not null" json:"plan"`
	Status            types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	PlanPrice         int64                    `gorm:"column:plan_price;type:bigint;not null;default:0" json:"plan_price"`
	CancelAtPeriodEnd bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	SnapshotDate      string                   `gorm:"column:snapshot_date;uniqueIndex:idx_user_id_snapshot_date,priority:2" json:"snapshot_date"`
	SnapshotCreatedAt time.Time                `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
	CreatedAt         time.Time                `json:"created_at"`
}

func (SubscriptionDailySnapshot) TableName() string {
	return "subscription_daily_snapshot"
}
