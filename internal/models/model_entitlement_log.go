package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tailhaven/billing/pkg/types"
)

// EntitlementSnapshot is the before/after state captured for every
// reconciliation write.
type EntitlementSnapshot struct {
	Subscription *Subscription `json:"subscription"`
	Role         string        `json:"role"`
	Tokens       int64         `json:"tokens"`
}

// EntitlementLog records changes to subscription+user entitlement state.
// Use case: troubleshooting.
type EntitlementLog struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);index:idx_entitlement_log_user_id_id,priority:1;not null"`
	// Reason is the event type that triggered the change.
	Reason string `gorm:"column:reason;type:varchar(128);not null"`
	// Notification is the decided notification type, empty when none was emitted.
	Notification types.NotificationType                   `gorm:"column:notification;type:varchar(64)"`
	Before       datatypes.JSONType[*EntitlementSnapshot] `gorm:"column:before;type:jsonb;default:'null'"`
	After        datatypes.JSONType[*EntitlementSnapshot] `gorm:"column:after;type:jsonb;default:'null'"`
	Extra        datatypes.JSONMap                        `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt    time.Time
}

func (EntitlementLog) TableName() string {
	return "entitlement_log"
}
