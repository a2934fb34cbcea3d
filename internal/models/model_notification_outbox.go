package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tailhaven/billing/pkg/types"
)

type NotificationOutboxStatus string

const (
	NotificationOutboxStatusPending NotificationOutboxStatus = "pending"
	NotificationOutboxStatusSent    NotificationOutboxStatus = "sent"
	NotificationOutboxStatusFailed  NotificationOutboxStatus = "failed"
)

// NotificationOutbox holds notification intents appended within the same
// transaction as the entitlement write. Delivery runs asynchronously so a
// failed send never forces billing reconciliation to be retried.
type NotificationOutbox struct {
	ID               string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID           string                   `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Type             types.NotificationType   `gorm:"column:type;type:varchar(64);not null" json:"type"`
	PlanName         string                   `gorm:"column:plan_name;type:varchar(64)" json:"plan_name"`
	CurrentPeriodEnd *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	Payload          datatypes.JSON           `gorm:"column:payload;type:jsonb;default:'{}'" json:"payload"`
	Status           NotificationOutboxStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Attempts         int                      `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError        *string                  `gorm:"column:last_error;type:text" json:"last_error"`
	SentAt           *time.Time               `gorm:"column:sent_at;default:null" json:"sent_at"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }
