package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEventLogStatus string

const (
	WebhookEventLogStatusReceived     WebhookEventLogStatus = "received"
	WebhookEventLogStatusHandled      WebhookEventLogStatus = "handled"
	WebhookEventLogStatusHandleFailed WebhookEventLogStatus = "handle_failed"
	WebhookEventLogStatusIgnored      WebhookEventLogStatus = "ignored"
)

// WebhookEventLog records every provider event the dispatcher sees, with the
// raw payload and the handling result. Use case: troubleshooting redeliveries.
type WebhookEventLog struct {
	ID         string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProviderID string                `gorm:"column:provider_id;type:varchar(64);not null" json:"provider_id"`
	EventID    string                `gorm:"column:event_id;type:varchar(128);index" json:"event_id"`
	EventType  string                `gorm:"column:event_type;type:varchar(128);not null" json:"event_type"`
	UserID     *string               `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID    string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	EventTime  time.Time             `gorm:"column:event_time" json:"event_time"`
	Data       datatypes.JSON        `gorm:"column:data;type:jsonb" json:"data"`
	Result     *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result"`
	Status     WebhookEventLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (WebhookEventLog) TableName() string { return "webhook_event_log" }
