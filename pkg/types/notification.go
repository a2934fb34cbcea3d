package types

import "time"

// NotificationType selects which notification copy/template a state change
// produces. It is advisory only and never gates entitlement writes.
type NotificationType string

const (
	NotificationTypeReactivation     NotificationType = "reactivation"
	NotificationTypeCancellation     NotificationType = "cancellation"
	NotificationTypeUpgrade          NotificationType = "upgrade"
	NotificationTypeDowngrade        NotificationType = "downgrade"
	NotificationTypePaymentSucceeded NotificationType = "payment_succeeded"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
)

// NotificationMessage is the frame published to the real-time channel.
type NotificationMessage struct {
	Success          bool             `json:"success"`
	PlanName         string           `json:"planName"`
	Type             NotificationType `json:"type"`
	CurrentPeriodEnd *time.Time       `json:"currentPeriodEnd"`
	Timestamp        time.Time        `json:"timestamp"`
}
