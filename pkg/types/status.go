package types

// SubscriptionStatus is the closed set of provider lifecycle statuses this
// pipeline understands. Statuses outside the set classify as StatusClassOther
// and never change entitlement state.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

// StatusClass partitions statuses for dispatch: healthy, no-longer-billable, or
// everything else.
type StatusClass int

const (
	StatusClassOther StatusClass = iota
	StatusClassActive
	StatusClassBad
)

// Class classifies a status. Adding a new status constant above forces a
// decision here; unknown strings fall through to StatusClassOther.
func (s SubscriptionStatus) Class() StatusClass {
	switch s {
	case SubscriptionStatusActive:
		return StatusClassActive
	case SubscriptionStatusPastDue,
		SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
		SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid:
		return StatusClassBad
	case SubscriptionStatusTrialing, SubscriptionStatusPaused:
		return StatusClassOther
	default:
		return StatusClassOther
	}
}
