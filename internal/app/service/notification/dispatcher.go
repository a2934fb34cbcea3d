package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/types"
)

const (
	pollInterval = 2 * time.Second
	batchSize    = 50
	maxAttempts  = 5
)

// Dispatcher drains the notification outbox: rows are written transactionally
// with the entitlement change, then delivered here over WebSocket and email.
type Dispatcher struct {
	db    *gorm.DB
	hub   *Hub
	email EmailSender
	log   *zap.SugaredLogger
	now   func() time.Time
	stop  chan struct{}
	done  chan struct{}
}

func NewDispatcher(db *gorm.DB, hub *Hub, email EmailSender, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		db:    db,
		hub:   hub,
		email: email,
		log:   log,
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run polls until Stop is called. Intended to run as a single goroutine.
func (d *Dispatcher) Run() {
	defer close(d.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if err := d.DrainOnce(context.Background()); err != nil {
				d.log.Errorf("failed to drain notification outbox: %v", err)
			}
		}
	}
}

func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// DrainOnce delivers one batch of pending rows, oldest first.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	var rows []*models.NotificationOutbox
	err := d.db.WithContext(ctx).
		Where("status = ?", models.NotificationOutboxStatusPending).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load pending notifications: %w", err)
	}

	for _, row := range rows {
		d.deliver(ctx, row)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, row *models.NotificationOutbox) {
	row.Attempts++

	err := d.send(ctx, row)
	now := d.now()
	if err == nil {
		row.Status = models.NotificationOutboxStatusSent
		row.SentAt = &now
		row.LastError = nil
	} else {
		row.LastError = lo.ToPtr(err.Error())
		if row.Attempts >= maxAttempts {
			row.Status = models.NotificationOutboxStatusFailed
			d.log.Errorw("notification_delivery_gave_up", "id", row.ID, "user_id", row.UserID, "err", err)
		} else {
			d.log.Warnw("notification_delivery_retry", "id", row.ID, "user_id", row.UserID, "attempts", row.Attempts, "err", err)
		}
	}

	if saveErr := d.db.WithContext(ctx).Save(row).Error; saveErr != nil {
		d.log.Errorf("failed to update notification outbox row %s: %v", row.ID, saveErr)
	}
}

// emailTypes are the outbox types that also go out as email: billing outcomes
// and plan changes. Reactivation and cancellation confirmations stay in-app.
var emailTypes = map[types.NotificationType]struct{}{
	types.NotificationTypePaymentFailed:    {},
	types.NotificationTypePaymentSucceeded: {},
	types.NotificationTypeUpgrade:          {},
	types.NotificationTypeDowngrade:        {},
}

func (d *Dispatcher) send(ctx context.Context, row *models.NotificationOutbox) error {
	d.hub.Publish(row.UserID, buildMessage(row, d.now()))

	if _, ok := emailTypes[row.Type]; !ok {
		return nil
	}

	var payload map[string]any
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return fmt.Errorf("failed to parse notification payload: %w", err)
		}
	}
	email, _ := payload["email"].(string)
	return d.email.Send(ctx, row.UserID, email, row.Type, payload)
}

// buildMessage converts an outbox row into the frame published to the client.
func buildMessage(row *models.NotificationOutbox, now time.Time) *types.NotificationMessage {
	return &types.NotificationMessage{
		Success:          row.Type != types.NotificationTypePaymentFailed,
		PlanName:         row.PlanName,
		Type:             row.Type,
		CurrentPeriodEnd: row.CurrentPeriodEnd,
		Timestamp:        now,
	}
}
