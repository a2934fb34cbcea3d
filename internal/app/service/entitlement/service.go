package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/internal/platform/stripeapi"
	"github.com/tailhaven/billing/pkg/keylock"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/tool"
	"github.com/tailhaven/billing/pkg/types"
)

// Service reconciles provider billing events into local subscription+user
// entitlement state. All multi-record writes go through one gorm transaction;
// a per-user lock serializes concurrent events for the same user.
type Service struct {
	db       *gorm.DB
	table    *types.PlanTable
	provider stripeapi.Client
	locks    *keylock.KeyLock
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(db *gorm.DB, table *types.PlanTable, provider stripeapi.Client, log *zap.SugaredLogger) *Service {
	return &Service{
		db:       db,
		table:    table,
		provider: provider,
		locks:    keylock.New(),
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) subscriptionByExternalID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription by external id: %w", err)
	}
	return &sub, nil
}

// loadOrInitUser returns the user's entitlement row, initializing a free-tier
// row when the billing service has not seen this user before.
func (s *Service) loadOrInitUser(ctx context.Context, tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	user = models.User{ID: userID}
	user.SetPlan(types.PlanFree)
	return &user, nil
}

// enqueueNotification appends a notification intent inside the caller's
// transaction. Delivery happens asynchronously via the outbox dispatcher.
func (s *Service) enqueueNotification(ctx context.Context, tx *gorm.DB, userID string, typ types.NotificationType, planName string, periodEnd *time.Time, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, _ := json.Marshal(payload)
	row := &models.NotificationOutbox{
		ID:               tool.GenerateUUIDV7(),
		UserID:           userID,
		Type:             typ,
		PlanName:         planName,
		CurrentPeriodEnd: periodEnd,
		Payload:          datatypes.JSON(raw),
		Status:           models.NotificationOutboxStatusPending,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func entitlementSnapshot(sub *models.Subscription, user *models.User) *models.EntitlementSnapshot {
	if sub == nil && user == nil {
		return nil
	}
	snap := &models.EntitlementSnapshot{}
	if sub != nil {
		cp := *sub
		snap.Subscription = &cp
	}
	if user != nil {
		snap.Role = user.Role
		snap.Tokens = user.Tokens
	}
	return snap
}

// logEntitlementChange writes the before/after audit row asynchronously;
// errors are logged but never returned.
func (s *Service) logEntitlementChange(ctx context.Context, userID, reason string, notif types.NotificationType, before, after *models.EntitlementSnapshot) {
	go func() {
		row := &models.EntitlementLog{
			ID:           tool.GenerateUUIDV7(),
			UserID:       userID,
			Reason:       reason,
			Notification: notif,
			Before:       datatypes.NewJSONType(before),
			After:        datatypes.NewJSONType(after),
			Extra:        datatypes.JSONMap{},
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save entitlement log: %v", err)
		}
	}()
}
