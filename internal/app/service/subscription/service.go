package subscription

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/types"
)

// Service answers read queries about a user's billing state. All writes go
// through the entitlement service.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// BillingProfile is the read model served to the web app.
type BillingProfile struct {
	UserID       string               `json:"user_id"`
	Role         string               `json:"role"`
	Plan         types.PlanTier       `json:"plan"`
	Tokens       int64                `json:"tokens"`
	TokensUsed   int64                `json:"tokens_used"`
	Subscription *models.Subscription `json:"subscription"`
}

// GetBillingProfile returns the user's current entitlements. Unknown users get
// the free-tier defaults rather than an error; the billing service may simply
// not have seen them yet.
func (s *Service) GetBillingProfile(ctx context.Context, userID string) (*BillingProfile, error) {
	profile := &BillingProfile{
		UserID: userID,
		Role:   types.PlanFree.Role(),
		Plan:   types.PlanFree,
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err == nil {
		profile.Role = user.Role
		profile.Tokens = user.Tokens
		profile.TokensUsed = user.TokensUsed
	}

	var sub models.Subscription
	err = s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if err == nil {
		profile.Subscription = &sub
		profile.Plan = sub.PlanOrFree()
	}

	return profile, nil
}

// ListUserPayments returns a user's payment history, newest first.
func (s *Service) ListUserPayments(ctx context.Context, userID string, limit int) ([]*models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return rows, nil
}

// filtersAnd wraps a list of filters into a single AND expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// ScanPayments implements the paginated, filterable admin listing.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

type ScanSubscriptionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanSubscriptionsResponse struct {
	Items []*models.Subscription `json:"items"`
	Total int64                  `json:"total"`
}

// ScanSubscriptions implements the paginated, filterable admin listing.
func (s *Service) ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Subscription{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var rows []*models.Subscription
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return &ScanSubscriptionsResponse{Items: rows, Total: total}, nil
}
