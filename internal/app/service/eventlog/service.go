package eventlog

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/tool"
	"github.com/tailhaven/billing/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a webhook event log. Nil input is ignored.
// Logging must never delay or fail event handling.
func (s *Service) Save(ctx context.Context, row *models.WebhookEventLog) {
	go func() {
		if row == nil {
			return
		}
		if row.ID == "" {
			row.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		}
	}()
}

type ScanRequest struct {
	Filters  []*types.CommonFilter `json:"filters"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type ScanResponse struct {
	Total int64                     `json:"total"`
	Items []*models.WebhookEventLog `json:"items"`
}

// Scan lists event logs for the admin console, newest first.
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	q := s.db.WithContext(ctx).Model(&models.WebhookEventLog{})
	for _, filter := range req.Filters {
		q = q.Where(clause.Where{Exprs: []clause.Expression{filter}})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []*models.WebhookEventLog
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return &ScanResponse{Total: total, Items: items}, nil
}
