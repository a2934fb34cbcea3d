package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/tool"
	"github.com/tailhaven/billing/pkg/types"
)

type StatisticType string

const (
	// Payment volume
	StatisticTypeDailyPaymentCount StatisticType = "daily_payment_count"
	StatisticTypeDailyRevenue      StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue      StatisticType = "total_revenue"

	// Subscription base
	StatisticTypeDailySubscriptionCount    StatisticType = "daily_subscription_count"
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeTotalActiveSubscriptions  StatisticType = "total_active_subscriptions"
	StatisticTypePlanDistribution          StatisticType = "plan_distribution"

	// Dunning health
	StatisticTypePaymentFailureRate StatisticType = "payment_failure_rate"
)

// Filter fields only some statistic types understand.
type StatisticFilterType string

const (
	StatisticFilterTypePlan   StatisticFilterType = "plan"
	StatisticFilterTypeStatus StatisticFilterType = "status"
)

var filterTypes = []StatisticFilterType{
	StatisticFilterTypePlan,
	StatisticFilterTypeStatus,
}

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypePlan: {
		StatisticTypeDailyPaymentCount,
		StatisticTypeDailyRevenue,
		StatisticTypeDailySubscriptionCount,
		StatisticTypeTotalActiveSubscriptions,
	},
	StatisticFilterTypeStatus: {
		StatisticTypeDailySubscriptionCount,
		StatisticTypeTotalActiveSubscriptions,
	},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

// GetFilters returns the subset of filters applicable to a statistic type.
func (f *StatisticRequest) GetFilters(statisticType StatisticType) *StatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result StatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the applicable filters.
func (f *StatisticRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type StatisticResponseDataItem struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// SaveSubscriptionDailySnapshot persists one user's subscription state for the
// given date. Conflicts on (user_id, date) are ignored so the job can re-run.
func (s *Service) SaveSubscriptionDailySnapshot(ctx context.Context, sub *models.Subscription, snapshotDate time.Time) error {
	if sub == nil {
		return fmt.Errorf("nil subscription")
	}
	snap := &models.SubscriptionDailySnapshot{
		ID:                tool.GenerateUUIDV7(),
		UserID:            sub.UserID,
		Plan:              sub.PlanOrFree(),
		Status:            sub.Status,
		PlanPrice:         sub.PlanPrice,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		SnapshotDate:      snapshotDate.Format(time.DateOnly),
		SnapshotCreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(snap).Error
}

// SnapshotAllSubscriptions captures every subscription for the date. Batched
// so the job stays bounded regardless of table size.
func (s *Service) SnapshotAllSubscriptions(ctx context.Context, snapshotDate time.Time) error {
	var subs []*models.Subscription
	return s.db.WithContext(ctx).
		FindInBatches(&subs, 500, func(tx *gorm.DB, _ int) error {
			for _, sub := range subs {
				if err := s.SaveSubscriptionDailySnapshot(ctx, sub, snapshotDate); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func (s *Service) getDailyPaymentCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Payment{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("status = ?", models.PaymentStatusPaid).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyPaymentCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Payment{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, currency AS label, sum(amount) as value").
		Where("status = ?", models.PaymentStatusPaid).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyRevenue)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Group("currency").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT currency as label, COALESCE(SUM(amount), 0) as value
FROM payment
WHERE status = 'paid'
GROUP BY currency
ORDER BY currency
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailySubscriptionCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionDailySnapshot{}).TableName()).
		Select("snapshot_date as date, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailySubscriptionCount)}}).
		Group("snapshot_date").
		Order("snapshot_date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT TO_CHAR(created_at, 'YYYY-MM-DD') as date, COUNT(DISTINCT user_id) as value
FROM subscription
GROUP BY TO_CHAR(created_at, 'YYYY-MM-DD')
ORDER BY date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalActiveSubscriptions(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeTotalActiveSubscriptions)}}).
		Where("status = ?", types.SubscriptionStatusActive)
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getPlanDistribution(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT plan as label, COUNT(*) as value
FROM subscription
WHERE status = 'active'
GROUP BY plan
ORDER BY plan
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getPaymentFailureRate(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH daily AS (
  SELECT TO_CHAR(created_at, 'YYYY-MM-DD') as date,
         COUNT(*) FILTER (WHERE status = 'failed') as failed,
         COUNT(*) as total
  FROM payment
  GROUP BY TO_CHAR(created_at, 'YYYY-MM-DD')
)
SELECT date,
       CASE WHEN total = 0 THEN 0
            ELSE CAST(ROUND(failed * 10000.0 / total) AS INTEGER)
       END as value
FROM daily
ORDER BY date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPaymentCount:
		return s.getDailyPaymentCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	case StatisticTypeDailySubscriptionCount:
		return s.getDailySubscriptionCount(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeTotalActiveSubscriptions:
		return s.getTotalActiveSubscriptions(ctx, request)
	case StatisticTypePlanDistribution:
		return s.getPlanDistribution(ctx, request)
	case StatisticTypePaymentFailureRate:
		return s.getPaymentFailureRate(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistics fans the requested data items out concurrently and joins the
// results.
func (s *Service) GetStatistics(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			for _, filter := range request.Filters {
				ft := StatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]StatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &StatisticResponse{DataItems: results}, nil
}
