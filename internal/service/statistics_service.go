package service

import (
	"context"
	"fmt"
	"time"

	"materialflow/internal/apperrors"
	"materialflow/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetDashboardStats(ctx context.Context) (model.DashboardStats, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetDashboardStats aggregates the numbers the dashboard overview renders
func (s *statisticsService) GetDashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats

	// Request counts grouped by status. Budget requests are hard-deleted, so
	// every surviving row counts.
	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Table("budget_requests").
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	for _, sc := range statusCounts {
		stats.TotalRequests += sc.Count
		switch sc.Status {
		case model.RequestStatusPending:
			stats.PendingRequests = sc.Count
		case model.RequestStatusApproved:
			stats.ApprovedRequests = sc.Count
		case model.RequestStatusRejected:
			stats.RejectedRequests = sc.Count
		}
	}

	if err := s.db.WithContext(ctx).Model(&model.Material{}).
		Count(&stats.TotalMaterials).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	if err := s.db.WithContext(ctx).Model(&model.Material{}).
		Where("current_stock <= min_stock").
		Count(&stats.LowStockItems).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	// Total Stock Value = SUM(current_stock * price)
	var stockValue struct {
		Value decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.Material{}).
		Select("COALESCE(SUM(current_stock * price), 0) as value").
		Scan(&stockValue).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	stats.TotalStockValue = stockValue.Value

	// Monthly trend over the last six months of budget requests
	since := time.Now().AddDate(0, -5, 0)
	since = time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, since.Location())

	var trend []model.MonthlyTrendPoint
	if err := s.db.WithContext(ctx).Table("budget_requests").
		Select("TO_CHAR(created_at, 'YYYY-MM') as month, COUNT(*) as requests, COALESCE(SUM(amount), 0) as value").
		Where("created_at >= ?", since).
		Group("month").
		Order("month").
		Scan(&trend).Error; err != nil {
		return stats, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	stats.MonthlyTrend = trend

	return stats, nil
}
