package model

import "github.com/shopspring/decimal"

// MonthlyTrendPoint aggregates budget requests for one calendar month
type MonthlyTrendPoint struct {
	Month    string          `json:"month"` // YYYY-MM
	Requests int64           `json:"requests"`
	Value    decimal.Decimal `json:"value"`
}

// DashboardStats holds the derived numbers the dashboard renders
type DashboardStats struct {
	TotalRequests    int64               `json:"total_requests"`
	PendingRequests  int64               `json:"pending_requests"`
	ApprovedRequests int64               `json:"approved_requests"`
	RejectedRequests int64               `json:"rejected_requests"`
	TotalMaterials   int64               `json:"total_materials"`
	LowStockItems    int64               `json:"low_stock_items"`
	TotalStockValue  decimal.Decimal     `json:"total_stock_value"`
	MonthlyTrend     []MonthlyTrendPoint `json:"monthly_trend"`
}
