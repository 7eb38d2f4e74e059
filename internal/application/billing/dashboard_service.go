package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
)

// Dashboard shape parameters
const (
	dashboardTopCenters    = 5
	dashboardTrendMonths   = 6
	dashboardMaxTopCenters = 20
)

// DashboardService aggregates the billing book into headline figures
type DashboardService struct {
	billRepo billing.BillRepository
	logger   *zap.Logger
}

// NewDashboardService creates a dashboard service
func NewDashboardService(billRepo billing.BillRepository, logger *zap.Logger) *DashboardService {
	return &DashboardService{billRepo: billRepo, logger: logger}
}

// Summary computes the dashboard in one pass over the aggregates
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	summary := &DashboardSummary{}

	counts := []struct {
		status billing.BillStatus
		target *int64
	}{
		{billing.BillStatusPending, &summary.PendingBills},
		{billing.BillStatusPartial, &summary.PartialBills},
		{billing.BillStatusPaid, &summary.PaidBills},
		{billing.BillStatusCancelled, &summary.CancelledBills},
	}
	for _, c := range counts {
		status := c.status
		n, err := s.billRepo.Count(ctx, billing.BillFilter{Status: &status})
		if err != nil {
			s.logger.Error("Failed to count bills by status",
				zap.String("status", string(status)), zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute dashboard")
		}
		*c.target = n
		summary.TotalBills += n
	}

	totalBilled, err := s.billRepo.SumByStatus(ctx,
		billing.BillStatusPending, billing.BillStatusPartial, billing.BillStatusPaid)
	if err != nil {
		s.logger.Error("Failed to sum billed totals", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute dashboard")
	}
	summary.TotalBilled = totalBilled

	outstanding, err := s.billRepo.SumOutstanding(ctx)
	if err != nil {
		s.logger.Error("Failed to sum outstanding", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute dashboard")
	}
	summary.TotalOutstanding = outstanding
	summary.TotalCollected = totalBilled.Sub(outstanding)

	topCenters, err := s.billRepo.TopCenters(ctx, dashboardTopCenters)
	if err != nil {
		s.logger.Error("Failed to rank centers", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute dashboard")
	}
	summary.TopCenters = topCenters

	trend, err := s.billRepo.MonthlyTotals(ctx, dashboardTrendMonths)
	if err != nil {
		s.logger.Error("Failed to compute monthly trend", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute dashboard")
	}
	summary.MonthlyTrend = trend

	return summary, nil
}

// TopCenters returns up to limit highest-revenue centers
func (s *DashboardService) TopCenters(ctx context.Context, limit int) ([]billing.CenterTotal, error) {
	if limit <= 0 {
		limit = dashboardTopCenters
	}
	if limit > dashboardMaxTopCenters {
		limit = dashboardMaxTopCenters
	}
	centers, err := s.billRepo.TopCenters(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to rank centers", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to rank centers")
	}
	return centers, nil
}
