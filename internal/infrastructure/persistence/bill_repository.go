package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillRepository implements billing.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a bill by ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds a bill by its invoice number
func (r *GormBillRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds bills matching the filter
func (r *GormBillRepository) FindAll(ctx context.Context, filter billing.BillFilter) ([]billing.Bill, error) {
	var billModels []models.BillModel

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BillModel{}), filter)

	sortBy := ValidateSortField(filter.OrderBy, BillSortFields, "bill_date")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortBy + " " + sortOrder)

	limit := filter.PageSize
	if limit < 1 {
		limit = 20
	}
	if err := query.Offset(filter.Offset()).Limit(limit).Find(&billModels).Error; err != nil {
		return nil, err
	}

	bills := make([]billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = *billModels[i].ToDomain()
	}
	return bills, nil
}

// Count counts bills matching the filter
func (r *GormBillRepository) Count(ctx context.Context, filter billing.BillFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BillModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a bill
func (r *GormBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The update only lands if
// the stored version still matches the version the caller loaded.
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	// Version was already incremented by the domain mutation
	previousVersion := model.Version - 1

	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.BillModel{}).
			Where("id = ?", model.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SaveAll persists a batch of bills from one generation run in a single transaction
func (r *GormBillRepository) SaveAll(ctx context.Context, bills []*billing.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	billModels := make([]*models.BillModel, len(bills))
	for i, b := range bills {
		billModels[i] = models.BillModelFromDomain(b)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&billModels).Error
	})
}

// Delete removes a bill
func (r *GormBillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BillModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// billableExpr is the amount owed per bill. The rate total already
// carries the HLM sharing deduction per line, so it holds for both
// center types.
const billableExpr = "total_rate"

// SumByStatus sums the billable totals of bills in the given statuses
func (r *GormBillRepository) SumByStatus(ctx context.Context, statuses ...billing.BillStatus) (decimal.Decimal, error) {
	if len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("COALESCE(SUM("+billableExpr+"), 0)").
		Where("status IN ?", statuses).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SumOutstanding sums outstanding amounts across open bills
func (r *GormBillRepository) SumOutstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Where("status IN ?", []billing.BillStatus{billing.BillStatusPending, billing.BillStatusPartial}).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// TopCenters returns the highest-revenue centers, cancelled bills excluded
func (r *GormBillRepository) TopCenters(ctx context.Context, limit int) ([]billing.CenterTotal, error) {
	if limit < 1 {
		limit = 5
	}
	var results []billing.CenterTotal
	err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("center_name, center_type, COUNT(*) AS bill_count, COALESCE(SUM("+billableExpr+"), 0) AS total").
		Where("status <> ?", billing.BillStatusCancelled).
		Group("center_name, center_type").
		Order("total DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MonthlyTotals returns per-month aggregates for the trailing months
func (r *GormBillRepository) MonthlyTotals(ctx context.Context, months int) ([]billing.MonthlyTotal, error) {
	if months < 1 {
		months = 6
	}
	cutoff := time.Now().AddDate(0, -months, 0).Format("2006-01")

	var results []billing.MonthlyTotal
	err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("month_bucket, COUNT(*) AS bill_count, COALESCE(SUM("+billableExpr+"), 0) AS total").
		Where("status <> ? AND month_bucket >= ?", billing.BillStatusCancelled, cutoff).
		Group("month_bucket").
		Order("month_bucket ASC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// applyFilter applies filter options to the query
func (r *GormBillRepository) applyFilter(query *gorm.DB, filter billing.BillFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number LIKE ? OR center_name LIKE ?", pattern, pattern)
	}
	if filter.CenterName != nil {
		query = query.Where("center_name = ?", *filter.CenterName)
	}
	if filter.CenterType != nil {
		query = query.Where("center_type = ?", *filter.CenterType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MonthBucket != nil {
		query = query.Where("month_bucket = ?", *filter.MonthBucket)
	}
	if filter.UploadID != nil {
		query = query.Where("upload_id = ?", *filter.UploadID)
	}
	if filter.FromDate != nil {
		query = query.Where("bill_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("bill_date <= ?", *filter.ToDate)
	}
	return query
}

// Ensure GormBillRepository implements BillRepository
var _ billing.BillRepository = (*GormBillRepository)(nil)
