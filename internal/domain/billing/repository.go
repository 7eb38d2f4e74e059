package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/shared"
)

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	CenterName  *string     // Filter by center name
	CenterType  *CenterType // Filter by center type
	Status      *BillStatus // Filter by payment status
	MonthBucket *string     // Filter by billing period (YYYY-MM)
	UploadID    *uuid.UUID  // Filter by source upload
	FromDate    *time.Time  // Filter by bill date range start
	ToDate      *time.Time  // Filter by bill date range end
}

// CenterTotal is one center's aggregate revenue, used by the dashboard
type CenterTotal struct {
	CenterName string          `json:"center_name"`
	CenterType CenterType      `json:"center_type"`
	BillCount  int64           `json:"bill_count"`
	Total      decimal.Decimal `json:"total"`
}

// MonthlyTotal is one period's aggregate, used by the dashboard trend
type MonthlyTotal struct {
	MonthBucket string          `json:"month_bucket"`
	BillCount   int64           `json:"bill_count"`
	Total       decimal.Decimal `json:"total"`
}

// BillRepository defines the interface for bill persistence
type BillRepository interface {
	// FindByID finds a bill by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindByInvoiceNumber finds a bill by its invoice number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Bill, error)

	// FindAll finds bills matching the filter
	FindAll(ctx context.Context, filter BillFilter) ([]Bill, error)

	// Count counts bills matching the filter
	Count(ctx context.Context, filter BillFilter) (int64, error)

	// Save creates or updates a bill
	Save(ctx context.Context, bill *Bill) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, bill *Bill) error

	// SaveAll persists a batch of bills from one generation run
	SaveAll(ctx context.Context, bills []*Bill) error

	// Delete soft deletes a bill
	Delete(ctx context.Context, id uuid.UUID) error

	// SumByStatus sums the billable totals of bills in the given statuses
	SumByStatus(ctx context.Context, statuses ...BillStatus) (decimal.Decimal, error)

	// SumOutstanding sums outstanding amounts across open bills
	SumOutstanding(ctx context.Context) (decimal.Decimal, error)

	// TopCenters returns the highest-revenue centers
	TopCenters(ctx context.Context, limit int) ([]CenterTotal, error)

	// MonthlyTotals returns per-month aggregates for the trailing months
	MonthlyTotals(ctx context.Context, months int) ([]MonthlyTotal, error)
}

// UploadRepository defines the interface for upload persistence
type UploadRepository interface {
	// FindByID finds an upload by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Upload, error)

	// FindAll finds uploads with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Upload, error)

	// Count counts stored uploads
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates an upload record
	Save(ctx context.Context, upload *Upload) error

	// Delete removes an upload record
	Delete(ctx context.Context, id uuid.UUID) error
}
