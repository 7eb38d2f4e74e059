package billing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
)

// BillService answers read queries over the billing book
type BillService struct {
	billRepo billing.BillRepository
	logger   *zap.Logger
}

// NewBillService creates a bill query service
func NewBillService(billRepo billing.BillRepository, logger *zap.Logger) *BillService {
	return &BillService{billRepo: billRepo, logger: logger}
}

// Get returns one bill by ID
func (s *BillService) Get(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	bill, err := s.billRepo.FindByID(ctx, id)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}
	return bill, nil
}

// GetByInvoiceNumber returns one bill by its invoice number
func (s *BillService) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Bill, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number is required")
	}
	bill, err := s.billRepo.FindByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}
	return bill, nil
}

// List returns bills matching the filter
func (s *BillService) List(ctx context.Context, filter billing.BillFilter) (*shared.Paginated[billing.Bill], error) {
	bills, err := s.billRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list bills", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list bills")
	}
	total, err := s.billRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count bills", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count bills")
	}
	page := shared.NewPaginated(bills, total, filter.Page, filter.PageSize)
	return &page, nil
}
