package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/domain/shared/valueobject"
)

// maxPaymentRetries bounds optimistic-lock replays when two operators
// record payments against the same bill at once
const maxPaymentRetries = 3

// PaymentService records payments and cancellations against bills
type PaymentService struct {
	billRepo billing.BillRepository
	recorder *auditapp.Recorder
	logger   *zap.Logger
}

// NewPaymentService creates a payment service
func NewPaymentService(billRepo billing.BillRepository, recorder *auditapp.Recorder, logger *zap.Logger) *PaymentService {
	return &PaymentService{billRepo: billRepo, recorder: recorder, logger: logger}
}

// ApplyPayment applies one payment to a bill. A concurrent update
// reloads the bill and replays the payment against the fresh state.
func (s *PaymentService) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*billing.Bill, error) {
	amount := valueobject.NewMoneyINR(input.Amount)

	var bill *billing.Bill
	for attempt := 0; attempt < maxPaymentRetries; attempt++ {
		var err error
		bill, err = s.billRepo.FindByID(ctx, input.BillID)
		if err != nil {
			return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
		}

		if err := bill.ApplyPayment(amount, input.Mode, input.Reference, input.Remark, input.RecordedBy); err != nil {
			return nil, err
		}

		err = s.billRepo.SaveWithLock(ctx, bill)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Error("Failed to save payment",
				zap.String("bill_id", input.BillID.String()), zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record payment")
		}

		s.logger.Warn("Payment conflicted with a concurrent update, retrying",
			zap.String("bill_id", input.BillID.String()),
			zap.Int("attempt", attempt+1))
		if attempt == maxPaymentRetries-1 {
			return nil, shared.ErrConcurrencyConflict
		}
	}

	billID := bill.ID
	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.RecordedBy,
		Username: input.Username,
		Action:   audit.ActionBillPaymentMade,
		BillID:   &billID,
		Details: fmt.Sprintf("%s %s via %s, outstanding %s",
			bill.InvoiceNumber, input.Amount.StringFixed(2), input.Mode, bill.OutstandingAmount.StringFixed(2)),
		IP: input.IP,
	})

	s.logger.Info("Payment recorded",
		zap.String("invoice", bill.InvoiceNumber),
		zap.String("amount", input.Amount.StringFixed(2)),
		zap.String("mode", string(input.Mode)),
		zap.String("status", string(bill.Status)))

	return bill, nil
}

// Cancel cancels a bill before full payment
func (s *PaymentService) Cancel(ctx context.Context, input CancelBillInput) (*billing.Bill, error) {
	bill, err := s.billRepo.FindByID(ctx, input.BillID)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}

	if err := bill.Cancel(input.Reason); err != nil {
		return nil, err
	}

	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, shared.ErrConcurrencyConflict
		}
		s.logger.Error("Failed to cancel bill",
			zap.String("bill_id", input.BillID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to cancel bill")
	}

	billID := bill.ID
	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.CancelledBy,
		Username: input.Username,
		Action:   audit.ActionBillCancelled,
		BillID:   &billID,
		Details:  fmt.Sprintf("%s: %s", bill.InvoiceNumber, input.Reason),
		IP:       input.IP,
	})

	s.logger.Info("Bill cancelled",
		zap.String("invoice", bill.InvoiceNumber),
		zap.String("reason", input.Reason))

	return bill, nil
}
