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
	"github.com/medbill/backend/internal/infrastructure/export"
)

// EmailService sends bills to their diagnostic centers
type EmailService struct {
	billRepo billing.BillRepository
	exports  *ExportService
	mailer   Mailer
	recorder *auditapp.Recorder
	logger   *zap.Logger
}

// NewEmailService creates an email service
func NewEmailService(
	billRepo billing.BillRepository,
	exports *ExportService,
	mailer Mailer,
	recorder *auditapp.Recorder,
	logger *zap.Logger,
) *EmailService {
	return &EmailService{
		billRepo: billRepo,
		exports:  exports,
		mailer:   mailer,
		recorder: recorder,
		logger:   logger,
	}
}

// SendBill emails one bill with its workbook attached. The PDF is
// attached too when requested and the renderer is available; a
// disabled renderer degrades to the workbook alone instead of failing
// the send.
func (s *EmailService) SendBill(ctx context.Context, input EmailBillInput) error {
	if len(input.Recipients) == 0 {
		return shared.NewDomainError("INVALID_RECIPIENTS", "At least one recipient is required")
	}

	bill, err := s.billRepo.FindByID(ctx, input.BillID)
	if err != nil {
		return shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}

	workbook, err := s.exports.excel.Write(bill)
	if err != nil {
		s.logger.Error("Failed to build workbook for email",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return shared.NewDomainError("EXPORT_FAILED", "Failed to build Excel workbook")
	}

	attachments := []MailAttachment{{
		FileName:    export.BillExcelFileName(bill),
		ContentType: ContentTypeXLSX,
		Data:        workbook,
	}}

	if input.AttachPDF {
		pdf, err := s.exports.renderPDF(ctx, bill)
		switch {
		case err == nil:
			attachments = append(attachments, MailAttachment{
				FileName:    export.BillPDFFileName(bill),
				ContentType: ContentTypePDF,
				Data:        pdf,
			})
		case isPDFDisabled(err):
			s.logger.Warn("PDF rendering disabled, sending workbook only",
				zap.String("invoice", bill.InvoiceNumber))
		default:
			return err
		}
	}

	body := input.Message
	if body == "" {
		body = fmt.Sprintf(
			"Dear %s,\n\nPlease find attached invoice %s dated %s for a total of %s (%s).\n\nRegards,\nBilling Team",
			bill.CenterName, bill.InvoiceNumber, bill.BillDate.Format("02-01-2006"),
			bill.TotalRate.StringFixed(2), bill.AmountInWords)
	}

	msg := OutgoingMail{
		To:          input.Recipients,
		Subject:     "Invoice " + bill.InvoiceNumber + " - " + bill.CenterName,
		Body:        body,
		Attachments: attachments,
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to email bill",
			zap.String("invoice", bill.InvoiceNumber),
			zap.Strings("to", input.Recipients),
			zap.Error(err))
		return shared.NewDomainError("EMAIL_FAILED", "Failed to send bill email")
	}

	billID := bill.ID
	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.RequestedBy,
		Username: input.Username,
		Action:   audit.ActionBillEmailed,
		BillID:   &billID,
		Details:  fmt.Sprintf("%s to %d recipients", bill.InvoiceNumber, len(input.Recipients)),
		IP:       input.IP,
	})

	s.logger.Info("Bill emailed",
		zap.String("invoice", bill.InvoiceNumber),
		zap.Strings("to", input.Recipients),
		zap.Int("attachments", len(attachments)))

	return nil
}

func isPDFDisabled(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "PDF_DISABLED"
	}
	return false
}
