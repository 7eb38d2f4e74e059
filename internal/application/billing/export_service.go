package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/export"
)

// Content types of the exported artifacts
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
	ContentTypeZip  = "application/zip"
)

// maxBundleBills caps how many bills one zip request may cover
const maxBundleBills = 1000

// archiveDownloadExpiry is how long archive download links stay valid
const archiveDownloadExpiry = time.Hour

// ExportFile is one downloadable artifact
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders bills into downloadable artifacts and pushes
// them to the archive.
type ExportService struct {
	billRepo billing.BillRepository
	excel    *export.ExcelExporter
	invoice  *export.InvoiceTemplate
	renderer export.PDFRenderer
	archive  ArchiveStorage
	recorder *auditapp.Recorder
	logger   *zap.Logger
}

// NewExportService creates an export service
func NewExportService(
	billRepo billing.BillRepository,
	excel *export.ExcelExporter,
	invoice *export.InvoiceTemplate,
	renderer export.PDFRenderer,
	archive ArchiveStorage,
	recorder *auditapp.Recorder,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		billRepo: billRepo,
		excel:    excel,
		invoice:  invoice,
		renderer: renderer,
		archive:  archive,
		recorder: recorder,
		logger:   logger,
	}
}

// Excel renders one bill's workbook
func (s *ExportService) Excel(ctx context.Context, billID uuid.UUID, reqCtx ExportRequestContext) (*ExportFile, error) {
	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}

	data, err := s.excel.Write(bill)
	if err != nil {
		s.logger.Error("Failed to build workbook",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to build Excel workbook")
	}

	s.recordExport(ctx, bill, "xlsx", reqCtx)
	return &ExportFile{
		Name:        export.BillExcelFileName(bill),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

// PDF renders one bill's printable invoice
func (s *ExportService) PDF(ctx context.Context, billID uuid.UUID, reqCtx ExportRequestContext) (*ExportFile, error) {
	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}

	data, err := s.renderPDF(ctx, bill)
	if err != nil {
		return nil, err
	}

	s.recordExport(ctx, bill, "pdf", reqCtx)
	return &ExportFile{
		Name:        export.BillPDFFileName(bill),
		ContentType: ContentTypePDF,
		Data:        data,
	}, nil
}

// Bundle packs the workbooks of every bill matching the filter into
// one zip archive.
func (s *ExportService) Bundle(ctx context.Context, filter billing.BillFilter, reqCtx ExportRequestContext) (*ExportFile, error) {
	filter.Page = 1
	filter.PageSize = maxBundleBills
	bills, err := s.billRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to load bills for bundle", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load bills")
	}
	if len(bills) == 0 {
		return nil, shared.NewDomainError("NO_BILLS", "No bills match the export filter")
	}

	entries := make([]export.BundleEntry, 0, len(bills))
	for i := range bills {
		data, err := s.excel.Write(&bills[i])
		if err != nil {
			s.logger.Error("Failed to build workbook for bundle",
				zap.String("invoice", bills[i].InvoiceNumber), zap.Error(err))
			return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to build Excel workbook")
		}
		entries = append(entries, export.BundleEntry{
			Name: export.BillExcelFileName(&bills[i]),
			Data: data,
		})
	}

	data, err := export.Bundle(entries)
	if err != nil {
		return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to build zip bundle")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   reqCtx.RequestedBy,
		Username: reqCtx.Username,
		Action:   audit.ActionBillExported,
		Details:  fmt.Sprintf("bundle of %d bills", len(bills)),
		IP:       reqCtx.IP,
	})

	return &ExportFile{
		Name:        export.BundleFileName(time.Now()),
		ContentType: ContentTypeZip,
		Data:        data,
	}, nil
}

// Archive pushes a bill's workbook into object storage and returns a
// presigned download link.
func (s *ExportService) Archive(ctx context.Context, billID uuid.UUID, reqCtx ExportRequestContext) (*ArchiveBillResult, error) {
	if s.archive == nil {
		return nil, shared.NewDomainError("ARCHIVE_DISABLED", "Object storage archive is not configured")
	}

	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, shared.NewDomainError("BILL_NOT_FOUND", "Bill not found")
	}

	data, err := s.excel.Write(bill)
	if err != nil {
		s.logger.Error("Failed to build workbook for archive",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to build Excel workbook")
	}

	key := ArchiveKey(bill)
	if err := s.archive.Upload(ctx, key, data, ContentTypeXLSX); err != nil {
		s.logger.Error("Failed to archive bill",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("ARCHIVE_FAILED", "Failed to archive bill")
	}

	url, expiresAt, err := s.archive.GenerateDownloadURL(ctx, key, archiveDownloadExpiry)
	if err != nil {
		s.logger.Error("Failed to presign archive download",
			zap.String("key", key), zap.Error(err))
		return nil, shared.NewDomainError("ARCHIVE_FAILED", "Failed to generate download link")
	}

	s.recordExport(ctx, bill, "archive", reqCtx)
	return &ArchiveBillResult{
		StorageKey:  key,
		DownloadURL: url,
		ExpiresAt:   expiresAt,
	}, nil
}

// renderPDF runs the invoice HTML through the renderer
func (s *ExportService) renderPDF(ctx context.Context, bill *billing.Bill) ([]byte, error) {
	html, err := s.invoice.Render(bill)
	if err != nil {
		s.logger.Error("Failed to render invoice HTML",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to render invoice")
	}

	result, err := s.renderer.Render(ctx, &export.RenderRequest{
		HTML:  html,
		Title: "Invoice " + bill.InvoiceNumber,
	})
	if err != nil {
		var renderErr *export.RenderError
		if errors.As(err, &renderErr) && renderErr.Code == export.ErrCodeRendererDisabled {
			return nil, shared.NewDomainError("PDF_DISABLED", "PDF rendering is disabled")
		}
		s.logger.Error("Failed to render PDF",
			zap.String("invoice", bill.InvoiceNumber), zap.Error(err))
		return nil, shared.NewDomainError("EXPORT_FAILED", "Failed to render PDF")
	}
	return result.PDFData, nil
}

func (s *ExportService) recordExport(ctx context.Context, bill *billing.Bill, format string, reqCtx ExportRequestContext) {
	billID := bill.ID
	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   reqCtx.RequestedBy,
		Username: reqCtx.Username,
		Action:   audit.ActionBillExported,
		BillID:   &billID,
		Details:  fmt.Sprintf("%s as %s", bill.InvoiceNumber, format),
		IP:       reqCtx.IP,
	})
}

// ArchiveKey is the object storage key for a bill's workbook
func ArchiveKey(bill *billing.Bill) string {
	return fmt.Sprintf("bills/%s/%s", bill.MonthBucket, export.BillExcelFileName(bill))
}
