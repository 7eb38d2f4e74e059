package billing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/config"
	xlsximport "github.com/medbill/backend/internal/infrastructure/spreadsheet"
)

// UploadService receives billing spreadsheets, validates their schema
// and keeps the workbook on disk for later generation runs.
type UploadService struct {
	uploadRepo billing.UploadRepository
	recorder   *auditapp.Recorder
	config     config.UploadConfig
	logger     *zap.Logger
}

// NewUploadService creates an upload service
func NewUploadService(
	uploadRepo billing.UploadRepository,
	recorder *auditapp.Recorder,
	cfg config.UploadConfig,
	logger *zap.Logger,
) *UploadService {
	return &UploadService{
		uploadRepo: uploadRepo,
		recorder:   recorder,
		config:     cfg,
		logger:     logger,
	}
}

// Receive stores an uploaded workbook, validates its schema and
// records the upload. A schema failure still leaves a FAILED upload
// record behind so operators can see what was rejected.
func (s *UploadService) Receive(ctx context.Context, input UploadSpreadsheetInput) (*UploadSpreadsheetResult, error) {
	if input.FileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name is required")
	}
	if filepath.Ext(input.FileName) != ".xlsx" {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Only .xlsx files are accepted")
	}
	if s.config.MaxSize > 0 && input.Size > s.config.MaxSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d byte upload limit", s.config.MaxSize))
	}

	content, err := io.ReadAll(io.LimitReader(input.Content, s.config.MaxSize+1))
	if err != nil {
		s.logger.Error("Failed to read upload", zap.String("file", input.FileName), zap.Error(err))
		return nil, shared.NewDomainError("UPLOAD_READ_FAILED", "Failed to read uploaded file")
	}
	if s.config.MaxSize > 0 && int64(len(content)) > s.config.MaxSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d byte upload limit", s.config.MaxSize))
	}

	storedPath, err := s.store(input.FileName, content)
	if err != nil {
		s.logger.Error("Failed to store upload", zap.String("file", input.FileName), zap.Error(err))
		return nil, shared.NewDomainError("UPLOAD_STORE_FAILED", "Failed to store uploaded file")
	}

	upload, err := billing.NewUpload(input.FileName, storedPath, int64(len(content)), input.UploadedBy)
	if err != nil {
		return nil, err
	}

	diags := billing.NewDiagnostics(0)
	rows, parseErr := s.parse(content, diags)
	if parseErr != nil {
		upload.MarkFailed(parseErr.Error())
		if saveErr := s.uploadRepo.Save(ctx, upload); saveErr != nil {
			s.logger.Error("Failed to record rejected upload", zap.Error(saveErr))
		}
		if xlsximport.IsSchemaError(parseErr) {
			return nil, shared.NewDomainError("SCHEMA_INVALID", parseErr.Error())
		}
		return nil, shared.NewDomainError("WORKBOOK_INVALID", parseErr.Error())
	}

	upload.MarkValidated(len(rows), diags.CountByCode(billing.DiagCodeRowDegraded))
	if err := s.uploadRepo.Save(ctx, upload); err != nil {
		s.logger.Error("Failed to save upload", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save upload record")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.UploadedBy,
		Username: input.Username,
		Action:   audit.ActionFileUploaded,
		Details:  fmt.Sprintf("%s (%d rows, %d degraded)", input.FileName, upload.TotalRows, upload.DegradedRows),
		IP:       input.IP,
	})

	s.logger.Info("Spreadsheet uploaded",
		zap.String("file", input.FileName),
		zap.String("upload_id", upload.ID.String()),
		zap.Int("rows", upload.TotalRows),
		zap.Int("degraded", upload.DegradedRows))

	return &UploadSpreadsheetResult{
		Upload:       upload,
		TotalRows:    upload.TotalRows,
		DegradedRows: upload.DegradedRows,
		Diagnostics:  diags.Entries(),
	}, nil
}

// Rows re-parses the stored workbook for a generation run
func (s *UploadService) Rows(ctx context.Context, uploadID uuid.UUID, diags *billing.Diagnostics) (*billing.Upload, []billing.TestRow, error) {
	upload, err := s.uploadRepo.FindByID(ctx, uploadID)
	if err != nil {
		return nil, nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Upload not found")
	}
	if upload.Status == billing.UploadStatusFailed {
		return nil, nil, shared.NewDomainError("UPLOAD_FAILED", "Upload failed validation and cannot be billed")
	}

	content, err := os.ReadFile(upload.StoredPath)
	if err != nil {
		s.logger.Error("Failed to read stored workbook",
			zap.String("path", upload.StoredPath), zap.Error(err))
		return nil, nil, shared.NewDomainError("UPLOAD_FILE_MISSING", "Stored workbook is no longer available")
	}

	rows, err := s.parse(content, diags)
	if err != nil {
		return nil, nil, shared.NewDomainError("WORKBOOK_INVALID", err.Error())
	}
	return upload, rows, nil
}

// Centers lists the distinct billable centers in a stored upload,
// optionally restricted to one center type. Backs the preview step
// before a partial generation run.
func (s *UploadService) Centers(ctx context.Context, uploadID uuid.UUID, centerType *billing.CenterType) (*UploadCentersResult, error) {
	_, rows, err := s.Rows(ctx, uploadID, billing.NewDiagnostics(0))
	if err != nil {
		return nil, err
	}

	result := &UploadCentersResult{
		UploadID: uploadID,
		Centers:  billing.ListCenters(rows, centerType),
	}
	if centerType != nil {
		result.CenterType = centerType.String()
	}
	return result, nil
}

// TestTypes lists the distinct test types in one center's rows so the
// operator can override sharing percentages per type before generating.
func (s *UploadService) TestTypes(ctx context.Context, uploadID uuid.UUID, centerName string) (*UploadTestTypesResult, error) {
	_, rows, err := s.Rows(ctx, uploadID, billing.NewDiagnostics(0))
	if err != nil {
		return nil, err
	}

	return &UploadTestTypesResult{
		UploadID:  uploadID,
		Center:    centerName,
		TestTypes: billing.ListTestTypes(rows, centerName),
	}, nil
}

// Get returns one upload record
func (s *UploadService) Get(ctx context.Context, id uuid.UUID) (*billing.Upload, error) {
	upload, err := s.uploadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "Upload not found")
	}
	return upload, nil
}

// List returns uploads, newest first
func (s *UploadService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Upload], error) {
	uploads, err := s.uploadRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list uploads", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list uploads")
	}
	total, err := s.uploadRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count uploads", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count uploads")
	}
	page := shared.NewPaginated(uploads, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Delete removes an upload record and its stored workbook
func (s *UploadService) Delete(ctx context.Context, id uuid.UUID) error {
	upload, err := s.uploadRepo.FindByID(ctx, id)
	if err != nil {
		return shared.NewDomainError("UPLOAD_NOT_FOUND", "Upload not found")
	}

	if err := s.uploadRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete upload", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete upload")
	}

	if err := os.Remove(upload.StoredPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove stored workbook",
			zap.String("path", upload.StoredPath), zap.Error(err))
	}
	return nil
}

// PurgeExpired deletes uploads older than the retention window
func (s *UploadService) PurgeExpired(ctx context.Context) (int, error) {
	if s.config.KeepForDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.config.KeepForDays)

	filter := shared.DefaultFilter()
	filter.PageSize = 500
	uploads, err := s.uploadRepo.FindAll(ctx, filter)
	if err != nil {
		return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to list uploads for purge")
	}

	purged := 0
	for i := range uploads {
		if uploads[i].UploadedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, uploads[i].ID); err != nil {
			s.logger.Warn("Failed to purge upload",
				zap.String("upload_id", uploads[i].ID.String()), zap.Error(err))
			continue
		}
		purged++
	}

	if purged > 0 {
		s.logger.Info("Purged expired uploads", zap.Int("count", purged))
	}
	return purged, nil
}

func (s *UploadService) store(fileName string, content []byte) (string, error) {
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	storedPath := filepath.Join(s.config.Dir, uuid.NewString()+"_"+filepath.Base(fileName))
	if err := os.WriteFile(storedPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return storedPath, nil
}

func (s *UploadService) parse(content []byte, diags *billing.Diagnostics) ([]billing.TestRow, error) {
	parser, err := xlsximport.NewParser(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return xlsximport.NewBinder(diags).BindAll(parser)
}
