package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/config"
)

// GenerationService runs the aggregation pipeline: rows from a stored
// upload become one numbered bill per diagnostic center.
type GenerationService struct {
	uploads   *UploadService
	billRepo  billing.BillRepository
	generator *billing.InvoiceNumberGenerator
	recorder  *auditapp.Recorder
	config    config.BillingConfig
	logger    *zap.Logger
}

// NewGenerationService creates a generation service. The sequence
// store decides whether invoice numbering survives restarts.
func NewGenerationService(
	uploads *UploadService,
	billRepo billing.BillRepository,
	store billing.SequenceStore,
	recorder *auditapp.Recorder,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *GenerationService {
	generator := billing.NewInvoiceNumberGenerator(store,
		billing.WithB2BPrefix(cfg.B2BInvoicePrefix),
		billing.WithHLMPrefix(cfg.HLMInvoicePrefix),
	)
	return &GenerationService{
		uploads:   uploads,
		billRepo:  billRepo,
		generator: generator,
		recorder:  recorder,
		config:    cfg,
		logger:    logger,
	}
}

// Generate runs one aggregation over the upload's rows and persists
// the resulting bills as a batch.
func (s *GenerationService) Generate(ctx context.Context, input GenerateBillsInput) (*GenerateBillsResult, error) {
	billDate := input.BillDate
	if billDate.IsZero() {
		billDate = time.Now()
	}

	diags := billing.NewDiagnostics(0)
	upload, rows, err := s.uploads.Rows(ctx, input.UploadID, diags)
	if err != nil {
		return nil, err
	}

	selection := billing.Selection{CenterType: input.CenterType, Centers: input.Centers}
	rows = selection.Apply(rows)
	if len(rows) == 0 {
		return nil, shared.NewDomainError("NO_BILLABLE_ROWS", "No rows match the requested centers")
	}

	table, err := s.sharingTable(input.SharingOverrides)
	if err != nil {
		return nil, err
	}

	aggregator := billing.NewAggregator(s.generator,
		billing.WithFallbackSharingPercent(decimal.NewFromFloat(s.config.DefaultSharingPercent)))

	result, err := aggregator.GenerateBills(ctx, rows, table, billDate)
	if err != nil {
		s.logger.Error("Bill generation failed",
			zap.String("upload_id", input.UploadID.String()), zap.Error(err))
		return nil, err
	}
	if len(result.Bills) == 0 {
		return nil, shared.NewDomainError("NO_BILLABLE_ROWS", "No billable rows found in the upload")
	}

	// diags holds what the re-parse degraded; fold in what the
	// aggregation itself flagged so callers see the full trail
	diags.Merge(result.Diagnostics)

	for _, bill := range result.Bills {
		bill.UploadID = upload.ID
	}

	if err := s.billRepo.SaveAll(ctx, result.Bills); err != nil {
		s.logger.Error("Failed to persist generated bills",
			zap.String("upload_id", input.UploadID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save generated bills")
	}

	upload.MarkBilled()
	if err := s.uploads.uploadRepo.Save(ctx, upload); err != nil {
		s.logger.Error("Failed to mark upload billed", zap.Error(err))
	}

	totalRate := decimal.Zero
	totalSharing := decimal.Zero
	for _, bill := range result.Bills {
		totalRate = totalRate.Add(bill.TotalRate)
		totalSharing = totalSharing.Add(bill.TotalSharing)
		billID := bill.ID
		s.recorder.Record(ctx, auditapp.RecordInput{
			UserID:   input.RequestedBy,
			Username: input.Username,
			Action:   audit.ActionBillGenerated,
			BillID:   &billID,
			Details:  fmt.Sprintf("%s for %s (%s)", bill.InvoiceNumber, bill.CenterName, bill.CenterType),
			IP:       input.IP,
		})
	}

	s.logger.Info("Bills generated",
		zap.String("upload_id", input.UploadID.String()),
		zap.Int("bills", len(result.Bills)),
		zap.String("total_rate", totalRate.StringFixed(2)),
		zap.String("total_sharing", totalSharing.StringFixed(2)),
		zap.Int("diagnostics", diags.TotalCount()))

	return &GenerateBillsResult{
		Bills:            result.Bills,
		BillCount:        len(result.Bills),
		TotalRate:        totalRate,
		TotalSharing:     totalSharing,
		Diagnostics:      diags.Entries(),
		DiagnosticsTotal: diags.TotalCount(),
	}, nil
}

// sharingTable merges per-run overrides over the configured table
func (s *GenerationService) sharingTable(overrides map[string]float64) (billing.SharingTable, error) {
	percents := make(map[string]float64, len(s.config.SharingTable)+len(overrides))
	for testType, pct := range s.config.SharingTable {
		percents[testType] = pct
	}
	for testType, pct := range overrides {
		percents[testType] = pct
	}
	return billing.NewSharingTable(percents)
}
