// Package audit provides the audit trail application services.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/shared"
)

// RecordInput describes one action to append to the trail
type RecordInput struct {
	UserID   uuid.UUID
	Username string
	Action   audit.Action
	BillID   *uuid.UUID
	Details  string
	IP       string
}

// Recorder appends entries to the audit trail. Recording is
// best-effort: a failed append is logged but never fails the
// operation being audited.
type Recorder struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewRecorder creates an audit recorder
func NewRecorder(repo audit.Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one entry to the trail
func (r *Recorder) Record(ctx context.Context, input RecordInput) {
	entry, err := audit.NewEntry(input.UserID, input.Username, input.Action)
	if err != nil {
		r.logger.Error("Failed to build audit entry", zap.Error(err))
		return
	}
	if input.BillID != nil {
		entry.WithBill(*input.BillID)
	}
	if input.Details != "" {
		entry.WithDetails(input.Details)
	}
	if input.IP != "" {
		entry.WithIP(input.IP)
	}

	if err := r.repo.Save(ctx, entry); err != nil {
		r.logger.Error("Failed to save audit entry",
			zap.String("action", string(input.Action)),
			zap.String("user_id", input.UserID.String()),
			zap.Error(err))
	}
}

// QueryService reads the audit trail
type QueryService struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewQueryService creates an audit query service
func NewQueryService(repo audit.Repository, logger *zap.Logger) *QueryService {
	return &QueryService{repo: repo, logger: logger}
}

// List returns audit entries matching the filter, newest first
func (s *QueryService) List(ctx context.Context, filter audit.Filter) (*shared.Paginated[audit.Entry], error) {
	entries, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list audit entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list audit entries")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count audit entries", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count audit entries")
	}

	page := shared.NewPaginated(entries, total, filter.Page, filter.PageSize)
	return &page, nil
}
