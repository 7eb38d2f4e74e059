package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbill/backend/internal/domain/shared"
)

// UploadStatus represents the state of an uploaded spreadsheet
type UploadStatus string

const (
	UploadStatusValidated UploadStatus = "VALIDATED" // Schema checked, rows parsed
	UploadStatusFailed    UploadStatus = "FAILED"    // Schema validation failed
	UploadStatusBilled    UploadStatus = "BILLED"    // At least one generation run completed
)

// IsValid checks if the upload status is valid
func (s UploadStatus) IsValid() bool {
	switch s {
	case UploadStatusValidated, UploadStatusFailed, UploadStatusBilled:
		return true
	}
	return false
}

// Upload records one spreadsheet received for billing. The workbook
// itself is kept on the storage path; rows are re-parsed from it per
// generation run.
type Upload struct {
	shared.BaseAggregateRoot
	FileName     string       `json:"file_name"`
	StoredPath   string       `json:"stored_path"`
	SizeBytes    int64        `json:"size_bytes"`
	TotalRows    int          `json:"total_rows"`
	DegradedRows int          `json:"degraded_rows"`
	Status       UploadStatus `json:"status"`
	FailReason   string       `json:"fail_reason,omitempty"`
	UploadedBy   uuid.UUID    `json:"uploaded_by"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// NewUpload records a validated upload
func NewUpload(fileName, storedPath string, sizeBytes int64, uploadedBy uuid.UUID) (*Upload, error) {
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if storedPath == "" {
		return nil, shared.NewDomainError("INVALID_STORED_PATH", "Stored path cannot be empty")
	}
	return &Upload{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FileName:          fileName,
		StoredPath:        storedPath,
		SizeBytes:         sizeBytes,
		Status:            UploadStatusValidated,
		UploadedBy:        uploadedBy,
		UploadedAt:        time.Now(),
	}, nil
}

// MarkValidated records the parse outcome
func (u *Upload) MarkValidated(totalRows, degradedRows int) {
	u.TotalRows = totalRows
	u.DegradedRows = degradedRows
	u.Status = UploadStatusValidated
	u.Touch()
}

// MarkFailed records a schema validation failure
func (u *Upload) MarkFailed(reason string) {
	u.Status = UploadStatusFailed
	u.FailReason = reason
	u.Touch()
}

// MarkBilled records that a generation run used this upload
func (u *Upload) MarkBilled() {
	u.Status = UploadStatusBilled
	u.Touch()
}
