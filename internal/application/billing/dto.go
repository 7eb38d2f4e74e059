package billing

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/billing"
)

// UploadSpreadsheetInput carries one received workbook
type UploadSpreadsheetInput struct {
	FileName   string
	Size       int64
	Content    io.Reader
	UploadedBy uuid.UUID
	Username   string
	IP         string
}

// UploadSpreadsheetResult reports the validation outcome
type UploadSpreadsheetResult struct {
	Upload       *billing.Upload      `json:"upload"`
	TotalRows    int                  `json:"total_rows"`
	DegradedRows int                  `json:"degraded_rows"`
	Diagnostics  []billing.Diagnostic `json:"diagnostics,omitempty"`
}

// GenerateBillsInput triggers one aggregation run over an upload
type GenerateBillsInput struct {
	UploadID uuid.UUID
	// BillDate defaults to the current time when zero
	BillDate time.Time
	// CenterType restricts the run to one pricing policy when set
	CenterType *billing.CenterType
	// Centers restricts the run to the named centers when non-empty
	Centers []string
	// SharingOverrides replaces configured sharing percentages per test
	// type for this run only
	SharingOverrides map[string]float64
	RequestedBy      uuid.UUID
	Username         string
	IP               string
}

// UploadCentersResult lists the billable centers found in an upload
type UploadCentersResult struct {
	UploadID   uuid.UUID `json:"upload_id"`
	CenterType string    `json:"center_type,omitempty"`
	Centers    []string  `json:"centers"`
}

// UploadTestTypesResult lists the test types one center's rows carry
type UploadTestTypesResult struct {
	UploadID  uuid.UUID `json:"upload_id"`
	Center    string    `json:"center"`
	TestTypes []string  `json:"test_types"`
}

// GenerateBillsResult reports one aggregation run
type GenerateBillsResult struct {
	Bills            []*billing.Bill      `json:"bills"`
	BillCount        int                  `json:"bill_count"`
	TotalRate        decimal.Decimal      `json:"total_rate"`
	TotalSharing     decimal.Decimal      `json:"total_sharing"`
	Diagnostics      []billing.Diagnostic `json:"diagnostics,omitempty"`
	DiagnosticsTotal int                  `json:"diagnostics_total"`
}

// ApplyPaymentInput records one payment against a bill
type ApplyPaymentInput struct {
	BillID     uuid.UUID
	Amount     decimal.Decimal
	Mode       billing.PaymentMode
	Reference  string
	Remark     string
	RecordedBy uuid.UUID
	Username   string
	IP         string
}

// CancelBillInput cancels an open bill
type CancelBillInput struct {
	BillID      uuid.UUID
	Reason      string
	CancelledBy uuid.UUID
	Username    string
	IP          string
}

// EmailBillInput sends one bill to its center
type EmailBillInput struct {
	BillID      uuid.UUID
	Recipients  []string
	Message     string
	AttachPDF   bool
	RequestedBy uuid.UUID
	Username    string
	IP          string
}

// ExportRequestContext identifies who asked for an export, for auditing
type ExportRequestContext struct {
	RequestedBy uuid.UUID
	Username    string
	IP          string
}

// ArchiveBillResult reports an artifact pushed to object storage
type ArchiveBillResult struct {
	StorageKey  string    `json:"storage_key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DashboardSummary is the headline view of the billing book
type DashboardSummary struct {
	TotalBills       int64                  `json:"total_bills"`
	PendingBills     int64                  `json:"pending_bills"`
	PartialBills     int64                  `json:"partial_bills"`
	PaidBills        int64                  `json:"paid_bills"`
	CancelledBills   int64                  `json:"cancelled_bills"`
	TotalBilled      decimal.Decimal        `json:"total_billed"`
	TotalCollected   decimal.Decimal        `json:"total_collected"`
	TotalOutstanding decimal.Decimal        `json:"total_outstanding"`
	TopCenters       []billing.CenterTotal  `json:"top_centers"`
	MonthlyTrend     []billing.MonthlyTotal `json:"monthly_trend"`
}
