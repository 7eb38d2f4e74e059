package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TestRow is one medical-test transaction from the uploaded
// spreadsheet, already bound to canonical field names by the ingest
// adapter. Rows are transient; they live only for the duration of one
// aggregation pass.
type TestRow struct {
	CenterName       string
	CenterTag        string
	PatientName      string
	PatientVisitCode string
	TestName         string
	TestType         string
	RegisteredDate   time.Time
	MRP              decimal.Decimal
	CenterTestRate   decimal.Decimal
	// SourceLine is the 1-based spreadsheet line this row came from,
	// carried for diagnostics.
	SourceLine int
}

// HasCenter reports whether the row names a billable center.
// Rows without a center name cannot be attributed to any bill.
func (r TestRow) HasCenter() bool {
	return strings.TrimSpace(r.CenterName) != ""
}
