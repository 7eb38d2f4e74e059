package xlsximport

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/billing"
)

// Source column names, an external contract with the upstream
// spreadsheet producer. The center-type tag historically travels in
// the "MobileNumber" column.
const (
	ColCenterName     = "CENTER NAME"
	ColCenterTag      = "MobileNumber"
	ColPatientName    = "PatientName"
	ColVisitCode      = "PatientVisitCode"
	ColTestName       = "TEST NAME"
	ColTestType       = "TEST TYPE"
	ColMRP            = "MRP"
	ColCenterTestRate = "CentreTestRate"
	ColRegisteredDate = "RegisteredDate"
)

// RequiredColumns are the structurally required source columns.
// Their absence fails the whole run with a SchemaError.
func RequiredColumns() []string {
	return []string{
		ColRegisteredDate,
		ColVisitCode,
		ColPatientName,
		ColTestName,
		ColMRP,
		ColCenterTestRate,
		ColCenterName,
	}
}

// dateLayouts are tried in order when coercing registered dates
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"01-02-06",
	time.RFC3339,
}

// Binder converts raw spreadsheet rows into canonical test rows,
// absorbing malformed cells into diagnostics instead of failing.
type Binder struct {
	diags *billing.Diagnostics
}

// NewBinder creates a binder recording coercions into diags
func NewBinder(diags *billing.Diagnostics) *Binder {
	return &Binder{diags: diags}
}

// BindAll validates the schema and converts every row. A missing
// required column returns a SchemaError before any row is touched.
func (b *Binder) BindAll(parser *Parser) ([]billing.TestRow, error) {
	if missing := parser.ValidateHeaders(RequiredColumns()); len(missing) > 0 {
		return nil, NewSchemaError(missing)
	}

	raw, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}

	rows := make([]billing.TestRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, b.Bind(r))
	}
	return rows, nil
}

// Bind converts one raw row. Unparseable numeric cells coerce to zero
// and unparseable dates to the zero time, each recorded as a degraded
// row diagnostic.
func (b *Binder) Bind(row Row) billing.TestRow {
	return billing.TestRow{
		CenterName:       row.Get(ColCenterName),
		CenterTag:        row.Get(ColCenterTag),
		PatientName:      row.Get(ColPatientName),
		PatientVisitCode: row.Get(ColVisitCode),
		TestName:         row.Get(ColTestName),
		TestType:         row.Get(ColTestType),
		RegisteredDate:   b.safeDate(row.LineNumber, ColRegisteredDate, row.Get(ColRegisteredDate)),
		MRP:              b.safeDecimal(row.LineNumber, ColMRP, row.Get(ColMRP)),
		CenterTestRate:   b.safeDecimal(row.LineNumber, ColCenterTestRate, row.Get(ColCenterTestRate)),
		SourceLine:       row.LineNumber,
	}
}

// safeDecimal coerces a cell to a decimal, zero on failure
func (b *Binder) safeDecimal(line int, column, value string) decimal.Decimal {
	trimmed := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if trimmed == "" {
		b.diags.AddRowDegraded(line, column, value)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		b.diags.AddRowDegraded(line, column, value)
		return decimal.Zero
	}
	return d
}

// safeDate coerces a cell to a time, zero time on failure
func (b *Binder) safeDate(line int, column, value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		b.diags.AddRowDegraded(line, column, value)
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t
		}
	}
	b.diags.AddRowDegraded(line, column, value)
	return time.Time{}
}
