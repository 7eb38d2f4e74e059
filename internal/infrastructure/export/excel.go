package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/medbill/backend/internal/domain/billing"
)

const (
	summarySheet  = "Summary"
	detailedSheet = "Detailed"
)

var detailedHeaders = []string{
	"Sr. No.", "Date", "Patient Name", "Visit Code", "Test Name", "MRP", "Rate", "Sharing",
}

// ExcelExporter writes bills into xlsx workbooks. Each bill gets a
// Summary sheet with headline figures and a Detailed sheet with one
// row per billed test.
type ExcelExporter struct{}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// BillWorkbook builds the xlsx workbook for one bill
func (e *ExcelExporter) BillWorkbook(bill *billing.Bill) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(detailedSheet); err != nil {
		return nil, fmt.Errorf("failed to create detailed sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := e.writeSummary(f, bill, headerStyle); err != nil {
		return nil, err
	}
	if err := e.writeDetailed(f, bill, headerStyle); err != nil {
		return nil, err
	}

	return f, nil
}

// Write serializes the workbook for one bill into xlsx bytes
func (e *ExcelExporter) Write(bill *billing.Bill) ([]byte, error) {
	f, err := e.BillWorkbook(bill)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook for %s: %w", bill.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, bill *billing.Bill, headerStyle int) error {
	rows := [][]interface{}{
		{"Description", "Value"},
		{"Invoice Number", bill.InvoiceNumber},
		{"Center Name", bill.CenterName},
		{"Bill Date", bill.BillDate.Format(invoiceDateLayout)},
		{"Total Tests", len(bill.LineItems)},
		{"Total MRP", "₹" + bill.TotalMRP.StringFixed(2)},
		{"Total Rate", "₹" + bill.TotalRate.StringFixed(2)},
		{"Total Sharing", "₹" + bill.TotalSharing.StringFixed(2)},
		{"Amount in Words", bill.AmountInWords},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to locate summary row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	return f.SetColWidth(summarySheet, "B", "B", 50)
}

func (e *ExcelExporter) writeDetailed(f *excelize.File, bill *billing.Bill, headerStyle int) error {
	header := make([]interface{}, len(detailedHeaders))
	for i, h := range detailedHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(detailedSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write detailed header: %w", err)
	}

	for i, item := range bill.LineItems {
		row := []interface{}{
			i + 1,
			item.RegisteredDate.Format(invoiceDateLayout),
			item.PatientName,
			item.PatientVisitCode,
			item.TestName,
			toFloat(item.MRP),
			toFloat(item.Rate),
			toFloat(item.SharingAmount),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to locate detailed row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(detailedSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write detailed row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.CoordinatesToCellName(len(detailedHeaders), 1)
	if err != nil {
		return fmt.Errorf("failed to locate detailed header end: %w", err)
	}
	return f.SetCellStyle(detailedSheet, "A1", lastCol, headerStyle)
}

// SafeFileName turns an invoice number into a filesystem-safe name.
// Invoice numbers contain slashes, which break file paths and zip
// entry names.
func SafeFileName(invoiceNumber string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return replacer.Replace(invoiceNumber)
}

// BillExcelFileName is the xlsx artifact name for a bill
func BillExcelFileName(bill *billing.Bill) string {
	return fmt.Sprintf("bill_%s.xlsx", SafeFileName(bill.InvoiceNumber))
}

// BillPDFFileName is the pdf artifact name for a bill
func BillPDFFileName(bill *billing.Bill) string {
	return fmt.Sprintf("bill_%s.pdf", SafeFileName(bill.InvoiceNumber))
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
