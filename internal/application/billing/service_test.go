package billing

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/config"
	"github.com/medbill/backend/internal/infrastructure/export"
)

type testEnv struct {
	billRepo   *fakeBillRepo
	uploadRepo *fakeUploadRepo
	auditRepo  *fakeAuditRepo
	recorder   *auditapp.Recorder
	uploads    *UploadService
	generation *GenerationService
	payments   *PaymentService
	bills      *BillService
	dashboard  *DashboardService
	exports    *ExportService
	archive    *fakeArchive
	mailer     *fakeMailer
	email      *EmailService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	env := &testEnv{
		billRepo:   newFakeBillRepo(),
		uploadRepo: newFakeUploadRepo(),
		auditRepo:  newFakeAuditRepo(),
		archive:    newFakeArchive(),
		mailer:     &fakeMailer{},
	}
	env.recorder = auditapp.NewRecorder(env.auditRepo, logger)

	env.uploads = NewUploadService(env.uploadRepo, env.recorder, config.UploadConfig{
		Dir:     t.TempDir(),
		MaxSize: 16 << 20,
	}, logger)

	env.generation = NewGenerationService(env.uploads, env.billRepo,
		billing.NewMemorySequenceStore(), env.recorder, config.BillingConfig{
			B2BInvoicePrefix:      "KRPL",
			HLMInvoicePrefix:      "MIPL",
			DefaultSharingPercent: 55.0,
			SharingTable:          map[string]float64{"Radiology": 60.0},
		}, logger)

	env.payments = NewPaymentService(env.billRepo, env.recorder, logger)
	env.bills = NewBillService(env.billRepo, logger)
	env.dashboard = NewDashboardService(env.billRepo, logger)

	invoice, err := export.NewInvoiceTemplate()
	require.NoError(t, err)
	env.exports = NewExportService(env.billRepo, export.NewExcelExporter(), invoice,
		export.NewDisabledRenderer(), env.archive, env.recorder, logger)
	env.email = NewEmailService(env.billRepo, env.exports, env.mailer, env.recorder, logger)

	return env
}

// workbookBytes builds an xlsx with the canonical billing columns
func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{
		"CENTER NAME", "MobileNumber", "PatientName", "PatientVisitCode",
		"TEST NAME", "TEST TYPE", "RegisteredDate", "MRP", "CentreTestRate",
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func defaultRows() [][]interface{} {
	return [][]interface{}{
		{"City Diagnostics", "B2B", "Ramesh Kumar", "V-1001", "CBC", "Hematology", "2025-04-02", "500", "300"},
		{"City Diagnostics", "B2B", "Sunita Devi", "V-1002", "Lipid Profile", "Biochemistry", "2025-04-03", "900", "650"},
		{"Hope Labs", "HLM", "Arun Patel", "V-2001", "X-Ray Chest", "Radiology", "2025-04-04", "1000", "0"},
		{"Hope Labs", "HLM", "Meena Shah", "V-2002", "MRI Brain", "", "2025-04-05", "2000", "0"},
	}
}

func receiveUpload(t *testing.T, env *testEnv, rows [][]interface{}) *UploadSpreadsheetResult {
	t.Helper()
	result, err := env.uploads.Receive(context.Background(), UploadSpreadsheetInput{
		FileName:   "april_billing.xlsx",
		Size:       1024,
		Content:    bytes.NewReader(workbookBytes(t, rows)),
		UploadedBy: uuid.New(),
		Username:   "operator",
	})
	require.NoError(t, err)
	return result
}

func TestUploadReceiveValidatesAndRecords(t *testing.T) {
	env := newTestEnv(t)

	result := receiveUpload(t, env, defaultRows())

	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 0, result.DegradedRows)
	assert.Equal(t, billing.UploadStatusValidated, result.Upload.Status)
	assert.Contains(t, env.auditRepo.actions(), audit.ActionFileUploaded)
}

func TestUploadReceiveRejectsMissingColumns(t *testing.T) {
	env := newTestEnv(t)

	f := excelize.NewFile()
	header := []interface{}{"CENTER NAME", "PatientName"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	row := []interface{}{"City Diagnostics", "Ramesh"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	_, err = env.uploads.Receive(context.Background(), UploadSpreadsheetInput{
		FileName:   "bad.xlsx",
		Size:       256,
		Content:    bytes.NewReader(buf.Bytes()),
		UploadedBy: uuid.New(),
		Username:   "operator",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")

	// the rejected upload still leaves a FAILED record
	uploads, err := env.uploadRepo.FindAll(context.Background(), shared.Filter{})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, billing.UploadStatusFailed, uploads[0].Status)
}

func TestUploadReceiveRejectsWrongExtension(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.uploads.Receive(context.Background(), UploadSpreadsheetInput{
		FileName: "data.csv",
		Size:     10,
		Content:  bytes.NewReader([]byte("a,b")),
	})
	assert.Error(t, err)
}

func TestGenerateBillsSplitsByCenterAndPolicy(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())

	billDate := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID:    upload.Upload.ID,
		BillDate:    billDate,
		RequestedBy: uuid.New(),
		Username:    "operator",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.BillCount)

	byCenter := make(map[string]*billing.Bill)
	for _, b := range result.Bills {
		byCenter[b.CenterName] = b
	}

	b2b := byCenter["City Diagnostics"]
	require.NotNil(t, b2b)
	assert.Equal(t, billing.CenterTypeB2B, b2b.CenterType)
	assert.Equal(t, "KRPL/2025-2026/04/001", b2b.InvoiceNumber)
	assert.True(t, b2b.TotalRate.Equal(decimal.NewFromInt(950)))
	assert.True(t, b2b.TotalSharing.Equal(decimal.NewFromInt(450)))
	assert.True(t, b2b.TotalsBalance())

	hlm := byCenter["Hope Labs"]
	require.NotNil(t, hlm)
	assert.Equal(t, billing.CenterTypeHLM, hlm.CenterType)
	assert.Equal(t, "MIPL/2025-2026/04/002", hlm.InvoiceNumber)
	// X-Ray at 60% of 1000 plus MRI defaulted to 55% of 2000
	assert.True(t, hlm.TotalSharing.Equal(decimal.NewFromInt(1700)), hlm.TotalSharing.String())
	assert.True(t, hlm.TotalsBalance())
	assert.Equal(t, "Other", hlm.LineItems[1].TestType)

	// upload transitions to BILLED
	stored, err := env.uploadRepo.FindByID(context.Background(), upload.Upload.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.UploadStatusBilled, stored.Status)

	actions := env.auditRepo.actions()
	generated := 0
	for _, a := range actions {
		if a == audit.ActionBillGenerated {
			generated++
		}
	}
	assert.Equal(t, 2, generated)
}

func TestGenerateBillsRecordsDiagnostics(t *testing.T) {
	env := newTestEnv(t)
	rows := defaultRows()
	// blank center name, unrecognized tag, and an unparseable MRP
	rows = append(rows,
		[]interface{}{"", "B2B", "Nobody", "V-9", "CBC", "Hematology", "2025-04-06", "100", "50"},
		[]interface{}{"Edge Labs", "WHOLESALE", "Someone", "V-10", "CBC", "Hematology", "2025-04-06", "100", "50"},
		[]interface{}{"Edge Labs", "B2B", "Garbled", "V-11", "CBC", "Hematology", "2025-04-06", "not-a-number", "50"},
	)
	upload := receiveUpload(t, env, rows)

	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	codes := make(map[string]int)
	for _, d := range result.Diagnostics {
		codes[d.Code]++
	}
	assert.Equal(t, 1, codes[billing.DiagCodeMissingCenter])
	assert.Equal(t, 1, codes[billing.DiagCodeUnrecognizedTag])
	assert.Equal(t, 1, codes[billing.DiagCodeRowDegraded], "parse degradations reach the caller")
	assert.Equal(t, 3, result.DiagnosticsTotal)

	// the unrecognized tag still billed as B2B
	bill, err := env.billRepo.FindByInvoiceNumber(context.Background(), "KRPL/2025-2026/04/002")
	require.NoError(t, err)
	assert.Equal(t, "Edge Labs", bill.CenterName)
	assert.Equal(t, billing.CenterTypeB2B, bill.CenterType)
}

func TestUploadCentersPreview(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())

	all, err := env.uploads.Centers(context.Background(), upload.Upload.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"City Diagnostics", "Hope Labs"}, all.Centers)

	hlm := billing.CenterTypeHLM
	hlmOnly, err := env.uploads.Centers(context.Background(), upload.Upload.ID, &hlm)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hope Labs"}, hlmOnly.Centers)
	assert.Equal(t, "HLM", hlmOnly.CenterType)
}

func TestUploadTestTypesPreview(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())

	result, err := env.uploads.TestTypes(context.Background(), upload.Upload.ID, "Hope Labs")
	require.NoError(t, err)
	// the MRI row carries no type and prices as Other
	assert.Equal(t, []string{"Other", "Radiology"}, result.TestTypes)
}

func TestGenerateBillsForSelectedCenters(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())

	hlm := billing.CenterTypeHLM
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID:   upload.Upload.ID,
		BillDate:   time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		CenterType: &hlm,
		Centers:    []string{"Hope Labs"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.BillCount)
	assert.Equal(t, "Hope Labs", result.Bills[0].CenterName)
	assert.Equal(t, "MIPL/2025-2026/04/001", result.Bills[0].InvoiceNumber)
}

func TestGenerateBillsSelectionWithoutMatches(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())

	_, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Centers:  []string{"No Such Center"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No rows match")
}

func TestApplyPaymentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var b2b *billing.Bill
	for _, b := range result.Bills {
		if b.CenterType == billing.CenterTypeB2B {
			b2b = b
		}
	}
	require.NotNil(t, b2b)

	paid, err := env.payments.ApplyPayment(context.Background(), ApplyPaymentInput{
		BillID:     b2b.ID,
		Amount:     decimal.NewFromInt(400),
		Mode:       billing.PaymentModeUPI,
		RecordedBy: uuid.New(),
		Username:   "cashier",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPartial, paid.Status)
	assert.True(t, paid.OutstandingAmount.Equal(decimal.NewFromInt(550)))

	paid, err = env.payments.ApplyPayment(context.Background(), ApplyPaymentInput{
		BillID:     b2b.ID,
		Amount:     decimal.NewFromInt(550),
		Mode:       billing.PaymentModeCash,
		RecordedBy: uuid.New(),
		Username:   "cashier",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// terminal state refuses more payments
	_, err = env.payments.ApplyPayment(context.Background(), ApplyPaymentInput{
		BillID: b2b.ID,
		Amount: decimal.NewFromInt(1),
		Mode:   billing.PaymentModeCash,
	})
	assert.Error(t, err)

	assert.Contains(t, env.auditRepo.actions(), audit.ActionBillPaymentMade)
}

func TestApplyPaymentRetriesOnConflict(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	bill := result.Bills[0]

	env.billRepo.failLockTimes = 1
	paid, err := env.payments.ApplyPayment(context.Background(), ApplyPaymentInput{
		BillID:     bill.ID,
		Amount:     decimal.NewFromInt(100),
		Mode:       billing.PaymentModeCheque,
		Reference:  "CHQ-42",
		RecordedBy: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPartial, paid.Status)
	require.Len(t, paid.PaymentRecords, 1)
	assert.Equal(t, "CHQ-42", paid.PaymentRecords[0].Reference)
}

func TestCancelBill(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	bill := result.Bills[0]

	cancelled, err := env.payments.Cancel(context.Background(), CancelBillInput{
		BillID:      bill.ID,
		Reason:      "duplicate run",
		CancelledBy: uuid.New(),
		Username:    "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusCancelled, cancelled.Status)
	assert.Equal(t, "duplicate run", cancelled.CancelReason)

	// cancelling again fails
	_, err = env.payments.Cancel(context.Background(), CancelBillInput{
		BillID: bill.ID,
		Reason: "again",
	})
	assert.Error(t, err)
}

func TestExportExcelAndBundle(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	_, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	bills, err := env.billRepo.FindAll(context.Background(), billing.BillFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, bills)

	reqCtx := ExportRequestContext{RequestedBy: uuid.New(), Username: "operator"}

	file, err := env.exports.Excel(context.Background(), bills[0].ID, reqCtx)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, file.ContentType)
	assert.NotEmpty(t, file.Data)

	bundle, err := env.exports.Bundle(context.Background(), billing.BillFilter{}, reqCtx)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeZip, bundle.ContentType)
	assert.Contains(t, bundle.Name, "all_bills_")

	// PDF is off in the test renderer
	_, err = env.exports.PDF(context.Background(), bills[0].ID, reqCtx)
	assert.Error(t, err)

	assert.Contains(t, env.auditRepo.actions(), audit.ActionBillExported)
}

func TestExportArchive(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	bill := result.Bills[0]

	archived, err := env.exports.Archive(context.Background(), bill.ID,
		ExportRequestContext{RequestedBy: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, ArchiveKey(bill), archived.StorageKey)
	assert.Contains(t, archived.DownloadURL, archived.StorageKey)

	exists, err := env.archive.ObjectExists(context.Background(), archived.StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEmailBillFallsBackWithoutPDF(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	bill := result.Bills[0]

	err = env.email.SendBill(context.Background(), EmailBillInput{
		BillID:      bill.ID,
		Recipients:  []string{"center@example.com"},
		AttachPDF:   true,
		RequestedBy: uuid.New(),
		Username:    "operator",
	})
	require.NoError(t, err)

	require.Len(t, env.mailer.sent, 1)
	msg := env.mailer.sent[0]
	assert.Contains(t, msg.Subject, bill.InvoiceNumber)
	// renderer disabled, so only the workbook attaches
	require.Len(t, msg.Attachments, 1)
	assert.Contains(t, msg.Attachments[0].FileName, ".xlsx")
	assert.Contains(t, env.auditRepo.actions(), audit.ActionBillEmailed)
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)
	upload := receiveUpload(t, env, defaultRows())
	result, err := env.generation.Generate(context.Background(), GenerateBillsInput{
		UploadID: upload.Upload.ID,
		BillDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	summary, err := env.dashboard.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalBills)
	assert.Equal(t, int64(2), summary.PendingBills)
	// B2B rate total 950 plus HLM rate total net of sharing 1300
	assert.True(t, summary.TotalBilled.Equal(decimal.NewFromInt(2250)), summary.TotalBilled.String())
	assert.Len(t, summary.TopCenters, 2)
	assert.Len(t, summary.MonthlyTrend, 1)

	_ = result
}
