package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/domain/shared/valueobject"
	"github.com/medbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func mustMoney(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyINRFromString(amount)
	require.NoError(t, err)
	return m
}

func setupBillTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.BillModel{}, &models.UploadModel{}))
	return db
}

func makeTestBill(t *testing.T, center string, centerType billing.CenterType, invoice string, billDate time.Time) *billing.Bill {
	t.Helper()
	items := []billing.LineItem{
		{
			PatientName:      "Asha Rao",
			PatientVisitCode: "V-1001",
			TestName:         "CBC",
			TestType:         "Pathology",
			RegisteredDate:   billDate,
			MRP:              decimal.NewFromInt(500),
			Rate:             decimal.NewFromInt(400),
			SharingAmount:    decimal.NewFromInt(100),
		},
	}
	bill, err := billing.NewBill(center, centerType, billDate, items)
	require.NoError(t, err)
	require.NoError(t, bill.AssignInvoice(invoice, "Four Hundred Rupees Only"))
	return bill
}

func TestGormBillRepositorySaveAndFind(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	billDate := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	bill := makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", billDate)

	require.NoError(t, repo.Save(ctx, bill))

	found, err := repo.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "City Diagnostics", found.CenterName)
	assert.Equal(t, billing.CenterTypeB2B, found.CenterType)
	assert.Equal(t, "2025-08", found.MonthBucket)
	assert.Equal(t, billing.BillStatusPending, found.Status)
	require.Len(t, found.LineItems, 1)
	assert.Equal(t, "CBC", found.LineItems[0].TestName)
	assert.True(t, found.TotalRate.Equal(decimal.NewFromInt(400)))
	assert.True(t, found.OutstandingAmount.Equal(decimal.NewFromInt(400)))

	byInvoice, err := repo.FindByInvoiceNumber(ctx, "KRPL/2025-2026/08/001")
	require.NoError(t, err)
	assert.Equal(t, bill.ID, byInvoice.ID)
}

func TestGormBillRepositoryFindByIDNotFound(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByInvoiceNumber(context.Background(), "KRPL/2025-2026/08/999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormBillRepositoryFindAllFilters(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	aug := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	bills := []*billing.Bill{
		makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", aug),
		makeTestBill(t, "Metro Labs", billing.CenterTypeHLM, "MIPL/2025-2026/08/002", aug),
		makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/07/001", jul),
	}
	require.NoError(t, repo.SaveAll(ctx, bills))

	month := "2025-08"
	got, err := repo.FindAll(ctx, billing.BillFilter{Filter: shared.DefaultFilter(), MonthBucket: &month})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	hlm := billing.CenterTypeHLM
	got, err = repo.FindAll(ctx, billing.BillFilter{Filter: shared.DefaultFilter(), CenterType: &hlm})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Metro Labs", got[0].CenterName)

	center := "City Diagnostics"
	count, err := repo.Count(ctx, billing.BillFilter{Filter: shared.DefaultFilter(), CenterName: &center})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filter := shared.DefaultFilter()
	filter.Search = "Metro"
	got, err = repo.FindAll(ctx, billing.BillFilter{Filter: filter})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGormBillRepositorySaveWithLock(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	billDate := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	bill := makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", billDate)
	require.NoError(t, repo.Save(ctx, bill))

	// Apply a payment, version increments
	require.NoError(t, bill.ApplyPayment(
		mustMoney(t, "150.00"), billing.PaymentModeUPI, "UTR123", "", uuid.New()))
	require.NoError(t, repo.SaveWithLock(ctx, bill))

	found, err := repo.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BillStatusPartial, found.Status)
	assert.True(t, found.PaidAmount.Equal(decimal.NewFromFloat(150)))
	require.Len(t, found.PaymentRecords, 1)
	assert.Equal(t, billing.PaymentModeUPI, found.PaymentRecords[0].Mode)

	// Replaying the same version must conflict
	err = repo.SaveWithLock(ctx, bill)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestGormBillRepositorySaveWithLockNotFound(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)

	billDate := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	bill := makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", billDate)
	bill.Version = 2

	err := repo.SaveWithLock(context.Background(), bill)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormBillRepositoryDelete(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	billDate := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	bill := makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", billDate)
	require.NoError(t, repo.Save(ctx, bill))

	require.NoError(t, repo.Delete(ctx, bill.ID))
	_, err := repo.FindByID(ctx, bill.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, bill.ID), shared.ErrNotFound)
}

func TestGormBillRepositoryAggregates(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)
	ctx := context.Background()

	// MonthlyTotals windows on the current date, so the fixtures
	// anchor to it instead of a fixed month
	billDate := time.Now().UTC()

	b2b := makeTestBill(t, "City Diagnostics", billing.CenterTypeB2B, "KRPL/2025-2026/08/001", billDate)
	cancelled := makeTestBill(t, "Old Center", billing.CenterTypeB2B, "KRPL/2025-2026/08/003", billDate)
	require.NoError(t, cancelled.Cancel("duplicate upload"))

	// HLM lines carry the sharing deduction in the rate already
	hlm, err := billing.NewBill("Metro Labs", billing.CenterTypeHLM, billDate, []billing.LineItem{
		{
			PatientName:      "Ravi Menon",
			PatientVisitCode: "V-2001",
			TestName:         "MRI Brain",
			TestType:         "Radiology",
			RegisteredDate:   billDate,
			MRP:              decimal.NewFromInt(500),
			Rate:             decimal.NewFromInt(250),
			SharingAmount:    decimal.NewFromInt(250),
			SharingPercent:   decimal.NewFromInt(50),
		},
	})
	require.NoError(t, err)
	require.NoError(t, hlm.AssignInvoice("MIPL/2025-2026/08/002", "Two Hundred Fifty Rupees Only"))

	require.NoError(t, repo.SaveAll(ctx, []*billing.Bill{b2b, hlm, cancelled}))

	// billable = rate total for both center types
	total, err := repo.SumByStatus(ctx, billing.BillStatusPending)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(650)), "got %s", total)

	outstanding, err := repo.SumOutstanding(ctx)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(650)), "got %s", outstanding)

	centers, err := repo.TopCenters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, centers, 2)
	assert.Equal(t, "City Diagnostics", centers[0].CenterName)
	assert.True(t, centers[0].Total.Equal(decimal.NewFromInt(400)))

	monthly, err := repo.MonthlyTotals(ctx, 3)
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	assert.Equal(t, billDate.Format("2006-01"), monthly[0].MonthBucket)
	assert.Equal(t, int64(2), monthly[0].BillCount)
}

func TestGormBillRepositorySumByStatusEmpty(t *testing.T) {
	db := setupBillTestDB(t)
	repo := NewGormBillRepository(db)

	total, err := repo.SumByStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
