package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbill/backend/internal/domain/shared/valueobject"
)

func newTestBill(t *testing.T) *Bill {
	t.Helper()
	bill, err := NewBill("City Diagnostics", CenterTypeB2B,
		time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		[]LineItem{
			{
				PatientName:   "Test Patient",
				TestName:      "CBC",
				TestType:      "Blood Test",
				MRP:           decimal.NewFromInt(500),
				Rate:          decimal.NewFromInt(400),
				SharingAmount: decimal.NewFromInt(100),
			},
			{
				PatientName:   "Another Patient",
				TestName:      "Lipid Panel",
				TestType:      "Blood Test",
				MRP:           decimal.NewFromInt(1000),
				Rate:          decimal.NewFromInt(600),
				SharingAmount: decimal.NewFromInt(400),
			},
		})
	require.NoError(t, err)
	return bill
}

func TestNewBill(t *testing.T) {
	bill := newTestBill(t)

	assert.True(t, bill.TotalMRP.Equal(decimal.NewFromInt(1500)))
	assert.True(t, bill.TotalRate.Equal(decimal.NewFromInt(1000)))
	assert.True(t, bill.TotalSharing.Equal(decimal.NewFromInt(500)))
	assert.True(t, bill.OutstandingAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, BillStatusPending, bill.Status)
	assert.Equal(t, "2025-08", bill.MonthBucket)
	assert.True(t, bill.TotalsBalance())
	assert.Len(t, bill.GetDomainEvents(), 1)
}

func TestNewBillValidation(t *testing.T) {
	items := []LineItem{{MRP: decimal.NewFromInt(100), Rate: decimal.NewFromInt(80), SharingAmount: decimal.NewFromInt(20)}}

	_, err := NewBill("", CenterTypeB2B, time.Now(), items)
	assert.Error(t, err)

	_, err = NewBill("Center", "BOGUS", time.Now(), items)
	assert.Error(t, err)

	_, err = NewBill("Center", CenterTypeB2B, time.Now(), nil)
	assert.Error(t, err)
}

func TestAssignInvoice(t *testing.T) {
	bill := newTestBill(t)

	require.NoError(t, bill.AssignInvoice("KRPL/2025-2026/08/001", "One Thousand Rupees Only"))
	assert.Equal(t, "KRPL/2025-2026/08/001", bill.InvoiceNumber)

	err := bill.AssignInvoice("KRPL/2025-2026/08/002", "whatever")
	assert.Error(t, err, "invoice number is assigned once")
}

func TestBillableAmount(t *testing.T) {
	bill := newTestBill(t)
	assert.True(t, bill.BillableAmount().Amount().Equal(decimal.NewFromInt(1000)), "B2B bills the rate total")

	hlm, err := NewBill("Rural Health", CenterTypeHLM, time.Now(), []LineItem{
		{MRP: decimal.NewFromInt(800), Rate: decimal.NewFromInt(320), SharingAmount: decimal.NewFromInt(480)},
	})
	require.NoError(t, err)
	assert.True(t, hlm.BillableAmount().Amount().Equal(decimal.NewFromInt(320)), "HLM bills the rate net of sharing")
	assert.True(t, hlm.OutstandingAmount.Equal(decimal.NewFromInt(320)), "HLM outstanding starts at the rate total")
}

func TestApplyPayment(t *testing.T) {
	bill := newTestBill(t)
	userID := uuid.New()

	err := bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(400), PaymentModeUPI, "UTR123", "", userID)
	require.NoError(t, err)
	assert.Equal(t, BillStatusPartial, bill.Status)
	assert.True(t, bill.PaidAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, bill.OutstandingAmount.Equal(decimal.NewFromInt(600)))

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(600), PaymentModeCash, "", "settled", userID)
	require.NoError(t, err)
	assert.Equal(t, BillStatusPaid, bill.Status)
	assert.True(t, bill.OutstandingAmount.IsZero())
	require.NotNil(t, bill.PaidAt)

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(1), PaymentModeCash, "", "", userID)
	assert.Error(t, err, "no payments on a paid bill")
}

func TestApplyPaymentValidation(t *testing.T) {
	bill := newTestBill(t)
	userID := uuid.New()

	err := bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(1500), PaymentModeCash, "", "", userID)
	assert.Error(t, err, "overpayment rejected")

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(0), PaymentModeCash, "", "", userID)
	assert.Error(t, err)

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(-5), PaymentModeCash, "", "", userID)
	assert.Error(t, err)

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(100), "IOU", "", "", userID)
	assert.Error(t, err)

	assert.Equal(t, BillStatusPending, bill.Status)
	assert.Empty(t, bill.PaymentRecords)
}

func TestCancelBill(t *testing.T) {
	bill := newTestBill(t)

	err := bill.Cancel("")
	assert.Error(t, err)

	require.NoError(t, bill.Cancel("duplicate upload"))
	assert.Equal(t, BillStatusCancelled, bill.Status)
	assert.Equal(t, "duplicate upload", bill.CancelReason)
	require.NotNil(t, bill.CancelledAt)

	err = bill.Cancel("again")
	assert.Error(t, err)

	err = bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(100), PaymentModeCash, "", "", uuid.New())
	assert.Error(t, err, "no payments on a cancelled bill")
}

func TestPaymentBreakdown(t *testing.T) {
	bill := newTestBill(t)
	userID := uuid.New()

	require.NoError(t, bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(200), PaymentModeUPI, "UTR1", "", userID))
	require.NoError(t, bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(300), PaymentModeUPI, "UTR2", "", userID))
	require.NoError(t, bill.ApplyPayment(valueobject.NewMoneyINRFromFloat(100), PaymentModeCash, "", "", userID))

	breakdown := bill.PaymentBreakdown()
	assert.True(t, breakdown[PaymentModeUPI].Equal(decimal.NewFromInt(500)))
	assert.True(t, breakdown[PaymentModeCash].Equal(decimal.NewFromInt(100)))
}
