package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/domain/shared/valueobject"
)

// BillStatus represents the payment status of a bill
type BillStatus string

const (
	BillStatusPending   BillStatus = "PENDING"   // Unpaid, outstanding balance > 0
	BillStatusPartial   BillStatus = "PARTIAL"   // Partially paid, 0 < outstanding < total
	BillStatusPaid      BillStatus = "PAID"      // Fully paid, outstanding = 0
	BillStatusCancelled BillStatus = "CANCELLED" // Cancelled before full payment
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusPending, BillStatusPartial, BillStatusPaid, BillStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the bill is in a terminal state
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusPaid || s == BillStatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status
func (s BillStatus) CanApplyPayment() bool {
	return s == BillStatusPending || s == BillStatusPartial
}

// PaymentMode identifies how a payment was received
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeCheque       PaymentMode = "CHEQUE"
)

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeBankTransfer, PaymentModeCheque:
		return true
	}
	return false
}

// PaymentRecord represents a payment applied to a bill.
// A value object within the Bill aggregate, stored as JSONB.
type PaymentRecord struct {
	ID         uuid.UUID       `json:"id"`
	Mode       PaymentMode     `json:"mode"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	Remark     string          `json:"remark,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
}

// PaymentRecords is a slice of PaymentRecord implementing GORM Scanner/Valuer for JSONB storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// LineItem is one billed test within a Bill. Owned exclusively by the
// Bill that contains it.
type LineItem struct {
	PatientName      string          `json:"patient_name"`
	PatientVisitCode string          `json:"patient_visit_code"`
	TestName         string          `json:"test_name"`
	TestType         string          `json:"test_type"`
	RegisteredDate   time.Time       `json:"registered_date"`
	MRP              decimal.Decimal `json:"mrp"`
	Rate             decimal.Decimal `json:"rate"`
	SharingAmount    decimal.Decimal `json:"sharing_amount"`
	// SharingPercent is set only for HLM lines.
	SharingPercent decimal.Decimal `json:"sharing_percent"`
}

// LineItems implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Bill is one invoice for one diagnostic center produced by an
// aggregation run. Line items and totals are immutable after
// creation; only the attached payment state changes afterwards.
type Bill struct {
	shared.BaseAggregateRoot
	InvoiceNumber string     `json:"invoice_number"`
	CenterName    string     `json:"center_name"`
	CenterType    CenterType `json:"center_type"`
	// MonthBucket is the billing period in YYYY-MM form.
	MonthBucket       string          `json:"month_bucket"`
	BillDate          time.Time       `json:"bill_date"`
	LineItems         LineItems       `json:"line_items"`
	TotalMRP          decimal.Decimal `json:"total_mrp"`
	TotalRate         decimal.Decimal `json:"total_rate"`
	TotalSharing      decimal.Decimal `json:"total_sharing"`
	AmountInWords     string          `json:"amount_in_words"`
	Status            BillStatus      `json:"status"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	PaymentRecords    PaymentRecords  `json:"payment_records"`
	PaidAt            *time.Time      `json:"paid_at"`
	CancelledAt       *time.Time      `json:"cancelled_at"`
	CancelReason      string          `json:"cancel_reason"`
	// UploadID links the bill back to the spreadsheet it was generated from.
	UploadID uuid.UUID `json:"upload_id"`
}

// NewBill creates a bill for one center from its computed line items.
// Totals are summed here so they cannot drift from the lines.
func NewBill(centerName string, centerType CenterType, billDate time.Time, items []LineItem) (*Bill, error) {
	if centerName == "" {
		return nil, shared.NewDomainError("INVALID_CENTER_NAME", "Center name cannot be empty")
	}
	if !centerType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CENTER_TYPE", "Center type is not valid")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_BILL", "Bill must contain at least one line item")
	}

	totalMRP := decimal.Zero
	totalRate := decimal.Zero
	totalSharing := decimal.Zero
	for _, item := range items {
		totalMRP = totalMRP.Add(item.MRP)
		totalRate = totalRate.Add(item.Rate)
		totalSharing = totalSharing.Add(item.SharingAmount)
	}

	// the center owes the rate total; under HLM the per-line rate is
	// already MRP minus the sharing cut
	outstanding := totalRate

	b := &Bill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CenterName:        centerName,
		CenterType:        centerType,
		MonthBucket:       billDate.Format("2006-01"),
		BillDate:          billDate,
		LineItems:         items,
		TotalMRP:          totalMRP,
		TotalRate:         totalRate,
		TotalSharing:      totalSharing,
		Status:            BillStatusPending,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: outstanding,
		PaymentRecords:    PaymentRecords{},
	}

	b.AddDomainEvent(NewBillCreatedEvent(b))

	return b, nil
}

// AssignInvoice attaches the generated invoice number and its
// amount-in-words rendering. Done once, after aggregation.
func (b *Bill) AssignInvoice(number, amountInWords string) error {
	if b.InvoiceNumber != "" {
		return shared.NewDomainError("INVOICE_ALREADY_ASSIGNED", "Bill already has an invoice number")
	}
	if number == "" {
		return shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	b.InvoiceNumber = number
	b.AmountInWords = amountInWords
	return nil
}

// TotalsBalance verifies totalRate + totalSharing == totalMRP.
// Holds by construction for both pricing policies.
func (b *Bill) TotalsBalance() bool {
	return b.TotalRate.Add(b.TotalSharing).Equal(b.TotalMRP)
}

// BillableAmount is the amount owed to the billing party for this
// bill. The rate total carries the HLM sharing deduction per line,
// so it is the billable figure for both center types.
func (b *Bill) BillableAmount() valueobject.Money {
	return valueobject.NewMoneyINR(b.TotalRate)
}

// ApplyPayment applies a payment to the bill.
// Returns error if the payment exceeds the outstanding amount or the
// bill is in a terminal state.
func (b *Bill) ApplyPayment(amount valueobject.Money, mode PaymentMode, reference, remark string, recordedBy uuid.UUID) error {
	if !b.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to bill in %s status", b.Status))
	}
	if !mode.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode is not valid")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(b.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s",
				amount.Amount().StringFixed(2), b.OutstandingAmount.StringFixed(2)))
	}

	b.PaymentRecords = append(b.PaymentRecords, PaymentRecord{
		ID:         uuid.New(),
		Mode:       mode,
		Amount:     amount.Amount(),
		Reference:  reference,
		Remark:     remark,
		ReceivedAt: time.Now(),
		RecordedBy: recordedBy,
	})

	b.PaidAmount = b.PaidAmount.Add(amount.Amount())
	b.OutstandingAmount = b.OutstandingAmount.Sub(amount.Amount())

	if b.OutstandingAmount.IsZero() {
		now := time.Now()
		b.Status = BillStatusPaid
		b.PaidAt = &now
		b.AddDomainEvent(NewBillPaidEvent(b))
	} else {
		b.Status = BillStatusPartial
		b.AddDomainEvent(NewBillPaymentRecordedEvent(b, amount))
	}

	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// Cancel cancels the bill before full payment
func (b *Bill) Cancel(reason string) error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel bill in %s status", b.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	b.Status = BillStatusCancelled
	b.CancelledAt = &now
	b.CancelReason = reason
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBillCancelledEvent(b, reason))

	return nil
}

// PaymentBreakdown returns the paid amount per payment mode
func (b *Bill) PaymentBreakdown() map[PaymentMode]decimal.Decimal {
	breakdown := make(map[PaymentMode]decimal.Decimal)
	for _, rec := range b.PaymentRecords {
		breakdown[rec.Mode] = breakdown[rec.Mode].Add(rec.Amount)
	}
	return breakdown
}
