package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/domain/shared/valueobject"
)

// BillCreatedEvent is raised when a new bill is generated
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID       uuid.UUID       `json:"bill_id"`
	CenterName   string          `json:"center_name"`
	CenterType   CenterType      `json:"center_type"`
	MonthBucket  string          `json:"month_bucket"`
	TotalMRP     decimal.Decimal `json:"total_mrp"`
	TotalRate    decimal.Decimal `json:"total_rate"`
	TotalSharing decimal.Decimal `json:"total_sharing"`
	LineCount    int             `json:"line_count"`
}

// EventType returns the event type name
func (e *BillCreatedEvent) EventType() string {
	return "BillCreated"
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillCreated", "Bill", b.ID),
		BillID:          b.ID,
		CenterName:      b.CenterName,
		CenterType:      b.CenterType,
		MonthBucket:     b.MonthBucket,
		TotalMRP:        b.TotalMRP,
		TotalRate:       b.TotalRate,
		TotalSharing:    b.TotalSharing,
		LineCount:       len(b.LineItems),
	}
}

// BillPaymentRecordedEvent is raised when a partial payment is applied
type BillPaymentRecordedEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID       `json:"bill_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CenterName    string          `json:"center_name"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// EventType returns the event type name
func (e *BillPaymentRecordedEvent) EventType() string {
	return "BillPaymentRecorded"
}

// NewBillPaymentRecordedEvent creates a new BillPaymentRecordedEvent
func NewBillPaymentRecordedEvent(b *Bill, amount valueobject.Money) *BillPaymentRecordedEvent {
	return &BillPaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillPaymentRecorded", "Bill", b.ID),
		BillID:          b.ID,
		InvoiceNumber:   b.InvoiceNumber,
		CenterName:      b.CenterName,
		Amount:          amount.Amount(),
		PaidAmount:      b.PaidAmount,
		Outstanding:     b.OutstandingAmount,
	}
}

// BillPaidEvent is raised when a bill becomes fully paid
type BillPaidEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID       `json:"bill_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CenterName    string          `json:"center_name"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *BillPaidEvent) EventType() string {
	return "BillPaid"
}

// NewBillPaidEvent creates a new BillPaidEvent
func NewBillPaidEvent(b *Bill) *BillPaidEvent {
	paidAt := time.Now()
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillPaid", "Bill", b.ID),
		BillID:          b.ID,
		InvoiceNumber:   b.InvoiceNumber,
		CenterName:      b.CenterName,
		PaidAmount:      b.PaidAmount,
		PaidAt:          paidAt,
	}
}

// BillCancelledEvent is raised when a bill is cancelled
type BillCancelledEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID `json:"bill_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CenterName    string    `json:"center_name"`
	Reason        string    `json:"reason"`
}

// EventType returns the event type name
func (e *BillCancelledEvent) EventType() string {
	return "BillCancelled"
}

// NewBillCancelledEvent creates a new BillCancelledEvent
func NewBillCancelledEvent(b *Bill, reason string) *BillCancelledEvent {
	return &BillCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillCancelled", "Bill", b.ID),
		BillID:          b.ID,
		InvoiceNumber:   b.InvoiceNumber,
		CenterName:      b.CenterName,
		Reason:          reason,
	}
}
