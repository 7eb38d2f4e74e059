package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate.
// Line items and payment records live inside the row as JSONB; they
// are value objects owned by the bill and never queried on their own.
type BillModel struct {
	AggregateModel
	InvoiceNumber     string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	CenterName        string                 `gorm:"type:varchar(200);not null;index"`
	CenterType        billing.CenterType     `gorm:"type:varchar(10);not null;index"`
	MonthBucket       string                 `gorm:"type:varchar(7);not null;index"`
	BillDate          time.Time              `gorm:"not null;index"`
	LineItems         billing.LineItems      `gorm:"type:jsonb;not null;default:'[]'"`
	TotalMRP          decimal.Decimal        `gorm:"type:decimal(14,2);not null"`
	TotalRate         decimal.Decimal        `gorm:"type:decimal(14,2);not null"`
	TotalSharing      decimal.Decimal        `gorm:"type:decimal(14,2);not null"`
	AmountInWords     string                 `gorm:"type:text"`
	Status            billing.BillStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaidAmount        decimal.Decimal        `gorm:"type:decimal(14,2);not null;default:0"`
	OutstandingAmount decimal.Decimal        `gorm:"type:decimal(14,2);not null;default:0"`
	PaymentRecords    billing.PaymentRecords `gorm:"type:jsonb;not null;default:'[]'"`
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CancelReason      string    `gorm:"type:text"`
	UploadID          uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *billing.Bill {
	b := &billing.Bill{
		InvoiceNumber:     m.InvoiceNumber,
		CenterName:        m.CenterName,
		CenterType:        m.CenterType,
		MonthBucket:       m.MonthBucket,
		BillDate:          m.BillDate,
		LineItems:         m.LineItems,
		TotalMRP:          m.TotalMRP,
		TotalRate:         m.TotalRate,
		TotalSharing:      m.TotalSharing,
		AmountInWords:     m.AmountInWords,
		Status:            m.Status,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.OutstandingAmount,
		PaymentRecords:    m.PaymentRecords,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		UploadID:          m.UploadID,
	}
	m.PopulateAggregateRoot(&b.BaseAggregateRoot)
	return b
}

// FromDomain populates the persistence model from a domain Bill
func (m *BillModel) FromDomain(b *billing.Bill) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.InvoiceNumber = b.InvoiceNumber
	m.CenterName = b.CenterName
	m.CenterType = b.CenterType
	m.MonthBucket = b.MonthBucket
	m.BillDate = b.BillDate
	m.LineItems = b.LineItems
	m.TotalMRP = b.TotalMRP
	m.TotalRate = b.TotalRate
	m.TotalSharing = b.TotalSharing
	m.AmountInWords = b.AmountInWords
	m.Status = b.Status
	m.PaidAmount = b.PaidAmount
	m.OutstandingAmount = b.OutstandingAmount
	m.PaymentRecords = b.PaymentRecords
	m.PaidAt = b.PaidAt
	m.CancelledAt = b.CancelledAt
	m.CancelReason = b.CancelReason
	m.UploadID = b.UploadID
}

// BillModelFromDomain creates a new persistence model from a domain Bill
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}

// UploadModel is the persistence model for the Upload aggregate
type UploadModel struct {
	AggregateModel
	FileName     string               `gorm:"type:varchar(300);not null"`
	StoredPath   string               `gorm:"type:varchar(500);not null"`
	SizeBytes    int64                `gorm:"not null"`
	TotalRows    int                  `gorm:"not null;default:0"`
	DegradedRows int                  `gorm:"not null;default:0"`
	Status       billing.UploadStatus `gorm:"type:varchar(20);not null;index"`
	FailReason   string               `gorm:"type:text"`
	UploadedBy   uuid.UUID            `gorm:"type:uuid;not null;index"`
	UploadedAt   time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (UploadModel) TableName() string {
	return "uploads"
}

// ToDomain converts the persistence model to a domain Upload
func (m *UploadModel) ToDomain() *billing.Upload {
	u := &billing.Upload{
		FileName:     m.FileName,
		StoredPath:   m.StoredPath,
		SizeBytes:    m.SizeBytes,
		TotalRows:    m.TotalRows,
		DegradedRows: m.DegradedRows,
		Status:       m.Status,
		FailReason:   m.FailReason,
		UploadedBy:   m.UploadedBy,
		UploadedAt:   m.UploadedAt,
	}
	m.PopulateAggregateRoot(&u.BaseAggregateRoot)
	return u
}

// FromDomain populates the persistence model from a domain Upload
func (m *UploadModel) FromDomain(u *billing.Upload) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.FileName = u.FileName
	m.StoredPath = u.StoredPath
	m.SizeBytes = u.SizeBytes
	m.TotalRows = u.TotalRows
	m.DegradedRows = u.DegradedRows
	m.Status = u.Status
	m.FailReason = u.FailReason
	m.UploadedBy = u.UploadedBy
	m.UploadedAt = u.UploadedAt
}

// UploadModelFromDomain creates a new persistence model from a domain Upload
func UploadModelFromDomain(u *billing.Upload) *UploadModel {
	m := &UploadModel{}
	m.FromDomain(u)
	return m
}

// InvoiceSequenceModel tracks the last issued invoice sequence per
// billing month. One row per (year, month); incremented atomically.
type InvoiceSequenceModel struct {
	Year      int       `gorm:"primaryKey;autoIncrement:false"`
	Month     int       `gorm:"primaryKey;autoIncrement:false"`
	LastSeq   int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
