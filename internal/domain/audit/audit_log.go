package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbill/backend/internal/domain/shared"
)

// Action identifies what was done to a record
type Action string

const (
	ActionBillGenerated   Action = "BILL_GENERATED"
	ActionBillPaymentMade Action = "BILL_PAYMENT_RECORDED"
	ActionBillCancelled   Action = "BILL_CANCELLED"
	ActionBillEmailed     Action = "BILL_EMAILED"
	ActionBillExported    Action = "BILL_EXPORTED"
	ActionFileUploaded    Action = "FILE_UPLOADED"
	ActionUserCreated     Action = "USER_CREATED"
	ActionUserUpdated     Action = "USER_UPDATED"
	ActionUserDeleted     Action = "USER_DELETED"
	ActionLogin           Action = "LOGIN"
	ActionLogout          Action = "LOGOUT"
)

// Entry is one immutable audit trail record
type Entry struct {
	shared.BaseEntity
	UserID   uuid.UUID  `json:"user_id"`
	Username string     `json:"username"`
	Action   Action     `json:"action"`
	BillID   *uuid.UUID `json:"bill_id,omitempty"`
	Details  string     `json:"details,omitempty"`
	IP       string     `json:"ip,omitempty"`
}

// NewEntry creates an audit entry
func NewEntry(userID uuid.UUID, username string, action Action) (*Entry, error) {
	if action == "" {
		return nil, shared.NewDomainError("INVALID_AUDIT_ACTION", "Audit action cannot be empty")
	}
	return &Entry{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Username:   username,
		Action:     action,
	}, nil
}

// WithBill links the entry to a bill
func (e *Entry) WithBill(billID uuid.UUID) *Entry {
	e.BillID = &billID
	return e
}

// WithDetails attaches free-form details
func (e *Entry) WithDetails(details string) *Entry {
	e.Details = details
	return e
}

// WithIP records the caller address
func (e *Entry) WithIP(ip string) *Entry {
	e.IP = ip
	return e
}

// Filter defines filtering options for audit queries
type Filter struct {
	shared.Filter
	UserID   *uuid.UUID
	BillID   *uuid.UUID
	Action   *Action
	FromDate *time.Time
	ToDate   *time.Time
}

// Repository defines the interface for audit log persistence
type Repository interface {
	// Save appends an entry to the trail
	Save(ctx context.Context, entry *Entry) error

	// FindAll finds entries matching the filter, newest first
	FindAll(ctx context.Context, filter Filter) ([]Entry, error)

	// Count counts entries matching the filter
	Count(ctx context.Context, filter Filter) (int64, error)
}
