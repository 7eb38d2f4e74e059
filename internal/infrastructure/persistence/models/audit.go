package models

import (
	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/audit"
)

// AuditLogModel is the persistence model for audit trail entries.
// Rows are append-only; there is no update path.
type AuditLogModel struct {
	BaseModel
	UserID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	Username string       `gorm:"type:varchar(100);not null"`
	Action   audit.Action `gorm:"type:varchar(50);not null;index"`
	BillID   *uuid.UUID   `gorm:"type:uuid;index"`
	Details  string       `gorm:"type:text"`
	IP       string       `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain Entry
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		Username:   m.Username,
		Action:     m.Action,
		BillID:     m.BillID,
		Details:    m.Details,
		IP:         m.IP,
	}
}

// FromDomain populates the persistence model from a domain Entry
func (m *AuditLogModel) FromDomain(e *audit.Entry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.UserID = e.UserID
	m.Username = e.Username
	m.Action = e.Action
	m.BillID = e.BillID
	m.Details = e.Details
	m.IP = e.IP
}

// AuditLogModelFromDomain creates a new persistence model from a domain Entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	m := &AuditLogModel{}
	m.FromDomain(e)
	return m
}
