package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/medbill/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// maxInvoiceSequence mirrors the domain sequence cap of 999 per month
const maxInvoiceSequence = 999

// PostgresSequenceStore is a durable billing.SequenceStore. One row
// per (year, month) holds an ever-increasing counter; the upsert
// increments it atomically so concurrent generation runs never see
// the same value. The presented sequence wraps past 999 while the
// counter keeps growing, which is how the wrap is detected.
type PostgresSequenceStore struct {
	db *gorm.DB
}

// NewPostgresSequenceStore creates a durable sequence store
func NewPostgresSequenceStore(db *gorm.DB) *PostgresSequenceStore {
	return &PostgresSequenceStore{db: db}
}

// Next returns the next invoice sequence for the (year, month) bucket
func (s *PostgresSequenceStore) Next(ctx context.Context, year int, month time.Month) (int, bool, error) {
	var counter int
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (year, month, last_seq, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (year, month)
		 DO UPDATE SET last_seq = invoice_sequences.last_seq + 1, updated_at = EXCLUDED.updated_at
		 RETURNING last_seq`,
		year, int(month), time.Now(),
	).Scan(&counter).Error
	if err != nil {
		return 0, false, fmt.Errorf("next invoice sequence for %d-%02d: %w", year, month, err)
	}

	seq := ((counter - 1) % maxInvoiceSequence) + 1
	wrapped := counter > maxInvoiceSequence && seq == 1
	return seq, wrapped, nil
}

// Ensure PostgresSequenceStore implements SequenceStore
var _ billing.SequenceStore = (*PostgresSequenceStore)(nil)
