package billing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// maxInvoiceSequence is the highest sequence number before wrapping
const maxInvoiceSequence = 999

// Invoice prefixes, one per center type. Deployment-specific business
// parameters, overridable via configuration.
const (
	DefaultB2BInvoicePrefix = "KRPL"
	DefaultHLMInvoicePrefix = "MIPL"
)

// SequenceStore hands out invoice sequence numbers scoped to a
// (year, month) bucket. The sequence resets to 1 when the bucket
// changes and wraps to 1 past 999 (wrapped reports that).
// Implementations must be safe for concurrent use so invoice numbers
// never repeat within a bucket.
type SequenceStore interface {
	Next(ctx context.Context, year int, month time.Month) (seq int, wrapped bool, err error)
}

// MemorySequenceStore is a mutex-guarded in-process SequenceStore.
// Sequences do not survive a restart; deployments that need durable
// numbering use the storage-backed implementation.
type MemorySequenceStore struct {
	mu    sync.Mutex
	year  int
	month time.Month
	seq   int
}

// NewMemorySequenceStore creates an empty in-process sequence store
func NewMemorySequenceStore() *MemorySequenceStore {
	return &MemorySequenceStore{}
}

// Next returns the next sequence number for the bucket
func (s *MemorySequenceStore) Next(_ context.Context, year int, month time.Month) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if year != s.year || month != s.month {
		s.year = year
		s.month = month
		s.seq = 0
	}

	s.seq++
	if s.seq > maxInvoiceSequence {
		s.seq = 1
		return s.seq, true, nil
	}
	return s.seq, false, nil
}

// InvoiceNumberGenerator formats invoice numbers as
// {PREFIX}/{fyStart}-{fyEnd}/{MM}/{NNN}. The prefix depends on the
// center type and the fiscal year starts in April.
type InvoiceNumberGenerator struct {
	store     SequenceStore
	b2bPrefix string
	hlmPrefix string
}

// GeneratorOption configures an InvoiceNumberGenerator
type GeneratorOption func(*InvoiceNumberGenerator)

// WithB2BPrefix overrides the B2B invoice prefix
func WithB2BPrefix(prefix string) GeneratorOption {
	return func(g *InvoiceNumberGenerator) {
		if prefix != "" {
			g.b2bPrefix = prefix
		}
	}
}

// WithHLMPrefix overrides the HLM invoice prefix
func WithHLMPrefix(prefix string) GeneratorOption {
	return func(g *InvoiceNumberGenerator) {
		if prefix != "" {
			g.hlmPrefix = prefix
		}
	}
}

// NewInvoiceNumberGenerator creates a generator over the given store
func NewInvoiceNumberGenerator(store SequenceStore, opts ...GeneratorOption) *InvoiceNumberGenerator {
	g := &InvoiceNumberGenerator{
		store:     store,
		b2bPrefix: DefaultB2BInvoicePrefix,
		hlmPrefix: DefaultHLMInvoicePrefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PrefixFor returns the invoice prefix for the center type
func (g *InvoiceNumberGenerator) PrefixFor(centerType CenterType) string {
	if centerType == CenterTypeHLM {
		return g.hlmPrefix
	}
	return g.b2bPrefix
}

// Next produces the next invoice number for the center type at the
// given time. wrapped reports that the sequence rolled over past 999.
func (g *InvoiceNumberGenerator) Next(ctx context.Context, centerType CenterType, at time.Time) (number string, wrapped bool, err error) {
	seq, wrapped, err := g.store.Next(ctx, at.Year(), at.Month())
	if err != nil {
		return "", false, fmt.Errorf("next invoice sequence: %w", err)
	}

	fyStart, fyEnd := FiscalYear(at)
	number = fmt.Sprintf("%s/%d-%d/%02d/%03d", g.PrefixFor(centerType), fyStart, fyEnd, int(at.Month()), seq)
	return number, wrapped, nil
}

// FiscalYear returns the fiscal year range containing t.
// The fiscal year runs April through March.
func FiscalYear(t time.Time) (start, end int) {
	if t.Month() < time.April {
		return t.Year() - 1, t.Year()
	}
	return t.Year(), t.Year() + 1
}
