package billing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTestType is assigned to rows with a blank test type
const DefaultTestType = "Other"

// Aggregator turns classified test rows into per-center bills. A
// stateless single-pass transform; the invoice sequence is the only
// shared state and lives behind the generator passed in explicitly.
type Aggregator struct {
	generator       *InvoiceNumberGenerator
	fallbackPercent decimal.Decimal
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithFallbackSharingPercent overrides the constant applied when an
// HLM sharing table has neither a test-type entry nor a default key.
func WithFallbackSharingPercent(pct decimal.Decimal) AggregatorOption {
	return func(a *Aggregator) {
		a.fallbackPercent = pct
	}
}

// NewAggregator creates an aggregator that numbers bills through the
// given generator.
func NewAggregator(generator *InvoiceNumberGenerator, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		generator:       generator,
		fallbackPercent: decimal.NewFromFloat(DefaultSharingPercent),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ClassifyRows buckets rows by center type from their tag column.
// Unrecognized tags fall into the B2B bucket and are recorded in
// diags so callers can audit the defaulting.
func ClassifyRows(rows []TestRow, diags *Diagnostics) map[CenterType][]TestRow {
	buckets := make(map[CenterType][]TestRow)
	for _, row := range rows {
		centerType, recognized := ParseCenterTag(row.CenterTag)
		if !recognized {
			diags.AddUnrecognizedTag(row.SourceLine, row.CenterTag)
		}
		buckets[centerType] = append(buckets[centerType], row)
	}
	return buckets
}

// GroupByCenter groups rows by center name, excluding rows whose
// center name is blank (recorded in diags). Center order is sorted
// for deterministic output.
func GroupByCenter(rows []TestRow, diags *Diagnostics) (map[string][]TestRow, []string) {
	groups := make(map[string][]TestRow)
	for _, row := range rows {
		if !row.HasCenter() {
			diags.AddMissingCenter(row.SourceLine)
			continue
		}
		name := strings.TrimSpace(row.CenterName)
		groups[name] = append(groups[name], row)
	}

	centers := make([]string, 0, len(groups))
	for name := range groups {
		centers = append(centers, name)
	}
	sort.Strings(centers)
	return groups, centers
}

// ComputeB2BBill builds a bill for one B2B center. Rate is the
// negotiated rate taken verbatim; sharing = MRP - rate, which may go
// negative when the rate exceeds MRP.
func (a *Aggregator) ComputeB2BBill(centerName string, rows []TestRow, billDate time.Time) (*Bill, error) {
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, LineItem{
			PatientName:      row.PatientName,
			PatientVisitCode: row.PatientVisitCode,
			TestName:         row.TestName,
			TestType:         normalizeTestType(row.TestType),
			RegisteredDate:   row.RegisteredDate,
			MRP:              row.MRP,
			Rate:             row.CenterTestRate,
			SharingAmount:    row.MRP.Sub(row.CenterTestRate),
		})
	}
	if len(items) == 0 {
		return nil, nil
	}
	return NewBill(centerName, CenterTypeB2B, billDate, items)
}

// ComputeHLMBill builds a bill for one HLM center. Sharing is a
// percentage of MRP resolved per test type from the table; rate is
// the remainder.
func (a *Aggregator) ComputeHLMBill(centerName string, rows []TestRow, table SharingTable, billDate time.Time) (*Bill, error) {
	hundred := decimal.NewFromInt(100)
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		testType := normalizeTestType(row.TestType)
		pct := table.PercentFor(testType, a.fallbackPercent)
		sharing := row.MRP.Mul(pct).Div(hundred)
		items = append(items, LineItem{
			PatientName:      row.PatientName,
			PatientVisitCode: row.PatientVisitCode,
			TestName:         row.TestName,
			TestType:         testType,
			RegisteredDate:   row.RegisteredDate,
			MRP:              row.MRP,
			Rate:             row.MRP.Sub(sharing),
			SharingAmount:    sharing,
			SharingPercent:   pct,
		})
	}
	if len(items) == 0 {
		return nil, nil
	}
	return NewBill(centerName, CenterTypeHLM, billDate, items)
}

// Result carries the bills produced by one aggregation run together
// with the diagnostic trail of everything that was absorbed on the way.
type Result struct {
	Bills       []*Bill
	Diagnostics *Diagnostics
}

// GenerateBills runs the full aggregation: classify by center type,
// group by center, compute one bill per center under the matching
// pricing policy, then assign invoice numbers and words. Centers with
// no valid rows simply produce no bill.
func (a *Aggregator) GenerateBills(ctx context.Context, rows []TestRow, table SharingTable, billDate time.Time) (*Result, error) {
	diags := NewDiagnostics(0)
	buckets := ClassifyRows(rows, diags)

	var bills []*Bill

	b2bGroups, b2bCenters := GroupByCenter(buckets[CenterTypeB2B], diags)
	for _, center := range b2bCenters {
		bill, err := a.ComputeB2BBill(center, b2bGroups[center], billDate)
		if err != nil {
			return nil, err
		}
		if bill != nil {
			bills = append(bills, bill)
		}
	}

	hlmGroups, hlmCenters := GroupByCenter(buckets[CenterTypeHLM], diags)
	for _, center := range hlmCenters {
		bill, err := a.ComputeHLMBill(center, hlmGroups[center], table, billDate)
		if err != nil {
			return nil, err
		}
		if bill != nil {
			bills = append(bills, bill)
		}
	}

	for _, bill := range bills {
		number, wrapped, err := a.generator.Next(ctx, bill.CenterType, billDate)
		if err != nil {
			return nil, err
		}
		if wrapped {
			diags.AddSequenceWrapped(a.generator.PrefixFor(bill.CenterType))
		}
		if err := bill.AssignInvoice(number, AmountToWords(bill.TotalRate)); err != nil {
			return nil, err
		}
	}

	return &Result{Bills: bills, Diagnostics: diags}, nil
}

func normalizeTestType(testType string) string {
	t := strings.TrimSpace(testType)
	if t == "" {
		return DefaultTestType
	}
	return t
}
