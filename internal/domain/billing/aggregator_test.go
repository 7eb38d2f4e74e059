package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(center, tag, testType string, mrp, rate float64) TestRow {
	return TestRow{
		CenterName:       center,
		CenterTag:        tag,
		PatientName:      "Test Patient",
		PatientVisitCode: "V1001",
		TestName:         "CBC",
		TestType:         testType,
		RegisteredDate:   time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC),
		MRP:              decimal.NewFromFloat(mrp),
		CenterTestRate:   decimal.NewFromFloat(rate),
	}
}

func newTestAggregator(opts ...AggregatorOption) *Aggregator {
	gen := NewInvoiceNumberGenerator(NewMemorySequenceStore())
	return NewAggregator(gen, opts...)
}

func TestClassifyRows(t *testing.T) {
	tests := []struct {
		name        string
		tag         string
		wantType    CenterType
		wantFlagged bool
	}{
		{"exact hlm", "HLM", CenterTypeHLM, false},
		{"exact b2b", "B2B", CenterTypeB2B, false},
		{"lowercase hlm", "hlm", CenterTypeHLM, false},
		{"padded hlm", "  HLM  ", CenterTypeHLM, false},
		{"empty tag defaults to b2b", "", CenterTypeB2B, true},
		{"unknown tag defaults to b2b", "XYZ", CenterTypeB2B, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := NewDiagnostics(0)
			buckets := ClassifyRows([]TestRow{testRow("Center A", tt.tag, "Blood Test", 100, 80)}, diags)

			require.Len(t, buckets[tt.wantType], 1)
			if tt.wantFlagged {
				assert.Equal(t, 1, diags.CountByCode(DiagCodeUnrecognizedTag))
			} else {
				assert.Equal(t, 0, diags.CountByCode(DiagCodeUnrecognizedTag))
			}
		})
	}
}

func TestGroupByCenterExcludesBlankNames(t *testing.T) {
	diags := NewDiagnostics(0)
	rows := []TestRow{
		testRow("Center A", "B2B", "Blood Test", 100, 80),
		testRow("", "B2B", "Blood Test", 100, 80),
		testRow("   ", "B2B", "Blood Test", 100, 80),
	}

	groups, centers := GroupByCenter(rows, diags)

	assert.Equal(t, []string{"Center A"}, centers)
	assert.Len(t, groups["Center A"], 1)
	assert.Equal(t, 2, diags.CountByCode(DiagCodeMissingCenter))
}

func TestComputeB2BBill(t *testing.T) {
	agg := newTestAggregator()
	billDate := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

	bill, err := agg.ComputeB2BBill("City Diagnostics", []TestRow{
		testRow("City Diagnostics", "B2B", "Blood Test", 500, 400),
	}, billDate)
	require.NoError(t, err)
	require.NotNil(t, bill)

	require.Len(t, bill.LineItems, 1)
	item := bill.LineItems[0]
	assert.True(t, item.Rate.Equal(decimal.NewFromInt(400)), "rate %s", item.Rate)
	assert.True(t, item.SharingAmount.Equal(decimal.NewFromInt(100)), "sharing %s", item.SharingAmount)
	assert.Equal(t, CenterTypeB2B, bill.CenterType)
	assert.Equal(t, "2025-08", bill.MonthBucket)
	assert.True(t, bill.TotalsBalance())
}

func TestComputeB2BBillNegativeSharingPermitted(t *testing.T) {
	agg := newTestAggregator()

	bill, err := agg.ComputeB2BBill("City Diagnostics", []TestRow{
		testRow("City Diagnostics", "B2B", "Blood Test", 300, 350),
	}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, bill)

	assert.True(t, bill.LineItems[0].SharingAmount.Equal(decimal.NewFromInt(-50)))
	assert.True(t, bill.TotalsBalance())
}

func TestComputeHLMBill(t *testing.T) {
	agg := newTestAggregator()
	table, err := NewSharingTable(map[string]float64{"Blood Test": 60.0})
	require.NoError(t, err)

	bill, err := agg.ComputeHLMBill("Rural Health Center", []TestRow{
		testRow("Rural Health Center", "HLM", "Blood Test", 800, 0),
	}, table, time.Now())
	require.NoError(t, err)
	require.NotNil(t, bill)

	item := bill.LineItems[0]
	assert.True(t, item.SharingAmount.Equal(decimal.NewFromInt(480)), "sharing %s", item.SharingAmount)
	assert.True(t, item.Rate.Equal(decimal.NewFromInt(320)), "rate %s", item.Rate)
	assert.True(t, item.SharingPercent.Equal(decimal.NewFromInt(60)))
	assert.True(t, bill.TotalsBalance())
}

func TestComputeHLMBillFallbackPercent(t *testing.T) {
	t.Run("default key wins over constant", func(t *testing.T) {
		agg := newTestAggregator()
		table, err := NewSharingTable(map[string]float64{"default": 40.0})
		require.NoError(t, err)

		bill, err := agg.ComputeHLMBill("Center X", []TestRow{
			testRow("Center X", "HLM", "Unknown Panel", 100, 0),
		}, table, time.Now())
		require.NoError(t, err)
		assert.True(t, bill.LineItems[0].SharingAmount.Equal(decimal.NewFromInt(40)))
	})

	t.Run("constant when no entry and no default", func(t *testing.T) {
		agg := newTestAggregator()
		table, err := NewSharingTable(map[string]float64{"Blood Test": 60.0})
		require.NoError(t, err)

		bill, err := agg.ComputeHLMBill("Center X", []TestRow{
			testRow("Center X", "HLM", "Unknown Panel", 200, 0),
		}, table, time.Now())
		require.NoError(t, err)
		assert.True(t, bill.LineItems[0].SharingAmount.Equal(decimal.NewFromInt(110)),
			"55 percent of 200, got %s", bill.LineItems[0].SharingAmount)
	})

	t.Run("configured fallback overrides constant", func(t *testing.T) {
		agg := newTestAggregator(WithFallbackSharingPercent(decimal.NewFromInt(50)))

		bill, err := agg.ComputeHLMBill("Center X", []TestRow{
			testRow("Center X", "HLM", "Unknown Panel", 200, 0),
		}, SharingTable{}, time.Now())
		require.NoError(t, err)
		assert.True(t, bill.LineItems[0].SharingAmount.Equal(decimal.NewFromInt(100)))
	})
}

func TestComputeBillEmptyGroup(t *testing.T) {
	agg := newTestAggregator()

	bill, err := agg.ComputeB2BBill("Center X", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, bill)

	bill, err = agg.ComputeHLMBill("Center X", nil, SharingTable{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, bill)
}

func TestGenerateBills(t *testing.T) {
	agg := newTestAggregator()
	billDate := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	table, err := NewSharingTable(map[string]float64{"Blood Test": 60.0})
	require.NoError(t, err)

	rows := []TestRow{
		testRow("Alpha Labs", "B2B", "Blood Test", 500, 400),
		testRow("Alpha Labs", "B2B", "X-Ray", 1000, 700),
		testRow("Rural Health", "HLM", "Blood Test", 800, 0),
		testRow("", "B2B", "Blood Test", 100, 80),
		testRow("Beta Labs", "XYZ", "Blood Test", 250, 200),
	}

	result, err := agg.GenerateBills(context.Background(), rows, table, billDate)
	require.NoError(t, err)
	require.Len(t, result.Bills, 3)

	for _, bill := range result.Bills {
		assert.True(t, bill.TotalsBalance(), "center %s", bill.CenterName)
		assert.NotEmpty(t, bill.InvoiceNumber)
		assert.NotEmpty(t, bill.AmountInWords)
		assert.Contains(t, bill.AmountInWords, "Only")
	}

	// deterministic order: B2B centers sorted, then HLM
	assert.Equal(t, "Alpha Labs", result.Bills[0].CenterName)
	assert.Equal(t, "Beta Labs", result.Bills[1].CenterName)
	assert.Equal(t, "Rural Health", result.Bills[2].CenterName)

	// unrecognized tag routed to B2B and flagged
	assert.Equal(t, CenterTypeB2B, result.Bills[1].CenterType)
	assert.Equal(t, 1, result.Diagnostics.CountByCode(DiagCodeUnrecognizedTag))
	assert.Equal(t, 1, result.Diagnostics.CountByCode(DiagCodeMissingCenter))

	// invoice numbers are unique within the run
	seen := make(map[string]bool)
	for _, bill := range result.Bills {
		assert.False(t, seen[bill.InvoiceNumber], "duplicate invoice %s", bill.InvoiceNumber)
		seen[bill.InvoiceNumber] = true
	}
}

func TestGenerateBillsNumbersB2BBlockFirst(t *testing.T) {
	agg := newTestAggregator()
	table, err := NewSharingTable(nil)
	require.NoError(t, err)

	// the HLM center sorts before the B2B one alphabetically but the
	// B2B block is still numbered first
	rows := []TestRow{
		testRow("Zenith Diagnostics", "B2B", "Blood Test", 500, 400),
		testRow("Aarogya Clinic", "HLM", "Blood Test", 800, 0),
	}

	result, err := agg.GenerateBills(context.Background(), rows, table, time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Bills, 2)

	assert.Equal(t, "Zenith Diagnostics", result.Bills[0].CenterName)
	assert.Contains(t, result.Bills[0].InvoiceNumber, "/001")
	assert.Equal(t, "Aarogya Clinic", result.Bills[1].CenterName)
	assert.Contains(t, result.Bills[1].InvoiceNumber, "/002")
}

func TestGenerateBillsIdempotentExceptInvoiceNumbers(t *testing.T) {
	billDate := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	rows := []TestRow{
		testRow("Alpha Labs", "B2B", "Blood Test", 500, 400),
		testRow("Rural Health", "HLM", "Blood Test", 800, 0),
	}
	table, err := NewSharingTable(map[string]float64{"Blood Test": 60.0})
	require.NoError(t, err)

	run := func() *Result {
		result, err := newTestAggregator().GenerateBills(context.Background(), rows, table, billDate)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	require.Len(t, second.Bills, len(first.Bills))

	for i := range first.Bills {
		a, b := first.Bills[i], second.Bills[i]
		assert.Equal(t, a.CenterName, b.CenterName)
		assert.Equal(t, a.CenterType, b.CenterType)
		assert.Equal(t, a.LineItems, b.LineItems)
		assert.True(t, a.TotalMRP.Equal(b.TotalMRP))
		assert.True(t, a.TotalRate.Equal(b.TotalRate))
		assert.True(t, a.TotalSharing.Equal(b.TotalSharing))
		assert.Equal(t, a.AmountInWords, b.AmountInWords)
		assert.Equal(t, a.InvoiceNumber, b.InvoiceNumber, "fresh counters per run yield equal numbers")
	}
}

func TestBillTotalsBalanceAcrossPolicies(t *testing.T) {
	agg := newTestAggregator()
	table, err := NewSharingTable(map[string]float64{"Blood Test": 33.34, "default": 12.5})
	require.NoError(t, err)

	rows := []TestRow{
		testRow("C1", "HLM", "Blood Test", 999.99, 0),
		testRow("C1", "HLM", "Lipid Panel", 123.45, 0),
		testRow("C2", "B2B", "Blood Test", 500.55, 400.25),
		testRow("C2", "B2B", "MRI", 4500, 3999.99),
	}

	result, err := agg.GenerateBills(context.Background(), rows, table, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Bills, 2)

	for _, bill := range result.Bills {
		diff := bill.TotalRate.Add(bill.TotalSharing).Sub(bill.TotalMRP).Abs()
		assert.True(t, diff.LessThan(decimal.NewFromFloat(1e-6)),
			"center %s off by %s", bill.CenterName, diff)
	}
}
