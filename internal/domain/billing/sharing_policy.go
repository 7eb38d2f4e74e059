package billing

import (
	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/shared"
)

// DefaultSharingPercent is the fallback sharing percentage applied to
// HLM rows whose test type has no entry in the sharing table and no
// "default" key is configured. A deployment-specific business
// parameter, overridable via configuration.
const DefaultSharingPercent = 55.0

// SharingTableDefaultKey supplies the fallback percentage for test
// types absent from an HLM sharing table.
const SharingTableDefaultKey = "default"

// SharingTable maps HLM test types to sharing percentages in [0,100].
type SharingTable map[string]decimal.Decimal

// NewSharingTable builds a SharingTable from float percentages,
// rejecting values outside [0,100].
func NewSharingTable(percents map[string]float64) (SharingTable, error) {
	table := make(SharingTable, len(percents))
	for testType, pct := range percents {
		if pct < 0 || pct > 100 {
			return nil, shared.NewDomainError("INVALID_SHARING_PERCENT",
				"sharing percentage must be between 0 and 100")
		}
		table[testType] = decimal.NewFromFloat(pct)
	}
	return table, nil
}

// PercentFor resolves the sharing percentage for a test type:
// exact entry, then the "default" key, then the fallback constant.
func (t SharingTable) PercentFor(testType string, fallback decimal.Decimal) decimal.Decimal {
	if pct, ok := t[testType]; ok {
		return pct
	}
	if pct, ok := t[SharingTableDefaultKey]; ok {
		return pct
	}
	return fallback
}
