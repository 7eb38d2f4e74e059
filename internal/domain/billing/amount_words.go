package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	onesWords = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}

	teensWords = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
		"Sixteen", "Seventeen", "Eighteen", "Nineteen"}

	tensWords = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountToWords renders a non-negative amount as Indian-numbering
// (lakh/crore) words, split into rupee and paise clauses and suffixed
// with "Only". At most two decimal digits are significant. A pure,
// total function; negative input is treated as zero.
func AmountToWords(amount decimal.Decimal) string {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amount = amount.Round(2)

	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).IntPart()

	var sb strings.Builder
	if rupees == 0 {
		sb.WriteString("Zero Rupees")
	} else {
		sb.WriteString(numberToWords(rupees))
		sb.WriteString(" Rupees")
	}
	if paise > 0 {
		sb.WriteString(" and ")
		sb.WriteString(numberToWords(paise))
		sb.WriteString(" Paise")
	}
	sb.WriteString(" Only")
	return sb.String()
}

// numberToWords converts a positive integer using Indian grouping:
// the last three digits, then two-digit groups for thousand, lakh and
// crore, recursing above one crore.
func numberToWords(n int64) string {
	if n == 0 {
		return "Zero"
	}

	var parts []string

	crore := n / 10000000
	n %= 10000000
	if crore > 0 {
		parts = append(parts, numberToWords(crore), "Crore")
	}

	lakh := n / 100000
	n %= 100000
	if lakh > 0 {
		parts = append(parts, twoDigitWords(lakh), "Lakh")
	}

	thousand := n / 1000
	n %= 1000
	if thousand > 0 {
		parts = append(parts, twoDigitWords(thousand), "Thousand")
	}

	hundred := n / 100
	n %= 100
	if hundred > 0 {
		parts = append(parts, onesWords[hundred], "Hundred")
	}

	if n > 0 {
		parts = append(parts, twoDigitWords(n))
	}

	return strings.Join(parts, " ")
}

func twoDigitWords(n int64) string {
	switch {
	case n < 10:
		return onesWords[n]
	case n < 20:
		return teensWords[n-10]
	default:
		word := tensWords[n/10]
		if n%10 > 0 {
			word += " " + onesWords[n%10]
		}
		return word
	}
}
