package billing

import "strings"

// CenterType discriminates the two pricing policies a diagnostic
// center can be billed under.
type CenterType string

const (
	// CenterTypeB2B bills a center at its pre-negotiated flat rate per test.
	CenterTypeB2B CenterType = "B2B"
	// CenterTypeHLM bills a referral/franchise center via a
	// percentage-of-MRP sharing formula per test type.
	CenterTypeHLM CenterType = "HLM"
)

// IsValid checks if the center type is one of the known values
func (t CenterType) IsValid() bool {
	return t == CenterTypeB2B || t == CenterTypeHLM
}

func (t CenterType) String() string {
	return string(t)
}

// ParseCenterTag normalizes a raw center-type tag (trim, uppercase)
// and maps it to a CenterType. Anything that is not "HLM" or "B2B"
// falls back to B2B; recognized reports whether the tag matched one
// of the known values so callers can audit defaulted rows.
func ParseCenterTag(tag string) (centerType CenterType, recognized bool) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "HLM":
		return CenterTypeHLM, true
	case "B2B":
		return CenterTypeB2B, true
	default:
		return CenterTypeB2B, false
	}
}
