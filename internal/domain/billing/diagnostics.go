package billing

import "fmt"

// Diagnostic codes emitted during an aggregation run
const (
	DiagCodeRowDegraded      = "ROW_DEGRADED"
	DiagCodeUnrecognizedTag  = "UNRECOGNIZED_CENTER_TAG"
	DiagCodeMissingCenter    = "MISSING_CENTER_NAME"
	DiagCodeSequenceWrapped  = "INVOICE_SEQUENCE_WRAPPED"
	DiagCodeEmptyCenterGroup = "EMPTY_CENTER_GROUP"
)

// Diagnostic records a non-fatal condition absorbed during an
// aggregation run. The run continues; callers audit these afterwards.
type Diagnostic struct {
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d [%s]: %s", d.Line, d.Code, d.Message)
	}
	return fmt.Sprintf("[%s]: %s", d.Code, d.Message)
}

// Diagnostics collects run diagnostics with a cap on retained entries.
// The total count keeps incrementing past the cap so callers still see
// the real magnitude.
type Diagnostics struct {
	entries    []Diagnostic
	maxEntries int
	totalCount int
}

// NewDiagnostics creates a collector retaining at most maxEntries
func NewDiagnostics(maxEntries int) *Diagnostics {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Diagnostics{
		entries:    make([]Diagnostic, 0),
		maxEntries: maxEntries,
	}
}

// Add records a diagnostic
func (d *Diagnostics) Add(diag Diagnostic) {
	d.totalCount++
	if len(d.entries) < d.maxEntries {
		d.entries = append(d.entries, diag)
	}
}

// AddRowDegraded records a numeric/date cell coerced to its zero value
func (d *Diagnostics) AddRowDegraded(line int, column, value string) {
	d.Add(Diagnostic{
		Code:    DiagCodeRowDegraded,
		Line:    line,
		Column:  column,
		Value:   value,
		Message: fmt.Sprintf("unparseable value in '%s', coerced to zero", column),
	})
}

// AddUnrecognizedTag records a center-type tag defaulted to B2B
func (d *Diagnostics) AddUnrecognizedTag(line int, value string) {
	d.Add(Diagnostic{
		Code:    DiagCodeUnrecognizedTag,
		Line:    line,
		Value:   value,
		Message: fmt.Sprintf("center-type tag %q not recognized, defaulted to B2B", value),
	})
}

// AddMissingCenter records a row excluded for lacking a center name
func (d *Diagnostics) AddMissingCenter(line int) {
	d.Add(Diagnostic{
		Code:    DiagCodeMissingCenter,
		Line:    line,
		Message: "row has no center name and was excluded from all bills",
	})
}

// AddSequenceWrapped records an invoice sequence wrapping past its cap
func (d *Diagnostics) AddSequenceWrapped(prefix string) {
	d.Add(Diagnostic{
		Code:    DiagCodeSequenceWrapped,
		Value:   prefix,
		Message: "invoice sequence exceeded 999 and wrapped to 1",
	})
}

// Merge folds another collector into this one. Retained entries
// append up to the cap; the total count carries over in full.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	for _, entry := range other.entries {
		if len(d.entries) < d.maxEntries {
			d.entries = append(d.entries, entry)
		}
	}
	d.totalCount += other.totalCount
}

// Entries returns the retained diagnostics
func (d *Diagnostics) Entries() []Diagnostic {
	return d.entries
}

// TotalCount returns the total recorded count including dropped entries
func (d *Diagnostics) TotalCount() int {
	return d.totalCount
}

// CountByCode returns how many retained diagnostics carry the given code
func (d *Diagnostics) CountByCode(code string) int {
	n := 0
	for _, e := range d.entries {
		if e.Code == code {
			n++
		}
	}
	return n
}

// IsTruncated reports whether some entries were dropped at the cap
func (d *Diagnostics) IsTruncated() bool {
	return d.totalCount > d.maxEntries
}

// HasAny reports whether anything was recorded
func (d *Diagnostics) HasAny() bool {
	return d.totalCount > 0
}
