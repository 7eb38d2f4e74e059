package billing

import (
	"sort"
	"strings"
)

// Selection narrows one generation run to part of an upload. The
// operator first previews the centers of one type, then generates for
// a chosen subset; an empty selection bills the whole upload.
type Selection struct {
	// CenterType restricts the run to rows classified under one
	// pricing policy when non-nil.
	CenterType *CenterType
	// Centers restricts the run to the named centers when non-empty.
	// Names match case-insensitively after trimming.
	Centers []string
}

// IsZero reports whether the selection places no restriction.
func (s Selection) IsZero() bool {
	return s.CenterType == nil && len(s.Centers) == 0
}

// Apply returns the rows the selection admits. Rows with unrecognized
// tags classify as B2B here exactly as they do during aggregation.
func (s Selection) Apply(rows []TestRow) []TestRow {
	if s.IsZero() {
		return rows
	}

	wanted := make(map[string]bool, len(s.Centers))
	for _, name := range s.Centers {
		wanted[canonicalCenter(name)] = true
	}

	var selected []TestRow
	for _, row := range rows {
		if s.CenterType != nil {
			centerType, _ := ParseCenterTag(row.CenterTag)
			if centerType != *s.CenterType {
				continue
			}
		}
		if len(wanted) > 0 && !wanted[canonicalCenter(row.CenterName)] {
			continue
		}
		selected = append(selected, row)
	}
	return selected
}

// ListCenters returns the sorted distinct center names in the rows,
// restricted to one center type when given. Blank names are skipped.
func ListCenters(rows []TestRow, centerType *CenterType) []string {
	seen := make(map[string]string)
	for _, row := range rows {
		if !row.HasCenter() {
			continue
		}
		if centerType != nil {
			rowType, _ := ParseCenterTag(row.CenterTag)
			if rowType != *centerType {
				continue
			}
		}
		name := strings.TrimSpace(row.CenterName)
		if _, ok := seen[canonicalCenter(name)]; !ok {
			seen[canonicalCenter(name)] = name
		}
	}

	centers := make([]string, 0, len(seen))
	for _, name := range seen {
		centers = append(centers, name)
	}
	sort.Strings(centers)
	return centers
}

// ListTestTypes returns the sorted distinct test types appearing in
// the named center's rows. Blank types report as the default type,
// matching how aggregation prices them.
func ListTestTypes(rows []TestRow, centerName string) []string {
	want := canonicalCenter(centerName)
	seen := make(map[string]bool)
	for _, row := range rows {
		if canonicalCenter(row.CenterName) != want {
			continue
		}
		seen[normalizeTestType(row.TestType)] = true
	}

	types := make([]string, 0, len(seen))
	for name := range seen {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

func canonicalCenter(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
