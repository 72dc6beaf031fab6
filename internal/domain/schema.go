package domain

import (
	"strings"
	"time"
)

// District feed layout.
const (
	IdentityColumns = 6
	BlockWidth      = 10
	headerRows      = 2
	dateHeaderRow   = 0
	fieldHeaderRow  = 1
)

// Identity column positions in a district row.
const (
	colSerial = iota
	colStateCode
	colState
	colDistrictKey
	colSourceKey
	colDistrict
)

// Schema is the resolved per-date block layout of the district feed.
type Schema struct {
	Dates  DateAxis
	Fields []Metric
	// Offset is the column index of the first block.
	Offset     int
	BlockWidth int
}

// Column returns the cell index of field f in block k.
func (s Schema) Column(k, f int) int {
	return s.Offset + k*s.BlockWidth + f
}

// FieldIndex returns the position of m within a block, or -1.
func (s Schema) FieldIndex(m Metric) int {
	for i, f := range s.Fields {
		if f == m {
			return i
		}
	}
	return -1
}

var headerMetrics = map[string]Metric{
	"total individuals registered":        MetricRegistered,
	"individuals registered":              MetricRegistered,
	"registered":                          MetricRegistered,
	"sessions":                            MetricSessions,
	"total sessions conducted":            MetricSessions,
	"sites":                               MetricSites,
	"total sites":                         MetricSites,
	"first dose administered":             MetricFirstDose,
	"second dose administered":            MetricSecondDose,
	"total doses administered":            MetricTotalDoses,
	"male(individuals vaccinated)":        MetricMale,
	"female(individuals vaccinated)":      MetricFemale,
	"transgender(individuals vaccinated)": MetricTransgender,
	"total covaxin administered":          MetricCovaxin,
	"total covishield administered":       MetricCovishield,
	"total sputnik v administered":        MetricSputnikV,
	"18-45 years (age)":                   MetricAge18To45,
	"45-60 years (age)":                   MetricAge45To60,
	"60+ years (age)":                     MetricAge60Plus,
	"aefi":                                MetricAEFI,
	"total individuals vaccinated":        MetricIndividualsVaccinated,
}

// MetricForHeader maps a published column name to its Metric. Unknown names
// become a lowercase slug so new upstream columns still flow through.
func MetricForHeader(name string) Metric {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if m, ok := headerMetrics[key]; ok {
		return m
	}
	var b strings.Builder
	underscore := false
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return Metric(strings.TrimSuffix(b.String(), "_"))
}

// ResolveSchema reads the block layout of a sanitized district feed.
//
// Field names come from header row 1. The date axis comes from header row 0,
// scanning every column from the first block onward, keeping first-seen order
// and dropping repeats. Each block must start with its date, and the axis must
// be strictly ascending.
func ResolveSchema(rows []RawRow) (Schema, error) {
	if len(rows) < headerRows {
		return Schema{}, malformed("need %d header rows, got %d", headerRows, len(rows))
	}
	fieldRow := rows[fieldHeaderRow]
	if len(fieldRow) < IdentityColumns+BlockWidth {
		return Schema{}, malformed("field header has %d columns, need at least %d", len(fieldRow), IdentityColumns+BlockWidth)
	}
	fields := make([]Metric, BlockWidth)
	seen := make(map[Metric]bool, BlockWidth)
	for i := range fields {
		m := MetricForHeader(fieldRow[IdentityColumns+i])
		if m == "" || seen[m] {
			return Schema{}, malformed("block field %d has empty or repeated name %q", i, fieldRow[IdentityColumns+i])
		}
		seen[m] = true
		fields[i] = m
	}

	dateRow := rows[dateHeaderRow]
	var labels []string
	seenLabel := make(map[string]bool)
	for _, c := range dateRow[min(IdentityColumns, len(dateRow)):] {
		// Sanitized padding cells read "0".
		if isBlank(c) || seenLabel[c] {
			continue
		}
		seenLabel[c] = true
		labels = append(labels, c)
	}
	if len(labels) == 0 {
		return Schema{}, malformed("date header has no dates")
	}

	s := Schema{
		Dates:      make(DateAxis, len(labels)),
		Fields:     fields,
		Offset:     IdentityColumns,
		BlockWidth: BlockWidth,
	}
	if need := s.Column(len(labels), 0); len(dateRow) < need {
		return Schema{}, malformed("date header has %d columns, %d dates need %d", len(dateRow), len(labels), need)
	}
	var prev time.Time
	for k, label := range labels {
		if start := dateRow[s.Column(k, 0)]; start != label {
			return Schema{}, malformed("block %d starts with %q, expected %q", k, start, label)
		}
		d, err := ParseDate(label)
		if err != nil {
			return Schema{}, malformed("date header block %d: %v", k, err)
		}
		if k > 0 && !d.After(prev) {
			return Schema{}, malformed("%v: %s follows %s", ErrDateOrder, label, labels[k-1])
		}
		s.Dates[k] = d
		prev = d
	}
	return s, nil
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "0"
}
