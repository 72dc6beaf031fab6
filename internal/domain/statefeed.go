package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// Named columns of the state feed.
const (
	ColumnState      = "State"
	ColumnUpdatedOn  = "Updated On"
	ColumnTotalDoses = "Total Doses Administered"
)

// stateRow is one decoded state-feed line. Counters stay strings so a bad
// cell coerces to 0 instead of failing the decode.
type stateRow struct {
	UpdatedOn             string `csv:"Updated On"`
	State                 string `csv:"State"`
	TotalDoses            string `csv:"Total Doses Administered"`
	Sessions              string `csv:"Total Sessions Conducted"`
	Sites                 string `csv:"Total Sites"`
	FirstDose             string `csv:"First Dose Administered"`
	SecondDose            string `csv:"Second Dose Administered"`
	Male                  string `csv:"Male(Individuals Vaccinated)"`
	Female                string `csv:"Female(Individuals Vaccinated)"`
	Transgender           string `csv:"Transgender(Individuals Vaccinated)"`
	Covaxin               string `csv:"Total Covaxin Administered"`
	Covishield            string `csv:"Total CoviShield Administered"`
	SputnikV              string `csv:"Total Sputnik V Administered"`
	AEFI                  string `csv:"AEFI"`
	Age18To45             string `csv:"18-45 years (Age)"`
	Age45To60             string `csv:"45-60 years (Age)"`
	Age60Plus             string `csv:"60+ years (Age)"`
	IndividualsVaccinated string `csv:"Total Individuals Vaccinated"`
}

var stateColumns = []struct {
	header string
	metric Metric
	get    func(r *stateRow) string
}{
	{ColumnTotalDoses, MetricTotalDoses, func(r *stateRow) string { return r.TotalDoses }},
	{"Total Sessions Conducted", MetricSessions, func(r *stateRow) string { return r.Sessions }},
	{"Total Sites", MetricSites, func(r *stateRow) string { return r.Sites }},
	{"First Dose Administered", MetricFirstDose, func(r *stateRow) string { return r.FirstDose }},
	{"Second Dose Administered", MetricSecondDose, func(r *stateRow) string { return r.SecondDose }},
	{"Male(Individuals Vaccinated)", MetricMale, func(r *stateRow) string { return r.Male }},
	{"Female(Individuals Vaccinated)", MetricFemale, func(r *stateRow) string { return r.Female }},
	{"Transgender(Individuals Vaccinated)", MetricTransgender, func(r *stateRow) string { return r.Transgender }},
	{"Total Covaxin Administered", MetricCovaxin, func(r *stateRow) string { return r.Covaxin }},
	{"Total CoviShield Administered", MetricCovishield, func(r *stateRow) string { return r.Covishield }},
	{"Total Sputnik V Administered", MetricSputnikV, func(r *stateRow) string { return r.SputnikV }},
	{"AEFI", MetricAEFI, func(r *stateRow) string { return r.AEFI }},
	{"18-45 years (Age)", MetricAge18To45, func(r *stateRow) string { return r.Age18To45 }},
	{"45-60 years (Age)", MetricAge45To60, func(r *stateRow) string { return r.Age45To60 }},
	{"60+ years (Age)", MetricAge60Plus, func(r *stateRow) string { return r.Age60Plus }},
	{"Total Individuals Vaccinated", MetricIndividualsVaccinated, func(r *stateRow) string { return r.IndividualsVaccinated }},
}

// StateFeed is the processed state/nation feed.
type StateFeed struct {
	// Nation is nil when the feed has no usable whole-country rows.
	Nation *RegionSeries  `json:"nation"`
	States []RegionSeries `json:"states"`
	// Rejected lists regions dropped for bad or out-of-order dates.
	Rejected []EntityError `json:"-"`
}

// rowReader feeds already-split rows to csvutil, padding or cutting each row
// to the header width.
type rowReader struct {
	rows  []RawRow
	width int
	next  int
}

func (r *rowReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	rec := make([]string, r.width)
	copy(rec, row)
	return rec, nil
}

// BuildRegionSeries turns sanitized state-feed rows (header first) into one
// series for the nation and one per state, in first-seen order.
//
// A missing State, Updated On or Total Doses Administered column fails the
// feed. A region whose retained dates are unparseable or not strictly
// ascending is rejected on its own.
func BuildRegionSeries(rows []RawRow, rules StateRules) (StateFeed, error) {
	if len(rows) == 0 {
		return StateFeed{}, malformed("state feed is empty")
	}
	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(header))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		present[header[i]] = true
	}
	for _, req := range []string{ColumnState, ColumnUpdatedOn, ColumnTotalDoses} {
		if !present[req] {
			return StateFeed{}, malformed("state feed missing column %q", req)
		}
	}

	dec, err := csvutil.NewDecoder(&rowReader{rows: rows[1:], width: len(header)}, header...)
	if err != nil {
		return StateFeed{}, malformed("state feed header: %v", err)
	}
	var decoded []stateRow
	if err := dec.Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return StateFeed{}, malformed("decode state feed: %v", err)
	}

	nation := rules.Nation
	if nation == "" {
		nation = DefaultNation
	}
	known := make(map[string]bool, len(rules.KnownStates))
	for _, s := range rules.KnownStates {
		known[NormalizeName(s)] = true
	}

	byRegion := make(map[string][]*stateRow)
	var order []string
	for i := range decoded {
		r := &decoded[i]
		region := strings.TrimSpace(r.State)
		if _, ok := byRegion[region]; !ok {
			order = append(order, region)
		}
		byRegion[region] = append(byRegion[region], r)
	}

	var feed StateFeed
	for _, region := range order {
		isNation := NormalizeName(region) == NormalizeName(nation)
		if !isNation && len(known) > 0 && !known[NormalizeName(region)] {
			continue
		}
		series, err := buildRegion(region, isNation, byRegion[region], present)
		if err != nil {
			feed.Rejected = append(feed.Rejected, EntityError{Entity: region, Err: err})
			continue
		}
		if isNation {
			feed.Nation = &series
			continue
		}
		feed.States = append(feed.States, series)
	}
	return feed, nil
}

func buildRegion(region string, nation bool, rows []*stateRow, present map[string]bool) (RegionSeries, error) {
	n := trimLength(len(rows), func(i int) int64 { return parseIntOrZero(rows[i].TotalDoses) })

	snaps := make([]Snapshot, n)
	var prev time.Time
	for i := range n {
		d, err := ParseDate(rows[i].UpdatedOn)
		if err != nil {
			return RegionSeries{}, fmt.Errorf("row %d: %w", i, err)
		}
		if i > 0 && !d.After(prev) {
			return RegionSeries{}, fmt.Errorf("row %d: %w: %s after %s", i, ErrDateOrder, rows[i].UpdatedOn, rows[i-1].UpdatedOn)
		}
		prev = d

		values := make(map[Metric]int64, len(stateColumns))
		for _, c := range stateColumns {
			if present[c.header] {
				values[c.metric] = parseIntOrZero(c.get(rows[i]))
			}
		}
		snaps[i] = Snapshot{Date: d, Values: values}
	}

	return RegionSeries{Region: region, Nation: nation, Records: Derive(snaps)}, nil
}
