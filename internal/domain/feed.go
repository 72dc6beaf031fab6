package domain

import (
	"fmt"
	"sort"
)

// DistrictFeed is the processed district feed.
type DistrictFeed struct {
	Dates     DateAxis         `json:"dates"`
	Districts []DistrictSeries `json:"districts"`
	// Merged is the number of raw rows folded into duplicate merges.
	Merged int `json:"merged"`
}

// ProcessDistrictFeed runs the district feed end to end: sanitize, resolve
// the block layout, build each data row, merge duplicates, and stable-sort by
// state. A schema error returns no districts at all.
func ProcessDistrictFeed(rows []RawRow, rules DistrictRules) (DistrictFeed, error) {
	clean := SanitizeRows(rows, rules.Exclude)
	schema, err := ResolveSchema(clean)
	if err != nil {
		return DistrictFeed{}, fmt.Errorf("district feed: %w", err)
	}

	built := make([]DistrictSeries, 0, len(clean)-headerRows)
	for _, row := range clean[headerRows:] {
		built = append(built, BuildDistrictSeries(row, schema))
	}

	merged, absorbed := MergeDuplicates(built)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Key.State < merged[j].Key.State
	})

	return DistrictFeed{Dates: schema.Dates, Districts: merged, Merged: absorbed}, nil
}

// ProcessStateFeed runs the state feed end to end. Header problems fail the
// feed; date problems reject single regions.
func ProcessStateFeed(rows []RawRow, rules StateRules) (StateFeed, error) {
	clean := SanitizeRows(rows, rules.Exclude)
	feed, err := BuildRegionSeries(clean, rules)
	if err != nil {
		return StateFeed{}, fmt.Errorf("state feed: %w", err)
	}
	return feed, nil
}

// Inconsistencies runs CheckSeries over every district.
func (f DistrictFeed) Inconsistencies() []Inconsistency {
	var out []Inconsistency
	for _, d := range f.Districts {
		out = append(out, CheckSeries(d.Key.District+", "+d.Key.State, d.Records)...)
	}
	return out
}

// Inconsistencies runs CheckSeries over the nation and every state.
func (f StateFeed) Inconsistencies() []Inconsistency {
	var out []Inconsistency
	if f.Nation != nil {
		out = append(out, CheckSeries(f.Nation.Region, f.Nation.Records)...)
	}
	for _, s := range f.States {
		out = append(out, CheckSeries(s.Region, s.Records)...)
	}
	return out
}
