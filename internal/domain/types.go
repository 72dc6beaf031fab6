package domain

import (
	"maps"
	"slices"
	"time"
)

// RawRow is one CSV line before any schema is applied.
type RawRow []string

// DateAxis is the ordered list of reporting dates of the district feed.
type DateAxis []time.Time

// Metric names a cumulative counter.
type Metric string

// Metrics published by one or both feeds.
const (
	MetricRegistered            Metric = "registered"
	MetricSessions              Metric = "sessions"
	MetricSites                 Metric = "sites"
	MetricFirstDose             Metric = "first_dose"
	MetricSecondDose            Metric = "second_dose"
	MetricTotalDoses            Metric = "total_doses"
	MetricMale                  Metric = "male"
	MetricFemale                Metric = "female"
	MetricTransgender           Metric = "transgender"
	MetricCovaxin               Metric = "covaxin"
	MetricCovishield            Metric = "covishield"
	MetricSputnikV              Metric = "sputnik_v"
	MetricAge18To45             Metric = "age_18_45"
	MetricAge45To60             Metric = "age_45_60"
	MetricAge60Plus             Metric = "age_60_plus"
	MetricAEFI                  Metric = "aefi"
	MetricIndividualsVaccinated Metric = "individuals_vaccinated"
)

// Snapshot is one date's cumulative counters for an entity.
// Counters missing from a feed are absent from Values, not zero.
type Snapshot struct {
	Date   time.Time        `json:"date"`
	Values map[Metric]int64 `json:"values"`
}

// DerivedRecord is a Snapshot plus its day-over-day delta and 7-day rolling
// average for every metric in Values.
type DerivedRecord struct {
	Snapshot
	Delta       map[Metric]int64   `json:"delta"`
	RollingAvg7 map[Metric]float64 `json:"rolling_avg_7"`
}

// DistrictKey identifies one district-feed entity.
type DistrictKey struct {
	StateCode   string `json:"state_code"`
	State       string `json:"state"`
	DistrictKey string `json:"district_key"`
	District    string `json:"district"`
}

// DistrictSeries is the trimmed, derived time series of one district.
type DistrictSeries struct {
	Key DistrictKey `json:"key"`
	// SourceKeys holds the opaque upstream (CoWIN) key of every raw row that
	// contributed, in feed order. It has one element unless rows were merged.
	SourceKeys []string        `json:"source_keys"`
	Records    []DerivedRecord `json:"records"`
}

// RegionSeries is the trimmed, derived time series of one state or of the
// whole nation from the state feed.
type RegionSeries struct {
	Region  string          `json:"region"`
	Nation  bool            `json:"nation"`
	Records []DerivedRecord `json:"records"`
}

// Latest returns the most recent record, or false for an empty series.
func Latest(records []DerivedRecord) (DerivedRecord, bool) {
	if len(records) == 0 {
		return DerivedRecord{}, false
	}
	return records[len(records)-1], true
}

func sortedMetrics[V any](m map[Metric]V) []Metric {
	return slices.Sorted(maps.Keys(m))
}
