package domain

import (
	"fmt"

	"github.com/jszwec/csvutil"
)

type populationRow struct {
	State      string `csv:"State_Name"`
	District   string `csv:"District_Name"`
	Population int64  `csv:"Population"`
}

// PopulationTable maps normalized district|state keys to populations.
// State and nation rows have an empty district.
type PopulationTable struct {
	byKey map[string]int64
}

// ParsePopulation decodes a State_Name,District_Name,Population CSV.
func ParsePopulation(data []byte) (*PopulationTable, error) {
	var rows []populationRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse population table: %w", err)
	}
	t := &PopulationTable{byKey: make(map[string]int64, len(rows))}
	for _, r := range rows {
		if r.Population <= 0 {
			continue
		}
		t.byKey[EntityKey(r.District, r.State)] = r.Population
	}
	return t, nil
}

// Len returns the number of entries.
func (t *PopulationTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}

// Lookup returns the population of a district, or of a state when district
// is empty.
func (t *PopulationTable) Lookup(district, state string) (int64, bool) {
	if t == nil {
		return 0, false
	}
	p, ok := t.byKey[EntityKey(district, state)]
	return p, ok
}

// Coverage summarizes how far an entity's vaccination has progressed. Nil
// fields are not meaningful for the latest figures (no population, no recent
// doses, or already reached).
type Coverage struct {
	Entity                 string   `json:"entity"`
	State                  string   `json:"state,omitempty"`
	Population             int64    `json:"population"`
	FirstDosePercent       *float64 `json:"first_dose_percent"`
	FullyVaccinatedPercent *float64 `json:"fully_vaccinated_percent"`
	YearsToFirstDose       *float64 `json:"years_to_first_dose"`
	YearsToFullyVaccinate  *float64 `json:"years_to_fully_vaccinate"`
}

// ComputeCoverage derives coverage from the latest record. Years-to figures
// project the current 7-day average of total doses forward; two doses per
// person are needed to be fully vaccinated.
func ComputeCoverage(entity string, latest DerivedRecord, population int64) Coverage {
	c := Coverage{Entity: entity, Population: population}
	if population <= 0 {
		return c
	}
	pop := float64(population)
	first := float64(latest.Values[MetricFirstDose])
	second := float64(latest.Values[MetricSecondDose])
	total := float64(latest.Values[MetricTotalDoses])

	c.FirstDosePercent = ptr(first * 100 / pop)
	c.FullyVaccinatedPercent = ptr(second * 100 / pop)

	rate := latest.RollingAvg7[MetricTotalDoses]
	if rate > 0 {
		c.YearsToFirstDose = nonNegative((pop - first) / rate / 365)
		c.YearsToFullyVaccinate = nonNegative((2*pop - total) / rate / 365)
	}
	return c
}

func nonNegative(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func ptr(v float64) *float64 { return &v }
