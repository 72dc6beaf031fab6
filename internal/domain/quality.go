package domain

import (
	"fmt"
	"time"
)

// InconsistencyKind classifies an upstream data-quality issue.
type InconsistencyKind string

const (
	KindNegativeDelta   InconsistencyKind = "negative_delta"
	KindDoseSum         InconsistencyKind = "dose_sum"
	KindSexSum          InconsistencyKind = "sex_sum"
	KindManufacturerSum InconsistencyKind = "manufacturer_sum"
	KindAgeSum          InconsistencyKind = "age_sum"
)

// Inconsistency is an upstream figure that disagrees with itself. Values are
// never corrected; these are reported alongside them.
type Inconsistency struct {
	Entity string            `json:"entity"`
	Date   time.Time         `json:"date"`
	Kind   InconsistencyKind `json:"kind"`
	Metric Metric            `json:"metric,omitempty"`
	Detail string            `json:"detail"`
}

type sumCheck struct {
	kind  InconsistencyKind
	total Metric
	parts []Metric
	// partial allows a subset of parts to be present.
	partial bool
}

var sumChecks = []sumCheck{
	{kind: KindDoseSum, total: MetricTotalDoses, parts: []Metric{MetricFirstDose, MetricSecondDose}},
	{kind: KindSexSum, total: MetricIndividualsVaccinated, parts: []Metric{MetricMale, MetricFemale, MetricTransgender}},
	{kind: KindManufacturerSum, total: MetricTotalDoses, parts: []Metric{MetricCovaxin, MetricCovishield, MetricSputnikV}, partial: true},
	{kind: KindAgeSum, total: MetricIndividualsVaccinated, parts: []Metric{MetricAge18To45, MetricAge45To60, MetricAge60Plus}},
}

// CheckSeries reports negative deltas and sub-category sums that do not
// match their published totals. Sum checks only run when the total is
// non-zero and the parts are reported; district totals are computed from
// first + second dose, so the dose sum check never fires there.
func CheckSeries(entity string, records []DerivedRecord) []Inconsistency {
	var out []Inconsistency
	for i, rec := range records {
		if i > 0 {
			for _, m := range sortedMetrics(rec.Delta) {
				if d := rec.Delta[m]; d < 0 {
					out = append(out, Inconsistency{
						Entity: entity, Date: rec.Date, Kind: KindNegativeDelta, Metric: m,
						Detail: fmt.Sprintf("%s fell by %d", m, -d),
					})
				}
			}
		}
		for _, c := range sumChecks {
			if inc, ok := c.check(rec.Snapshot); ok {
				inc.Entity = entity
				out = append(out, inc)
			}
		}
	}
	return out
}

func (c sumCheck) check(s Snapshot) (Inconsistency, bool) {
	total, ok := s.Values[c.total]
	if !ok || total == 0 {
		return Inconsistency{}, false
	}
	var sum int64
	found := 0
	for _, p := range c.parts {
		if v, ok := s.Values[p]; ok {
			sum += v
			found++
		}
	}
	if found == 0 || (!c.partial && found < len(c.parts)) || sum == 0 || sum == total {
		return Inconsistency{}, false
	}
	return Inconsistency{
		Date:   s.Date,
		Kind:   c.kind,
		Metric: c.total,
		Detail: fmt.Sprintf("parts sum to %d, %s is %d", sum, c.total, total),
	}, true
}
