package pipeline

import "github.com/couchcryptid/vaccine-data-etl/internal/domain"

// computeCoverage evaluates the latest record of the nation, every state, and
// every district that has a population entry.
func computeCoverage(pop *domain.PopulationTable, district *domain.DistrictFeed, state *domain.StateFeed) []domain.Coverage {
	if pop.Len() == 0 {
		return nil
	}
	var out []domain.Coverage
	add := func(entity, stateName, districtName string, records []domain.DerivedRecord) {
		latest, ok := domain.Latest(records)
		if !ok {
			return
		}
		p, ok := pop.Lookup(districtName, stateName)
		if !ok {
			return
		}
		c := domain.ComputeCoverage(entity, latest, p)
		if districtName != "" {
			c.State = stateName
		}
		out = append(out, c)
	}

	if state != nil {
		if state.Nation != nil {
			add(state.Nation.Region, state.Nation.Region, "", state.Nation.Records)
		}
		for _, s := range state.States {
			add(s.Region, s.Region, "", s.Records)
		}
	}
	if district != nil {
		for _, d := range district.Districts {
			add(d.Key.District, d.Key.State, d.Key.District, d.Records)
		}
	}
	return out
}
