// Command validate runs the feed processing core over local copies of the
// district and state feeds and checks its output: schema resolution, the
// delta and rolling-average laws, trimming, duplicate merging, and per-region
// rejections. Upstream data-quality issues are summarized but never fail the
// run, since values pass through unchanged.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -districts data/mock/cowin_vaccine_data_districtwise.csv \
//	  -states data/mock/cowin_vaccine_data_statewise.csv \
//	  -population data/mock/population.csv
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/couchcryptid/vaccine-data-etl/internal/adapter/feed"
	"github.com/couchcryptid/vaccine-data-etl/internal/config"
	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	districts := flag.String("districts", "", "path to the district feed CSV")
	states := flag.String("states", "", "path to the state feed CSV")
	population := flag.String("population", "", "optional population CSV for coverage checks")
	rulesPath := flag.String("rules", "", "optional rules YAML; built-in rules when empty")
	flag.Parse()

	if *districts == "" || *states == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*districts, *states, *population, *rulesPath); code != 0 {
		os.Exit(code)
	}
}

func run(districtPath, statePath, populationPath, rulesPath string) int {
	fmt.Println("=== Vaccination Feed Validation ===")
	fmt.Println()

	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load rules: %v\n", err)
		return 1
	}
	districtRows, err := loadCSV(districtPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load district feed: %v\n", err)
		return 1
	}
	stateRows, err := loadCSV(statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load state feed: %v\n", err)
		return 1
	}
	var pop *domain.PopulationTable
	if populationPath != "" {
		data, err := os.ReadFile(populationPath)
		if err == nil {
			pop, err = domain.ParsePopulation(data)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load population: %v\n", err)
			return 1
		}
	}

	// ── Run the core ──
	schemaPhase := &phase{name: "District schema"}
	districtFeed, err := domain.ProcessDistrictFeed(districtRows, rules.District)
	if err != nil {
		schemaPhase.errorf("%v", err)
	}
	statePhase := &phase{name: "State feed regions"}
	stateFeed, err := domain.ProcessStateFeed(stateRows, rules.State)
	if err != nil {
		statePhase.errorf("%v", err)
	}

	// ── Run validation phases ──
	phases := []*phase{
		schemaPhase,
		validateDistrictLaws(districtFeed),
		validateMerge(districtRows, districtFeed, rules.District),
		validateStateFeed(statePhase, stateFeed, rules.State),
		validateRegionLaws(stateFeed),
	}
	if pop != nil {
		phases = append(phases, validateCoverage(pop, districtFeed, stateFeed))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Dates: %d district axis; Entities: %d districts (%d rows merged), %d states, nation=%t\n",
		len(districtFeed.Dates), len(districtFeed.Districts), districtFeed.Merged,
		len(stateFeed.States), stateFeed.Nation != nil)

	printQualityReport(append(districtFeed.Inconsistencies(), stateFeed.Inconsistencies()...))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadCSV(path string) ([]domain.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return feed.ParseCSV(data)
}

func validateDistrictLaws(f domain.DistrictFeed) *phase {
	p := &phase{name: "District derivation laws"}
	for i := 1; i < len(f.Dates); i++ {
		if !f.Dates[i].After(f.Dates[i-1]) {
			p.errorf("date axis not ascending at %d", i)
		}
	}
	for i, d := range f.Districts {
		entity := d.Key.District + ", " + d.Key.State
		if len(d.Records) > len(f.Dates) {
			p.errorf("%s: %d records for %d dates", entity, len(d.Records), len(f.Dates))
		}
		for k, r := range d.Records {
			if k < len(f.Dates) && !r.Date.Equal(f.Dates[k]) {
				p.errorf("%s: record %d dated %s, axis has %s", entity, k, r.Date.Format(domain.DateLayout), f.Dates[k].Format(domain.DateLayout))
			}
		}
		checkLaws(p, entity, d.Records)
		if i > 0 && d.Key.State < f.Districts[i-1].Key.State {
			p.errorf("%s sorted after state %s", entity, f.Districts[i-1].Key.State)
		}
	}
	return p
}

func validateRegionLaws(f domain.StateFeed) *phase {
	p := &phase{name: "State derivation laws"}
	if f.Nation != nil {
		checkLaws(p, f.Nation.Region, f.Nation.Records)
	}
	for _, s := range f.States {
		checkLaws(p, s.Region, s.Records)
		for k := 1; k < len(s.Records); k++ {
			if !s.Records[k].Date.After(s.Records[k-1].Date) {
				p.errorf("%s: dates not ascending at %d", s.Region, k)
			}
		}
	}
	return p
}

// checkLaws verifies the delta identity, the rolling-average law, and that
// trimming left a non-zero last total.
func checkLaws(p *phase, entity string, records []domain.DerivedRecord) {
	if n := len(records); n > 0 && records[n-1].Values[domain.MetricTotalDoses] == 0 {
		p.errorf("%s: last record has zero total doses", entity)
	}
	for k, r := range records {
		for m, v := range r.Values {
			wantDelta := v
			if k > 0 {
				wantDelta = v - records[k-1].Values[m]
			}
			if r.Delta[m] != wantDelta {
				p.errorf("%s %s: %s delta %d, want %d", entity, r.Date.Format(domain.DateLayout), m, r.Delta[m], wantDelta)
			}

			var wantAvg float64
			if k < domain.RollingWindow {
				wantAvg = float64(v) / float64(k+1)
			} else {
				wantAvg = float64(v-records[k-domain.RollingWindow].Values[m]) / domain.RollingWindow
			}
			if math.Abs(r.RollingAvg7[m]-wantAvg) > 1e-6 {
				p.errorf("%s %s: %s rolling average %.3f, want %.3f", entity, r.Date.Format(domain.DateLayout), m, r.RollingAvg7[m], wantAvg)
			}
		}
	}
}

func validateMerge(rows []domain.RawRow, f domain.DistrictFeed, rules domain.DistrictRules) *phase {
	p := &phase{name: "Duplicate merge"}
	seen := make(map[string]bool, len(f.Districts))
	sources := 0
	for _, d := range f.Districts {
		key := domain.EntityKey(d.Key.District, d.Key.State)
		if seen[key] {
			p.errorf("%s appears more than once", key)
		}
		seen[key] = true
		sources += len(d.SourceKeys)
	}
	if len(f.Districts) == 0 {
		return p
	}

	clean := domain.SanitizeRows(rows, rules.Exclude)
	if want := len(clean) - 2; sources != want {
		p.errorf("%d source keys across districts, feed has %d data rows", sources, want)
	}
	return p
}

func validateStateFeed(p *phase, f domain.StateFeed, rules domain.StateRules) *phase {
	if f.Nation == nil {
		p.errorf("no %s rows", rules.Nation)
	}
	for _, r := range f.Rejected {
		p.errorf("%v", &r)
	}
	return p
}

func validateCoverage(pop *domain.PopulationTable, d domain.DistrictFeed, s domain.StateFeed) *phase {
	p := &phase{name: "Coverage"}
	check := func(entity, district, state string, records []domain.DerivedRecord) {
		population, ok := pop.Lookup(district, state)
		latest, has := domain.Latest(records)
		if !ok || !has {
			return
		}
		c := domain.ComputeCoverage(entity, latest, population)
		if c.FirstDosePercent != nil && (*c.FirstDosePercent < 0 || *c.FirstDosePercent > 100) {
			p.errorf("%s: first dose coverage %.1f%% outside 0..100", entity, *c.FirstDosePercent)
		}
		if c.FullyVaccinatedPercent != nil && c.FirstDosePercent != nil && *c.FullyVaccinatedPercent > *c.FirstDosePercent {
			p.errorf("%s: fully vaccinated %.1f%% exceeds first dose %.1f%%", entity, *c.FullyVaccinatedPercent, *c.FirstDosePercent)
		}
	}
	for _, st := range s.States {
		check(st.Region, "", st.Region, st.Records)
	}
	for _, dist := range d.Districts {
		check(dist.Key.District+", "+dist.Key.State, dist.Key.District, dist.Key.State, dist.Records)
	}
	return p
}

func printQualityReport(issues []domain.Inconsistency) {
	if len(issues) == 0 {
		fmt.Println("Data quality: no upstream inconsistencies")
		return
	}
	counts := make(map[domain.InconsistencyKind]int)
	for _, inc := range issues {
		counts[inc.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	fmt.Printf("Data quality: %d upstream inconsistencies (values kept as published)\n", len(issues))
	for _, k := range kinds {
		fmt.Printf("  %-20s %d\n", k, counts[domain.InconsistencyKind(k)])
	}
}
