// Command genmock writes deterministic synthetic copies of the district and
// state vaccination feeds plus a matching population table. The district
// feed includes the quirks the pipeline must handle: a split district under
// two CoWIN keys, a placeholder Lakshadweep row, and districts whose latest
// days are not yet reported.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -days 45
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

const (
	districtFile   = "cowin_vaccine_data_districtwise.csv"
	stateFile      = "cowin_vaccine_data_statewise.csv"
	populationFile = "population.csv"
)

var startDate = time.Date(2021, time.January, 16, 0, 0, 0, 0, time.UTC)

type districtDef struct {
	name       string
	cowinKeys  []string
	population int64
	// lagDays is how many of the latest days are still unreported.
	lagDays int
}

type stateDef struct {
	name      string
	code      string
	districts []districtDef
}

var states = []stateDef{
	{name: "Kerala", code: "KL", districts: []districtDef{
		{name: "Ernakulam", cowinKeys: []string{"307"}, population: 3282388},
		{name: "Thiruvananthapuram", cowinKeys: []string{"296"}, population: 3301427},
	}},
	{name: "Assam", code: "AS", districts: []districtDef{
		{name: "Kamrup Metropolitan", cowinKeys: []string{"49"}, population: 1253938},
		{name: "Dhubri", cowinKeys: []string{"47"}, population: 1949258, lagDays: 2},
	}},
	{name: "Telangana", code: "TG", districts: []districtDef{
		{name: "Hyderabad", cowinKeys: []string{"581", "582"}, population: 3943323},
	}},
	{name: "Lakshadweep", code: "LD", districts: []districtDef{
		{name: "Lakshadweep", cowinKeys: []string{"796"}, population: 64473},
	}},
}

// counters is one entity's cumulative figures on one day.
type counters struct {
	registered, sessions, sites int64
	first, second               int64
	male, female, transgender   int64
	covaxin, covishield         int64
}

func (c counters) total() int64 { return c.first + c.second }

func (c *counters) add(o counters) {
	c.registered += o.registered
	c.sessions += o.sessions
	c.sites += o.sites
	c.first += o.first
	c.second += o.second
	c.male += o.male
	c.female += o.female
	c.transgender += o.transgender
	c.covaxin += o.covaxin
	c.covishield += o.covishield
}

// stateLine is one row of the state feed.
type stateLine struct {
	UpdatedOn   string `csv:"Updated On"`
	State       string `csv:"State"`
	TotalDoses  int64  `csv:"Total Doses Administered"`
	Sessions    int64  `csv:"Total Sessions Conducted"`
	Sites       int64  `csv:"Total Sites"`
	FirstDose   int64  `csv:"First Dose Administered"`
	SecondDose  int64  `csv:"Second Dose Administered"`
	Male        int64  `csv:"Male(Individuals Vaccinated)"`
	Female      int64  `csv:"Female(Individuals Vaccinated)"`
	Transgender int64  `csv:"Transgender(Individuals Vaccinated)"`
	Covaxin     int64  `csv:"Total Covaxin Administered"`
	Covishield  int64  `csv:"Total CoviShield Administered"`
	Individuals int64  `csv:"Total Individuals Vaccinated"`
}

type populationLine struct {
	State      string `csv:"State_Name"`
	District   string `csv:"District_Name"`
	Population int64  `csv:"Population"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write the generated CSV files to")
	days := flag.Int("days", 30, "number of days in the generated feeds")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *outDir == "" || *days < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flag -out-dir or non-positive -days")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	series := simulate(rng, *days)

	if err := writeDistrictFeed(filepath.Join(*outDir, districtFile), *days, series); err != nil {
		return fmt.Errorf("writing district feed: %w", err)
	}
	log.Printf("wrote district feed: %s", filepath.Join(*outDir, districtFile))

	if err := writeStateFeed(filepath.Join(*outDir, stateFile), *days, series); err != nil {
		return fmt.Errorf("writing state feed: %w", err)
	}
	log.Printf("wrote state feed: %s", filepath.Join(*outDir, stateFile))

	if err := writePopulation(filepath.Join(*outDir, populationFile)); err != nil {
		return fmt.Errorf("writing population table: %w", err)
	}
	log.Printf("wrote population table: %s", filepath.Join(*outDir, populationFile))
	return nil
}

// simulate returns cumulative counters per state, district, and CoWIN key.
func simulate(rng *rand.Rand, days int) map[string][]counters {
	out := make(map[string][]counters)
	for _, s := range states {
		for _, d := range s.districts {
			for _, key := range d.cowinKeys {
				perKeyPop := d.population / int64(len(d.cowinKeys))
				cum := make([]counters, days)
				var c counters
				for day := range days {
					c.add(dailyIncrement(rng, perKeyPop, day))
					cum[day] = c
				}
				out[key] = cum
			}
		}
	}
	return out
}

func dailyIncrement(rng *rand.Rand, pop int64, day int) counters {
	first := pop/400 + rng.Int64N(pop/400+1)
	var second int64
	if day >= 28 {
		second = first/2 + rng.Int64N(first/4+1)
	}
	male := first * 52 / 100
	trans := first / 2000
	covaxin := (first + second) / 8
	return counters{
		registered:  first + rng.Int64N(first/2+1),
		sessions:    10 + rng.Int64N(20),
		sites:       5 + rng.Int64N(10),
		first:       first,
		second:      second,
		male:        male,
		female:      first - male - trans,
		transgender: trans,
		covaxin:     covaxin,
		covishield:  first + second - covaxin,
	}
}

var blockHeaders = []string{
	"Total Individuals Registered", "Sessions", "Sites",
	"First Dose Administered", "Second Dose Administered",
	"Male(Individuals Vaccinated)", "Female(Individuals Vaccinated)", "Transgender(Individuals Vaccinated)",
	"Total Covaxin Administered", "Total CoviShield Administered",
}

// writeDistrictFeed writes the wide district feed. Blocks are positional, so
// rows are written directly rather than through struct tags.
func writeDistrictFeed(path string, days int, series map[string][]counters) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	dateRow := make([]string, domain.IdentityColumns)
	fieldRow := []string{"S No.", "State_Code", "State", "District_Key", "Cowin Key", "District"}
	for day := range days {
		label := startDate.AddDate(0, 0, day).Format(domain.DateLayout)
		for range blockHeaders {
			dateRow = append(dateRow, label)
		}
		fieldRow = append(fieldRow, blockHeaders...)
	}
	rows := [][]string{dateRow, fieldRow}

	serial := 0
	for _, s := range states {
		for _, d := range s.districts {
			for _, key := range d.cowinKeys {
				serial++
				row := []string{fmt.Sprint(serial), s.code, s.name, s.code + "_" + d.name, key, d.name}
				for day, c := range series[key] {
					if day >= days-d.lagDays {
						row = append(row, make([]string, len(blockHeaders))...)
						continue
					}
					row = append(row,
						fmt.Sprint(c.registered), fmt.Sprint(c.sessions), fmt.Sprint(c.sites),
						fmt.Sprint(c.first), fmt.Sprint(c.second),
						fmt.Sprint(c.male), fmt.Sprint(c.female), fmt.Sprint(c.transgender),
						fmt.Sprint(c.covaxin), fmt.Sprint(c.covishield),
					)
				}
				rows = append(rows, row)
			}
		}
		if s.code == "LD" {
			// Upstream placeholder: no serial number and no values.
			placeholder := []string{"", s.code, s.name, s.code + "_" + s.name, "", s.name}
			rows = append(rows, append(placeholder, make([]string, days*len(blockHeaders))...))
		}
	}

	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// writeStateFeed writes one row per region and day, nation first. The last
// day of the first state is published with zero totals, as upstream does
// before a day's figures arrive.
func writeStateFeed(path string, days int, series map[string][]counters) error {
	var lines []stateLine
	nation := make([]counters, days)
	perState := make([][]counters, len(states))
	for i, s := range states {
		perState[i] = make([]counters, days)
		for _, d := range s.districts {
			for _, key := range d.cowinKeys {
				for day, c := range series[key] {
					perState[i][day].add(c)
					nation[day].add(c)
				}
			}
		}
	}

	appendRegion := func(name string, cum []counters) {
		for day, c := range cum {
			lines = append(lines, stateLine{
				UpdatedOn:   startDate.AddDate(0, 0, day).Format(domain.DateLayout),
				State:       name,
				TotalDoses:  c.total(),
				Sessions:    c.sessions,
				Sites:       c.sites,
				FirstDose:   c.first,
				SecondDose:  c.second,
				Male:        c.male,
				Female:      c.female,
				Transgender: c.transgender,
				Covaxin:     c.covaxin,
				Covishield:  c.covishield,
				Individuals: c.first,
			})
		}
	}
	appendRegion(domain.DefaultNation, nation)
	for i, s := range states {
		cum := perState[i]
		if i == 0 {
			cum = append(cum[:days-1:days-1], counters{})
		}
		appendRegion(s.name, cum)
	}

	data, err := csvutil.Marshal(lines)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writePopulation(path string) error {
	var lines []populationLine
	var nation int64
	for _, s := range states {
		var total int64
		for _, d := range s.districts {
			lines = append(lines, populationLine{State: s.name, District: d.name, Population: d.population})
			total += d.population
		}
		lines = append(lines, populationLine{State: s.name, Population: total})
		nation += total
	}
	lines = append(lines, populationLine{State: domain.DefaultNation, Population: nation})

	data, err := csvutil.Marshal(lines)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
