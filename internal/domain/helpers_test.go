package domain

import (
	"strconv"
	"time"
)

var blockFields = []string{
	"Total Individuals Registered", "Sessions", "Sites",
	"First Dose Administered", "Second Dose Administered",
	"Male(Individuals Vaccinated)", "Female(Individuals Vaccinated)", "Transgender(Individuals Vaccinated)",
	"Total Covaxin Administered", "Total CoviShield Administered",
}

// districtHeader builds the two header rows of a district feed.
func districtHeader(dates ...string) []RawRow {
	row0 := make(RawRow, IdentityColumns)
	row1 := RawRow{"S No.", "State_Code", "State", "District_Key", "Cowin Key", "District"}
	for _, d := range dates {
		for range BlockWidth {
			row0 = append(row0, d)
		}
		row1 = append(row1, blockFields...)
	}
	return []RawRow{row0, row1}
}

// districtRow builds a data row with one block per entry of blocks.
func districtRow(state, district, source string, blocks ...[]string) RawRow {
	row := RawRow{"1", state[:2], state, state[:2] + "_" + district, source, district}
	for _, b := range blocks {
		row = append(row, b...)
	}
	return row
}

// doseBlock builds a block with the given first and second dose and small
// fixed values elsewhere. An empty first dose leaves the whole block blank.
func doseBlock(first, second string) []string {
	if first == "" && second == "" {
		return make([]string, BlockWidth)
	}
	return []string{"1000", "10", "2", first, second, "40", "50", "1", "30", "60"}
}

func date(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// snaps builds snapshots of one metric on consecutive days.
func snaps(m Metric, values ...int64) []Snapshot {
	out := make([]Snapshot, len(values))
	start := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		out[i] = Snapshot{Date: start.AddDate(0, 0, i), Values: map[Metric]int64{m: v}}
	}
	return out
}

func totals(records []DerivedRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Values[MetricTotalDoses]
	}
	return out
}
