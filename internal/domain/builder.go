package domain

// BuildDistrictSeries turns one sanitized district row into its trimmed,
// derived series. A row with no reported dates yields an empty series.
func BuildDistrictSeries(row RawRow, schema Schema) DistrictSeries {
	total := districtTotal(row, schema)
	n := trimLength(len(schema.Dates), total)

	snaps := make([]Snapshot, n)
	for k := range n {
		values := make(map[Metric]int64, len(schema.Fields)+1)
		for f, m := range schema.Fields {
			values[m] = parseIntOrZero(cell(row, schema.Column(k, f)))
		}
		if _, ok := values[MetricTotalDoses]; !ok {
			values[MetricTotalDoses] = total(k)
		}
		snaps[k] = Snapshot{Date: schema.Dates[k], Values: values}
	}

	return DistrictSeries{
		Key: DistrictKey{
			StateCode:   cell(row, colStateCode),
			State:       cell(row, colState),
			DistrictKey: cell(row, colDistrictKey),
			District:    cell(row, colDistrict),
		},
		SourceKeys: []string{cell(row, colSourceKey)},
		Records:    Derive(snaps),
	}
}

// districtTotal reads the total-dose counter of block k. The published feed
// has no total column, so first + second dose is used when it is absent.
func districtTotal(row RawRow, schema Schema) func(k int) int64 {
	if f := schema.FieldIndex(MetricTotalDoses); f >= 0 {
		return func(k int) int64 { return parseIntOrZero(cell(row, schema.Column(k, f))) }
	}
	first, second := schema.FieldIndex(MetricFirstDose), schema.FieldIndex(MetricSecondDose)
	return func(k int) int64 {
		var sum int64
		if first >= 0 {
			sum += parseIntOrZero(cell(row, schema.Column(k, first)))
		}
		if second >= 0 {
			sum += parseIntOrZero(cell(row, schema.Column(k, second)))
		}
		return sum
	}
}
