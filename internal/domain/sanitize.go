package domain

// SanitizeRows drops rows matched by any exclusion rule and replaces every
// blank cell of the remaining rows with "0". Rules see the raw cells, so a
// rule can match on a blank column. The input is not modified.
func SanitizeRows(rows []RawRow, exclude []ExclusionRule) []RawRow {
	out := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		if excluded(row, exclude) {
			continue
		}
		clean := make(RawRow, len(row))
		for i, c := range row {
			if c == "" {
				c = "0"
			}
			clean[i] = c
		}
		out = append(out, clean)
	}
	return out
}

func excluded(row RawRow, rules []ExclusionRule) bool {
	for _, r := range rules {
		if r.Matches(row) {
			return true
		}
	}
	return false
}
