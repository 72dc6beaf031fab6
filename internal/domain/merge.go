package domain

// MergeDuplicates folds series that share a normalized district|state name
// into one. A merged series sits where its first member was, takes that
// member's identity, lists every member's source key, and is re-derived from
// the summed cumulative counters truncated to the shortest member.
//
// The second return value is the number of raw series absorbed into merges.
func MergeDuplicates(series []DistrictSeries) ([]DistrictSeries, int) {
	groups := make(map[string][]int, len(series))
	order := make([]string, 0, len(series))
	for i, s := range series {
		key := EntityKey(s.Key.District, s.Key.State)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := make([]DistrictSeries, 0, len(order))
	absorbed := 0
	for _, key := range order {
		idx := groups[key]
		if len(idx) == 1 {
			out = append(out, series[idx[0]])
			continue
		}
		members := make([]DistrictSeries, len(idx))
		for j, i := range idx {
			members[j] = series[i]
		}
		out = append(out, mergeGroup(members))
		absorbed += len(idx)
	}
	return out, absorbed
}

func mergeGroup(members []DistrictSeries) DistrictSeries {
	n := len(members[0].Records)
	keys := make([]string, 0, len(members))
	for _, m := range members {
		n = min(n, len(m.Records))
		keys = append(keys, m.SourceKeys...)
	}

	snaps := make([]Snapshot, n)
	for k := range n {
		values := make(map[Metric]int64)
		for _, m := range members {
			for metric, v := range m.Records[k].Values {
				values[metric] += v
			}
		}
		snaps[k] = Snapshot{Date: members[0].Records[k].Date, Values: values}
	}

	return DistrictSeries{
		Key:        members[0].Key,
		SourceKeys: keys,
		Records:    Derive(snaps),
	}
}
