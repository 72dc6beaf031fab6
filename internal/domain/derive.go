package domain

// RollingWindow is the number of days in the rolling average.
const RollingWindow = 7

// Derive computes Delta and RollingAvg7 for every metric of every snapshot.
// Each metric is handled on its own column: a metric missing from an earlier
// snapshot reads as 0 there. The result has the same length and order as the
// input.
func Derive(snaps []Snapshot) []DerivedRecord {
	out := make([]DerivedRecord, len(snaps))
	for i, s := range snaps {
		rec := DerivedRecord{
			Snapshot:    s,
			Delta:       make(map[Metric]int64, len(s.Values)),
			RollingAvg7: make(map[Metric]float64, len(s.Values)),
		}
		for m, v := range s.Values {
			if i == 0 {
				rec.Delta[m] = v
			} else {
				rec.Delta[m] = v - snaps[i-1].Values[m]
			}
			if i < RollingWindow {
				rec.RollingAvg7[m] = float64(v) / float64(i+1)
			} else {
				rec.RollingAvg7[m] = float64(v-snaps[i-RollingWindow].Values[m]) / RollingWindow
			}
		}
		out[i] = rec
	}
	return out
}

// trimLength returns how many leading entries remain after dropping the
// trailing entries whose total is zero.
func trimLength(n int, total func(i int) int64) int {
	end := n
	for k := n - 1; k >= 0; k-- {
		if total(k) != 0 {
			break
		}
		end = k
	}
	return end
}
