package domain

import "time"

// Granularity is the administrative level of a series.
type Granularity string

const (
	GranularityNation   Granularity = "nation"
	GranularityState    Granularity = "state"
	GranularityDistrict Granularity = "district"
)

// SeriesEvent is one entity's series ready to be published downstream.
// Every run republishes every entity; consumers keep the latest per Key.
type SeriesEvent struct {
	Key         string      `json:"key"`
	Granularity Granularity `json:"granularity"`
	RunID       string      `json:"run_id"`
	ProcessedAt time.Time   `json:"processed_at"`
	// Series is a *DistrictSeries or a *RegionSeries.
	Series any `json:"series"`
}

// Events flattens a district feed into one event per district, keyed by the
// normalized district|state name.
func (f DistrictFeed) Events(runID string, at time.Time) []SeriesEvent {
	out := make([]SeriesEvent, len(f.Districts))
	for i := range f.Districts {
		d := &f.Districts[i]
		out[i] = SeriesEvent{
			Key:         EntityKey(d.Key.District, d.Key.State),
			Granularity: GranularityDistrict,
			RunID:       runID,
			ProcessedAt: at,
			Series:      d,
		}
	}
	return out
}

// Events flattens a state feed into one event for the nation and one per
// state. State keys leave the district part empty.
func (f StateFeed) Events(runID string, at time.Time) []SeriesEvent {
	out := make([]SeriesEvent, 0, len(f.States)+1)
	if f.Nation != nil {
		out = append(out, SeriesEvent{
			Key:         EntityKey("", f.Nation.Region),
			Granularity: GranularityNation,
			RunID:       runID,
			ProcessedAt: at,
			Series:      f.Nation,
		})
	}
	for i := range f.States {
		s := &f.States[i]
		out = append(out, SeriesEvent{
			Key:         EntityKey("", s.Region),
			Granularity: GranularityState,
			RunID:       runID,
			ProcessedAt: at,
			Series:      s,
		})
	}
	return out
}
