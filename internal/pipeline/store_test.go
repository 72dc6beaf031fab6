package pipeline

import (
	"testing"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current, maxBackoff, want time.Duration
	}{
		{30 * time.Second, 30 * time.Minute, time.Minute},
		{20 * time.Minute, 30 * time.Minute, 30 * time.Minute},
		{30 * time.Minute, 30 * time.Minute, 30 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextBackoff(tt.current, tt.maxBackoff))
	}
}

func TestMergeStatus(t *testing.T) {
	success := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	prev := FeedStatus{Feed: FeedState, OK: true, LastSuccess: success, Entities: 37, Rejected: []string{"x"}, Inconsistencies: 4}
	failed := FeedStatus{Feed: FeedState, LastAttempt: success.Add(time.Hour), Error: "boom"}

	got := mergeStatus(prev, failed, false)
	assert.False(t, got.OK)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, success, got.LastSuccess)
	assert.Equal(t, success.Add(time.Hour), got.LastAttempt)
	assert.Equal(t, 37, got.Entities)
	assert.Equal(t, []string{"x"}, got.Rejected)
	assert.Equal(t, 4, got.Inconsistencies)

	ok := FeedStatus{Feed: FeedState, OK: true, Entities: 2}
	assert.Equal(t, ok, mergeStatus(prev, ok, true))
}

func TestStore_EmptyDataset(t *testing.T) {
	s := NewStore()
	ds := s.Load()
	assert.False(t, ds.Ready())
	assert.Equal(t, FeedDistrict, ds.DistrictStatus.Feed)
	assert.Equal(t, FeedState, ds.StateStatus.Feed)
}

func TestStore_ApplyRecomputesCoverageFromRetainedFeed(t *testing.T) {
	pop, err := domain.ParsePopulation([]byte("State_Name,District_Name,Population\nGoa,,1000\n"))
	assert.NoError(t, err)

	goa := domain.RegionSeries{Region: "Goa", Records: domain.Derive([]domain.Snapshot{{
		Date:   time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		Values: map[domain.Metric]int64{domain.MetricFirstDose: 100, domain.MetricTotalDoses: 100},
	}})}

	s := NewStore()
	s.apply(
		feedUpdate[domain.DistrictFeed]{status: FeedStatus{Feed: FeedDistrict, Error: "down"}},
		feedUpdate[domain.StateFeed]{feed: &domain.StateFeed{States: []domain.RegionSeries{goa}}, status: FeedStatus{Feed: FeedState, OK: true}},
		pop,
	)
	ds := s.apply(
		feedUpdate[domain.DistrictFeed]{status: FeedStatus{Feed: FeedDistrict, Error: "down"}},
		feedUpdate[domain.StateFeed]{status: FeedStatus{Feed: FeedState, Error: "down"}},
		pop,
	)

	assert.Nil(t, ds.District)
	if assert.Len(t, ds.Coverage, 1) {
		assert.Equal(t, "Goa", ds.Coverage[0].Entity)
		assert.InDelta(t, 10.0, *ds.Coverage[0].FirstDosePercent, 1e-9)
	}
}
