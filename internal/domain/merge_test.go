package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(state, district, source string, total ...int64) DistrictSeries {
	return DistrictSeries{
		Key:        DistrictKey{State: state, District: district},
		SourceKeys: []string{source},
		Records:    Derive(snaps(MetricTotalDoses, total...)),
	}
}

func TestMergeDuplicates_SumsAndRederives(t *testing.T) {
	a := series("Telangana", "Hyderabad", "a", 10, 20, 35)
	b := series("Telangana", "Hyderabad", "b", 5, 5, 10)

	got, absorbed := MergeDuplicates([]DistrictSeries{a, b})

	require.Len(t, got, 1)
	assert.Equal(t, 2, absorbed)
	assert.Equal(t, []int64{15, 25, 45}, totals(got[0].Records))
	assert.Equal(t, int64(15), got[0].Records[0].Delta[MetricTotalDoses])
	assert.Equal(t, int64(10), got[0].Records[1].Delta[MetricTotalDoses])
	assert.Equal(t, []string{"a", "b"}, got[0].SourceKeys)
	assert.Equal(t, a.Key, got[0].Key)
}

func TestMergeDuplicates_TruncatesToShortest(t *testing.T) {
	a := series("Telangana", "Hyderabad", "a", 10, 20, 35)
	b := series("Telangana", "Hyderabad", "b", 5, 5)

	got, _ := MergeDuplicates([]DistrictSeries{a, b})

	require.Len(t, got, 1)
	assert.Equal(t, []int64{15, 25}, totals(got[0].Records))
	assert.InDelta(t, 12.5, got[0].Records[1].RollingAvg7[MetricTotalDoses], 1e-9)
	assert.Equal(t, a.Records[1].Date, got[0].Records[1].Date)
}

func TestMergeDuplicates_RecomputesDeltaFromMergedSeries(t *testing.T) {
	a := series("Bihar", "Patna", "a", 0, 100, 300)
	b := series("Bihar", "Patna", "b", 50, 60)

	got, _ := MergeDuplicates([]DistrictSeries{a, b})

	require.Len(t, got[0].Records, 2)
	assert.Equal(t, int64(110), got[0].Records[1].Delta[MetricTotalDoses])
	assert.Equal(t, int64(50), got[0].Records[0].Delta[MetricTotalDoses])
}

func TestMergeDuplicates_NWay(t *testing.T) {
	in := []DistrictSeries{
		series("Delhi", "New Delhi", "a", 1, 2),
		series("Goa", "North Goa", "g", 9),
		series("Delhi", "new  delhi", "b", 10, 20),
		series("Delhi", "New Delhi", "c", 100, 200, 300),
	}

	got, absorbed := MergeDuplicates(in)

	require.Len(t, got, 2)
	assert.Equal(t, 3, absorbed)
	assert.Equal(t, "New Delhi", got[0].Key.District, "merged series keeps first member position")
	assert.Equal(t, []int64{111, 222}, totals(got[0].Records))
	if diff := cmp.Diff([]string{"a", "b", "c"}, got[0].SourceKeys); diff != "" {
		t.Errorf("source keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, in[1], got[1])
}

func TestMergeDuplicates_SameDistrictDifferentState(t *testing.T) {
	in := []DistrictSeries{
		series("Maharashtra", "Aurangabad", "m", 5),
		series("Bihar", "Aurangabad", "b", 7),
	}

	got, absorbed := MergeDuplicates(in)

	assert.Len(t, got, 2)
	assert.Zero(t, absorbed)
}

func TestMergeDuplicates_EmptyMember(t *testing.T) {
	got, _ := MergeDuplicates([]DistrictSeries{
		series("Assam", "Kamrup", "a", 4, 5),
		{Key: DistrictKey{State: "Assam", District: "Kamrup"}, SourceKeys: []string{"b"}, Records: []DerivedRecord{}},
	})

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Records)
	assert.Equal(t, []string{"a", "b"}, got[0].SourceKeys)
}
