package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/vaccine-data-etl/internal/adapter/feed"
	"github.com/couchcryptid/vaccine-data-etl/internal/config"
	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func fixtureRows(t *testing.T, name string) []domain.RawRow {
	t.Helper()
	rows, err := feed.ParseCSV(readFixture(t, name))
	require.NoError(t, err)
	return rows
}

func fixturePopulation(t *testing.T) *domain.PopulationTable {
	t.Helper()
	pop, err := domain.ParsePopulation(readFixture(t, "population.csv"))
	require.NoError(t, err)
	return pop
}

func defaultProcessor(t *testing.T) *pipeline.FeedProcessor {
	t.Helper()
	rules, err := config.LoadRules("")
	require.NoError(t, err)
	return pipeline.NewProcessor(rules, discardLogger())
}

func totalDoses(records []domain.DerivedRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Values[domain.MetricTotalDoses]
	}
	return out
}

func TestFeedProcessor_DistrictFixture(t *testing.T) {
	got, err := defaultProcessor(t).District(fixtureRows(t, "districts.csv"))
	require.NoError(t, err)

	require.Len(t, got.Dates, 4)
	require.Len(t, got.Districts, 3, "placeholder row excluded, duplicate merged")
	assert.Equal(t, 2, got.Merged)

	cases := []struct {
		state    string
		district string
		sources  []string
		totals   []int64
	}{
		{"Assam", "Kamrup", []string{"49"}, []int64{10, 20, 30}},
		{"Goa", "North Goa", []string{"151", "152"}, []int64{55, 65, 75, 85}},
		{"Kerala", "Ernakulam", []string{"307"}, []int64{100, 160, 240, 340}},
	}
	for i, tc := range cases {
		t.Run(tc.district, func(t *testing.T) {
			d := got.Districts[i]
			assert.Equal(t, tc.state, d.Key.State)
			assert.Equal(t, tc.district, d.Key.District)
			assert.Equal(t, tc.sources, d.SourceKeys)
			assert.Equal(t, tc.totals, totalDoses(d.Records))
		})
	}

	ernakulam := got.Districts[2].Records
	assert.Equal(t, int64(100), ernakulam[3].Delta[domain.MetricTotalDoses])
	assert.InDelta(t, 85.0, ernakulam[3].RollingAvg7[domain.MetricTotalDoses], 1e-9)
	assert.Empty(t, got.Inconsistencies())
}

func TestFeedProcessor_StateFixture(t *testing.T) {
	got, err := defaultProcessor(t).State(fixtureRows(t, "states.csv"))
	require.NoError(t, err)

	require.NotNil(t, got.Nation)
	assert.Equal(t, "India", got.Nation.Region)
	assert.True(t, got.Nation.Nation)
	assert.Equal(t, []int64{1000, 1600, 2400, 3400}, totalDoses(got.Nation.Records))

	regions := make([]string, len(got.States))
	for i, s := range got.States {
		regions[i] = s.Region
	}
	assert.Equal(t, []string{"Kerala", "Goa"}, regions, "unknown region dropped, out-of-order region rejected")
	assert.Equal(t, []int64{300, 420, 540}, totalDoses(got.States[0].Records), "trailing zero total trimmed")

	require.Len(t, got.Rejected, 1)
	assert.Equal(t, "Assam", got.Rejected[0].Entity)
	assert.ErrorIs(t, got.Rejected[0].Err, domain.ErrDateOrder)

	var goaDrops int
	for _, inc := range got.Inconsistencies() {
		if inc.Entity == "Goa" && inc.Kind == domain.KindNegativeDelta {
			goaDrops++
		}
	}
	assert.Positive(t, goaDrops)
}

func TestFeedProcessor_MalformedDistrictFeed(t *testing.T) {
	rows := fixtureRows(t, "districts.csv")
	rows[0] = rows[0][:domain.IdentityColumns+3]

	_, err := defaultProcessor(t).District(rows)
	require.ErrorIs(t, err, domain.ErrMalformedSchema)
}
