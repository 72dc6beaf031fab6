package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/observability"
	"github.com/couchcryptid/vaccine-data-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	districtURL = "http://feeds.test/districts.csv"
	stateURL    = "http://feeds.test/states.csv"
)

// --- mocks ---

type mockFetcher struct {
	mu    sync.Mutex
	rows  map[string][]domain.RawRow
	errs  map[string]error
	calls atomic.Int64
}

func newMockFetcher(t *testing.T) *mockFetcher {
	return &mockFetcher{
		rows: map[string][]domain.RawRow{
			districtURL: fixtureRows(t, "districts.csv"),
			stateURL:    fixtureRows(t, "states.csv"),
		},
		errs: map[string]error{},
	}
}

func (m *mockFetcher) Fetch(_ context.Context, _, url string) ([]domain.RawRow, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	return m.rows[url], nil
}

func (m *mockFetcher) set(url string, rows []domain.RawRow, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[url] = rows
	m.errs[url] = err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SeriesEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events []domain.SeriesEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	pipeline *pipeline.Pipeline
	store    *pipeline.Store
	fetcher  *mockFetcher
	pub      *mockPublisher
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
}

func newHarness(t *testing.T, interval time.Duration) *harness {
	t.Helper()
	h := &harness{
		store:   pipeline.NewStore(),
		fetcher: newMockFetcher(t),
		pub:     &mockPublisher{},
		clock:   clockwork.NewFakeClockAt(time.Date(2021, 5, 5, 6, 0, 0, 0, time.UTC)),
		// Use a fresh registry to avoid "already registered" panics in tests.
		metrics: observability.NewMetricsForTesting(),
	}
	h.pipeline = pipeline.New(h.fetcher, defaultProcessor(t), h.pub, h.store, pipeline.Options{
		DistrictURL: districtURL,
		StateURL:    stateURL,
		Interval:    interval,
		Population:  fixturePopulation(t),
	}, h.clock, discardLogger(), h.metrics)
	return h
}

// --- tests ---

func TestPipeline_RunOnce_HappyPath(t *testing.T) {
	h := newHarness(t, time.Hour)

	ds := h.pipeline.RunOnce(context.Background())

	require.True(t, ds.Ready())
	assert.Same(t, ds, h.store.Load())
	assert.True(t, ds.DistrictStatus.OK)
	assert.True(t, ds.StateStatus.OK)
	assert.NotEmpty(t, ds.DistrictStatus.RunID)
	assert.Equal(t, ds.DistrictStatus.RunID, ds.StateStatus.RunID)
	assert.Equal(t, h.clock.Now(), ds.DistrictStatus.LastSuccess)
	assert.Equal(t, 3, ds.DistrictStatus.Entities)
	assert.Equal(t, 3, ds.StateStatus.Entities, "nation plus two states")
	require.Len(t, ds.StateStatus.Rejected, 1)
	assert.Contains(t, ds.StateStatus.Rejected[0], "Assam")
	assert.Empty(t, ds.DistrictIssues)
	assert.NotEmpty(t, ds.StateIssues)

	entities := make([]string, len(ds.Coverage))
	for i, c := range ds.Coverage {
		entities[i] = c.Entity
	}
	assert.Equal(t, []string{"India", "Kerala", "Goa", "Kamrup", "Ernakulam"}, entities)
	require.NotNil(t, ds.Coverage[4].FirstDosePercent)
	assert.InDelta(t, 75.0, *ds.Coverage[4].FirstDosePercent, 1e-9)
	assert.Equal(t, "Kerala", ds.Coverage[4].State)

	assert.Len(t, h.pub.events, 6)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedDistrict, "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedState, "success")), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(h.metrics.MessagesProduced), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.MergedEntities), 0)
	assert.NoError(t, h.pipeline.CheckReadiness(context.Background()))
}

func TestPipeline_RunOnce_FeedFailureIsIsolated(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.fetcher.set(districtURL, nil, errors.New("connection refused"))

	ds := h.pipeline.RunOnce(context.Background())

	assert.Nil(t, ds.District)
	assert.False(t, ds.DistrictStatus.OK)
	assert.Contains(t, ds.DistrictStatus.Error, "connection refused")
	require.NotNil(t, ds.State)
	assert.True(t, ds.StateStatus.OK)
	assert.False(t, ds.Ready())

	err := h.pipeline.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "district")
	assert.NotContains(t, err.Error(), "state feed")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedDistrict, "fetch_error")), 0)
}

func TestPipeline_RunOnce_CorruptStateHeaderLeavesDistrictsUnchanged(t *testing.T) {
	clean := newHarness(t, time.Hour).pipeline.RunOnce(context.Background())

	h := newHarness(t, time.Hour)
	rows := fixtureRows(t, "states.csv")
	corrupt := append([]domain.RawRow{{"Date", "Region", "Doses"}}, rows[1:]...)
	h.fetcher.set(stateURL, corrupt, nil)
	ds := h.pipeline.RunOnce(context.Background())

	require.False(t, ds.StateStatus.OK)
	assert.Contains(t, ds.StateStatus.Error, "missing column")
	require.NotNil(t, ds.District)
	if diff := cmp.Diff(clean.District, ds.District); diff != "" {
		t.Fatalf("district output changed (-clean +corrupt):\n%s", diff)
	}
}

func TestPipeline_RunOnce_KeepsLastGoodData(t *testing.T) {
	h := newHarness(t, time.Hour)
	first := h.pipeline.RunOnce(context.Background())
	require.True(t, first.Ready())
	firstSuccess := first.DistrictStatus.LastSuccess

	h.clock.Advance(time.Hour)
	h.fetcher.set(districtURL, []domain.RawRow{{"not", "a", "feed"}}, nil)
	second := h.pipeline.RunOnce(context.Background())

	assert.Same(t, first.District, second.District, "failed refresh keeps serving the previous feed")
	assert.Equal(t, first.DistrictIssues, second.DistrictIssues)
	assert.False(t, second.DistrictStatus.OK)
	assert.Contains(t, second.DistrictStatus.Error, "district feed")
	assert.Equal(t, firstSuccess, second.DistrictStatus.LastSuccess)
	assert.Equal(t, h.clock.Now(), second.DistrictStatus.LastAttempt)
	assert.Equal(t, 3, second.DistrictStatus.Entities)
	assert.NotSame(t, first.State, second.State)
	assert.True(t, second.Ready())
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedDistrict, "parse_error")), 0)
}

func TestPipeline_RunOnce_PublishErrorKeepsData(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.pub.err = errors.New("broker unavailable")

	ds := h.pipeline.RunOnce(context.Background())

	require.True(t, ds.Ready())
	assert.True(t, ds.DistrictStatus.OK)
	assert.Contains(t, ds.DistrictStatus.PublishError, "broker unavailable")
	assert.Contains(t, ds.StateStatus.PublishError, "broker unavailable")
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedDistrict, "publish_error")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.Runs.WithLabelValues(pipeline.FeedDistrict, "success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.MessagesProduced), 0)
}

func TestPipeline_RunOnce_NilPublisher(t *testing.T) {
	store := pipeline.NewStore()
	p := pipeline.New(newMockFetcher(t), defaultProcessor(t), nil, store, pipeline.Options{
		DistrictURL: districtURL,
		StateURL:    stateURL,
		Interval:    time.Hour,
	}, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	ds := p.RunOnce(context.Background())
	assert.True(t, ds.Ready())
	assert.Empty(t, ds.Coverage, "no population table")
}

func TestPipeline_Run_RefreshesOnInterval(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Run(ctx) }()

	require.Eventually(t, func() bool { return h.fetcher.calls.Load() == 2 }, time.Second, time.Millisecond)
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PipelineRunning), 0)

	h.clock.Advance(29 * time.Minute)
	assert.Equal(t, int64(2), h.fetcher.calls.Load())

	h.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return h.fetcher.calls.Load() == 4 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.PipelineRunning), 0)
}

func TestPipeline_Run_RetriesFailedRunSooner(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.fetcher.set(stateURL, nil, errors.New("timeout"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.pipeline.Run(ctx) }()

	require.Eventually(t, func() bool { return h.fetcher.calls.Load() == 2 }, time.Second, time.Millisecond)
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))

	h.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return h.fetcher.calls.Load() == 4 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	h := newHarness(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := h.pipeline.Run(ctx)
	require.NoError(t, err)
}
