package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads one feed and splits it into rows.
type Fetcher interface {
	Fetch(ctx context.Context, feed, url string) ([]domain.RawRow, error)
}

// Publisher writes derived series to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, events []domain.SeriesEvent) error
}

// Options configures a Pipeline.
type Options struct {
	DistrictURL string
	StateURL    string
	// Interval between successful refreshes. Failed refreshes retry sooner.
	Interval   time.Duration
	Population *domain.PopulationTable
}

// Pipeline periodically refreshes both feeds and swaps the results into a Store.
type Pipeline struct {
	fetcher   Fetcher
	processor *FeedProcessor
	publisher Publisher
	store     *Store
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. publisher may be nil to skip publishing.
func New(f Fetcher, p *FeedProcessor, pub Publisher, store *Store, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		processor: p,
		publisher: pub,
		store:     store,
		opts:      opts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once both feeds have been processed at least once,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	ds := p.store.Load()
	if ds.Ready() {
		return nil
	}
	var missing []error
	if ds.District == nil {
		missing = append(missing, fmt.Errorf("%s feed has not been processed yet", FeedDistrict))
	}
	if ds.State == nil {
		missing = append(missing, fmt.Errorf("%s feed has not been processed yet", FeedState))
	}
	return errors.Join(missing...)
}

// Run refreshes immediately and then on every interval until the context is
// cancelled. A run where any feed failed is retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.opts.Interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Retry failed runs starting at 30s, doubling, capped at the interval.
	// The feeds are static files, so a failure is usually a short outage.
	const initialBackoff = 30 * time.Second
	backoff := initialBackoff

	for {
		ds := p.RunOnce(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.opts.Interval
		if ds.DistrictStatus.OK && ds.StateStatus.OK {
			backoff = initialBackoff
		} else {
			wait = min(backoff, p.opts.Interval)
			backoff = nextBackoff(backoff, p.opts.Interval)
		}

		if !sleepWithContext(ctx, p.clock, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce refreshes both feeds concurrently and returns the resulting dataset.
// Each feed succeeds or fails on its own.
func (p *Pipeline) RunOnce(ctx context.Context) *Dataset {
	runID := uuid.NewString()
	at := p.clock.Now().UTC()
	logger := p.logger.With("run_id", runID)

	var (
		g        errgroup.Group
		district feedUpdate[domain.DistrictFeed]
		state    feedUpdate[domain.StateFeed]
	)
	g.Go(func() error {
		district = p.refreshDistrict(ctx, logger, runID, at)
		return statusErr(district.status)
	})
	g.Go(func() error {
		state = p.refreshState(ctx, logger, runID, at)
		return statusErr(state.status)
	})
	if err := g.Wait(); err != nil {
		logger.Warn("refresh incomplete", "error", err)
	}

	ds := p.store.apply(district, state, p.opts.Population)
	logger.Info("refresh complete",
		"district_ok", ds.DistrictStatus.OK,
		"state_ok", ds.StateStatus.OK,
		"coverage_entries", len(ds.Coverage),
	)
	return ds
}

func (p *Pipeline) refreshDistrict(ctx context.Context, logger *slog.Logger, runID string, at time.Time) feedUpdate[domain.DistrictFeed] {
	start := p.clock.Now()
	status := FeedStatus{Feed: FeedDistrict, RunID: runID, LastAttempt: at}

	rows, err := p.fetcher.Fetch(ctx, FeedDistrict, p.opts.DistrictURL)
	if err != nil {
		return feedUpdate[domain.DistrictFeed]{status: p.fail(logger, status, "fetch_error", err)}
	}
	feed, err := p.processor.District(rows)
	if err != nil {
		return feedUpdate[domain.DistrictFeed]{status: p.fail(logger, status, "parse_error", err)}
	}

	issues := feed.Inconsistencies()
	status.Entities = len(feed.Districts)
	status.Inconsistencies = len(issues)
	p.metrics.MergedEntities.Set(float64(feed.Merged))
	p.publish(ctx, logger, &status, feed.Events(runID, at))
	p.succeed(logger, &status, at, start, 0)
	return feedUpdate[domain.DistrictFeed]{feed: &feed, status: status, issues: issues}
}

func (p *Pipeline) refreshState(ctx context.Context, logger *slog.Logger, runID string, at time.Time) feedUpdate[domain.StateFeed] {
	start := p.clock.Now()
	status := FeedStatus{Feed: FeedState, RunID: runID, LastAttempt: at}

	rows, err := p.fetcher.Fetch(ctx, FeedState, p.opts.StateURL)
	if err != nil {
		return feedUpdate[domain.StateFeed]{status: p.fail(logger, status, "fetch_error", err)}
	}
	feed, err := p.processor.State(rows)
	if err != nil {
		return feedUpdate[domain.StateFeed]{status: p.fail(logger, status, "parse_error", err)}
	}

	issues := feed.Inconsistencies()
	status.Entities = len(feed.States)
	if feed.Nation != nil {
		status.Entities++
	}
	for _, r := range feed.Rejected {
		status.Rejected = append(status.Rejected, r.Error())
	}
	status.Inconsistencies = len(issues)
	p.publish(ctx, logger, &status, feed.Events(runID, at))
	p.succeed(logger, &status, at, start, len(feed.Rejected))
	return feedUpdate[domain.StateFeed]{feed: &feed, status: status, issues: issues}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, status *FeedStatus, events []domain.SeriesEvent) {
	if p.publisher == nil || len(events) == 0 {
		return
	}
	if err := p.publisher.Publish(ctx, events); err != nil {
		logger.Error("publish failed", "feed", status.Feed, "error", err)
		status.PublishError = err.Error()
		return
	}
	p.metrics.MessagesProduced.Add(float64(len(events)))
}

func (p *Pipeline) fail(logger *slog.Logger, status FeedStatus, outcome string, err error) FeedStatus {
	logger.Error("feed refresh failed", "feed", status.Feed, "outcome", outcome, "error", err)
	p.metrics.Runs.WithLabelValues(status.Feed, outcome).Inc()
	status.Error = err.Error()
	return status
}

func (p *Pipeline) succeed(logger *slog.Logger, status *FeedStatus, at, start time.Time, rejected int) {
	status.OK = true
	status.LastSuccess = at
	outcome := "success"
	if status.PublishError != "" {
		outcome = "publish_error"
	}
	p.metrics.Runs.WithLabelValues(status.Feed, outcome).Inc()
	p.metrics.RunDuration.WithLabelValues(status.Feed).Observe(p.clock.Since(start).Seconds())
	p.metrics.Entities.WithLabelValues(status.Feed).Set(float64(status.Entities))
	p.metrics.RejectedEntities.WithLabelValues(status.Feed).Set(float64(rejected))
	p.metrics.Inconsistencies.WithLabelValues(status.Feed).Set(float64(status.Inconsistencies))
	p.metrics.LastSuccessTimestamp.WithLabelValues(status.Feed).Set(float64(at.Unix()))
	logger.Info("feed refreshed",
		"feed", status.Feed,
		"entities", status.Entities,
		"rejected", rejected,
		"inconsistencies", status.Inconsistencies,
	)
}

func statusErr(s FeedStatus) error {
	if s.OK {
		return nil
	}
	return fmt.Errorf("%s feed: %s", s.Feed, s.Error)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
