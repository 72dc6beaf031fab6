package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
)

// Feed names used in logs, metrics, and status.
const (
	FeedDistrict = "district"
	FeedState    = "state"
)

// FeedStatus describes the latest attempt to refresh one feed.
type FeedStatus struct {
	Feed        string    `json:"feed"`
	OK          bool      `json:"ok"`
	RunID       string    `json:"run_id,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	Error       string    `json:"error,omitempty"`
	// PublishError is set when the feed was processed but could not be
	// written to the sink. The served data is still current.
	PublishError    string   `json:"publish_error,omitempty"`
	Entities        int      `json:"entities"`
	Rejected        []string `json:"rejected,omitempty"`
	Inconsistencies int      `json:"inconsistencies"`
}

// Dataset is an immutable view of the latest results. A feed that failed in
// the last run keeps serving its last good data.
type Dataset struct {
	District       *domain.DistrictFeed
	State          *domain.StateFeed
	DistrictIssues []domain.Inconsistency
	StateIssues    []domain.Inconsistency
	Coverage       []domain.Coverage
	DistrictStatus FeedStatus
	StateStatus    FeedStatus
}

// Ready reports whether both feeds have succeeded at least once.
func (d *Dataset) Ready() bool {
	return d.District != nil && d.State != nil
}

// Store holds the current Dataset. Readers never see a partial update.
type Store struct {
	current atomic.Pointer[Dataset]
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Dataset{
		DistrictStatus: FeedStatus{Feed: FeedDistrict},
		StateStatus:    FeedStatus{Feed: FeedState},
	})
	return s
}

// Load returns the current dataset. Callers must not modify it.
func (s *Store) Load() *Dataset {
	return s.current.Load()
}

// feedUpdate is one feed's outcome in a run. A nil feed means the run failed.
type feedUpdate[T any] struct {
	feed   *T
	status FeedStatus
	issues []domain.Inconsistency
}

// apply builds the next dataset from the previous one and swaps it in.
// Only the refresh loop writes, so load-then-store does not race.
func (s *Store) apply(district feedUpdate[domain.DistrictFeed], state feedUpdate[domain.StateFeed], population *domain.PopulationTable) *Dataset {
	prev := s.Load()
	next := &Dataset{
		District:       prev.District,
		State:          prev.State,
		DistrictIssues: prev.DistrictIssues,
		StateIssues:    prev.StateIssues,
		DistrictStatus: mergeStatus(prev.DistrictStatus, district.status, district.feed != nil),
		StateStatus:    mergeStatus(prev.StateStatus, state.status, state.feed != nil),
	}
	if district.feed != nil {
		next.District = district.feed
		next.DistrictIssues = district.issues
	}
	if state.feed != nil {
		next.State = state.feed
		next.StateIssues = state.issues
	}
	next.Coverage = computeCoverage(population, next.District, next.State)

	s.current.Store(next)
	return next
}

// mergeStatus carries the last success forward when the current attempt failed.
func mergeStatus(prev, cur FeedStatus, ok bool) FeedStatus {
	if ok {
		return cur
	}
	cur.LastSuccess = prev.LastSuccess
	cur.Entities = prev.Entities
	cur.Rejected = prev.Rejected
	cur.Inconsistencies = prev.Inconsistencies
	return cur
}
