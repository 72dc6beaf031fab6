package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
)

// FeedProcessor applies the configured rules to fetched rows.
type FeedProcessor struct {
	rules  domain.Rules
	logger *slog.Logger
}

// NewProcessor creates a FeedProcessor for the given rules.
func NewProcessor(rules domain.Rules, logger *slog.Logger) *FeedProcessor {
	return &FeedProcessor{rules: rules, logger: logger}
}

// District processes the district feed.
func (p *FeedProcessor) District(rows []domain.RawRow) (domain.DistrictFeed, error) {
	feed, err := domain.ProcessDistrictFeed(rows, p.rules.District)
	if err != nil {
		return domain.DistrictFeed{}, err
	}
	if feed.Merged > 0 {
		p.logger.Debug("merged duplicate districts", "rows", feed.Merged)
	}
	return feed, nil
}

// State processes the state feed. Rejected regions are logged and the rest
// of the feed is kept.
func (p *FeedProcessor) State(rows []domain.RawRow) (domain.StateFeed, error) {
	feed, err := domain.ProcessStateFeed(rows, p.rules.State)
	if err != nil {
		return domain.StateFeed{}, err
	}
	for _, r := range feed.Rejected {
		p.logger.Warn("region rejected", "region", r.Entity, "error", r.Err)
	}
	if feed.Nation == nil {
		p.logger.Warn("state feed has no nation rows", "nation", p.rules.State.Nation)
	}
	return feed, nil
}
