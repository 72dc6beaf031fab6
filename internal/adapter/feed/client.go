package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/observability"
)

// maxBodyBytes caps a single feed download. The district feed is the larger
// of the two and grows by one block per day.
const maxBodyBytes = 256 << 20

// Client downloads and splits feed CSVs.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch downloads url and returns its CSV rows.
func (c *Client) Fetch(ctx context.Context, feed, url string) ([]domain.RawRow, error) {
	resp, err := c.get(ctx, feed, url, validators{})
	if err != nil {
		return nil, err
	}
	return ParseCSV(resp.body)
}

// validators are the cache validators of a previous response.
type validators struct {
	etag         string
	lastModified string
}

func (v validators) empty() bool { return v.etag == "" && v.lastModified == "" }

type response struct {
	body        []byte
	validators  validators
	notModified bool
}

func (c *Client) get(ctx context.Context, feed, url string, prev validators) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	if prev.etag != "" {
		req.Header.Set("If-None-Match", prev.etag)
	}
	if prev.lastModified != "" {
		req.Header.Set("If-Modified-Since", prev.lastModified)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(feed, "error").Inc()
		return response{}, fmt.Errorf("fetch %s feed: %w", feed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		c.metrics.FetchRequests.WithLabelValues(feed, "not_modified").Inc()
		c.logger.Debug("feed not modified", "feed", feed, "duration", time.Since(start))
		return response{validators: prev, notModified: true}, nil
	case http.StatusOK:
	default:
		c.metrics.FetchRequests.WithLabelValues(feed, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return response{}, fmt.Errorf("fetch %s feed: status %d: %s", feed, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(feed, "error").Inc()
		return response{}, fmt.Errorf("read %s feed: %w", feed, err)
	}
	if len(body) > maxBodyBytes {
		c.metrics.FetchRequests.WithLabelValues(feed, "error").Inc()
		return response{}, fmt.Errorf("read %s feed: body exceeds %d bytes", feed, maxBodyBytes)
	}

	c.metrics.FetchRequests.WithLabelValues(feed, "success").Inc()
	c.logger.Debug("feed downloaded", "feed", feed, "bytes", len(body), "duration", time.Since(start))
	return response{
		body: body,
		validators: validators{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		},
	}, nil
}
